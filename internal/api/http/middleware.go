package http

import (
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/toolsascode/restorm/internal/api/http/response"
	"github.com/toolsascode/restorm/internal/apperrors"
	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]{8,64}$`)

// RequestID takes X-Request-Id (or X-Correlation-Id) from the request when valid,
// otherwise generates one, and echoes it in the response
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(response.HeaderRequestID)
		if id == "" {
			id = c.GetHeader("X-Correlation-Id")
		}
		if !requestIDPattern.MatchString(id) {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")
		}

		c.Set(response.RequestIDKey, id)
		c.Header(response.HeaderRequestID, id)
		c.Next()
	}
}

// processTimeWriter stamps X-Process-Time right before the status line is written
type processTimeWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *processTimeWriter) stamp() {
	if w.stamped {
		return
	}
	w.stamped = true
	w.Header().Set(response.HeaderProcessTime, strconv.FormatFloat(time.Since(w.start).Seconds(), 'f', 6, 64))
}

func (w *processTimeWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *processTimeWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *processTimeWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *processTimeWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

// ProcessTime adds X-Process-Time, the handling time in seconds
func ProcessTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &processTimeWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Next()
	}
}

// AccessLog logs every request through the application logger, skipping health and ping probes
func AccessLog(prefix string) gin.HandlerFunc {
	skip := map[string]bool{
		"/health":           true,
		prefix + "/health": true,
		prefix + "/ping":    true,
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if skip[c.Request.URL.Path] {
			return
		}

		status := c.Writer.Status()
		entry := logger.WithFields(map[string]interface{}{
			"request_id": c.GetString(response.RequestIDKey),
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})

		level := logrus.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = logrus.ErrorLevel
		case status >= http.StatusBadRequest:
			level = logrus.WarnLevel
		}
		entry.Logf(level, "%s %s %d", c.Request.Method, c.Request.URL.RequestURI(), status)
	}
}

// CORS applies the configured cross-origin policy
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowAll := slices.Contains(cfg.AllowOrigins, "*")
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}
		if !allowAll && !slices.Contains(cfg.AllowOrigins, origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		if allowAll && !cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if expose != "" {
			h.Set("Access-Control-Expose-Headers", expose)
		}

		// Preflight
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Recovery turns a panic into a 500 envelope
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithRequestID(c.GetString(response.RequestIDKey)).Errorf("Panic while handling %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		response.Abort(c, apperrors.New(apperrors.InternalServerError))
	})
}
