// Package response writes the JSON envelope shared by every API endpoint:
//
//	{"message": ..., "data": ..., "links": {...}, "meta": {...}, "error": ...}
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/toolsascode/restorm/internal/apperrors"
	"github.com/toolsascode/restorm/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	HeaderRequestID   = "X-Request-Id"
	HeaderErrorCode   = "X-Error-Code"
	HeaderProcessTime = "X-Process-Time"

	// RequestIDKey is the gin context key holding the request id
	RequestIDKey = "request_id"

	settingsKey = "response_settings"
)

// Settings are the service wide values rendered into every envelope
type Settings struct {
	APIVersion string
	Version    string
	// HideServerErrors drops the error object of 5xx responses
	HideServerErrors bool
	// BehindProxy trusts X-Forwarded-Proto and X-Forwarded-Host for links
	BehindProxy bool
}

// Middleware stores s in the request context
func Middleware(s Settings) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(settingsKey, s)
		c.Next()
	}
}

func settings(c *gin.Context) Settings {
	if v, ok := c.Get(settingsKey); ok {
		if s, ok := v.(Settings); ok {
			return s
		}
	}
	return Settings{}
}

// Links of the current request or resource
type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

// Meta describes the current request
type Meta struct {
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	APIVersion string `json:"api_version"`
	Version    string `json:"version"`
	ListCount  *int   `json:"list_count,omitempty"`
	TotalCount *int64 `json:"total_count,omitempty"`
}

// Body is the response envelope
type Body struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
	Links   Links  `json:"links"`
	Meta    Meta   `json:"meta"`
	Error   any    `json:"error"`
}

// Response is the input of Write
type Response struct {
	Status     int
	Message    string
	Data       any
	Links      Links
	ListCount  *int
	TotalCount *int64
	Error      any
}

// Build assembles the envelope of r for the current request
func Build(c *gin.Context, r Response) Body {
	s := settings(c)
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	errBody := r.Error
	if s.HideServerErrors && status >= http.StatusInternalServerError {
		errBody = nil
	}
	if errBody == nil && status >= http.StatusBadRequest {
		errBody = strings.TrimSuffix(apperrors.Description(status), ".") + "!"
	}

	message := r.Message
	if message == "" {
		if appErr, ok := r.Error.(*apperrors.Error); ok {
			message = appErr.ResponseMessage()
		} else {
			message = http.StatusText(status)
		}
	}

	links := r.Links
	links.Self = SelfLink(c, s)

	return Body{
		Message: message,
		Data:    r.Data,
		Links:   links,
		Meta: Meta{
			RequestID:  c.GetString(RequestIDKey),
			Method:     c.Request.Method,
			APIVersion: s.APIVersion,
			Version:    s.Version,
			ListCount:  r.ListCount,
			TotalCount: r.TotalCount,
		},
		Error: errBody,
	}
}

// Write sends r wrapped in the envelope
func Write(c *gin.Context, r Response) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	if id := c.GetString(RequestIDKey); id != "" {
		c.Header(HeaderRequestID, id)
	}
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}

	body := Build(c, r)
	if appErr, ok := body.Error.(*apperrors.Error); ok {
		c.Header(HeaderErrorCode, appErr.Code.Code)
	}
	c.JSON(status, body)
}

// OK sends a 200 response
func OK(c *gin.Context, message string, data any) {
	Write(c, Response{Status: http.StatusOK, Message: message, Data: data})
}

// Created sends a 201 response
func Created(c *gin.Context, message string, data any) {
	Write(c, Response{Status: http.StatusCreated, Message: message, Data: data})
}

// NoContent sends an empty 204 response
func NoContent(c *gin.Context) {
	Write(c, Response{Status: http.StatusNoContent})
}

// Error sends err as an error response. Errors that are not *apperrors.Error become 500s.
func Error(c *gin.Context, err error) {
	appErr := AsAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.WithRequestID(c.GetString(RequestIDKey)).Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, appErr)
	}
	Write(c, Response{Status: appErr.StatusCode, Message: appErr.ResponseMessage(), Error: appErr})
}

// Abort sends err and stops the handler chain
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// AsAppError returns err as an *apperrors.Error
func AsAppError(err error) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(apperrors.InternalServerError, err)
}

// SelfLink returns the absolute URL of the current request
func SelfLink(c *gin.Context, s Settings) string {
	proto := "http"
	if c.Request.TLS != nil {
		proto = "https"
	}
	host := c.Request.Host
	if s.BehindProxy {
		if v := c.GetHeader("X-Forwarded-Proto"); v != "" {
			proto = strings.TrimSpace(strings.Split(v, ",")[0])
		}
		if v := c.GetHeader("X-Forwarded-Host"); v != "" {
			host = strings.TrimSpace(strings.Split(v, ",")[0])
		}
	}
	return fmt.Sprintf("%s://%s%s", proto, host, c.Request.URL.RequestURI())
}

// PageLinks builds the first, prev, next and last links of a skip/limit listing.
// Other query parameters of the request are kept.
func PageLinks(c *gin.Context, skip, limit int, hasNext bool, total int64) Links {
	query := c.Request.URL.Query()
	query.Del("skip")
	query.Del("limit")

	base := c.Request.URL.Path + "?"
	if encoded := query.Encode(); encoded != "" {
		base += encoded + "&"
	}
	link := func(s int) string {
		return fmt.Sprintf("%sskip=%d&limit=%d", base, s, limit)
	}

	var links Links
	if total > 0 && limit > 0 {
		links.First = link(0)
		lastSkip := int(total/int64(limit)) * limit
		if int64(lastSkip) == total {
			lastSkip -= limit
		}
		links.Last = link(lastSkip)
	}
	if hasNext {
		links.Next = link(skip + limit)
	}
	if skip > 0 {
		links.Prev = link(max(skip-limit, 0))
	}
	return links
}
