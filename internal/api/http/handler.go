package http

import (
	"net/http"

	"github.com/toolsascode/restorm/internal/api/http/response"
	"github.com/toolsascode/restorm/internal/apperrors"
	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/database"
	"github.com/toolsascode/restorm/internal/logger"
	"github.com/toolsascode/restorm/internal/migration"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
)

// Resource is a set of routes mounted under the API prefix
type Resource interface {
	RegisterRoutes(group *gin.RouterGroup)
}

// Handler handles HTTP API requests
type Handler struct {
	cfg       *config.Config
	db        *database.DB
	migrator  *migration.Migrator
	resources []Resource
	doc       *swag.Spec
	docJSON   string
}

// NewHandler creates a new HTTP handler. A nil migrator disables the migration routes.
func NewHandler(cfg *config.Config, db *database.DB, migrator *migration.Migrator, resources ...Resource) *Handler {
	doc := newDoc(cfg)
	return &Handler{
		cfg:       cfg,
		db:        db,
		migrator:  migrator,
		resources: resources,
		doc:       doc,
		docJSON:   renderDoc(doc),
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	prefix := h.cfg.API.Prefix

	if prefix != "" {
		router.GET("/", redirect(prefix+"/"))
		// unprefixed probe path for orchestrators
		router.GET("/health", h.Health)
		if h.cfg.App.Docs.Enabled {
			router.GET("/docs", redirect(prefix+"/docs"))
			router.GET("/openapi.json", redirect(prefix+"/openapi.json"))
		}
	}

	api := router.Group(prefix)
	{
		api.GET("/", h.welcome)
		api.GET("/ping", h.Ping)
		api.GET("/health", h.Health)

		if h.cfg.App.Docs.Enabled {
			api.GET("/docs", h.Docs)
			api.GET("/openapi.yaml", h.OpenAPISpec)
			api.GET("/openapi.json", h.OpenAPISpecJSON)
		}

		for _, resource := range h.resources {
			resource.RegisterRoutes(api)
		}

		if h.migrator != nil {
			migrations := api.Group("/migrations", h.authenticate)
			{
				migrations.GET("", h.listMigrations)
				migrations.GET("/current", h.currentMigrations)
				migrations.GET("/heads", h.headMigrations)
				migrations.GET("/history", h.migrationHistory)
				migrations.POST("/upgrade", h.upgrade)
				migrations.POST("/downgrade", h.downgrade)
			}
		}
	}
}

func redirect(location string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, location)
	}
}

func (h *Handler) welcome(c *gin.Context) {
	response.OK(c, "Welcome to the REST API service!", nil)
}

// Ping handles liveness probes
func (h *Handler) Ping(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	response.OK(c, "Pong!", nil)
}

type healthCheck struct {
	Message string `json:"message"`
	IsAlive bool   `json:"is_alive"`
}

// Health checks the write and read databases
func (h *Handler) Health(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	ctx := c.Request.Context()
	checks := map[string]healthCheck{
		"api": {Message: "API is up.", IsAlive: true},
	}
	healthy := true

	check := func(name, label string, ping func() error) {
		if err := ping(); err != nil {
			healthy = false
			checks[name] = healthCheck{Message: label + " is down!", IsAlive: false}
			logger.WithRequestID(c.GetString(response.RequestIDKey)).Warnf("%s health check failed: %v", label, err)
			return
		}
		checks[name] = healthCheck{Message: label + " is up.", IsAlive: true}
	}
	check("write_db", "Write database", func() error { return h.db.PingWrite(ctx) })
	check("read_db", "Read database", func() error { return h.db.PingRead(ctx) })

	if !healthy {
		response.Write(c, response.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Some services are unavailable!",
			Data:    checks,
			Error:   apperrors.New(apperrors.DBConnectError),
		})
		return
	}

	response.OK(c, "Everything is OK.", checks)
}
