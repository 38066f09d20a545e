package http

import (
	"github.com/toolsascode/restorm/internal/api/http/response"
	"github.com/toolsascode/restorm/internal/apperrors"
	"github.com/toolsascode/restorm/internal/config"

	"github.com/gin-gonic/gin"
)

// NewRouter creates the gin engine with the middleware chain and the routes of handler
func NewRouter(cfg *config.Config, handler *Handler) (*gin.Engine, error) {
	switch {
	case gin.Mode() == gin.TestMode:
	case cfg.Debug || cfg.Env == config.EnvLocal:
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	proxies := cfg.App.TrustedProxies
	if !cfg.App.BehindProxy {
		proxies = nil
	}
	if err := router.SetTrustedProxies(proxies); err != nil {
		return nil, err
	}

	router.Use(
		RequestID(),
		ProcessTime(),
		response.Middleware(response.Settings{
			APIVersion:       cfg.API.Version,
			Version:          cfg.Version,
			HideServerErrors: cfg.IsProduction(),
			BehindProxy:      cfg.App.BehindProxy,
		}),
		AccessLog(cfg.API.Prefix),
		CORS(cfg.App.CORS),
		Recovery(),
	)

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, apperrors.New(apperrors.NotFound))
	})
	router.NoMethod(func(c *gin.Context) {
		response.Error(c, apperrors.New(apperrors.MethodNotAllowed))
	})

	handler.RegisterRoutes(router)
	return router, nil
}
