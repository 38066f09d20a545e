package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/toolsascode/restorm/internal/api/http/dto"
	"github.com/toolsascode/restorm/internal/api/http/response"
	"github.com/toolsascode/restorm/internal/api/http/validation"
	"github.com/toolsascode/restorm/internal/apperrors"
	"github.com/toolsascode/restorm/internal/auth"
	"github.com/toolsascode/restorm/internal/logger"
	"github.com/toolsascode/restorm/internal/migration"

	"github.com/gin-gonic/gin"
)

// authenticate middleware validates the API token
func (h *Handler) authenticate(c *gin.Context) {
	if h.cfg.API.Token == "" {
		response.Abort(c, apperrors.Newf(apperrors.ServiceUnavailable, "Migration API is disabled!").
			WithDescription("API token is not configured."))
		return
	}

	token, err := auth.ExtractToken(c.GetHeader("Authorization"))
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		response.Abort(c, apperrors.New(apperrors.Unauthorized).WithDescription(err.Error()))
		return
	}

	if err := auth.ValidateToken(token, h.cfg.API.Token); err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		response.Abort(c, apperrors.New(apperrors.TokenInvalid))
		return
	}

	c.Next()
}

// setExecutionContext sets execution context in the request context
func (h *Handler) setExecutionContext(c *gin.Context) context.Context {
	executionContext := map[string]interface{}{
		"endpoint":   c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString(response.RequestIDKey),
	}
	return migration.SetExecutionContext(c.Request.Context(), "api_user", migration.MethodAPI, executionContext)
}

// listMigrations lists every revision with its state
func (h *Handler) listMigrations(c *gin.Context) {
	ctx := c.Request.Context()

	entries, err := h.migrator.History(ctx)
	if err != nil {
		response.Error(c, apperrors.Wrap(apperrors.DBError, err))
		return
	}
	current, err := h.migrator.Current(ctx)
	if err != nil {
		response.Error(c, apperrors.Wrap(apperrors.DBError, err))
		return
	}

	items := make([]dto.RevisionItem, 0, len(entries))
	pending := 0
	for _, e := range entries {
		items = append(items, dto.NewRevisionItem(e))
		if !e.IsApplied {
			pending++
		}
	}

	listCount := len(items)
	response.Write(c, response.Response{
		Status:  http.StatusOK,
		Message: "Successfully retrieved migration list.",
		Data: dto.RevisionsResponse{
			Items:   items,
			Heads:   h.migrator.Heads(),
			Current: current,
			Pending: pending,
		},
		ListCount: &listCount,
	})
}

// currentMigrations returns the applied head revisions
func (h *Handler) currentMigrations(c *gin.Context) {
	current, err := h.migrator.Current(c.Request.Context())
	if err != nil {
		response.Error(c, apperrors.Wrap(apperrors.DBError, err))
		return
	}
	response.OK(c, "Successfully retrieved current revisions.", gin.H{"current": current})
}

// headMigrations returns the head revisions of the graph
func (h *Handler) headMigrations(c *gin.Context) {
	response.OK(c, "Successfully retrieved head revisions.", gin.H{"heads": h.migrator.Heads()})
}

// migrationHistory returns the executed steps, newest first
func (h *Handler) migrationHistory(c *gin.Context) {
	var filters dto.HistoryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, validation.NewError(validation.LocQuery, err))
		return
	}

	records, err := h.migrator.Store().History(c.Request.Context(), migration.HistoryFilters{
		Revision: filters.Revision,
		Status:   filters.Status,
		Limit:    filters.Limit,
	})
	if err != nil {
		response.Error(c, apperrors.Wrap(apperrors.DBError, err))
		return
	}

	listCount := len(records)
	response.Write(c, response.Response{
		Status:    http.StatusOK,
		Message:   "Successfully retrieved migration history.",
		Data:      records,
		ListCount: &listCount,
	})
}

// upgrade handles upgrade requests
func (h *Handler) upgrade(c *gin.Context) {
	var req dto.UpgradeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.migrate(c, req.DryRun, func(ctx context.Context, m *migration.Migrator) (*migration.Result, error) {
		return m.Upgrade(ctx, req.Target)
	})
}

// downgrade handles downgrade requests
func (h *Handler) downgrade(c *gin.Context) {
	var req dto.DowngradeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.migrate(c, req.DryRun, func(ctx context.Context, m *migration.Migrator) (*migration.Result, error) {
		return m.Downgrade(ctx, req.Target)
	})
}

// bindOptionalJSON binds the body into obj, an empty body keeps the defaults
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, validation.NewError(validation.LocBody, err))
		return false
	}
	return true
}

func (h *Handler) migrate(c *gin.Context, dryRun bool, run func(ctx context.Context, m *migration.Migrator) (*migration.Result, error)) {
	ctx := h.setExecutionContext(c)

	migrator := h.migrator
	var sql bytes.Buffer
	if dryRun {
		migrator = migrator.DryRun(&sql)
	}

	result, err := run(ctx, migrator)
	data := dto.MigrateResponse{Result: result, DryRun: dryRun, SQL: sql.String()}
	if err != nil {
		switch {
		case errors.Is(err, migration.ErrMultipleHeads),
			errors.Is(err, migration.ErrUnknownRevision),
			errors.Is(err, migration.ErrAmbiguousRevision),
			errors.Is(err, migration.ErrNotApplied),
			errors.Is(err, migration.ErrInvalidTarget):
			response.Error(c, apperrors.Newf(apperrors.BadRequest, "Invalid migration target!").WithDescription(err.Error()))
		case result != nil:
			logger.WithRequestID(c.GetString(response.RequestIDKey)).Errorf("Migration run failed: %v", err)
			response.Write(c, response.Response{
				Status:  http.StatusInternalServerError,
				Message: "Migration failed!",
				Data:    data,
				Error:   apperrors.Wrap(apperrors.DBError, err).WithDescription(err.Error()),
			})
		default:
			response.Error(c, apperrors.Wrap(apperrors.InternalServerError, err))
		}
		return
	}

	message := "Successfully migrated database."
	if dryRun {
		message = "Successfully planned migration."
	}
	response.OK(c, message, data)
}
