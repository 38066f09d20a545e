//go:build integration

package http

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/database"
	"github.com/toolsascode/restorm/internal/migration"
	"github.com/toolsascode/restorm/internal/resources/task"
	"github.com/toolsascode/restorm/migrations"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegration_Postgres runs migrations and the task resource against
// the postgres database in RESTORM_TEST_DSN_URL
func TestIntegration_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	dsn := os.Getenv("RESTORM_TEST_DSN_URL")
	if dsn == "" {
		t.Skip("RESTORM_TEST_DSN_URL not set")
	}
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.API.Prefix = "/api/v1"
	cfg.API.Token = testToken

	gdb, err := database.OpenGorm(cfg.DB, dsn)
	require.NoError(t, err)
	db := database.New(gdb)
	t.Cleanup(func() { _ = db.Close() })

	migrator, err := migration.New(gdb, migrations.Versions(), migration.Options{
		Locker: migration.NewPostgresLocker(gdb, cfg.Migration.LockKey),
		Models: []any{&task.Task{}},
	})
	require.NoError(t, err)

	tasks := task.NewHandler(task.NewService(db, nil), cfg.DB)
	router, err := NewRouter(cfg, NewHandler(cfg, db, migrator, tasks))
	require.NoError(t, err)
	env := &testEnv{router: router, db: gdb}

	// Step 1: upgrade to head
	w := env.do(http.MethodPost, "/api/v1/migrations/upgrade", map[string]any{"target": "head"}, authHeader())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	t.Cleanup(func() {
		env.do(http.MethodPost, "/api/v1/migrations/downgrade", map[string]any{"target": "base"}, authHeader())
	})

	// Step 2: the schema matches the models
	_, err = migrator.Check(t.Context())
	require.NoError(t, err)

	// Step 3: create and list tasks
	for _, name := range []string{"Task 1", "Task 2", "Task 3"} {
		w = env.do(http.MethodPost, "/api/v1/tasks", map[string]any{"name": name, "point": 10}, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/v1/tasks?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	require.NotNil(t, body.Meta.TotalCount)
	assert.Equal(t, int64(3), *body.Meta.TotalCount)
	assert.Equal(t, "/api/v1/tasks?skip=2&limit=2", body.Links.Next)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &items))
	assert.Len(t, items, 2)

	// Step 4: health sees both connections
	w = env.do(http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
