package task

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/toolsascode/restorm/internal/api/http/response"
	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/database"
	"github.com/toolsascode/restorm/internal/events"
	"github.com/toolsascode/restorm/internal/resources/tablestat"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// recordingPublisher keeps published events in memory
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&tablestat.TableStat{}, &Task{}))
	return database.New(db)
}

func testDBConfig() config.DBConfig {
	return config.DBConfig{SelectLimit: 100, SelectMaxLimit: 1000, SelectIsDesc: false}
}

func setupRouter(t *testing.T, publisher events.Publisher) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := NewService(newTestDB(t), publisher)
	handler := NewHandler(service, testDBConfig())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(response.RequestIDKey, "req-1")
		c.Next()
	})
	router.Use(response.Middleware(response.Settings{APIVersion: "v1", Version: "1.0.0"}))
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, service
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Links   response.Links  `json:"links"`
	Meta    response.Meta   `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

type errorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Detail      []struct {
		Loc  []string `json:"loc"`
		Type string   `json:"type"`
	} `json:"detail"`
}

func do(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func createTask(t *testing.T, router http.Handler, body string) Task {
	t.Helper()
	w, env := do(t, router, http.MethodPost, "/api/v1/tasks", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func TestCreateTask(t *testing.T) {
	publisher := &recordingPublisher{}
	router, _ := setupRouter(t, publisher)

	w, env := do(t, router, http.MethodPost, "/api/v1/tasks", `{"name": "Task 1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Successfully created task.", env.Message)
	assert.Equal(t, "req-1", w.Header().Get(response.HeaderRequestID))
	assert.Equal(t, "req-1", env.Meta.RequestID)
	assert.Equal(t, http.MethodPost, env.Meta.Method)
	assert.Equal(t, "v1", env.Meta.APIVersion)
	assert.Equal(t, "http://example.com/api/v1/tasks", env.Links.Self)
	assert.Contains(t, w.Body.String(), `"error":null`)

	var task Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, "Task 1", task.Name)
	assert.Equal(t, DefaultPoint, task.Point)
	assert.True(t, strings.HasPrefix(task.ID, "tas"), task.ID)
	assert.False(t, task.CreatedAt.IsZero())

	assert.Equal(t, []string{"task.created"}, publisher.types())
}

func TestCreateTaskValidation(t *testing.T) {
	router, _ := setupRouter(t, nil)

	tests := []struct {
		name     string
		body     string
		wantLoc  []string
		wantType string
	}{
		{name: "missing name", body: `{"point": 10}`, wantLoc: []string{"body", "name"}, wantType: "value_error.required"},
		{name: "short name", body: `{"name": "a"}`, wantLoc: []string{"body", "name"}, wantType: "value_error.min"},
		{name: "invalid characters", body: `{"name": "bad<name>"}`, wantLoc: []string{"body", "name"}, wantType: "value_error.name_chars"},
		{name: "point too high", body: `{"name": "Task", "point": 110}`, wantLoc: []string{"body", "point"}, wantType: "value_error.max"},
		{name: "point not a multiple of ten", body: `{"name": "Task", "point": 15}`, wantLoc: []string{"body", "point"}, wantType: "value_error.multiple_of"},
		{name: "wrong type", body: `{"name": "Task", "point": "high"}`, wantLoc: []string{"body", "point"}, wantType: "type_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, router, http.MethodPost, "/api/v1/tasks", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.Equal(t, "Validation error!", env.Message)
			assert.Equal(t, "422_00000", w.Header().Get(response.HeaderErrorCode))

			var errBody errorBody
			require.NoError(t, json.Unmarshal(env.Error, &errBody))
			assert.Equal(t, "422_00000", errBody.Code)
			assert.NotEmpty(t, errBody.Description)
			require.Len(t, errBody.Detail, 1)
			assert.Equal(t, tt.wantLoc, errBody.Detail[0].Loc)
			assert.Equal(t, tt.wantType, errBody.Detail[0].Type)
		})
	}
}

func TestGetTask(t *testing.T) {
	router, _ := setupRouter(t, nil)
	created := createTask(t, router, `{"name": "Task 1", "point": 40}`)

	w, env := do(t, router, http.MethodGet, "/api/v1/tasks/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Successfully retrieved task info.", env.Message)

	var task Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, created.ID, task.ID)
	assert.Equal(t, 40, task.Point)
}

func TestGetTaskErrors(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w, env := do(t, router, http.MethodGet, "/api/v1/tasks/tas0000000_missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found task with 'tas0000000_missing' ID!", env.Message)
	assert.Equal(t, "404_00000", w.Header().Get(response.HeaderErrorCode))

	w, env = do(t, router, http.MethodGet, "/api/v1/tasks/short", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var errBody errorBody
	require.NoError(t, json.Unmarshal(env.Error, &errBody))
	require.Len(t, errBody.Detail, 1)
	assert.Equal(t, []string{"path", "task_id"}, errBody.Detail[0].Loc)
}

func TestUpdateTask(t *testing.T) {
	publisher := &recordingPublisher{}
	router, _ := setupRouter(t, publisher)
	created := createTask(t, router, `{"name": "Task 1"}`)

	w, env := do(t, router, http.MethodPut, "/api/v1/tasks/"+created.ID, `{"point": 0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Successfully updated task.", env.Message)

	var task Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, "Task 1", task.Name)
	assert.Equal(t, 0, task.Point)

	w, env = do(t, router, http.MethodPut, "/api/v1/tasks/"+created.ID, `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "No task data provided to update!", env.Message)

	w, _ = do(t, router, http.MethodPut, "/api/v1/tasks/tas0000000_missing", `{"name": "New"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"task.created", "task.updated"}, publisher.types())
}

func TestDeleteTask(t *testing.T) {
	publisher := &recordingPublisher{}
	router, service := setupRouter(t, publisher)
	created := createTask(t, router, `{"name": "Task 1"}`)
	createTask(t, router, `{"name": "Task 2"}`)

	w, _ := do(t, router, http.MethodDelete, "/api/v1/tasks/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())

	w, _ = do(t, router, http.MethodDelete, "/api/v1/tasks/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	stat, err := tablestat.Get(context.Background(), service.db.Read, TableName)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stat.InsertCount)
	assert.Equal(t, int64(1), stat.DeleteCount)
	assert.Equal(t, int64(1), stat.RowCount)

	assert.Equal(t, []string{"task.created", "task.created", "task.deleted"}, publisher.types())
}

func TestListTasksPagination(t *testing.T) {
	router, _ := setupRouter(t, nil)
	for _, name := range []string{"Task 1", "Task 2", "Task 3", "Task 4", "Task 5"} {
		createTask(t, router, `{"name": "`+name+`"}`)
	}

	w, env := do(t, router, http.MethodGet, "/api/v1/tasks?skip=2&limit=2&is_desc=false", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Successfully retrieved task list.", env.Message)
	require.NotNil(t, env.Meta.ListCount)
	require.NotNil(t, env.Meta.TotalCount)
	assert.Equal(t, 2, *env.Meta.ListCount)
	assert.Equal(t, int64(5), *env.Meta.TotalCount)

	assert.Equal(t, "/api/v1/tasks?is_desc=false&skip=0&limit=2", env.Links.First)
	assert.Equal(t, "/api/v1/tasks?is_desc=false&skip=0&limit=2", env.Links.Prev)
	assert.Equal(t, "/api/v1/tasks?is_desc=false&skip=4&limit=2", env.Links.Next)
	assert.Equal(t, "/api/v1/tasks?is_desc=false&skip=4&limit=2", env.Links.Last)

	var items []ListItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "/api/v1/tasks/"+items[0].ID, items[0].Links.Self)

	// last page has no next link
	_, env = do(t, router, http.MethodGet, "/api/v1/tasks?skip=4&limit=2", "")
	assert.Equal(t, 1, *env.Meta.ListCount)
	assert.Empty(t, env.Links.Next)
	assert.Equal(t, "/api/v1/tasks?skip=2&limit=2", env.Links.Prev)
}

func TestListTasksFilterAndEmpty(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w, env := do(t, router, http.MethodGet, "/api/v1/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Not found any task!", env.Message)
	assert.Equal(t, "[]", string(env.Data))
	assert.Empty(t, env.Links.First)

	createTask(t, router, `{"name": "Alpha", "point": 10}`)
	createTask(t, router, `{"name": "Beta", "point": 20}`)
	createTask(t, router, `{"name": "Gamma", "point": 20}`)

	_, env = do(t, router, http.MethodGet, "/api/v1/tasks?point=20", "")
	assert.Equal(t, 2, *env.Meta.ListCount)
	assert.Equal(t, int64(2), *env.Meta.TotalCount)

	_, env = do(t, router, http.MethodGet, "/api/v1/tasks?name=Alpha", "")
	assert.Equal(t, 1, *env.Meta.ListCount)
}

func TestListTasksInvalidQuery(t *testing.T) {
	router, _ := setupRouter(t, nil)

	tests := []struct {
		name   string
		target string
	}{
		{name: "negative skip", target: "/api/v1/tasks?skip=-1"},
		{name: "limit above max", target: "/api/v1/tasks?limit=1001"},
		{name: "non numeric limit", target: "/api/v1/tasks?limit=many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, router, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.Equal(t, "Validation error!", env.Message)
		})
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	router, _ := setupRouter(t, publisher)

	w, _ := do(t, router, http.MethodPost, "/api/v1/tasks", `{"name": "Task 1"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, publisher.types(), 1)
}
