package task

import (
	"context"
	"errors"

	"github.com/toolsascode/restorm/internal/apperrors"
	"github.com/toolsascode/restorm/internal/database"
	"github.com/toolsascode/restorm/internal/events"
	"github.com/toolsascode/restorm/internal/logger"
	"github.com/toolsascode/restorm/internal/models"
	"github.com/toolsascode/restorm/internal/resources/tablestat"
)

// Filter selects a page of tasks
type Filter struct {
	Name   string
	Point  *int
	Skip   int
	Limit  int
	IsDesc bool
}

func (f Filter) where() models.Where {
	where := models.Where{}
	if f.Name != "" {
		where["name"] = f.Name
	}
	if f.Point != nil {
		where["point"] = *f.Point
	}
	return where
}

// Service implements the task operations on top of the database
type Service struct {
	db        *database.DB
	publisher events.Publisher
}

// NewService creates a task service. A nil publisher disables events.
func NewService(db *database.DB, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{db: db, publisher: publisher}
}

// List returns a page of tasks and the total number of tasks matching the filter.
// Unfiltered totals come from table_stats instead of a COUNT query.
func (s *Service) List(ctx context.Context, requestID string, filter Filter) ([]Task, int64, error) {
	where := filter.where()
	tasks, err := models.SelectByWhere[Task](ctx, s.db.Read, where, models.Page{
		Offset: filter.Skip,
		Limit:  filter.Limit,
		IsDesc: filter.IsDesc,
	})
	if err != nil {
		logger.WithRequestID(requestID).Errorf("Failed to get task list from database: %v", err)
		return nil, 0, &apperrors.Error{Code: apperrors.DBError, Msg: "Failed to get task list!", Err: err}
	}

	var total int64
	if len(where) == 0 {
		total, err = tablestat.GetRowCount(ctx, s.db.Read, TableName)
	} else {
		total, err = models.CountByWhere[Task](ctx, s.db.Read, where)
	}
	if err != nil {
		logger.WithRequestID(requestID).Errorf("Failed to count tasks: %v", err)
		return nil, 0, &apperrors.Error{Code: apperrors.DBError, Msg: "Failed to get task list!", Err: err}
	}

	return tasks, total, nil
}

// Create inserts a new task
func (s *Service) Create(ctx context.Context, requestID string, req CreateRequest) (*Task, error) {
	task := &Task{Name: req.Name, Point: DefaultPoint}
	if req.Point != nil {
		task.Point = *req.Point
	}

	if err := models.Insert(ctx, s.db.Write, task); err != nil {
		log := logger.WithRequestID(requestID)
		switch {
		case errors.Is(err, models.ErrUniqueConstraint):
			log.Errorf("Task ID conflict: %v", err)
			return nil, &apperrors.Error{Code: apperrors.DBUQError, Msg: "Failed to create task because of ID conflict!", Err: err}
		case errors.Is(err, models.ErrNullConstraint):
			return nil, apperrors.Newf(apperrors.UnprocessableEntity, "Task data is missing!").WithDescription("Task: " + err.Error())
		default:
			log.Errorf("Failed to create and save task data into database: %v", err)
			return nil, &apperrors.Error{Code: apperrors.DBError, Msg: "Failed to create task!", Err: err}
		}
	}

	s.publish(ctx, requestID, events.TypeCreated, task.ID, task)
	return task, nil
}

// Get returns the task with id
func (s *Service) Get(ctx context.Context, requestID, id string) (*Task, error) {
	task, err := models.GetByID[Task](ctx, s.db.Read, id)
	if err != nil {
		return nil, s.lookupError(requestID, id, "get", err)
	}
	return task, nil
}

// Update changes the given fields of the task with id
func (s *Service) Update(ctx context.Context, requestID, id string, req UpdateRequest) (*Task, error) {
	values := req.Values()
	if len(values) == 0 {
		return nil, apperrors.Newf(apperrors.UnprocessableEntity, "No task data provided to update!")
	}

	task, err := models.UpdateByID[Task](ctx, s.db.Write, id, values)
	if err != nil {
		return nil, s.lookupError(requestID, id, "update", err)
	}

	s.publish(ctx, requestID, events.TypeUpdated, task.ID, task)
	return task, nil
}

// Delete removes the task with id
func (s *Service) Delete(ctx context.Context, requestID, id string) error {
	if err := models.DeleteByID[Task](ctx, s.db.Write, id); err != nil {
		return s.lookupError(requestID, id, "delete", err)
	}

	s.publish(ctx, requestID, events.TypeDeleted, id, nil)
	return nil
}

func (s *Service) lookupError(requestID, id, action string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return apperrors.Newf(apperrors.NotFound, "Not found task with '%s' ID!", id)
	}
	logger.WithRequestID(requestID).Errorf("Failed to %s task with '%s' ID: %v", action, id, err)
	return &apperrors.Error{Code: apperrors.DBError, Msg: "Failed to " + action + " task!", Err: err}
}

// publish sends a change event; failures are logged and never fail the request
func (s *Service) publish(ctx context.Context, requestID, action, id string, data any) {
	event := events.New(Resource, action, id, requestID, data)
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WithRequestID(requestID).Warnf("Failed to publish %s event: %v", event.Type, err)
	}
}
