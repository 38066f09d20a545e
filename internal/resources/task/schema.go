package task

import (
	"github.com/toolsascode/restorm/internal/api/http/response"
)

// DefaultPoint is used when a new task has no point
const DefaultPoint = 70

// CreateRequest is the body of a create request
type CreateRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=64,name_chars"`
	Point *int   `json:"point" binding:"omitempty,min=0,max=100,multiple_of=10"`
}

// UpdateRequest is the body of an update request, only the given fields change
type UpdateRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=2,max=64,name_chars"`
	Point *int    `json:"point" binding:"omitempty,min=0,max=100,multiple_of=10"`
}

// Values returns the columns to update
func (r UpdateRequest) Values() map[string]any {
	values := make(map[string]any)
	if r.Name != nil {
		values["name"] = *r.Name
	}
	if r.Point != nil {
		values["point"] = *r.Point
	}
	return values
}

// PathParams identifies a task in the URL
type PathParams struct {
	TaskID string `uri:"task_id" binding:"required,min=8,max=64"`
}

// ListQuery filters and pages the task list
type ListQuery struct {
	Name   string `form:"name" binding:"omitempty,min=2,max=64"`
	Point  *int   `form:"point" binding:"omitempty,min=0,max=100"`
	Skip   int    `form:"skip" binding:"min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	IsDesc *bool  `form:"is_desc"`
}

// ListItem is a task of the list response with a link to itself
type ListItem struct {
	Task
	Links response.Links `json:"links"`
}
