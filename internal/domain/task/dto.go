// internal/domain/task/dto.go
package task

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CreateTaskRequest for creating a task
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Status      Status     `json:"status" binding:"omitempty,oneof=todo in_progress done cancelled"`
	Priority    Priority   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTaskRequest is a partial update; nil fields are left alone.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Status      *Status    `json:"status" binding:"omitempty,oneof=todo in_progress done cancelled"`
	Priority    *Priority  `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"dueDate"`
}

// Empty reports whether the update changes nothing.
func (r *UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil && r.Priority == nil && r.DueDate == nil
}

// ListQuery filters a user's tasks.
type ListQuery struct {
	Statuses   []Status
	Priorities []Priority
	Search     string
	Page       int
	Limit      int
}

// Normalize clamps paging to sane bounds.
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
}

func (q *ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// CacheKey is stable for equal queries.
func (q *ListQuery) CacheKey() string {
	statuses := make([]string, len(q.Statuses))
	for i, s := range q.Statuses {
		statuses[i] = string(s)
	}
	priorities := make([]string, len(q.Priorities))
	for i, p := range q.Priorities {
		priorities[i] = string(p)
	}
	return fmt.Sprintf("s=%s:p=%s:q=%s:%d:%d",
		strings.Join(statuses, ","), strings.Join(priorities, ","), q.Search, q.Page, q.Limit)
}

// ListResponse is one page of tasks.
type ListResponse struct {
	Tasks      []*Task `json:"tasks"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// ParseStatuses splits a comma separated filter and rejects unknown values.
func ParseStatuses(raw string) ([]Status, error) {
	var out []Status
	for _, part := range splitList(raw) {
		s := Status(part)
		if !s.Valid() {
			return nil, fmt.Errorf("unknown status %q", part)
		}
		out = append(out, s)
	}
	return out, nil
}

// ParsePriorities splits a comma separated filter and rejects unknown values.
func ParsePriorities(raw string) ([]Priority, error) {
	var out []Priority
	for _, part := range splitList(raw) {
		p := Priority(part)
		if !p.Valid() {
			return nil, fmt.Errorf("unknown priority %q", part)
		}
		out = append(out, p)
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
