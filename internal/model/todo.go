package model

import (
	"fmt"
	"time"
)

// Priority is the urgency level of a todo.
type Priority string

// Priority values accepted by the API.
const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts user input into a Priority. Empty input means none.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNone, nil
	}
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (want none, low, medium or high)", s)
	}
	return p, nil
}

// UnmarshalText decodes a priority, treating empty as none.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Todo is a single to-do item as returned by the API.
type Todo struct {
	ID              string     `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description,omitempty" db:"description"`
	Completed       bool       `json:"completed" db:"completed"`
	Priority        Priority   `json:"priority" db:"priority"`
	ProjectID       *string    `json:"project_id,omitempty" db:"project_id"`
	DueDate         *time.Time `json:"due_date,omitempty" db:"due_date"`
	DueDateTimezone string     `json:"due_date_timezone,omitempty" db:"due_date_timezone"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`

	// Labels is a set; NormalizeLabels removes duplicates.
	Labels   []string  `json:"labels" db:"-"`
	Subtasks []SubTask `json:"subtasks" db:"-"`
}

// SubTask is an ordered child entry of a todo. Its lifecycle is bound to
// the parent.
type SubTask struct {
	ID        string `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Completed bool   `json:"completed" db:"completed"`
}

// Clone returns a deep copy of t.
func (t Todo) Clone() Todo {
	c := t
	if t.ProjectID != nil {
		id := *t.ProjectID
		c.ProjectID = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Labels != nil {
		c.Labels = append([]string{}, t.Labels...)
	}
	if t.Subtasks != nil {
		c.Subtasks = append([]SubTask{}, t.Subtasks...)
	}
	return c
}

// ProjectKey returns the project id or "" when the todo has none.
func (t Todo) ProjectKey() string {
	if t.ProjectID == nil {
		return ""
	}
	return *t.ProjectID
}

// HasLabel reports whether the todo carries the named label.
func (t Todo) HasLabel(name string) bool {
	for _, l := range t.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// NormalizeLabels removes empty and duplicate labels, keeping first
// occurrence order.
func NormalizeLabels(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// TodoInput is the body of a create request.
type TodoInput struct {
	Title           string     `json:"title" binding:"required" validate:"required"`
	Description     string     `json:"description,omitempty"`
	Completed       bool       `json:"completed"`
	Priority        Priority   `json:"priority,omitempty"`
	ProjectID       *string    `json:"project_id,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	DueDateTimezone string     `json:"due_date_timezone,omitempty"`
	Labels          []string   `json:"labels,omitempty"`
	Subtasks        []SubTask  `json:"subtasks,omitempty"`
}
