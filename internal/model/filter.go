package model

import (
	"net/url"
	"strconv"
)

// TodoFilter selects todos for list queries. Nil fields match everything.
type TodoFilter struct {
	Completed *bool     `json:"completed,omitempty"`
	ProjectID *string   `json:"project_id,omitempty"`
	Priority  *Priority `json:"priority,omitempty"`
	Label     *string   `json:"label,omitempty"`
}

// Matches reports whether t satisfies every set criterion.
func (f TodoFilter) Matches(t Todo) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.ProjectID != nil && t.ProjectKey() != *f.ProjectID {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Label != nil && !t.HasLabel(*f.Label) {
		return false
	}
	return true
}

// Key returns a stable string identifying the filter, used to collapse
// identical in-flight requests.
func (f TodoFilter) Key() string {
	return f.Values().Encode()
}

// Values encodes the filter as query parameters.
func (f TodoFilter) Values() url.Values {
	v := url.Values{}
	if f.Completed != nil {
		v.Set("completed", strconv.FormatBool(*f.Completed))
	}
	if f.ProjectID != nil {
		v.Set("project_id", *f.ProjectID)
	}
	if f.Priority != nil {
		v.Set("priority", string(*f.Priority))
	}
	if f.Label != nil {
		v.Set("label", *f.Label)
	}
	return v
}

// Query encodes the filter with pagination parameters.
func (f TodoFilter) Query(skip, limit int) url.Values {
	v := f.Values()
	v.Set("skip", strconv.Itoa(skip))
	v.Set("limit", strconv.Itoa(limit))
	return v
}

// ParseTodoFilter is the inverse of Values.
func ParseTodoFilter(v url.Values) (TodoFilter, error) {
	var f TodoFilter
	if s := v.Get("completed"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return TodoFilter{}, err
		}
		f.Completed = &b
	}
	if s := v.Get("project_id"); s != "" {
		f.ProjectID = &s
	}
	if s := v.Get("priority"); s != "" {
		p, err := ParsePriority(s)
		if err != nil {
			return TodoFilter{}, err
		}
		f.Priority = &p
	}
	if s := v.Get("label"); s != "" {
		f.Label = &s
	}
	return f, nil
}
