package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TodoPatch is a partial update of a todo. Nil fields are left unchanged.
// Nullable attributes are cleared with the Clear* flags, which win over the
// matching pointer field.
type TodoPatch struct {
	Title           *string
	Description     *string
	Completed       *bool
	Priority        *Priority
	ProjectID       *string
	ClearProjectID  bool
	DueDate         *time.Time
	ClearDueDate    bool
	DueDateTimezone *string
	Labels          *[]string
	Subtasks        *[]SubTask
}

// IsEmpty reports whether the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.ProjectID == nil && !p.ClearProjectID &&
		p.DueDate == nil && !p.ClearDueDate && p.DueDateTimezone == nil &&
		p.Labels == nil && p.Subtasks == nil
}

// Validate rejects values the API would refuse.
func (p TodoPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("title must not be empty")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", *p.Priority)
	}
	return nil
}

// Apply merges the patch into t in place.
func (p TodoPatch) Apply(t *Todo) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearProjectID {
		t.ProjectID = nil
	} else if p.ProjectID != nil {
		id := *p.ProjectID
		t.ProjectID = &id
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.DueDateTimezone != nil {
		t.DueDateTimezone = *p.DueDateTimezone
	}
	if p.Labels != nil {
		t.Labels = NormalizeLabels(*p.Labels)
	}
	if p.Subtasks != nil {
		t.Subtasks = append([]SubTask{}, *p.Subtasks...)
	}
}

// TogglesCompletion reports whether applying the patch to t flips its
// completed flag.
func (p TodoPatch) TogglesCompletion(t Todo) bool {
	return p.Completed != nil && *p.Completed != t.Completed
}

// MarshalJSON emits only the fields the patch sets. Cleared fields are
// encoded as null.
func (p TodoPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Completed != nil {
		m["completed"] = *p.Completed
	}
	if p.Priority != nil {
		m["priority"] = *p.Priority
	}
	if p.ClearProjectID {
		m["project_id"] = nil
	} else if p.ProjectID != nil {
		m["project_id"] = *p.ProjectID
	}
	if p.ClearDueDate {
		m["due_date"] = nil
	} else if p.DueDate != nil {
		m["due_date"] = *p.DueDate
	}
	if p.DueDateTimezone != nil {
		m["due_date_timezone"] = *p.DueDateTimezone
	}
	if p.Labels != nil {
		m["labels"] = NormalizeLabels(*p.Labels)
	}
	if p.Subtasks != nil {
		m["subtasks"] = *p.Subtasks
	}
	return json.Marshal(m)
}

// patchWire mirrors the JSON form of a patch. RawMessage lets UnmarshalJSON
// tell an absent key from an explicit null.
type patchWire struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	Completed       *bool           `json:"completed"`
	Priority        *Priority       `json:"priority"`
	ProjectID       json.RawMessage `json:"project_id"`
	DueDate         json.RawMessage `json:"due_date"`
	DueDateTimezone *string         `json:"due_date_timezone"`
	Labels          *[]string       `json:"labels"`
	Subtasks        *[]SubTask      `json:"subtasks"`
}

// UnmarshalJSON decodes a PATCH body. Unknown field names are rejected so
// typos do not silently no-op.
func (p *TodoPatch) UnmarshalJSON(data []byte) error {
	var w patchWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("decoding todo patch: %w", err)
	}

	out := TodoPatch{
		Title:           w.Title,
		Description:     w.Description,
		Completed:       w.Completed,
		Priority:        w.Priority,
		DueDateTimezone: w.DueDateTimezone,
		Labels:          w.Labels,
		Subtasks:        w.Subtasks,
	}

	if len(w.ProjectID) > 0 {
		if string(w.ProjectID) == "null" {
			out.ClearProjectID = true
		} else {
			var id string
			if err := json.Unmarshal(w.ProjectID, &id); err != nil {
				return fmt.Errorf("decoding project_id: %w", err)
			}
			out.ProjectID = &id
		}
	}
	if len(w.DueDate) > 0 {
		if string(w.DueDate) == "null" {
			out.ClearDueDate = true
		} else {
			var d time.Time
			if err := json.Unmarshal(w.DueDate, &d); err != nil {
				return fmt.Errorf("decoding due_date: %w", err)
			}
			out.DueDate = &d
		}
	}

	*p = out
	return nil
}
