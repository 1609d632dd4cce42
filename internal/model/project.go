package model

// Project is a grouping container for related todos. TodoCount is
// maintained locally between refreshes and may drift from the server.
type Project struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	IsDefault bool   `json:"is_default" db:"is_default"`
	TodoCount int    `json:"todo_count" db:"todo_count"`
}

// ProjectInput is the body of a project create request.
type ProjectInput struct {
	Name string `json:"name" binding:"required"`
}

// DefaultProjectID returns the id of the default project, or "" if the
// list has none.
func DefaultProjectID(projects []Project) string {
	for _, p := range projects {
		if p.IsDefault {
			return p.ID
		}
	}
	return ""
}
