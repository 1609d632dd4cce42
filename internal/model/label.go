package model

// Label is a named tag with the number of active (non-completed) todos
// that carry it.
type Label struct {
	Name  string `json:"name" db:"name"`
	Count int    `json:"count" db:"count"`
}
