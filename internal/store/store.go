package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/todosync/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned when input fails validation.
	ErrInvalid = errors.New("invalid input")
)

// TodoFilter controls filtering and pagination for todo queries.
// Results are ordered newest first.
type TodoFilter struct {
	model.TodoFilter
	Limit  int
	Offset int
}

// Store defines the persistence interface behind the todo API.
type Store interface {
	// === Todo CRUD ===

	CreateTodo(ctx context.Context, input model.TodoInput) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	GetTodoByID(ctx context.Context, id string) (*model.Todo, error)
	GetTodos(ctx context.Context, filter TodoFilter) ([]model.Todo, error)
	GetTodoCounts(ctx context.Context, now time.Time) (model.Counts, error)

	// === Projects ===

	CreateProject(ctx context.Context, name string) (*model.Project, error)
	GetProjects(ctx context.Context) ([]model.Project, error)
	DefaultProjectID(ctx context.Context) (string, error)

	// === Labels ===

	GetLabels(ctx context.Context) ([]model.Label, error)
}
