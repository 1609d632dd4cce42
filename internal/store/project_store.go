package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/todosync/internal/model"
)

// CreateProject inserts a new, non-default project.
func (s *SQLiteStore) CreateProject(ctx context.Context, name string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty: %w", ErrInvalid)
	}

	var exists int
	if err := s.db.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM projects WHERE name = ?", name); err != nil {
		return nil, fmt.Errorf("checking project name: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("project %q already exists: %w", name, ErrInvalid)
	}

	project := model.Project{
		ID:   uuid.New().String(),
		Name: name,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, is_default, created_at) VALUES (?, ?, 0, ?)",
		project.ID, project.Name, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return &project, nil
}

// GetProjects returns all projects with the number of todos in each,
// the default project first.
func (s *SQLiteStore) GetProjects(ctx context.Context) ([]model.Project, error) {
	projects := []model.Project{}
	err := s.db.SelectContext(ctx, &projects, `
		SELECT p.id, p.name, p.is_default, COUNT(t.id) AS todo_count
		FROM projects p
		LEFT JOIN todos t ON t.project_id = p.id
		GROUP BY p.id
		ORDER BY p.is_default DESC, p.created_at, p.name`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}

// DefaultProjectID returns the id of the project flagged as default.
func (s *SQLiteStore) DefaultProjectID(ctx context.Context) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id,
		"SELECT id FROM projects WHERE is_default = 1 ORDER BY created_at LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("default project: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting default project: %w", err)
	}
	return id, nil
}

// requireProject reports ErrInvalid when a todo references a project
// that does not exist.
func (s *SQLiteStore) requireProject(ctx context.Context, id string) error {
	var n int
	if err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("checking project %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrInvalid)
	}
	return nil
}
