package store

import (
	"context"
	"fmt"

	"github.com/nhle/todosync/internal/model"
)

// GetLabels returns every label carried by at least one active todo,
// with the number of active todos that carry it.
func (s *SQLiteStore) GetLabels(ctx context.Context) ([]model.Label, error) {
	labels := []model.Label{}
	err := s.db.SelectContext(ctx, &labels, `
		SELECT l.label AS name, COUNT(*) AS count
		FROM todo_labels l
		JOIN todos t ON t.id = l.todo_id
		WHERE t.completed = 0
		GROUP BY l.label
		ORDER BY l.label`)
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	return labels, nil
}
