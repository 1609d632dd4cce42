package todostore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/todosync/internal/model"
)

// CreateTodo creates a todo on the server. Nothing is inserted locally
// until the server answers; the new todo then goes to the head of the list
// if it matches the active filter, and the project and label aggregates are
// incremented.
func (s *Store) CreateTodo(ctx context.Context, input model.TodoInput) (*model.Todo, error) {
	s.begin()

	created, err := s.backend.CreateTodo(ctx, input)
	if err != nil {
		return nil, s.fail("create_todo", fmt.Errorf("creating todo: %w", err))
	}

	t := created.Clone()
	t.Labels = model.NormalizeLabels(t.Labels)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.Matches(t) && s.indexOf(t.ID) < 0 {
		s.todos = append([]model.Todo{t.Clone()}, s.todos...)
	}
	s.bumpProject(t.ProjectKey(), 1)
	s.bumpLabels(activeLabels(t), 1)

	s.logger.Debug("todo created", zap.String("id", t.ID))
	return &t, nil
}

// OptimisticUpdateTodo applies patch to the local todo right away and
// records it as pending. When the patch flips the completed flag the
// bucket counters are moved as the server is expected to move them. The
// returned copy is the todo before the change, for RevertOptimisticUpdate.
func (s *Store) OptimisticUpdateTodo(id string, patch model.TodoPatch) (model.Todo, error) {
	if patch.IsEmpty() {
		return model.Todo{}, ErrEmptyPatch
	}
	if err := patch.Validate(); err != nil {
		return model.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isPendingLocked(id) {
		return model.Todo{}, fmt.Errorf("updating todo %s: %w", id, ErrMutationPending)
	}
	i := s.indexOf(id)
	if i < 0 {
		return model.Todo{}, fmt.Errorf("updating todo %s: %w", id, ErrTodoNotFound)
	}

	before := s.todos[i].Clone()
	after := before.Clone()
	patch.Apply(&after)

	var delta model.Counts
	if patch.TogglesCompletion(before) {
		delta = s.completionDelta(before, after)
		s.applyCounts(delta)
	}
	s.todos[i] = after
	s.pendingUpdates[id] = &pendingUpdate{
		patch:     patch,
		confirmed: before.Clone(),
		delta:     delta,
	}
	pendingMutations.WithLabelValues("update").Inc()

	return before, nil
}

// UpdateTodo sends patch to the server. On success the local copy is
// replaced by the server's, the pending entry is cleared and project and
// label counts are moved from the last confirmed copy to the new one. On
// failure the optimistic change stays in place; the caller must revert it.
func (s *Store) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error) {
	s.begin()

	updated, err := s.backend.UpdateTodo(ctx, id, patch)
	if err != nil {
		return nil, s.fail("update_todo", fmt.Errorf("updating todo %s: %w", id, err))
	}

	server := updated.Clone()
	server.Labels = model.NormalizeLabels(server.Labels)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	var (
		before model.Todo
		known  bool
	)
	if p, ok := s.pendingUpdates[id]; ok {
		before, known = p.confirmed, true
		delete(s.pendingUpdates, id)
		pendingMutations.WithLabelValues("update").Dec()
	} else if i >= 0 {
		before, known = s.todos[i], true
	}

	if i >= 0 {
		s.todos[i] = server.Clone()
	}
	if known {
		s.reconcileAggregates(before, server)
	}
	reconciliations.WithLabelValues("update").Inc()

	return &server, nil
}

// RevertOptimisticUpdate restores original and undoes exactly the counter
// change the optimistic update made.
func (s *Store) RevertOptimisticUpdate(id string, original model.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pendingUpdates[id]; ok {
		s.applyCounts(p.delta.Negate())
		delete(s.pendingUpdates, id)
		pendingMutations.WithLabelValues("update").Dec()
	}
	if i := s.indexOf(id); i >= 0 {
		s.todos[i] = original.Clone()
	}
	reverts.WithLabelValues("update").Inc()

	s.logger.Debug("optimistic update reverted", zap.String("id", id))
}

// OptimisticDeleteTodo removes the todo from the visible list and records
// it as pending. The returned copy is what RevertOptimisticDelete needs.
func (s *Store) OptimisticDeleteTodo(id string) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isPendingLocked(id) {
		return model.Todo{}, fmt.Errorf("deleting todo %s: %w", id, ErrMutationPending)
	}
	i := s.indexOf(id)
	if i < 0 {
		return model.Todo{}, fmt.Errorf("deleting todo %s: %w", id, ErrTodoNotFound)
	}

	t := s.todos[i]
	s.todos = append(s.todos[:i], s.todos[i+1:]...)
	s.pendingDeletes[id] = &pendingDelete{confirmed: t.Clone(), index: i}
	pendingMutations.WithLabelValues("delete").Inc()

	return t.Clone(), nil
}

// DeleteTodo deletes the todo on the server. On success the ledger entry
// is dropped and the project count and, for an active todo, the label
// counts are decremented. On failure a pending delete stays pending; the
// caller must revert it.
func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	s.begin()

	if err := s.backend.DeleteTodo(ctx, id); err != nil {
		return s.fail("delete_todo", fmt.Errorf("deleting todo %s: %w", id, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		gone  model.Todo
		known bool
	)
	if p, ok := s.pendingDeletes[id]; ok {
		gone, known = p.confirmed, true
		delete(s.pendingDeletes, id)
		pendingMutations.WithLabelValues("delete").Dec()
	}
	if p, ok := s.pendingUpdates[id]; ok {
		if !known {
			gone, known = p.confirmed, true
		}
		delete(s.pendingUpdates, id)
		pendingMutations.WithLabelValues("update").Dec()
	}
	if i := s.indexOf(id); i >= 0 {
		if !known {
			gone, known = s.todos[i], true
		}
		s.todos = append(s.todos[:i], s.todos[i+1:]...)
	}

	if known {
		s.bumpProject(gone.ProjectKey(), -1)
		s.bumpLabels(activeLabels(gone), -1)
	}
	reconciliations.WithLabelValues("delete").Inc()
	return nil
}

// RevertOptimisticDelete puts original back at the position it was removed
// from and clears the pending delete.
func (s *Store) RevertOptimisticDelete(original model.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := 0
	if p, ok := s.pendingDeletes[original.ID]; ok {
		index = p.index
		delete(s.pendingDeletes, original.ID)
		pendingMutations.WithLabelValues("delete").Dec()
	}
	if s.indexOf(original.ID) < 0 {
		if index > len(s.todos) {
			index = len(s.todos)
		}
		s.todos = append(s.todos, model.Todo{})
		copy(s.todos[index+1:], s.todos[index:])
		s.todos[index] = original.Clone()
	}
	reverts.WithLabelValues("delete").Inc()

	s.logger.Debug("optimistic delete reverted", zap.String("id", original.ID))
}

// MutateTodo runs an optimistic update end to end: local change, server
// call, and revert when the server call fails. Calls for the same id run
// one at a time.
func (s *Store) MutateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	original, err := s.OptimisticUpdateTodo(id, patch)
	if err != nil {
		return nil, s.fail("update_todo", err)
	}

	updated, err := s.UpdateTodo(ctx, id, patch)
	if err != nil {
		s.RevertOptimisticUpdate(id, original)
		return nil, err
	}
	return updated, nil
}

// RemoveTodo runs an optimistic delete end to end, restoring the todo
// when the server call fails. Calls for the same id run one at a time.
func (s *Store) RemoveTodo(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	original, err := s.OptimisticDeleteTodo(id)
	if err != nil {
		return s.fail("delete_todo", err)
	}

	if err := s.DeleteTodo(ctx, id); err != nil {
		s.RevertOptimisticDelete(original)
		return err
	}
	return nil
}
