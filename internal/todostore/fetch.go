package todostore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/todosync/internal/model"
)

// FetchTodos loads a page of todos. With loadMore false the list is
// replaced by the first page for filter and the page reset to zero. With
// loadMore true the next page of the active filter is appended and filter
// is ignored. HasMore is true when a full page came back. On failure the
// previous list is kept and the error recorded.
//
// A result is dropped when a replace fetch started after it, or when a
// load-more page no longer continues the list it was requested for.
func (s *Store) FetchTodos(ctx context.Context, filter model.TodoFilter, loadMore bool) error {
	s.mu.Lock()
	s.lastErr = ""
	s.running.todos++
	if loadMore {
		filter = s.filter
	} else {
		s.todosGen++
	}
	startGen, startPage := s.todosGen, s.page
	s.mu.Unlock()

	skip := 0
	if loadMore {
		skip = (startPage + 1) * s.pageSize
	}

	key := fmt.Sprintf("todos|%s|%d", filter.Key(), skip)
	v, err, shared := s.share(ctx, key, func(ctx context.Context) (interface{}, error) {
		return s.backend.ListTodos(ctx, filter, skip, s.pageSize)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running.todos--

	if err != nil {
		fetchErrors.WithLabelValues("todos").Inc()
		s.setError("fetch_todos", fmt.Errorf("fetching todos: %w", err))
		return err
	}

	if s.todosGen != startGen || (loadMore && (s.page != startPage || s.filter.Key() != filter.Key())) {
		s.logger.Debug("dropping stale todo page",
			zap.Int("page", startPage), zap.Bool("load_more", loadMore), zap.Bool("shared", shared))
		return nil
	}

	page := v.([]model.Todo)
	fetched := make([]model.Todo, 0, len(page))
	for _, t := range page {
		if _, deleting := s.pendingDeletes[t.ID]; deleting {
			continue
		}
		t = t.Clone()
		t.Labels = model.NormalizeLabels(t.Labels)
		if p, ok := s.pendingUpdates[t.ID]; ok {
			p.confirmed = t.Clone()
			p.patch.Apply(&t)
		}
		fetched = append(fetched, t)
	}

	if loadMore {
		s.todos = append(s.todos, fetched...)
		s.page++
	} else {
		s.todos = fetched
		s.page = 0
	}

	s.filter = filter
	s.hasMore = len(page) >= s.pageSize
	s.lastFetch.Todos = s.now()
	s.initialDataLoaded.Todos = true
	return nil
}

// FetchTodoByID returns the cached todo when the list was fetched within
// the freshness window, and otherwise fetches it and upserts it into the
// list.
func (s *Store) FetchTodoByID(ctx context.Context, id string) (*model.Todo, error) {
	s.mu.Lock()
	s.lastErr = ""
	if !s.lastFetch.Todos.IsZero() && s.now().Sub(s.lastFetch.Todos) < s.freshness {
		if i := s.indexOf(id); i >= 0 {
			t := s.todos[i].Clone()
			s.mu.Unlock()
			return &t, nil
		}
	}
	s.mu.Unlock()

	v, err, _ := s.share(ctx, "todo|"+id, func(ctx context.Context) (interface{}, error) {
		return s.backend.GetTodo(ctx, id)
	})
	if err != nil {
		fetchErrors.WithLabelValues("todo").Inc()
		return nil, s.fail("fetch_todo", fmt.Errorf("fetching todo %s: %w", id, err))
	}

	fresh := v.(*model.Todo).Clone()
	fresh.Labels = model.NormalizeLabels(fresh.Labels)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, deleting := s.pendingDeletes[id]; !deleting {
		if i := s.indexOf(id); i >= 0 {
			// Keep the optimistic view on top of the fresh copy.
			if p, ok := s.pendingUpdates[id]; ok {
				p.confirmed = fresh.Clone()
				merged := fresh.Clone()
				p.patch.Apply(&merged)
				s.todos[i] = merged
			} else {
				s.todos[i] = fresh.Clone()
			}
		} else {
			s.todos = append(s.todos, fresh.Clone())
		}
	}
	return &fresh, nil
}

// FetchProjects replaces the project list.
func (s *Store) FetchProjects(ctx context.Context) error {
	s.mu.Lock()
	s.lastErr = ""
	s.running.projects++
	s.mu.Unlock()

	v, err, _ := s.share(ctx, "projects", func(ctx context.Context) (interface{}, error) {
		return s.backend.ListProjects(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running.projects--
	if err != nil {
		fetchErrors.WithLabelValues("projects").Inc()
		s.setError("fetch_projects", fmt.Errorf("fetching projects: %w", err))
		return err
	}

	s.projects = append([]model.Project{}, v.([]model.Project)...)
	s.initialDataLoaded.Projects = true
	s.lastFetch.Projects = s.now()
	return nil
}

// FetchLabels replaces the label aggregate.
func (s *Store) FetchLabels(ctx context.Context) error {
	s.mu.Lock()
	s.lastErr = ""
	s.running.labels++
	s.mu.Unlock()

	v, err, _ := s.share(ctx, "labels", func(ctx context.Context) (interface{}, error) {
		return s.backend.ListLabels(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running.labels--
	if err != nil {
		fetchErrors.WithLabelValues("labels").Inc()
		s.setError("fetch_labels", fmt.Errorf("fetching labels: %w", err))
		return err
	}

	labels := make([]model.Label, 0, len(v.([]model.Label)))
	for _, l := range v.([]model.Label) {
		if l.Count > 0 {
			labels = append(labels, l)
		}
	}
	s.labels = labels
	s.initialDataLoaded.Labels = true
	s.lastFetch.Labels = s.now()
	return nil
}

// FetchTodoCounts replaces the bucket counters.
func (s *Store) FetchTodoCounts(ctx context.Context) error {
	s.mu.Lock()
	s.lastErr = ""
	s.running.counts++
	s.mu.Unlock()

	v, err, _ := s.share(ctx, "counts", func(ctx context.Context) (interface{}, error) {
		return s.backend.GetCounts(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running.counts--
	if err != nil {
		fetchErrors.WithLabelValues("counts").Inc()
		s.setError("fetch_counts", fmt.Errorf("fetching todo counts: %w", err))
		return err
	}

	s.counts = *v.(*model.Counts)
	s.initialDataLoaded.Counts = true
	s.lastFetch.Counts = s.now()
	return nil
}

// Refresh reloads projects, labels and counts concurrently. Each slice is
// committed independently; the first error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.FetchProjects(ctx) })
	g.Go(func() error { return s.FetchLabels(ctx) })
	g.Go(func() error { return s.FetchTodoCounts(ctx) })
	return g.Wait()
}

// share collapses concurrent identical requests into one backend call. The
// call is detached from the callers' cancellation; each caller returns as
// soon as its own ctx is done.
func (s *Store) share(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	ch := s.fetches.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case r := <-ch:
		return r.Val, r.Err, r.Shared
	}
}
