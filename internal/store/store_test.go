package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todosync/internal/model"
	"github.com/nhle/todosync/internal/store"
	"github.com/nhle/todosync/tests/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestCreateTodoDefaults(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	todo, err := s.CreateTodo(ctx, model.TodoInput{
		Title:  "  write report ",
		Labels: []string{"work", "", "work", "urgent"},
		Subtasks: []model.SubTask{
			{Title: "outline"},
			{Title: "draft"},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, todo.ID)
	assert.Equal(t, "write report", todo.Title)
	assert.Equal(t, model.PriorityNone, todo.Priority)
	require.NotNil(t, todo.ProjectID)
	assert.Equal(t, "inbox", *todo.ProjectID)
	assert.Equal(t, []string{"work", "urgent"}, todo.Labels)

	stored, err := s.GetTodoByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "urgent"}, stored.Labels)
	require.Len(t, stored.Subtasks, 2)
	assert.Equal(t, "outline", stored.Subtasks[0].Title)
	assert.Equal(t, "draft", stored.Subtasks[1].Title)
	assert.NotEmpty(t, stored.Subtasks[0].ID)
}

func TestCreateTodoValidation(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTodo(ctx, model.TodoInput{Title: "   "})
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = s.CreateTodo(ctx, model.TodoInput{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = s.CreateTodo(ctx, model.TodoInput{Title: "x", ProjectID: ptr("nope")})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestGetTodosFilterAndPagination(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	var ids []string
	for i, in := range []model.TodoInput{
		{Title: "a", Labels: []string{"home"}},
		{Title: "b", Labels: []string{"work"}, Priority: model.PriorityHigh},
		{Title: "c", Labels: []string{"work"}, Completed: true},
		{Title: "d", Labels: []string{"work", "home"}},
		{Title: "e"},
	} {
		todo, err := s.CreateTodo(ctx, in)
		require.NoError(t, err, "todo %d", i)
		ids = append(ids, todo.ID)
	}

	all, err := s.GetTodos(ctx, store.TodoFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "e", all[0].Title, "newest first")
	assert.Equal(t, "a", all[4].Title)

	work, err := s.GetTodos(ctx, store.TodoFilter{TodoFilter: model.TodoFilter{Label: ptr("work")}})
	require.NoError(t, err)
	assert.Len(t, work, 3)

	active, err := s.GetTodos(ctx, store.TodoFilter{TodoFilter: model.TodoFilter{
		Label:     ptr("work"),
		Completed: ptr(false),
	}})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "d", active[0].Title)
	assert.Equal(t, []string{"work", "home"}, active[0].Labels)

	high, err := s.GetTodos(ctx, store.TodoFilter{TodoFilter: model.TodoFilter{Priority: ptr(model.PriorityHigh)}})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, ids[1], high[0].ID)

	page, err := s.GetTodos(ctx, store.TodoFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].Title)
	assert.Equal(t, "b", page[1].Title)

	tail, err := s.GetTodos(ctx, store.TodoFilter{Offset: 4})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "a", tail[0].Title)
}

func TestUpdateTodo(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	work, err := s.CreateProject(ctx, "Work")
	require.NoError(t, err)

	due := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	todo, err := s.CreateTodo(ctx, model.TodoInput{
		Title:   "call bank",
		DueDate: &due,
		Labels:  []string{"errand"},
	})
	require.NoError(t, err)

	updated, err := s.UpdateTodo(ctx, todo.ID, model.TodoPatch{
		Completed: ptr(true),
		ProjectID: &work.ID,
		Labels:    &[]string{"finance"},
	})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, work.ID, *updated.ProjectID)
	assert.Equal(t, []string{"finance"}, updated.Labels)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))

	cleared, err := s.UpdateTodo(ctx, todo.ID, model.TodoPatch{
		ClearDueDate:   true,
		ClearProjectID: true,
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
	assert.Nil(t, cleared.ProjectID)
	assert.Equal(t, []string{"finance"}, cleared.Labels, "labels untouched")

	_, err = s.UpdateTodo(ctx, todo.ID, model.TodoPatch{Title: ptr("")})
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = s.UpdateTodo(ctx, "missing", model.TodoPatch{Completed: ptr(true)})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTodo(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	todo, err := s.CreateTodo(ctx, model.TodoInput{
		Title:    "temp",
		Labels:   []string{"x"},
		Subtasks: []model.SubTask{{Title: "y"}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTodo(ctx, todo.ID))

	_, err = s.GetTodoByID(ctx, todo.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTodo(ctx, todo.ID), store.ErrNotFound)

	labels, err := s.GetLabels(ctx)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestGetTodoCounts(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	other, err := s.CreateProject(ctx, "Other")
	require.NoError(t, err)

	today := now.Add(3 * time.Hour)
	soon := now.AddDate(0, 0, 3)
	later := now.AddDate(0, 0, 30)

	for _, in := range []model.TodoInput{
		{Title: "due today", DueDate: &today, ProjectID: &other.ID},
		{Title: "due soon", DueDate: &soon},
		{Title: "due later in inbox", DueDate: &later},
		{Title: "plain inbox"},
		{Title: "elsewhere", ProjectID: &other.ID},
		{Title: "finished", DueDate: &today, Completed: true},
	} {
		_, err := s.CreateTodo(ctx, in)
		require.NoError(t, err)
	}

	counts, err := s.GetTodoCounts(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Inbox: 2, Today: 1, Upcoming: 1, Completed: 1}, counts)
}

func TestProjects(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	work, err := s.CreateProject(ctx, "Work")
	require.NoError(t, err)

	_, err = s.CreateProject(ctx, "Work")
	assert.ErrorIs(t, err, store.ErrInvalid)
	_, err = s.CreateProject(ctx, " ")
	assert.ErrorIs(t, err, store.ErrInvalid)

	for _, in := range []model.TodoInput{
		{Title: "a", ProjectID: &work.ID},
		{Title: "b", ProjectID: &work.ID, Completed: true},
		{Title: "c"},
	} {
		_, err := s.CreateTodo(ctx, in)
		require.NoError(t, err)
	}

	projects, err := s.GetProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, model.Project{ID: "inbox", Name: store.DefaultProjectName, IsDefault: true, TodoCount: 1}, projects[0])
	assert.Equal(t, model.Project{ID: work.ID, Name: "Work", TodoCount: 2}, projects[1])

	id, err := s.DefaultProjectID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "inbox", id)
}

func TestGetLabelsCountsActiveTodos(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for _, in := range []model.TodoInput{
		{Title: "a", Labels: []string{"work", "home"}},
		{Title: "b", Labels: []string{"work"}},
		{Title: "c", Labels: []string{"done-only"}, Completed: true},
	} {
		_, err := s.CreateTodo(ctx, in)
		require.NoError(t, err)
	}

	labels, err := s.GetLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Label{
		{Name: "home", Count: 1},
		{Name: "work", Count: 2},
	}, labels)
}
