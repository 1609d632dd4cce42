package server_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todosync/internal/api"
	"github.com/nhle/todosync/internal/model"
	"github.com/nhle/todosync/internal/server"
	"github.com/nhle/todosync/tests/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestTodoLifecycle(t *testing.T) {
	_, client := testutil.NewTestClient(t)
	ctx := context.Background()

	created, err := client.CreateTodo(ctx, model.TodoInput{
		Title:  "buy milk",
		Labels: []string{"errand"},
	})
	require.NoError(t, err)
	assert.Equal(t, "inbox", *created.ProjectID)

	got, err := client.GetTodo(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)

	updated, err := client.UpdateTodo(ctx, created.ID, model.TodoPatch{
		Completed:      ptr(true),
		ClearProjectID: true,
	})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Nil(t, updated.ProjectID)
	assert.Equal(t, []string{"errand"}, updated.Labels)

	require.NoError(t, client.DeleteTodo(ctx, created.ID))

	_, err = client.GetTodo(ctx, created.ID)
	assert.True(t, api.IsNotFound(err))
	assert.True(t, api.IsNotFound(client.DeleteTodo(ctx, created.ID)))
}

func TestListTodosFilterAndPaging(t *testing.T) {
	_, client := testutil.NewTestClient(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		in := model.TodoInput{Title: "todo"}
		if i%2 == 0 {
			in.Labels = []string{"even"}
		}
		_, err := client.CreateTodo(ctx, in)
		require.NoError(t, err)
	}

	page, err := client.ListTodos(ctx, model.TodoFilter{}, 0, 5)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	rest, err := client.ListTodos(ctx, model.TodoFilter{}, 5, 5)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	even, err := client.ListTodos(ctx, model.TodoFilter{Label: ptr("even")}, 0, 50)
	require.NoError(t, err)
	assert.Len(t, even, 4)
}

func TestAggregates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, client := testutil.NewTestClient(t, server.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	project, err := client.CreateProject(ctx, "Work")
	require.NoError(t, err)

	due := now.Add(time.Hour)
	for _, in := range []model.TodoInput{
		{Title: "a", DueDate: &due, Labels: []string{"x"}},
		{Title: "b", ProjectID: &project.ID, Labels: []string{"x", "y"}},
		{Title: "c", Completed: true, Labels: []string{"y"}},
	} {
		_, err := client.CreateTodo(ctx, in)
		require.NoError(t, err)
	}

	counts, err := client.GetCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Today: 1, Completed: 1}, *counts)

	labels, err := client.ListLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Label{{Name: "x", Count: 2}, {Name: "y", Count: 1}}, labels)

	projects, err := client.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, 2, projects[0].TodoCount)
	assert.Equal(t, 1, projects[1].TodoCount)
}

func TestValidationErrors(t *testing.T) {
	_, ts := testutil.NewTestServer(t)
	client := api.NewClient(ts.URL+"/api/v1", api.WithMaxRetries(0))
	ctx := context.Background()

	created, err := client.CreateTodo(ctx, model.TodoInput{Title: "x"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"missing title", http.MethodPost, "/api/v1/todos", `{"description":"no title"}`, http.StatusBadRequest},
		{"bad priority", http.MethodPost, "/api/v1/todos", `{"title":"t","priority":"urgent"}`, http.StatusBadRequest},
		{"unknown patch field", http.MethodPatch, "/api/v1/todos/" + created.ID, `{"titel":"typo"}`, http.StatusBadRequest},
		{"empty title patch", http.MethodPatch, "/api/v1/todos/" + created.ID, `{"title":""}`, http.StatusBadRequest},
		{"unknown project", http.MethodPatch, "/api/v1/todos/" + created.ID, `{"project_id":"nope"}`, http.StatusBadRequest},
		{"negative skip", http.MethodGet, "/api/v1/todos?skip=-1", "", http.StatusBadRequest},
		{"bad completed filter", http.MethodGet, "/api/v1/todos?completed=maybe", "", http.StatusBadRequest},
		{"missing todo", http.MethodGet, "/api/v1/todos/missing", "", http.StatusNotFound},
		{"counts route", http.MethodGet, "/api/v1/todos/counts", "", http.StatusOK},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, body)
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestBearerToken(t *testing.T) {
	_, ts := testutil.NewTestServer(t, server.WithToken("s3cret"))
	ctx := context.Background()

	anon := api.NewClient(ts.URL+"/api/v1", api.WithMaxRetries(0))
	_, err := anon.ListTodos(ctx, model.TodoFilter{}, 0, 10)
	assert.True(t, api.IsUnauthorized(err))

	wrong := api.NewClient(ts.URL+"/api/v1", api.WithMaxRetries(0), api.WithToken("nope"))
	_, err = wrong.ListProjects(ctx)
	assert.True(t, api.IsUnauthorized(err))

	authed := api.NewClient(ts.URL+"/api/v1", api.WithMaxRetries(0), api.WithToken("s3cret"))
	projects, err := authed.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays public")
}
