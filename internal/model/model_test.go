package model

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestTodoPatchJSON(t *testing.T) {
	due := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	patch := TodoPatch{
		Title:          ptr("new"),
		Completed:      ptr(false),
		ClearProjectID: true,
		DueDate:        &due,
		Labels:         &[]string{"a", "a", "b"},
	}

	data, err := json.Marshal(patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "new",
		"completed": false,
		"project_id": null,
		"due_date": "2026-03-12T00:00:00Z",
		"labels": ["a", "b"]
	}`, string(data))

	var decoded TodoPatch
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "new", *decoded.Title)
	assert.False(t, *decoded.Completed)
	assert.True(t, decoded.ClearProjectID)
	assert.Nil(t, decoded.ProjectID)
	assert.True(t, due.Equal(*decoded.DueDate))
	assert.False(t, decoded.ClearDueDate)
	assert.Nil(t, decoded.Description)
}

func TestTodoPatchRejectsUnknownFields(t *testing.T) {
	var p TodoPatch
	assert.Error(t, json.Unmarshal([]byte(`{"titel":"x"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"priority":"urgent"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"due_date":"tomorrow"}`), &p))

	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
	assert.True(t, p.IsEmpty())
}

func TestTodoPatchApply(t *testing.T) {
	project := "work"
	due := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	later := due.AddDate(0, 0, 1)
	todo := Todo{ID: "1", Title: "old", ProjectID: &project, DueDate: &due, Labels: []string{"x"}}

	patch := TodoPatch{Title: ptr("new"), DueDate: &later, ClearProjectID: true, ProjectID: ptr("ignored")}

	got := todo.Clone()
	patch.Apply(&got)
	assert.Equal(t, "new", got.Title)
	assert.Nil(t, got.ProjectID, "clear wins over a set value")
	require.NotNil(t, got.DueDate)
	assert.Equal(t, later, *got.DueDate)
	assert.Equal(t, []string{"x"}, got.Labels)

	TodoPatch{ClearDueDate: true}.Apply(&got)
	assert.Nil(t, got.DueDate)

	assert.Equal(t, "work", *todo.ProjectID, "clone is independent")

	assert.True(t, TodoPatch{Completed: ptr(true)}.TogglesCompletion(todo))
	assert.False(t, TodoPatch{Completed: ptr(false)}.TogglesCompletion(todo))
	assert.Error(t, TodoPatch{Title: ptr("")}.Validate())
	assert.Error(t, TodoPatch{Priority: ptr(Priority("urgent"))}.Validate())
}

func TestCloneKeepsEmptySlices(t *testing.T) {
	todo := Todo{ID: "1", Title: "t", Labels: []string{}, Subtasks: []SubTask{}}

	c := todo.Clone()
	assert.NotNil(t, c.Labels)
	assert.NotNil(t, c.Subtasks)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"labels":[]`)
	assert.Contains(t, string(data), `"subtasks":[]`)

	assert.Nil(t, Todo{ID: "2"}.Clone().Labels)
}

func TestTodoFilter(t *testing.T) {
	work := "work"
	todo := Todo{Completed: false, ProjectID: &work, Priority: PriorityHigh, Labels: []string{"a"}}

	tests := []struct {
		name   string
		filter TodoFilter
		want   bool
	}{
		{"empty", TodoFilter{}, true},
		{"completed", TodoFilter{Completed: ptr(true)}, false},
		{"open", TodoFilter{Completed: ptr(false)}, true},
		{"project", TodoFilter{ProjectID: ptr("work")}, true},
		{"other project", TodoFilter{ProjectID: ptr("home")}, false},
		{"priority", TodoFilter{Priority: ptr(PriorityLow)}, false},
		{"label", TodoFilter{Label: ptr("a")}, true},
		{"missing label", TodoFilter{Label: ptr("b")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(todo))
		})
	}

	f := TodoFilter{Completed: ptr(false), Label: ptr("a"), Priority: ptr(PriorityHigh)}
	parsed, err := ParseTodoFilter(f.Values())
	require.NoError(t, err)
	assert.Equal(t, f, parsed)
	assert.Equal(t, f.Key(), parsed.Key())

	_, err = ParseTodoFilter(url.Values{"priority": {"urgent"}})
	assert.Error(t, err)
}

func TestBucketOf(t *testing.T) {
	now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	inbox := "inbox"
	other := "other"
	at := func(d time.Time) *time.Time { return &d }

	tests := []struct {
		name string
		todo Todo
		want Bucket
	}{
		{"due earlier today", Todo{DueDate: at(now.Add(-20 * time.Hour)), ProjectID: &other}, BucketToday},
		{"due tomorrow", Todo{DueDate: at(now.Add(4 * time.Hour))}, BucketUpcoming},
		{"due in seven days", Todo{DueDate: at(now.AddDate(0, 0, 7))}, BucketUpcoming},
		{"due in eight days in inbox", Todo{DueDate: at(now.AddDate(0, 0, 8)), ProjectID: &inbox}, BucketInbox},
		{"overdue elsewhere", Todo{DueDate: at(now.AddDate(0, 0, -2)), ProjectID: &other}, BucketNone},
		{"inbox without due", Todo{ProjectID: &inbox}, BucketInbox},
		{"no project", Todo{}, BucketNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketOf(tt.todo, inbox, now))
		})
	}

	counts := CountTodos([]Todo{
		{ProjectID: &inbox},
		{ProjectID: &inbox, Completed: true, DueDate: at(now)},
		{DueDate: at(now)},
	}, inbox, now)
	assert.Equal(t, Counts{Inbox: 1, Today: 1, Completed: 1}, counts)
}

func TestCountsArithmetic(t *testing.T) {
	a := Counts{Inbox: 3, Today: 1}
	var d Counts
	d.Bump(BucketToday, -1)
	d.Completed++
	d.Bump(BucketNone, 5)

	got := a.Add(d)
	assert.Equal(t, Counts{Inbox: 3, Completed: 1}, got)
	assert.Equal(t, a, got.Add(d.Negate()))
	assert.Equal(t, Counts{}, d.Add(d.Negate()))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 50, cfg.Store.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Store.Freshness())
	assert.Equal(t, 30*time.Second, cfg.API.Timeout())
	assert.NotEmpty(t, cfg.Server.DBPath)

	custom := DefaultAppConfig()
	custom.API.BaseURL = "https://todos.example.com/api/v1"
	custom.Sync.IntervalSec = 15
	require.NoError(t, SaveConfig(path, custom))

	t.Setenv("TODOSYNC_STORE_PAGE_SIZE", "20")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://todos.example.com/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Sync.Interval())
	assert.Equal(t, 20, cfg.Store.PageSize)

	require.NoError(t, os.WriteFile(path, []byte("api: [not, a, map"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestNormalizeLabels(t *testing.T) {
	assert.Equal(t, []string{}, NormalizeLabels(nil))
	assert.Equal(t, []string{"b", "a"}, NormalizeLabels([]string{"b", "", "a", "b"}))
}
