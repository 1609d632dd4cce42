package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nhle/todosync/internal/api"
	"github.com/nhle/todosync/internal/server"
	"github.com/nhle/todosync/internal/store"
)

// NewTestServer starts the todo API over an in-memory store. Both are
// shut down when the test completes.
func NewTestServer(t *testing.T, opts ...server.Option) (*store.SQLiteStore, *httptest.Server) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	st := NewTestStore(t)
	ts := httptest.NewServer(server.New(st, opts...).Handler())
	t.Cleanup(ts.Close)

	return st, ts
}

// NewTestClient returns an API client for a fresh test server. Retries are
// disabled so failures surface immediately.
func NewTestClient(t *testing.T, opts ...server.Option) (*store.SQLiteStore, *api.Client) {
	t.Helper()

	st, ts := NewTestServer(t, opts...)
	return st, api.NewClient(ts.URL+"/api/v1", api.WithMaxRetries(0))
}
