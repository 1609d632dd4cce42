package sync

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nhle/todosync/internal/api"
)

type refresherFunc func(ctx context.Context) error

func (f refresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

func nextResult(t *testing.T, p *Poller) SyncResult {
	t.Helper()
	select {
	case r := <-p.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh result")
		return SyncResult{}
	}
}

func TestPollerRefreshesImmediatelyAndOnDemand(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	p := New(refresherFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}), time.Hour)

	p.Start(context.Background())
	defer p.Stop()

	r := nextResult(t, p)
	require.NoError(t, r.Error)
	assert.Equal(t, int32(1), calls.Load())

	p.RefreshNow()
	r = nextResult(t, p)
	require.NoError(t, r.Error)
	assert.Equal(t, int32(2), calls.Load())

	status := p.Status()
	assert.Equal(t, SyncIdle, status.State)
	assert.False(t, status.LastSync.IsZero())
}

func TestPollerTicks(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	p := New(refresherFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}), 10*time.Millisecond)

	p.Start(context.Background())
	for i := 0; i < 3; i++ {
		nextResult(t, p)
	}
	p.Stop()

	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestPollerReportsErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	authErr := &api.Error{Status: http.StatusUnauthorized, Method: "GET", Path: "/projects"}
	errs := []error{errors.New("connection refused"), authErr}
	var i atomic.Int32
	p := New(refresherFunc(func(ctx context.Context) error {
		return errs[int(i.Add(1)-1)%len(errs)]
	}), time.Hour)

	p.Start(context.Background())
	defer p.Stop()

	r := nextResult(t, p)
	require.Error(t, r.Error)
	assert.False(t, r.AuthError)

	p.RefreshNow()
	r = nextResult(t, p)
	assert.True(t, r.AuthError)

	status := p.Status()
	assert.Equal(t, SyncError, status.State)
	assert.ErrorIs(t, status.Error, authErr)
	assert.True(t, status.LastSync.IsZero())
}

func TestPollerStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	p := New(refresherFunc(func(ctx context.Context) error { return nil }), time.Hour)
	p.Start(ctx)
	nextResult(t, p)

	cancel()
	p.Stop()
	p.Stop()
}

func TestPollerStopBeforeStart(t *testing.T) {
	p := New(refresherFunc(func(ctx context.Context) error { return nil }), 0)
	p.Stop()
	assert.Equal(t, defaultInterval, p.interval)
}
