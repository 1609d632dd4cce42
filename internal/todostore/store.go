// Package todostore is an in-memory cache of todos, projects, labels and
// bucket counts that applies mutations locally before the server confirms
// them and rolls them back when it does not.
//
// The store keeps a ledger of in-flight optimistic mutations. Callers pair
// each Optimistic* call with the matching server call and, when that call
// fails, with the matching Revert* call. MutateTodo and RemoveTodo run the
// whole sequence, including the revert.
//
// Only one optimistic mutation per todo may be outstanding. A second one
// returns ErrMutationPending, and MutateTodo/RemoveTodo queue same-id
// calls so they never overlap.
package todostore

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/todosync/internal/model"
)

// Defaults for the paging and freshness knobs.
const (
	DefaultPageSize  = 50
	DefaultFreshness = 5 * time.Minute
)

var (
	// ErrTodoNotFound is returned when an id is not in the local list.
	ErrTodoNotFound = errors.New("todo not found in store")

	// ErrMutationPending is returned when an optimistic mutation for the
	// same todo has not settled yet.
	ErrMutationPending = errors.New("optimistic mutation already pending for todo")

	// ErrEmptyPatch is returned for updates that change nothing.
	ErrEmptyPatch = errors.New("todo patch is empty")
)

// Backend is the remote API the store reads from and writes through to.
// *api.Client satisfies it.
type Backend interface {
	ListTodos(ctx context.Context, filter model.TodoFilter, skip, limit int) ([]model.Todo, error)
	GetTodo(ctx context.Context, id string) (*model.Todo, error)
	CreateTodo(ctx context.Context, input model.TodoInput) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]model.Project, error)
	ListLabels(ctx context.Context) ([]model.Label, error)
	GetCounts(ctx context.Context) (*model.Counts, error)
}

// Slices flags one boolean per independently loaded part of the state.
type Slices struct {
	Todos    bool
	Projects bool
	Labels   bool
	Counts   bool
}

// FetchTimes records when each part of the state was last refreshed.
type FetchTimes struct {
	Todos    time.Time
	Projects time.Time
	Labels   time.Time
	Counts   time.Time
}

// State is a point-in-time copy of everything the store holds.
type State struct {
	Todos    []model.Todo
	Projects []model.Project
	Labels   []model.Label
	Counts   model.Counts

	// Filter is the filter of the last successful FetchTodos.
	Filter  model.TodoFilter
	Page    int
	HasMore bool

	Loading           Slices
	InitialDataLoaded Slices
	LastFetch         FetchTimes

	// Error is the message of the most recent failed operation, cleared
	// when the next operation starts.
	Error string

	PendingUpdates map[string]model.TodoPatch
	PendingDeletes map[string]bool
}

// inFlight counts running fetches per slice. A slice is loading while its
// count is above zero.
type inFlight struct {
	todos, projects, labels, counts int
}

func (n inFlight) slices() Slices {
	return Slices{
		Todos:    n.todos > 0,
		Projects: n.projects > 0,
		Labels:   n.labels > 0,
		Counts:   n.counts > 0,
	}
}

// pendingUpdate is the ledger entry of an optimistic update.
type pendingUpdate struct {
	patch model.TodoPatch

	// confirmed is the todo as it was before the optimistic change.
	confirmed model.Todo

	// delta is what the optimistic change added to the counters.
	delta model.Counts
}

// pendingDelete is the ledger entry of an optimistic delete.
type pendingDelete struct {
	confirmed model.Todo
	index     int
}

// Store is the optimistic todo cache. It is safe for concurrent use; the
// mutex is never held across a backend call.
type Store struct {
	backend   Backend
	logger    *zap.Logger
	now       func() time.Time
	pageSize  int
	freshness time.Duration

	fetches singleflight.Group
	locks   *keyedMutex

	mu                sync.Mutex
	todos             []model.Todo
	projects          []model.Project
	labels            []model.Label
	counts            model.Counts
	filter            model.TodoFilter
	page              int
	hasMore           bool
	todosGen          uint64
	running           inFlight
	initialDataLoaded Slices
	lastFetch         FetchTimes
	lastErr           string
	pendingUpdates    map[string]*pendingUpdate
	pendingDeletes    map[string]*pendingDelete
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces time.Now, for bucket decisions and freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPageSize sets the FetchTodos page size.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithFreshness sets how long fetched todos are served from cache by
// FetchTodoByID.
func WithFreshness(d time.Duration) Option {
	return func(s *Store) { s.freshness = d }
}

// New creates an empty store backed by b.
func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend:        b,
		logger:         zap.NewNop(),
		now:            time.Now,
		pageSize:       DefaultPageSize,
		freshness:      DefaultFreshness,
		locks:          newKeyedMutex(),
		todos:          []model.Todo{},
		projects:       []model.Project{},
		labels:         []model.Label{},
		pendingUpdates: make(map[string]*pendingUpdate),
		pendingDeletes: make(map[string]*pendingDelete),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PageSize returns the number of todos requested per page.
func (s *Store) PageSize() int {
	return s.pageSize
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Todos:             make([]model.Todo, len(s.todos)),
		Projects:          append([]model.Project{}, s.projects...),
		Labels:            append([]model.Label{}, s.labels...),
		Counts:            s.counts,
		Filter:            s.filter,
		Page:              s.page,
		HasMore:           s.hasMore,
		Loading:           s.running.slices(),
		InitialDataLoaded: s.initialDataLoaded,
		LastFetch:         s.lastFetch,
		Error:             s.lastErr,
		PendingUpdates:    make(map[string]model.TodoPatch, len(s.pendingUpdates)),
		PendingDeletes:    make(map[string]bool, len(s.pendingDeletes)),
	}
	for i, t := range s.todos {
		st.Todos[i] = t.Clone()
	}
	for id, p := range s.pendingUpdates {
		st.PendingUpdates[id] = p.patch
	}
	for id := range s.pendingDeletes {
		st.PendingDeletes[id] = true
	}
	return st
}

// Todo returns a copy of the locally visible todo with the given id.
func (s *Store) Todo(id string) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Todo{}, false
	}
	return s.todos[i].Clone(), true
}

// IsPending reports whether an optimistic mutation for id is unsettled.
func (s *Store) IsPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPendingLocked(id)
}

func (s *Store) isPendingLocked(id string) bool {
	_, upd := s.pendingUpdates[id]
	_, del := s.pendingDeletes[id]
	return upd || del
}

// indexOf returns the list position of id, or -1. Caller holds mu.
func (s *Store) indexOf(id string) int {
	for i := range s.todos {
		if s.todos[i].ID == id {
			return i
		}
	}
	return -1
}

// setError records a failure message. Caller holds mu.
func (s *Store) setError(op string, err error) {
	s.lastErr = err.Error()
	s.logger.Warn("todo store operation failed", zap.String("op", op), zap.Error(err))
}

// begin clears the error ahead of a new operation.
func (s *Store) begin() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// fail records err under mu and returns it.
func (s *Store) fail(op string, err error) error {
	s.mu.Lock()
	s.setError(op, err)
	s.mu.Unlock()
	return err
}
