package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/todosync/internal/model"
)

const todoColumns = `todos.id, todos.title, todos.description, todos.completed,
	todos.priority, todos.project_id, todos.due_date, todos.due_date_timezone,
	todos.created_at`

// CreateTodo inserts a new todo with its labels and subtasks and returns
// the stored copy. Todos without a project go to the default project.
func (s *SQLiteStore) CreateTodo(ctx context.Context, input model.TodoInput) (*model.Todo, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("todo title must not be empty: %w", ErrInvalid)
	}
	if input.Priority == "" {
		input.Priority = model.PriorityNone
	}
	if !input.Priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q: %w", input.Priority, ErrInvalid)
	}

	projectID := input.ProjectID
	if projectID == nil {
		id, err := s.DefaultProjectID(ctx)
		if err != nil {
			return nil, err
		}
		projectID = &id
	}
	if err := s.requireProject(ctx, *projectID); err != nil {
		return nil, err
	}

	todo := model.Todo{
		ID:              uuid.New().String(),
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		Completed:       input.Completed,
		Priority:        input.Priority,
		ProjectID:       projectID,
		DueDate:         utcPtr(input.DueDate),
		DueDateTimezone: input.DueDateTimezone,
		CreatedAt:       time.Now().UTC(),
		Labels:          model.NormalizeLabels(input.Labels),
		Subtasks:        withSubtaskIDs(input.Subtasks),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO todos (
			id, title, description, completed, priority,
			project_id, due_date, due_date_timezone,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.ID, todo.Title, todo.Description, boolToInt(todo.Completed), string(todo.Priority),
		todo.ProjectID, todo.DueDate, todo.DueDateTimezone,
		todo.CreatedAt, todo.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating todo: %w", err)
	}
	if err := setLabels(ctx, tx, todo.ID, todo.Labels); err != nil {
		return nil, err
	}
	if err := setSubtasks(ctx, tx, todo.ID, todo.Subtasks); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing todo: %w", err)
	}

	return &todo, nil
}

// UpdateTodo applies a partial update and returns the stored copy.
func (s *SQLiteStore) UpdateTodo(
	ctx context.Context,
	id string,
	patch model.TodoPatch,
) (*model.Todo, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	todo, err := s.GetTodoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(todo)
	todo.Title = strings.TrimSpace(todo.Title)
	todo.DueDate = utcPtr(todo.DueDate)
	if todo.Title == "" {
		return nil, fmt.Errorf("todo title must not be empty: %w", ErrInvalid)
	}
	if todo.ProjectID != nil {
		if err := s.requireProject(ctx, *todo.ProjectID); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE todos SET
			title = ?, description = ?, completed = ?, priority = ?,
			project_id = ?, due_date = ?, due_date_timezone = ?,
			updated_at = ?
		WHERE id = ?`,
		todo.Title, todo.Description, boolToInt(todo.Completed), string(todo.Priority),
		todo.ProjectID, todo.DueDate, todo.DueDateTimezone,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating todo %s: %w", id, err)
	}
	if patch.Labels != nil {
		if err := setLabels(ctx, tx, id, todo.Labels); err != nil {
			return nil, err
		}
	}
	if patch.Subtasks != nil {
		todo.Subtasks = withSubtaskIDs(todo.Subtasks)
		if err := setSubtasks(ctx, tx, id, todo.Subtasks); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing todo %s: %w", id, err)
	}

	return s.GetTodoByID(ctx, id)
}

// DeleteTodo removes a todo by ID. Cascades to labels and subtasks.
func (s *SQLiteStore) DeleteTodo(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetTodoByID retrieves a single todo by ID, including labels and subtasks.
func (s *SQLiteStore) GetTodoByID(ctx context.Context, id string) (*model.Todo, error) {
	var todo model.Todo
	err := s.db.GetContext(ctx, &todo,
		"SELECT "+todoColumns+" FROM todos WHERE todos.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting todo %s: %w", id, err)
	}

	todos := []model.Todo{todo}
	if err := s.loadChildren(ctx, todos); err != nil {
		return nil, err
	}
	return &todos[0], nil
}

// GetTodos retrieves todos matching the filter, newest first.
func (s *SQLiteStore) GetTodos(ctx context.Context, filter TodoFilter) ([]model.Todo, error) {
	query, args := buildTodoQuery("SELECT "+todoColumns, filter)

	todos := []model.Todo{}
	if err := s.db.SelectContext(ctx, &todos, query, args...); err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	if err := s.loadChildren(ctx, todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// GetTodoCounts derives the bucket counters relative to now.
func (s *SQLiteStore) GetTodoCounts(ctx context.Context, now time.Time) (model.Counts, error) {
	defaultID, err := s.DefaultProjectID(ctx)
	if err != nil {
		return model.Counts{}, err
	}

	var todos []model.Todo
	if err := s.db.SelectContext(ctx, &todos, "SELECT "+todoColumns+" FROM todos"); err != nil {
		return model.Counts{}, fmt.Errorf("querying todos for counts: %w", err)
	}
	return model.CountTodos(todos, defaultID, now), nil
}

// loadChildren fills Labels and Subtasks for a batch of todos.
func (s *SQLiteStore) loadChildren(ctx context.Context, todos []model.Todo) error {
	if len(todos) == 0 {
		return nil
	}

	ids := make([]string, len(todos))
	byID := make(map[string]*model.Todo, len(todos))
	for i := range todos {
		ids[i] = todos[i].ID
		todos[i].Labels = []string{}
		todos[i].Subtasks = []model.SubTask{}
		byID[todos[i].ID] = &todos[i]
	}

	query, args, err := sqlx.In(
		"SELECT todo_id, label FROM todo_labels WHERE todo_id IN (?) ORDER BY rowid", ids)
	if err != nil {
		return fmt.Errorf("building label query: %w", err)
	}
	var labels []struct {
		TodoID string `db:"todo_id"`
		Label  string `db:"label"`
	}
	if err := s.db.SelectContext(ctx, &labels, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading todo labels: %w", err)
	}
	for _, l := range labels {
		t := byID[l.TodoID]
		t.Labels = append(t.Labels, l.Label)
	}

	query, args, err = sqlx.In(`
		SELECT todo_id, id, title, completed FROM subtasks
		WHERE todo_id IN (?) ORDER BY sort_order`, ids)
	if err != nil {
		return fmt.Errorf("building subtask query: %w", err)
	}
	var subtasks []struct {
		TodoID string `db:"todo_id"`
		model.SubTask
	}
	if err := s.db.SelectContext(ctx, &subtasks, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading subtasks: %w", err)
	}
	for _, st := range subtasks {
		t := byID[st.TodoID]
		t.Subtasks = append(t.Subtasks, st.SubTask)
	}

	return nil
}

// setLabels replaces all label associations for a todo.
func setLabels(ctx context.Context, tx *sqlx.Tx, todoID string, labels []string) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM todo_labels WHERE todo_id = ?", todoID); err != nil {
		return fmt.Errorf("clearing todo labels: %w", err)
	}
	for _, label := range labels {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO todo_labels (todo_id, label) VALUES (?, ?)",
			todoID, label); err != nil {
			return fmt.Errorf("setting label %s on todo %s: %w", label, todoID, err)
		}
	}
	return nil
}

// setSubtasks replaces all subtasks of a todo, keeping slice order.
func setSubtasks(ctx context.Context, tx *sqlx.Tx, todoID string, subtasks []model.SubTask) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM subtasks WHERE todo_id = ?", todoID); err != nil {
		return fmt.Errorf("clearing subtasks: %w", err)
	}
	for i, st := range subtasks {
		if strings.TrimSpace(st.Title) == "" {
			return fmt.Errorf("subtask title must not be empty: %w", ErrInvalid)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subtasks (id, todo_id, title, completed, sort_order)
			VALUES (?, ?, ?, ?, ?)`,
			st.ID, todoID, st.Title, boolToInt(st.Completed), i+1,
		); err != nil {
			return fmt.Errorf("adding subtask to todo %s: %w", todoID, err)
		}
	}
	return nil
}

// buildTodoQuery constructs the SQL query and args for a TodoFilter.
func buildTodoQuery(selectClause string, filter TodoFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Completed != nil {
		conditions = append(conditions, "todos.completed = ?")
		args = append(args, boolToInt(*filter.Completed))
	}
	if filter.Priority != nil {
		conditions = append(conditions, "todos.priority = ?")
		args = append(args, string(*filter.Priority))
	}
	if filter.ProjectID != nil {
		conditions = append(conditions, "todos.project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Label != nil {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM todo_labels l WHERE l.todo_id = todos.id AND l.label = ?)")
		args = append(args, *filter.Label)
	}

	query := selectClause + " FROM todos"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY todos.created_at DESC, todos.rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	return query, args
}

func withSubtaskIDs(subtasks []model.SubTask) []model.SubTask {
	out := make([]model.SubTask, len(subtasks))
	for i, st := range subtasks {
		if st.ID == "" {
			st.ID = uuid.New().String()
		}
		out[i] = st
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
