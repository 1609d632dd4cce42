package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// DefaultProjectName is the name of the project seeded by the first
// migration. Todos created without a project land there.
const DefaultProjectName = "Inbox"

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	is_default  INTEGER NOT NULL DEFAULT 0 CHECK(is_default IN (0, 1)),
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS todos (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	completed         INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	priority          TEXT NOT NULL DEFAULT 'none'
		CHECK(priority IN ('none', 'low', 'medium', 'high')),
	project_id        TEXT REFERENCES projects(id) ON DELETE SET NULL,
	due_date          DATETIME,
	due_date_timezone TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todos_completed ON todos(completed);
CREATE INDEX IF NOT EXISTS idx_todos_priority ON todos(priority);
CREATE INDEX IF NOT EXISTS idx_todos_due_date ON todos(due_date);
CREATE INDEX IF NOT EXISTS idx_todos_project_id ON todos(project_id);
CREATE INDEX IF NOT EXISTS idx_todos_created_at ON todos(created_at);

CREATE TABLE IF NOT EXISTS todo_labels (
	todo_id TEXT NOT NULL REFERENCES todos(id) ON DELETE CASCADE,
	label   TEXT NOT NULL,
	PRIMARY KEY (todo_id, label)
);

CREATE TABLE IF NOT EXISTS subtasks (
	id         TEXT PRIMARY KEY,
	todo_id    TEXT NOT NULL REFERENCES todos(id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	completed  INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_subtasks_todo_id ON subtasks(todo_id);

INSERT INTO projects (id, name, is_default) VALUES ('inbox', 'Inbox', 1);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_todo_labels_label ON todo_labels(label);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
