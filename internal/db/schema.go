package db

import (
	"database/sql"
	"fmt"
)

// schema is the full local database schema. The session table holds at most
// one row (the current sign-in); the token is stored sealed, not in plain text.
const schema = `
CREATE TABLE IF NOT EXISTS session (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    user_id      INTEGER NOT NULL,
    name         TEXT,
    email        TEXT,
    photo_url    TEXT,
    sealed_token BLOB NOT NULL,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
