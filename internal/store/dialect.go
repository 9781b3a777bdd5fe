package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the few places where SQLite and PostgreSQL differ.
type dialect struct {
	name      string
	numbered  bool   // "$n" placeholders instead of "?"
	forUpdate string // row lock suffix for SELECTs inside a transaction
	schema    string
}

var (
	sqliteDialect = dialect{
		name:   "sqlite3",
		schema: sqliteSchema,
	}
	postgresDialect = dialect{
		name:      "postgres",
		numbered:  true,
		forUpdate: " FOR UPDATE",
		schema:    postgresSchema,
	}
)

// rebind rewrites "?" placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) schemaVersion(db *sql.DB) (int, error) {
	var version int
	var err error
	if d.numbered {
		err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	} else {
		err = db.QueryRow("PRAGMA user_version").Scan(&version)
	}
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

func (d dialect) setSchemaVersion(db *sql.DB, version int) error {
	if !d.numbered {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		return nil
	}
	if _, err := db.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("clear schema_version: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("set schema_version: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ?" with n marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
