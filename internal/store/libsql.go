package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/torbjokv/formexpr/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// --- Instances ---

func (s *LibSQLStore) PutInstance(ctx context.Context, inst *schema.Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO instances (id, app_id, owner_party_id, created_at, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET
		   app_id=excluded.app_id, owner_party_id=excluded.owner_party_id,
		   updated_at=CURRENT_TIMESTAMP`,
		inst.ID, inst.AppID, inst.OwnerPartyID,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "put instance %q: %s", inst.ID, err.Error()).WithCause(err)
	}
	return nil
}

func (s *LibSQLStore) GetInstance(ctx context.Context, id string) (*schema.Instance, error) {
	inst := &schema.Instance{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, app_id, owner_party_id FROM instances WHERE id = ?`, id,
	).Scan(&inst.ID, &inst.AppID, &inst.OwnerPartyID)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("instance", id)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "get instance %q: %s", id, err.Error()).WithCause(err)
	}
	return inst, nil
}

func (s *LibSQLStore) DeleteInstance(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "delete instance %q: %s", id, err.Error()).WithCause(err)
	}
	return checkRowsAffected(res, "instance", id)
}

// --- Application settings ---

func (s *LibSQLStore) PutSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return schema.NewError(schema.ErrCodeValidation, "setting key is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "put setting %q: %s", key, err.Error()).WithCause(err)
	}
	return nil
}

func (s *LibSQLStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", storeNotFound("setting", key)
	}
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeStore, "get setting %q: %s", key, err.Error()).WithCause(err)
	}
	return value, nil
}

func (s *LibSQLStore) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "list settings: %s", err.Error()).WithCause(err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeStore, "scan setting: %s", err.Error()).WithCause(err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "list settings: %s", err.Error()).WithCause(err)
	}
	return settings, nil
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.ExprError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

var _ Store = (*LibSQLStore)(nil)
