package template

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"photomark/pkg/watermark"
)

const schema = `CREATE TABLE IF NOT EXISTS templates (
	name       TEXT PRIMARY KEY,
	settings   TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps all templates in a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init template db: %w", err)
		}
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan template name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (watermark.Settings, error) {
	return s.LoadOnto(ctx, name, watermark.DefaultSettings())
}

func (s *SQLiteStore) LoadOnto(ctx context.Context, name string, base watermark.Settings) (watermark.Settings, error) {
	if err := CheckName(name); err != nil {
		return watermark.Settings{}, err
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT settings FROM templates WHERE name = ?`, strings.TrimSpace(name)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return watermark.Settings{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return watermark.Settings{}, fmt.Errorf("load template %s: %w", name, err)
	}
	return DecodeSettingsOnto(base, []byte(data), JSON)
}

func (s *SQLiteStore) Save(ctx context.Context, name string, st watermark.Settings) error {
	if err := CheckName(name); err != nil {
		return err
	}
	data, err := EncodeSettings(st, JSON)
	if err != nil {
		return fmt.Errorf("encode template %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (name, settings, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET settings = excluded.settings, updated_at = excluded.updated_at`,
		strings.TrimSpace(name), string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save template %s: %w", name, err)
	}
	s.logger.Info("template saved", zap.String("name", name))
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete template %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.logger.Info("template deleted", zap.String("name", name))
	return nil
}
