package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"dialer/internal/api"
	"dialer/internal/config"
)

const activeKeySetting = "active_asset_key"

// Store manages snapshot persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the snapshot database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.SnapshotPath())
}

// OpenPath opens the snapshot database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// SaveDirectory replaces the stored directory with businesses, keeping order.
func (s *Store) SaveDirectory(ctx context.Context, businesses []api.Business) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM businesses"); err != nil {
		return fmt.Errorf("clear businesses: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO businesses (
            position, id, name, phone, has_discount,
            discount_amount, discount_details, last_called, call_status
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range businesses {
		if _, err := stmt.ExecContext(ctx,
			i,
			b.ID,
			b.Name,
			b.Phone,
			boolToInt(b.HasDiscount),
			nullableString(b.DiscountAmount),
			nullableString(b.DiscountDetails),
			nullableTime(b.LastCalled),
			nullableString(string(b.CallStatus)),
		); err != nil {
			return fmt.Errorf("insert business %s: %w", b.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit directory: %w", err)
	}
	return nil
}

// LoadDirectory returns the stored directory in its saved order.
func (s *Store) LoadDirectory(ctx context.Context) ([]api.Business, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
            id, name, phone, has_discount, discount_amount,
            discount_details, last_called, call_status
        FROM businesses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query businesses: %w", err)
	}
	defer rows.Close()

	out := []api.Business{}
	for rows.Next() {
		var (
			b           api.Business
			hasDiscount int
			amount      sql.NullString
			details     sql.NullString
			lastCalled  sql.NullString
			callStatus  sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Phone, &hasDiscount, &amount, &details, &lastCalled, &callStatus); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		b.HasDiscount = hasDiscount != 0
		b.DiscountAmount = amount.String
		b.DiscountDetails = details.String
		b.CallStatus = api.CallStatus(callStatus.String)
		if lastCalled.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, lastCalled.String); err == nil {
				b.LastCalled = &ts
			}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate businesses: %w", err)
	}
	return out, nil
}

// SaveActiveKey stores the active recording key. An empty key clears it.
func (s *Store) SaveActiveKey(ctx context.Context, key string) error {
	if key == "" {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", activeKeySetting); err != nil {
			return fmt.Errorf("clear active key: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		activeKeySetting, key, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save active key: %w", err)
	}
	return nil
}

// ActiveKey returns the stored active recording key.
func (s *Store) ActiveKey(ctx context.Context) (string, bool, error) {
	var key string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", activeKeySetting).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read active key: %w", err)
	}
	return key, true, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(v *time.Time) any {
	if v == nil || v.IsZero() {
		return nil
	}
	return v.UTC().Format(time.RFC3339Nano)
}

// DB exposes the underlying connection for maintenance and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}
