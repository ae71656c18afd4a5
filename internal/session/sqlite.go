package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the session database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// mode=rwc: Read/Write/Create mode
	// _journal_mode=WAL: concurrent readers with a single writer
	// _busy_timeout=3000: wait up to 3 seconds for locks
	connStr := dbPath + "?mode=rwc&_journal_mode=WAL&_busy_timeout=3000"

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		perms_json TEXT, -- JSON array of permission strings, NULL when no user
		expires_at_ms INTEGER, -- unix milliseconds, NULL for sessions that never expire
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer))
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at_ms);
	`

	_, err := s.db.Exec(schema)
	return err
}

// expiredAt reports whether a stored expiry has passed at now. Get,
// CleanupExpired and CountActive all compare at millisecond precision with
// expires_at_ms < now meaning expired.
func expiredAt(expiresAtMs int64, now time.Time) bool {
	return expiresAtMs < now.UnixMilli()
}

// Get implements Store
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		userID    sql.NullString
		permsJSON sql.NullString
		expiresAt sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, perms_json, expires_at_ms FROM sessions WHERE id = ?`, id,
	).Scan(&userID, &permsJSON, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	sess := &Session{ID: id}
	if expiresAt.Valid {
		sess.ExpiresAt = time.UnixMilli(expiresAt.Int64)
	}
	if expiresAt.Valid && expiredAt(expiresAt.Int64, time.Now()) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, ErrSessionNotFound
	}

	if userID.Valid {
		user := &User{ID: userID.String}
		if permsJSON.Valid && permsJSON.String != "" {
			if err := json.Unmarshal([]byte(permsJSON.String), &user.Perms); err != nil {
				return nil, fmt.Errorf("failed to decode session perms: %w", err)
			}
		}
		sess.User = user
	}

	return sess, nil
}

// Save implements Store
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	var (
		userID    sql.NullString
		permsJSON sql.NullString
		expiresAt sql.NullInt64
	)

	if sess.User != nil {
		userID = sql.NullString{String: sess.User.ID, Valid: true}
		data, err := json.Marshal(sess.User.Perms)
		if err != nil {
			return fmt.Errorf("failed to encode session perms: %w", err)
		}
		permsJSON = sql.NullString{String: string(data), Valid: true}
	}
	if !sess.ExpiresAt.IsZero() {
		expiresAt = sql.NullInt64{Int64: sess.ExpiresAt.UnixMilli(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, perms_json, expires_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			perms_json = excluded.perms_json,
			expires_at_ms = excluded.expires_at_ms`,
		sess.ID, userID, permsJSON, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping implements Store
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CleanupExpired removes every expired session and returns how many were deleted
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at_ms IS NOT NULL AND expires_at_ms < ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// CountActive returns the number of unexpired sessions
func (s *SQLiteStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE expires_at_ms IS NULL OR expires_at_ms >= ?`, time.Now().UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
