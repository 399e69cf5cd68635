package transcript

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned by Create for an id already in use.
	ErrSessionExists = errors.New("session already exists")
)

// Session summarizes a stored conversation.
type Session struct {
	ID        string    `json:"id"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a SQLite-backed transcript store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.WithComponent(logger, "transcript")
	}
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. An empty path keeps transcripts in memory for the life of the
// Store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create transcript directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	// SQLite has a single writer, and an in-memory database lives only as
	// long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{
		db:     db,
		now:    time.Now,
		logger: logging.WithComponent(nil, "transcript"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate transcript db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys,
		goose.WithVerbose(true),
		goose.WithLogger(logging.NewPrintfLogger(s.logger, slog.LevelDebug)),
	)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create registers a new, empty session.
func (s *Store) Create(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		sessionID, now, now)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionExists
	}
	return nil
}

// Exists reports whether the session is known.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("look up session: %w", err)
	}
	return true, nil
}

// Append adds messages to the end of a session's history, creating the
// session if needed. System messages are rejected.
func (s *Store) Append(ctx context.Context, sessionID string, messages []agent.Message) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	for _, m := range messages {
		if m.Role == agent.RoleSystem {
			return fmt.Errorf("system messages are not stored")
		}
	}
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = ?`, sessionID).Scan(&next); err != nil {
		return fmt.Errorf("read sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (session_id, seq, role, content, invocations, correlation_id, operation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range messages {
		next++
		var invocations sql.NullString
		if len(m.Invocations) > 0 {
			raw, err := json.Marshal(m.Invocations)
			if err != nil {
				return fmt.Errorf("encode invocations: %w", err)
			}
			invocations = sql.NullString{String: string(raw), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, sessionID, next, string(m.Role), m.Content,
			invocations, nullable(m.CorrelationID), nullable(m.Operation), now); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns a session's history in append order.
func (s *Store) Load(ctx context.Context, sessionID string) ([]agent.Message, error) {
	ok, err := s.Exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, invocations, correlation_id, operation
		 FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []agent.Message{}
	for rows.Next() {
		var (
			m                                   agent.Message
			role                                string
			invocations, correlation, operation sql.NullString
		)
		if err := rows.Scan(&role, &m.Content, &invocations, &correlation, &operation); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = agent.Role(role)
		m.CorrelationID = correlation.String
		m.Operation = operation.String
		if invocations.Valid {
			if err := json.Unmarshal([]byte(invocations.String), &m.Invocations); err != nil {
				return nil, fmt.Errorf("decode invocations: %w", err)
			}
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Sessions lists stored sessions, most recently updated first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.created_at, s.updated_at, COUNT(m.seq)
		 FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		 GROUP BY s.id ORDER BY s.updated_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt, &sess.Messages); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return tx.Commit()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
