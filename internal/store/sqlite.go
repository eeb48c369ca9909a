package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/switchboard/pkg/models"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore implements the Store interface on a SQLite database.
//
// The one-active-session-per-user invariant is enforced by a partial unique
// index, so concurrent Create calls for the same user cannot both succeed.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements for the hot paths
	stmtFindActive *sql.Stmt
	stmtGet        *sql.Stmt
	stmtCreate     *sql.Stmt
	stmtClose      *sql.Stmt
	stmtStale      *sql.Stmt
	stmtMatch      *sql.Stmt
	stmtHistory    *sql.Stmt
	stmtHistoryLtd *sql.Stmt

	nowFunc func() time.Time // For testing
}

// NewSQLiteStore opens (and if needed creates) the database at path and
// prepares the schema. Use ":memory:" for an in-process database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY between the handler
	// goroutines and the sweeper, and makes every store call the
	// serialization point the lifecycle layer relies on.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, nowFunc: time.Now}

	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

// DB exposes the underlying database connection for related tooling.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// SetNowFunc sets a custom time function for testing.
func (s *SQLiteStore) SetNowFunc(fn func() time.Time) {
	s.nowFunc = fn
}

// Shutdown closes the database connection.
func (s *SQLiteStore) Shutdown() error {
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		return fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			operator_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at INTEGER NOT NULL,
			last_active_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	// Partial unique index: the invariant lives in the schema, not just in
	// caller discipline.
	_, err = s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		ON sessions(user_id) WHERE status = 'active'
	`)
	if err != nil {
		return fmt.Errorf("failed to create active-session index: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sessions(id),
			sender_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			sent_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id)`)
	if err != nil {
		return fmt.Errorf("failed to create message session index: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_sent_at ON messages(sent_at)`)
	if err != nil {
		return fmt.Errorf("failed to create message time index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.stmtFindActive, err = s.db.Prepare(`
		SELECT id, user_id, operator_id, status, created_at, last_active_at
		FROM sessions
		WHERE user_id = ? AND status = 'active'
		ORDER BY last_active_at DESC LIMIT 1
	`)
	if err != nil {
		return err
	}

	s.stmtGet, err = s.db.Prepare(`
		SELECT id, user_id, operator_id, status, created_at, last_active_at
		FROM sessions WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.stmtCreate, err = s.db.Prepare(`
		INSERT INTO sessions (user_id, operator_id, status, created_at, last_active_at)
		VALUES (?, ?, 'active', ?, ?)
	`)
	if err != nil {
		return err
	}

	s.stmtClose, err = s.db.Prepare(`UPDATE sessions SET status = 'closed' WHERE id = ?`)
	if err != nil {
		return err
	}

	s.stmtStale, err = s.db.Prepare(`
		SELECT id, user_id, operator_id, status, created_at, last_active_at
		FROM sessions
		WHERE status = 'active' AND last_active_at < ?
		ORDER BY id
	`)
	if err != nil {
		return err
	}

	s.stmtMatch, err = s.db.Prepare(`
		SELECT s.id, s.user_id, s.operator_id, s.status, s.created_at, s.last_active_at,
		       m.id, m.session_id, m.sender_id, m.content, m.sent_at
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE s.status = 'active' AND instr(m.content, ?) > 0
		ORDER BY m.sent_at DESC, s.created_at DESC, s.id DESC
	`)
	if err != nil {
		return err
	}

	s.stmtHistory, err = s.db.Prepare(`
		SELECT id, session_id, sender_id, content, sent_at
		FROM messages WHERE session_id = ?
		ORDER BY sent_at, id
	`)
	if err != nil {
		return err
	}

	s.stmtHistoryLtd, err = s.db.Prepare(`
		SELECT id, session_id, sender_id, content, sent_at
		FROM messages WHERE session_id = ?
		ORDER BY sent_at, id LIMIT ?
	`)
	return err
}

func (s *SQLiteStore) FindActiveByUser(ctx context.Context, userID int64) (*models.Session, error) {
	sess, err := scanSession(s.stmtFindActive.QueryRowContext(ctx, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSession
	}
	return sess, err
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Session, error) {
	sess, err := scanSession(s.stmtGet.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func (s *SQLiteStore) Create(ctx context.Context, userID, operatorID int64) (*models.Session, error) {
	now := s.nowFunc().UTC()
	res, err := s.stmtCreate.ExecContext(ctx, userID, operatorID, now.UnixNano(), now.UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrActiveSessionExists
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}

	return &models.Session{
		ID:           id,
		UserID:       userID,
		OperatorID:   operatorID,
		Status:       models.SessionActive,
		CreatedAt:    now,
		LastActiveAt: now,
	}, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID, senderID int64, content string) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	now := s.nowFunc().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, sender_id, content, sent_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, senderID, content, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read message id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET last_active_at = ? WHERE id = ?
	`, now.UnixNano(), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump last_active_at: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	return &models.Message{
		ID:        id,
		SessionID: sessionID,
		SenderID:  senderID,
		Content:   content,
		SentAt:    now,
	}, nil
}

func (s *SQLiteStore) Close(ctx context.Context, sessionID int64) error {
	res, err := s.stmtClose.ExecContext(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) FindStaleActive(ctx context.Context, olderThan time.Duration) ([]*models.Session, error) {
	cutoff := s.nowFunc().UTC().Add(-olderThan)
	rows, err := s.stmtStale.QueryContext(ctx, cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query stale sessions: %w", err)
	}
	defer rows.Close()

	var stale []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, sess)
	}
	return stale, rows.Err()
}

func (s *SQLiteStore) MatchActiveMessages(ctx context.Context, substr string) ([]Match, error) {
	rows, err := s.stmtMatch.QueryContext(ctx, substr)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			sess        models.Session
			msg         models.Message
			status      string
			sessCreated int64
			sessActive  int64
			msgSent     int64
		)
		err := rows.Scan(
			&sess.ID, &sess.UserID, &sess.OperatorID, &status, &sessCreated, &sessActive,
			&msg.ID, &msg.SessionID, &msg.SenderID, &msg.Content, &msgSent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		sess.Status = models.SessionStatus(status)
		sess.CreatedAt = time.Unix(0, sessCreated).UTC()
		sess.LastActiveAt = time.Unix(0, sessActive).UTC()
		msg.SentAt = time.Unix(0, msgSent).UTC()
		matches = append(matches, Match{Session: &sess, Message: &msg})
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) History(ctx context.Context, sessionID int64, limit int) ([]*models.Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.stmtHistoryLtd.QueryContext(ctx, sessionID, limit)
	} else {
		rows, err = s.stmtHistory.QueryContext(ctx, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var (
			msg  models.Message
			sent int64
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.SenderID, &msg.Content, &sent); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.SentAt = time.Unix(0, sent).UTC()
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sess    models.Session
		status  string
		created int64
		active  int64
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.OperatorID, &status, &created, &active)
	if err != nil {
		return nil, err
	}
	sess.Status = models.SessionStatus(status)
	sess.CreatedAt = time.Unix(0, created).UTC()
	sess.LastActiveAt = time.Unix(0, active).UTC()
	return &sess, nil
}
