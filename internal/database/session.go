package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/koustreak/dbridge/internal/logger"
)

// SessionMaker is the session factory bound to an engine. It is safe for
// concurrent use; the sessions it produces are not.
type SessionMaker struct {
	engine *Engine
}

// NewSessionMaker binds a session factory to an engine.
func NewSessionMaker(engine *Engine) *SessionMaker {
	return &SessionMaker{engine: engine}
}

// Begin opens a new session. The caller must release it with Commit,
// Rollback, or Close.
func (m *SessionMaker) Begin(ctx context.Context) (*Session, error) {
	tx, err := m.engine.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, m.engine.dialect.MapError(err, "failed to begin session")
	}

	id := uuid.NewString()
	log := m.engine.log.With().Str("session", id).Logger()
	log.Debug("session opened")

	return &Session{id: id, tx: tx, maker: m, log: log}, nil
}

// Session is a unit of work wrapping a database transaction. Each session
// carries a unique id for log correlation. A session is single-use and not
// safe for concurrent use.
type Session struct {
	id    string
	tx    *sql.Tx
	maker *SessionMaker
	log   *logger.Logger
	done  bool
}

// ID returns the session's correlation id.
func (s *Session) ID() string {
	return s.id
}

// Exec runs a statement inside the session.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, s.maker.engine.dialect.MapError(err, "exec failed")
	}
	return res, nil
}

// Query runs a statement that returns rows. Callers must close the rows.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.maker.engine.dialect.MapError(err, "query failed")
	}
	return rows, nil
}

// QueryRow runs a statement expected to return at most one row.
func (s *Session) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.tx.QueryRowContext(ctx, query, args...)
}

// Commit makes the session's work permanent and releases it.
func (s *Session) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return s.maker.engine.dialect.MapError(err, "commit failed")
	}
	s.log.Debug("session committed")
	return nil
}

// Rollback discards the session's work and releases it.
func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return s.maker.engine.dialect.MapError(err, "rollback failed")
	}
	s.log.Debug("session rolled back")
	return nil
}

// Close releases the session. Uncommitted work is rolled back. Close is
// idempotent and safe to defer alongside an explicit Commit.
func (s *Session) Close() error {
	if s.done {
		return nil
	}
	return s.Rollback()
}

// Done reports whether the session has been released.
func (s *Session) Done() bool {
	return s.done
}
