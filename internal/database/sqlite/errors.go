package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/koustreak/dbridge/internal/errs"
)

// MapError converts a modernc.org/sqlite error into a *errs.Error.
// The driver exposes no stable typed errors, so classification falls back
// to the SQLite error message prefixes.
func (Dialect) MapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "no such table"), strings.Contains(text, "no such column"):
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	case strings.Contains(text, "unable to open database"):
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
