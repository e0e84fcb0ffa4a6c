package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrKindConnectionFailed, "could not reach postgres", cause)

	assert.Equal(t, "[connection_failed] could not reach postgres: connection refused", err.Error())

	bare := New(ErrKindNoApplication, "no application registered")
	assert.Equal(t, "[no_application] no application registered", bare.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrKindQueryFailed, "exec failed", cause)

	require.True(t, errors.Is(err, cause))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
		want      bool
	}{
		{"not found", New(ErrKindNotFound, "x"), IsNotFound, true},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout, true},
		{"connection", New(ErrKindConnectionFailed, "x"), IsConnectionFailed, true},
		{"query", New(ErrKindQueryFailed, "x"), IsQueryFailed, true},
		{"invalid input", New(ErrKindInvalidInput, "x"), IsInvalidInput, true},
		{"permission", New(ErrKindPermissionDenied, "x"), IsPermissionDenied, true},
		{"migration", New(ErrKindMigrationFailed, "x"), IsMigrationFailed, true},
		{"no application", New(ErrKindNoApplication, "x"), IsNoApplication, true},
		{"mismatched kind", New(ErrKindTimeout, "x"), IsNotFound, false},
		{"plain error", errors.New("x"), IsNotFound, false},
		{"nil", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.predicate(tt.err))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := New(ErrKindMigrationFailed, "goose up failed")
	outer := fmt.Errorf("running command: %w", inner)

	assert.True(t, IsMigrationFailed(outer))
}

func TestNewf(t *testing.T) {
	err := Newf(ErrKindInvalidInput, "missing keys: %s", "host, port")
	assert.Equal(t, "[invalid_input] missing keys: host, port", err.Error())
}
