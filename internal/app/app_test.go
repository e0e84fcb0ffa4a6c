package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbridge/internal/settings"
)

type recordingPlugin struct {
	app *Application
}

func (p *recordingPlugin) InitApp(a *Application) error {
	p.app = a
	a.Settings["INITIALIZED"] = true
	return nil
}

func TestNew(t *testing.T) {
	t.Cleanup(Reset)

	a := New("worker", WithSettings(settings.Settings{"DATABASE_HOST": "db.internal"}))

	assert.Equal(t, "worker", a.Name())
	assert.Equal(t, "db.internal", a.Settings["DATABASE_HOST"])
	assert.NotNil(t, a.Logger)
}

func TestNewRegistersCurrent(t *testing.T) {
	t.Cleanup(Reset)

	first := New("first")
	assert.Same(t, first, Current())

	second := New("second")
	assert.Same(t, second, Current())
}

func TestCurrentWithoutRegistration(t *testing.T) {
	Reset()
	assert.Nil(t, Current())
}

func TestUse(t *testing.T) {
	t.Cleanup(Reset)

	a := New("worker")
	p := &recordingPlugin{}
	require.NoError(t, a.Use(p))

	assert.Same(t, a, p.app)
	assert.Equal(t, true, a.Settings["INITIALIZED"])
}
