package logger

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	var console bytes.Buffer

	log, closer, err := New(fs, "logs/migration.log", "info", &console)
	require.NoError(t, err)
	log.Info().Str("table", "FC01000").Msg("table migrated")
	log.Debug().Msg("hidden")
	require.NoError(t, closer.Close())

	b, err := afero.ReadFile(fs, "logs/migration.log")
	require.NoError(t, err)
	assert.Contains(t, string(b), `"table":"FC01000"`)
	assert.Contains(t, string(b), `"message":"table migrated"`)
	assert.NotContains(t, string(b), "hidden")
	assert.Contains(t, console.String(), "table migrated")
}

func TestNewConsoleOnly(t *testing.T) {
	var console bytes.Buffer

	log, closer, err := New(afero.NewMemMapFs(), "", "", &console)
	require.NoError(t, err)
	log.Info().Msg("hello")

	assert.NoError(t, closer.Close())
	assert.Contains(t, console.String(), "hello")
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New(afero.NewMemMapFs(), "", "loud", &bytes.Buffer{})

	assert.Error(t, err)
}
