package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscreen/internal/config"
)

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
	var cfg config.Config
	cfg.Logging.Level = "warn"
	cfg.Logging.File = filepath.Join(t.TempDir(), "arbscreen.log")
	cfg.Logging.MaxSizeMB = 1

	l := NewLogger(cfg)
	l.Info().Msg("dropped")
	l.Warn().Str("exchange", "kraken").Msg("source failed")

	b, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"exchange":"kraken"`)
	assert.NotContains(t, string(b), "dropped")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
	var cfg config.Config
	cfg.Logging.Level = "loud"
	_ = NewLogger(cfg)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
