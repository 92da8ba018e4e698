package logger

import (
	"os"
	"path/filepath"
	"testing"

	"cryptoconverter/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestNewInvalidLevel
func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, "consumer")
	assert.Error(t, err)
}

// go test -v --run TestNewWithFile
func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "consumer.log")

	log, err := New(config.LogConfig{Level: "info", Format: "json", OutputFile: path}, "consumer")
	require.NoError(t, err)

	log.Info("flush completed")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"consumer"`)
	assert.Contains(t, string(data), "flush completed")
}
