package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	os.Setenv("BACKEND_URL", "http://backend:8000")
	os.Setenv("INPUT_QUEUE_URL", "http://input")
	os.Setenv("WRITER_QUEUE_URL", "http://writer")
	os.Setenv("REQUEST_TIMEOUT", "3s")
	defer os.Unsetenv("BACKEND_URL")
	defer os.Unsetenv("INPUT_QUEUE_URL")
	defer os.Unsetenv("WRITER_QUEUE_URL")
	defer os.Unsetenv("REQUEST_TIMEOUT")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "http://backend:8000", cfg.BackendURL)
	assert.Equal(t, "http://input", cfg.InputQueueURL)
	assert.Equal(t, "http://writer", cfg.WriterQueueURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "nostalgia-snapshots", cfg.SnapshotBucket)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, "6379", cfg.RedisPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingBackend(t *testing.T) {
	os.Setenv("INPUT_QUEUE_URL", "http://input")
	os.Setenv("WRITER_QUEUE_URL", "http://writer")
	defer os.Unsetenv("INPUT_QUEUE_URL")
	defer os.Unsetenv("WRITER_QUEUE_URL")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_URL is required")
}

func TestLoad_InvalidValues(t *testing.T) {
	os.Setenv("BACKEND_URL", "http://backend:8000")
	os.Setenv("INPUT_QUEUE_URL", "http://input")
	os.Setenv("WRITER_QUEUE_URL", "http://writer")
	os.Setenv("REDIS_PORT", "six")
	os.Setenv("LOG_LEVEL", "verbose")
	defer os.Unsetenv("BACKEND_URL")
	defer os.Unsetenv("INPUT_QUEUE_URL")
	defer os.Unsetenv("WRITER_QUEUE_URL")
	defer os.Unsetenv("REDIS_PORT")
	defer os.Unsetenv("LOG_LEVEL")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_PORT is invalid")
	assert.Contains(t, err.Error(), "LOG_LEVEL is invalid")
}

func TestLoad_BadTimeout(t *testing.T) {
	os.Setenv("REQUEST_TIMEOUT", "soon")
	defer os.Unsetenv("REQUEST_TIMEOUT")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
}
