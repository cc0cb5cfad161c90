package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MEDEXTRACT_API_URL", "")
	t.Setenv("MEDEXTRACT_HTTP_TIMEOUT", "")
	t.Setenv("MEDEXTRACT_POLL_INTERVAL", "")
	t.Setenv("MEDEXTRACT_PAGE_SIZE", "")

	cfg := LoadConfig()
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.HTTPTimeout)
	assert.Equal(t, 3*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 20, cfg.List.PageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MEDEXTRACT_API_URL", "https://extract.example.com/api/v1")
	t.Setenv("MEDEXTRACT_HTTP_TIMEOUT", "90s")
	t.Setenv("MEDEXTRACT_POLL_INTERVAL", "500ms")
	t.Setenv("MEDEXTRACT_PAGE_SIZE", "50")

	cfg := LoadConfig()
	assert.Equal(t, "https://extract.example.com/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.API.HTTPTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.PollInterval)
	assert.Equal(t, 50, cfg.List.PageSize)
}

func TestLoadConfigIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("MEDEXTRACT_POLL_INTERVAL", "soon")
	t.Setenv("MEDEXTRACT_PAGE_SIZE", "many")

	cfg := LoadConfig()
	assert.Equal(t, 3*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 20, cfg.List.PageSize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadConfig()
	cfg.API.BaseURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	cfg = LoadConfig()
	cfg.List.PageSize = 0
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.Sync.PollInterval = -time.Second
	assert.Error(t, cfg.Validate())
}
