package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, AssignmentAutomatic, cfg.Matching.AssignmentMode)
	assert.Equal(t, 8, cfg.Matching.CandidateFanOut)
	assert.Equal(t, 15, cfg.Matching.SlotStep)
	assert.Equal(t, 30*time.Second, cfg.Matching.DirectoryTTL)
	assert.Equal(t, 5, cfg.Outbox.MaxRetries)
	assert.Equal(t, "bookings", cfg.Redis.Channel)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite3
  path: /tmp/booking.db
matching:
  assignment_mode: MANUAL
  slot_step: 30
`)
	t.Setenv("BOOKING_MATCHING_CANDIDATE_FAN_OUT", "3")
	t.Setenv("BOOKING_SERVER_PORT", "9090")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, AssignmentManual, cfg.Matching.AssignmentMode)
	assert.Equal(t, 30, cfg.Matching.SlotStep)
	assert.Equal(t, 3, cfg.Matching.CandidateFanOut)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"driver":      "database:\n  driver: mysql\n",
		"sqlite path": "database:\n  driver: sqlite3\n",
		"mode":        "matching:\n  assignment_mode: random\n",
		"fan out":     "matching:\n  candidate_fan_out: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "config", "config.yml"))
	require.NoError(t, err)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 8081, cfg.Server.HealthPort)
}
