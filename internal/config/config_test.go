package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
auth:
  secret: `+testSecret+`
  session_ttl: 48h
  session_update_age: 12h
schedule:
  time_zone: Europe/Lisbon
  slot_minutes: 20
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 48*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionUpdateAge)
	assert.Equal(t, 20, cfg.Schedule.SlotMinutes)
	assert.Equal(t, "Europe/Lisbon", cfg.Schedule.Location().String())

	// untouched keys keep their defaults
	assert.Equal(t, "clinic_session", cfg.Auth.CookieName)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv("CLINIC_AUTH_SECRET", testSecret)
	t.Setenv("CLINIC_SERVER_PORT", "7070")
	t.Setenv("CLINIC_DATABASE_URL", "postgres://u:p@db:5432/clinic?sslmode=disable")
	t.Setenv("CLINIC_OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("CLINIC_CORS_ALLOW_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@db:5432/clinic?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowOrigins)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "auth:\n  secret: short\n")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "auth secret")

	path = writeConfig(t, "auth:\n  secret: "+testSecret+"\nschedule:\n  time_zone: Mars/Olympus\n")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "time_zone")

	path = writeConfig(t, "auth:\n  secret: "+testSecret+"\n  session_ttl: 1h\n  session_update_age: 2h\n")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "session_update_age")
}

func TestDSNFromParts(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "clinic", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=clinic sslmode=disable", c.DSN())
}
