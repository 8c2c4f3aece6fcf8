package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Cache.GetTTL())
	assert.Equal(t, 2*time.Hour, cfg.Editor.GetSessionTTL())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noticeboard.yaml")
	yamlData := `
server:
  port: "9000"
database:
  driver: postgres
  dsn: postgres://localhost/noticeboard
admin:
  emails: [editor@example.com]
cache:
  ttl: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0644))
	t.Setenv("PORT", "9100")
	t.Setenv("ADMIN_EMAILS", "a@example.com, b@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Admin.Emails)
	assert.Equal(t, time.Minute, cfg.Cache.GetTTL())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.Driver = "surrealdb"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Cache.TTL = "soon"
	assert.Error(t, cfg.Validate())
}

func TestIsAdminEmail(t *testing.T) {
	open := AdminConfig{}
	assert.True(t, open.IsAdminEmail("anyone@example.com"))

	restricted := AdminConfig{Emails: []string{"Editor@Example.com"}}
	assert.True(t, restricted.IsAdminEmail("editor@example.com"))
	assert.False(t, restricted.IsAdminEmail("other@example.com"))
}

func TestIsAdminEmail_SeededAdmin(t *testing.T) {
	c := AdminConfig{Email: "owner@example.com", Emails: []string{"editor@example.com"}}
	assert.True(t, c.IsAdminEmail("owner@example.com"))
	assert.True(t, c.IsAdminEmail("editor@example.com"))
	assert.False(t, c.IsAdminEmail("stranger@example.com"))
}
