package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotEmpty(t, config.ProjectDir)
	assert.Equal(t, config.ProjectDir+"/logs", config.LogDir)
	assert.Equal(t, "mongodb://localhost:27017", config.MongoURL)
	assert.NotEmpty(t, config.MongoServiceName)

	assert.Equal(t, 30*time.Second, config.Orchestration.StartTimeout)
	assert.Equal(t, 15*time.Second, config.Orchestration.StopTimeout)
	assert.Equal(t, 500*time.Millisecond, config.Orchestration.PollInterval)
	assert.Equal(t, 1.5, config.Orchestration.BackoffRate)
	assert.False(t, config.Orchestration.ForceKillAfterTimeout)
	assert.Empty(t, config.Orchestration.LockFile)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "acmctl.yaml")

	content := `
project_dir: /srv/acm
log_dir: /var/log/acm
mongo_url: mongodb://127.0.0.1:27018
orchestration:
  start_timeout: 45s
  force_kill_after_timeout: true
  lock_file: /tmp/acmctl.lock
`
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))

	config, err := LoadConfigFromFile(filename)
	require.NoError(t, err)

	assert.Equal(t, "/srv/acm", config.ProjectDir)
	assert.Equal(t, "/var/log/acm", config.LogDir)
	assert.Equal(t, "mongodb://127.0.0.1:27018", config.MongoURL)
	assert.Equal(t, 45*time.Second, config.Orchestration.StartTimeout)
	assert.True(t, config.Orchestration.ForceKillAfterTimeout)
	assert.Equal(t, "/tmp/acmctl.lock", config.Orchestration.LockFile)

	// Unset fields fall back to defaults.
	assert.Equal(t, 15*time.Second, config.Orchestration.StopTimeout)
	assert.Equal(t, 1.5, config.Orchestration.BackoffRate)
}

func TestLoadConfigFromFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFromFile_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("project_dir: [unclosed"), 0o644))

	_, err := LoadConfigFromFile(filename)
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "nil-equivalent project dir",
			mutate:  func(c *Config) { c.ProjectDir = "" },
			wantErr: true,
		},
		{
			name:    "negative start timeout",
			mutate:  func(c *Config) { c.Orchestration.StartTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Orchestration.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "backoff rate below one",
			mutate:  func(c *Config) { c.Orchestration.BackoffRate = 0.5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := ValidateConfig(config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, ValidateConfig(nil))
}
