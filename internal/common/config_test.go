package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Timeouts.Network.Std())
	assert.Equal(t, 5*time.Second, config.Timeouts.Interaction.Std())
	assert.Equal(t, "./data", config.Storage.Badger.Path)
	assert.Equal(t, "session-data/x-session.json", config.Session.Key)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadFromFilesNoFiles(t *testing.T) {
	config, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmedia.toml")
	content := `
[server]
port = 9090

[twitter.credentials]
username = "alice"
password = "pw"

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "alice", config.Twitter.Credentials.Username)
	assert.Equal(t, "debug", config.Logging.Level)
	// Untouched settings keep their defaults
	assert.Equal(t, 30*time.Second, config.Timeouts.Network.Std())
}

func TestLoadFromFilesDurationStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmedia.toml")
	content := `
[timeouts]
network = "45s"
interaction = "2500ms"

[download]
pace = "250ms"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, config.Timeouts.Network.Std())
	assert.Equal(t, 2500*time.Millisecond, config.Timeouts.Interaction.Std())
	assert.Equal(t, 250*time.Millisecond, config.Download.Pace.Std())
}

func TestLoadFromFilesInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmedia.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timeouts]\nnetwork = \"fast\"\n"), 0644))

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

// The shipped default config must load with the loader it ships with.
func TestLoadShippedDefaultConfig(t *testing.T) {
	path := filepath.Join("..", "..", "xmedia.toml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("default config not present: %v", err)
	}

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, config.Timeouts.Network.Std())
	assert.Equal(t, 5*time.Second, config.Timeouts.Interaction.Std())
	assert.Equal(t, 500*time.Millisecond, config.Download.Pace.Std())
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/xmedia.toml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("X_USERNAME", "envuser")
	t.Setenv("X_PASSWORD", "envpass")
	t.Setenv("X_EMAIL", "env@example.com")
	t.Setenv("NETWORK_TIMEOUT", "45000")
	t.Setenv("INTERACTION_TIMEOUT", "2500")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "envuser", config.Twitter.Credentials.Username)
	assert.Equal(t, "envpass", config.Twitter.Credentials.Password)
	assert.Equal(t, "env@example.com", config.Twitter.Credentials.Email)
	assert.Equal(t, 45*time.Second, config.Timeouts.Network.Std())
	assert.Equal(t, 2500*time.Millisecond, config.Timeouts.Interaction.Std())
}

func TestEnvProxyOverride(t *testing.T) {
	t.Setenv("PROXY", "user:pass@proxy.example.com:3128")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	require.NotNil(t, config.Twitter.Credentials.Proxy)
	assert.Equal(t, "proxy.example.com", config.Twitter.Credentials.Proxy.Host)
	assert.Equal(t, 3128, config.Twitter.Credentials.Proxy.Port)
	assert.Equal(t, "user", config.Twitter.Credentials.Proxy.Username)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 9999, "127.0.0.1")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}

func TestInvalidPortRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmedia.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = -1\n"), 0644))

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}
