package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vetclinic/aiadmin/pkg/utils/crypto"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 10, cfg.LLM.MaxIterations)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, 0, cfg.Pipeline.ControlRetryLimit)
	assert.False(t, cfg.Publish.Enabled)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "llm:\n  model: from-file\n")
	t.Setenv("AIADMIN_LLM_MODEL", "from-env")
	t.Setenv("AIADMIN_PIPELINE_CONTROL_RETRY_LIMIT", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, 2, cfg.Pipeline.ControlRetryLimit)
}

func TestLoad_DecryptsSealedSecrets(t *testing.T) {
	sealed, err := crypto.Seal("sk-live-123", "passphrase")
	require.NoError(t, err)

	path := writeConfig(t, "security:\n  encryption_key: passphrase\nllm:\n  api_key: \""+sealed+"\"\ndatabase:\n  password: plain\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-live-123", cfg.LLM.APIKey)
	assert.Equal(t, "plain", cfg.Database.Password)
}

func TestLoad_WrongKeyFails(t *testing.T) {
	sealed, err := crypto.Seal("secret", "right")
	require.NoError(t, err)

	path := writeConfig(t, "security:\n  encryption_key: wrong\npublish:\n  password: \""+sealed+"\"\n")

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish.password")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}
