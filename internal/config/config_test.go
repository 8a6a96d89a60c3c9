package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/graphmail/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://localhost/graphmail?sslmode=disable"

transport:
  timeout_seconds: 45
  skip_sent_items: true

worker:
  concurrency: 4

profiles:
  Office365:
    defaultSenderEmailAddress: "noreply@contoso.com"
    scopes: "https://graph.microsoft.com/.default"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 45*time.Second, cfg.Transport.Timeout())
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "noreply@contoso.com", cfg.Profiles["Office365"][domain.KeyDefaultSenderEmail])

	g := cfg.Transport.Graph()
	assert.True(t, g.SkipSentItems)
	assert.Equal(t, 3, g.MaxRetries)
	assert.Equal(t, "https://graph.microsoft.com/v1.0", g.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 30, cfg.Transport.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Transport.MaxRetries)
	assert.Equal(t, float64(10), cfg.Transport.RequestsPerSecond)
	assert.Equal(t, 15, cfg.Transport.Burst)
	assert.Equal(t, "graphmail:jobs", cfg.Redis.QueueKey)
	assert.Equal(t, 5*time.Minute, cfg.Worker.LockTTL())
	assert.Equal(t, 2*time.Minute, cfg.Worker.DrainTimeout())
	assert.Equal(t, "us-west-2", cfg.SES.Region)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/graphmail")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("GRAPHMAIL_TENANT_ID", "tenant-env")
	t.Setenv("GRAPHMAIL_CLIENT_SECRET", "s3cret")
	t.Setenv("AWS_SES_REGION", "eu-west-1")

	cfg, err := LoadFromEnv(writeConfig(t, `
profiles:
  Office365:
    clientId: "client-file"
`))
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/graphmail", cfg.Database.URL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "eu-west-1", cfg.SES.Transport().Region)

	seeds := cfg.Profiles[domain.DefaultProfileName]
	assert.Equal(t, "tenant-env", seeds[domain.KeyTenantID])
	assert.Equal(t, "client-file", seeds[domain.KeyClientID])
	assert.Equal(t, "s3cret", seeds[domain.KeyClientSecret])
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "database url is required")

	cfg.Database.URL = "postgres://localhost/graphmail"
	cfg.Profiles = map[string]map[string]string{"Office365": {domain.KeyBatchSize: "0"}}
	err := cfg.Validate()
	require.Error(t, err)
	cfgErr, ok := domain.AsConfigurationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KeyBatchSize, cfgErr.Key)

	cfg.Profiles = map[string]map[string]string{"Office365": {"smtpHost": "x"}}
	assert.Error(t, cfg.Validate())
}

func TestServerAddr(t *testing.T) {
	t.Setenv("SERVER_HOST", "127.0.0.1")
	assert.Equal(t, "127.0.0.1:8080", ServerConfig{Port: 8080, Host: "localhost"}.Addr())
}
