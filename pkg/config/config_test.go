package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/et-mohedano/demo-delegados/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const minimalConfig = `
geo:
  colonias: ./colonias.geojson
users:
  - username: ana
    password: demo
    region: Centro
`

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Global.LogLevel)
	assert.Equal(t, "127.0.0.1:8090", cfg.Server.Listen)
	assert.Equal(t, 10, cfg.Server.RateLimit.LoginPerMinute)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./delegados.db", cfg.Database.SQLite.Path)
	assert.Equal(t, 30*time.Second, cfg.Geo.FetchTimeoutDuration())
}

func TestLoad_FullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, `
global:
  log_level: debug
server:
  listen: 0.0.0.0:9000
  cors_origins:
    - https://delegados.example.org
  rate_limit:
    enabled: true
    login_per_minute: 5
database:
  driver: postgres
  postgres:
    host: db.internal
    port: 5432
    user: delegados
    password: secret
    database: delegados
    ssl_mode: require
geo:
  colonias: https://example.org/colonias.geojson
  irregular: ./irregular.geojson
  fetch_timeout: 1m
users:
  - username: ana
    password: demo
    display_name: Ana
    region: Centro
  - username: bruno
    password: demo2
    region: Norte
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Global.LogLevel)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, []string{"https://delegados.example.org"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.Server.RateLimit.LoginPerMinute)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "./irregular.geojson", cfg.Geo.Irregular)
	assert.Equal(t, time.Minute, cfg.Geo.FetchTimeoutDuration())
	require.Len(t, cfg.Users, 2)
	assert.Equal(t, "Ana", cfg.Users[0].DisplayName)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := config.Load(writeConfig(t, "geo: [unclosed"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		yaml   string
		errStr string
	}{
		{
			name: "unsupported driver",
			yaml: `
database:
  driver: mysql
geo:
  colonias: ./c.geojson
users:
  - username: ana
    password: demo
    region: Centro
`,
			errStr: "unsupported database driver",
		},
		{
			name: "missing colonias source",
			yaml: `
users:
  - username: ana
    password: demo
    region: Centro
`,
			errStr: "colonias source is required",
		},
		{
			name: "bad fetch timeout",
			yaml: `
geo:
  colonias: ./c.geojson
  fetch_timeout: soon
users:
  - username: ana
    password: demo
    region: Centro
`,
			errStr: "invalid geo.fetch_timeout",
		},
		{
			name: "no users",
			yaml: `
geo:
  colonias: ./c.geojson
`,
			errStr: "at least one user is required",
		},
		{
			name: "user without password",
			yaml: `
geo:
  colonias: ./c.geojson
users:
  - username: ana
    region: Centro
`,
			errStr: "password is required",
		},
		{
			name: "user without region",
			yaml: `
geo:
  colonias: ./c.geojson
users:
  - username: ana
    password: demo
`,
			errStr: "region is required",
		},
		{
			name: "duplicate usernames",
			yaml: `
geo:
  colonias: ./c.geojson
users:
  - username: ana
    password: demo
    region: Centro
  - username: ana
    password: demo2
    region: Norte
`,
			errStr: "duplicate username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Load(writeConfig(t, tt.yaml))
			require.NoError(t, err)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errStr)
		})
	}
}

func TestGeoConfig_FetchTimeoutFallback(t *testing.T) {
	t.Parallel()

	g := config.GeoConfig{FetchTimeout: "garbage"}
	assert.Equal(t, 30*time.Second, g.FetchTimeoutDuration())
}
