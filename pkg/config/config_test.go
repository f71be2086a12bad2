package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"ENVIRONMENT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DEFAULT_ROW_LIMIT",
	"SQL_MAX_ROW",
	"SQL_PARSE_CACHE_SIZE",
	"TIME_GRAIN_DENYLIST",
	"TIME_GRAIN_ADDONS",
	"TIME_GRAIN_ADDON_EXPRESSIONS",
	"NETWORK_PROBE_TIMEOUT",
	"SSL_CERT_DIR",
	"POOL_IDLE_TTL",
	"MAX_POOLS",
}

// clearConfigEnv unsets every variable Load reads; t.Setenv restores them.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 100000, cfg.Query.DefaultRowLimit)
	assert.Equal(t, 0, cfg.Query.SQLMaxRow)
	assert.Equal(t, 512, cfg.Query.ParseCacheSize)
	assert.Equal(t, 10*time.Second, cfg.Datasource.ProbeTimeout)
	assert.Empty(t, cfg.Datasource.SSLCertDir)
	assert.Equal(t, 5*time.Minute, cfg.Datasource.PoolIdleTTL)
	assert.Equal(t, 32, cfg.Datasource.MaxPools)
	assert.Empty(t, cfg.TimeGrains.Denylist)
	assert.Empty(t, cfg.TimeGrains.AddonExpressions)
	assert.Equal(t, 100000, cfg.RowLimit())
}

func TestLoadFile_FromYAML(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfig(t, `
env: staging
logging:
  level: debug
  format: console
query:
  default_row_limit: 5000
  sql_max_row: 2000
time_grains:
  denylist: ["PT1S", "PT*M"]
  addons:
    PT2H: 2 hours
  addon_expressions:
    postgresql:
      PT2H: "date_trunc('hour', {col})"
datasource:
  network_probe_timeout: 3s
  ssl_cert_dir: /var/lib/certs
`)

	cfg, err := LoadFile(path, "v1")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 5000, cfg.Query.DefaultRowLimit)
	assert.Equal(t, 2000, cfg.RowLimit())
	assert.Equal(t, []string{"PT1S", "PT*M"}, cfg.TimeGrains.Denylist)
	assert.Equal(t, map[string]string{"PT2H": "2 hours"}, cfg.TimeGrains.Addons)
	assert.Equal(t, "date_trunc('hour', {col})", cfg.TimeGrains.AddonExpressions["postgresql"]["PT2H"])
	assert.Equal(t, 3*time.Second, cfg.Datasource.ProbeTimeout)
	assert.Equal(t, "/var/lib/certs", cfg.Datasource.SSLCertDir)
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfig(t, `
env: staging
query:
  default_row_limit: 5000
datasource:
  network_probe_timeout: 3s
`)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DEFAULT_ROW_LIMIT", "250")
	t.Setenv("NETWORK_PROBE_TIMEOUT", "750ms")

	cfg, err := LoadFile(path, "v1")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 250, cfg.Query.DefaultRowLimit)
	assert.Equal(t, 750*time.Millisecond, cfg.Datasource.ProbeTimeout)
}

func TestLoadFile_TimeGrainsFromEnv(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("TIME_GRAIN_DENYLIST", "PT1S, PT1M ,,P1W")
	t.Setenv("TIME_GRAIN_ADDONS", "PT2H:2 hours,PT4H:4 hours")
	t.Setenv("TIME_GRAIN_ADDON_EXPRESSIONS", `{"postgresql": {"PT2H": "date_trunc('hour', {col})"}, "mysql": {"PT4H": "DATE({col})"}}`)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
	require.NoError(t, err)

	assert.Equal(t, []string{"PT1S", "PT1M", "P1W"}, cfg.TimeGrains.Denylist)
	assert.Equal(t, map[string]string{"PT2H": "2 hours", "PT4H": "4 hours"}, cfg.TimeGrains.Addons)
	assert.Equal(t, map[string]map[string]string{
		"postgresql": {"PT2H": "date_trunc('hour', {col})"},
		"mysql":      {"PT4H": "DATE({col})"},
	}, cfg.TimeGrains.AddonExpressions)
}

func TestLoadFile_AddonExpressionsEnvMergesOverYAML(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfig(t, `
time_grains:
  addon_expressions:
    postgresql:
      PT2H: "yaml_expr({col})"
      PT6H: "six({col})"
`)
	t.Setenv("TIME_GRAIN_ADDON_EXPRESSIONS", "postgresql:\n  PT2H: env_expr({col})\n")

	cfg, err := LoadFile(path, "v1")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"PT2H": "env_expr({col})",
		"PT6H": "six({col})",
	}, cfg.TimeGrains.AddonExpressions["postgresql"])
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "zero row limit",
			env:     map[string]string{"DEFAULT_ROW_LIMIT": "0"},
			wantErr: "DEFAULT_ROW_LIMIT must be positive",
		},
		{
			name:    "negative sql max row",
			env:     map[string]string{"SQL_MAX_ROW": "-1"},
			wantErr: "SQL_MAX_ROW must not be negative",
		},
		{
			name:    "unknown log format",
			env:     map[string]string{"LOG_FORMAT": "xml"},
			wantErr: "LOG_FORMAT must be json or console",
		},
		{
			name:    "malformed addon expressions",
			env:     map[string]string{"TIME_GRAIN_ADDON_EXPRESSIONS": "[not, a, map]"},
			wantErr: "invalid TIME_GRAIN_ADDON_EXPRESSIONS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile_MalformedYAML(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfig(t, "query: [unterminated")
	_, err := LoadFile(path, "v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestRowLimit(t *testing.T) {
	tests := []struct {
		name      string
		def, max  int
		wantLimit int
	}{
		{"no sql max", 1000, 0, 1000},
		{"sql max lower", 1000, 100, 100},
		{"sql max higher", 1000, 5000, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Query: QueryConfig{DefaultRowLimit: tt.def, SQLMaxRow: tt.max}}
			assert.Equal(t, tt.wantLimit, cfg.RowLimit())
		})
	}
}

func TestSettings(t *testing.T) {
	cfg := &Config{
		TimeGrains: TimeGrainConfig{
			Denylist: []string{"PT1S"},
			Addons:   map[string]string{"PT2H": "2 hours"},
			AddonExpressions: map[string]map[string]string{
				"postgresql": {"PT2H": "x({col})"},
			},
		},
		Datasource: DatasourceConfig{ProbeTimeout: 2 * time.Second, SSLCertDir: "/certs"},
	}

	settings := cfg.Settings()
	assert.Equal(t, []string{"PT1S"}, settings.Grains.Denylist)
	assert.Equal(t, "2 hours", settings.Grains.Addons["PT2H"])
	assert.Equal(t, "x({col})", settings.Grains.AddonExpressions["postgresql"]["PT2H"])
	assert.Equal(t, "/certs", settings.CertDir)
	assert.Equal(t, 2*time.Second, settings.ProbeTimeout)
	require.NotNil(t, settings.ResolveHost)
	assert.Equal(t, "db.example.com", settings.ResolveHost("db.example.com"))
}
