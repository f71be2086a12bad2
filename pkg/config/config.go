package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
)

// DefaultPath is the config file read by Load when it exists.
const DefaultPath = "config.yaml"

// Config holds the settings shared by the engine registry and its callers.
// Values come from config.yaml when present; environment variables always win.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	Logging    LoggingConfig    `yaml:"logging"`
	Query      QueryConfig      `yaml:"query"`
	TimeGrains TimeGrainConfig  `yaml:"time_grains"`
	Datasource DatasourceConfig `yaml:"datasource"`
}

// LoggingConfig selects the zap logger flavour.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"` // json or console
}

// QueryConfig bounds the row limits applied to user SQL.
type QueryConfig struct {
	DefaultRowLimit int `yaml:"default_row_limit" env:"DEFAULT_ROW_LIMIT" env-default:"100000"`
	// SQLMaxRow further caps ad-hoc SQL. Zero disables it.
	SQLMaxRow      int `yaml:"sql_max_row" env:"SQL_MAX_ROW" env-default:"0"`
	ParseCacheSize int `yaml:"parse_cache_size" env:"SQL_PARSE_CACHE_SIZE" env-default:"512"`
}

// TimeGrainConfig customises the time grains every engine exposes.
type TimeGrainConfig struct {
	Denylist []string          `yaml:"denylist" env:"TIME_GRAIN_DENYLIST" env-separator:","`
	Addons   map[string]string `yaml:"addons" env:"TIME_GRAIN_ADDONS"`

	// AddonExpressions maps engine -> grain token -> SQL template.
	AddonExpressions map[string]map[string]string `yaml:"addon_expressions"`
	// AddonExpressionsText is the YAML or JSON form read from the environment.
	// It is merged over AddonExpressions.
	AddonExpressionsText string `yaml:"-" env:"TIME_GRAIN_ADDON_EXPRESSIONS"`
}

// DatasourceConfig holds connection-level settings.
type DatasourceConfig struct {
	ProbeTimeout time.Duration `yaml:"network_probe_timeout" env:"NETWORK_PROBE_TIMEOUT" env-default:"10s"`
	SSLCertDir   string        `yaml:"ssl_cert_dir" env:"SSL_CERT_DIR"`
	PoolIdleTTL  time.Duration `yaml:"pool_idle_ttl" env:"POOL_IDLE_TTL" env-default:"5m"`
	MaxPools     int           `yaml:"max_pools" env:"MAX_POOLS" env-default:"32"`
}

// Load reads configuration from DefaultPath and the environment.
func Load(version string) (*Config, error) {
	return LoadFile(DefaultPath, version)
}

// LoadFile reads configuration from path when it exists, otherwise from the
// environment alone.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	cfg.Version = version

	if err := cfg.parseComplexFields(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseComplexFields normalises values that cleanenv cannot decode directly.
func (c *Config) parseComplexFields() error {
	c.TimeGrains.Denylist = parseList(c.TimeGrains.Denylist)

	if text := strings.TrimSpace(c.TimeGrains.AddonExpressionsText); text != "" {
		parsed, err := parseAddonExpressions(text)
		if err != nil {
			return err
		}
		if c.TimeGrains.AddonExpressions == nil {
			c.TimeGrains.AddonExpressions = make(map[string]map[string]string, len(parsed))
		}
		for engine, grains := range parsed {
			existing := c.TimeGrains.AddonExpressions[engine]
			if existing == nil {
				existing = make(map[string]string, len(grains))
				c.TimeGrains.AddonExpressions[engine] = existing
			}
			for token, expr := range grains {
				existing[token] = expr
			}
		}
	}
	return nil
}

// parseList trims entries and drops empty ones.
func parseList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseAddonExpressions decodes engine -> token -> expression. JSON is a
// subset of YAML so both forms are accepted.
func parseAddonExpressions(text string) (map[string]map[string]string, error) {
	var parsed map[string]map[string]string
	if err := yaml.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("invalid TIME_GRAIN_ADDON_EXPRESSIONS: %w", err)
	}
	return parsed, nil
}

func (c *Config) validate() error {
	if c.Query.DefaultRowLimit <= 0 {
		return fmt.Errorf("DEFAULT_ROW_LIMIT must be positive, got %d", c.Query.DefaultRowLimit)
	}
	if c.Query.SQLMaxRow < 0 {
		return fmt.Errorf("SQL_MAX_ROW must not be negative, got %d", c.Query.SQLMaxRow)
	}
	if c.Datasource.ProbeTimeout < 0 {
		return fmt.Errorf("NETWORK_PROBE_TIMEOUT must not be negative, got %s", c.Datasource.ProbeTimeout)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// RowLimit is the ceiling applied to every query.
func (c *Config) RowLimit() int {
	if c.Query.SQLMaxRow > 0 && c.Query.SQLMaxRow < c.Query.DefaultRowLimit {
		return c.Query.SQLMaxRow
	}
	return c.Query.DefaultRowLimit
}

// GrainSettings projects the time grain config onto the registry settings.
func (c *Config) GrainSettings() datasource.GrainSettings {
	return datasource.GrainSettings{
		Denylist:         c.TimeGrains.Denylist,
		Addons:           c.TimeGrains.Addons,
		AddonExpressions: c.TimeGrains.AddonExpressions,
	}
}

// Settings builds the registry settings. Hosts placed in connection URIs are
// rewritten for Docker.
func (c *Config) Settings() datasource.Settings {
	return datasource.Settings{
		Grains:       c.GrainSettings(),
		CertDir:      c.Datasource.SSLCertDir,
		ProbeTimeout: c.Datasource.ProbeTimeout,
		ResolveHost:  ResolveHostForDocker,
	}
}
