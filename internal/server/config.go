package server

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete gateway configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures caller authentication.
type AuthConfig struct {
	JWT     JWTConfig      `yaml:"jwt"`
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// JWTConfig configures bearer-token authentication.
type JWTConfig struct {
	Issuer     string `yaml:"issuer"`
	SigningKey string `yaml:"signing_key"`
}

// APIKeyConfig is one configured service key. Only the bcrypt hash is held.
type APIKeyConfig struct {
	Name  string   `yaml:"name"`
	Hash  string   `yaml:"hash"`
	Roles []string `yaml:"roles"`
}

// DatabaseConfig configures persistence. Backend "memory" keeps all state
// in-process; "postgres" uses DSN and runs embedded migrations at startup.
type DatabaseConfig struct {
	Backend      string `yaml:"backend"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// ProviderConfig configures the upstream tool platform.
type ProviderConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`

	// FallbackKeys maps toolkit slugs to server-held API keys used when the
	// caller supplies none.
	FallbackKeys map[string]string `yaml:"fallback_keys"`
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by
// the administrator.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "toolgate"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = "memory"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 30 * time.Second
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Database.Backend {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for the postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown database backend %q", c.Database.Backend))
	}

	if c.Provider.BaseURL == "" {
		errs = append(errs, "provider.base_url is required")
	}
	if c.Provider.APIKey == "" {
		errs = append(errs, "provider.api_key is required")
	}

	if c.Auth.JWT.Issuer == "" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, "at least one of auth.jwt or auth.api_keys must be configured")
	}
	if c.Auth.JWT.Issuer != "" && c.Auth.JWT.SigningKey == "" {
		errs = append(errs, "auth.jwt.signing_key is required when auth.jwt.issuer is set")
	}
	for i, key := range c.Auth.APIKeys {
		if key.Name == "" || key.Hash == "" {
			errs = append(errs, fmt.Sprintf("auth.api_keys[%d] requires name and hash", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
