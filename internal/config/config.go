// Package config loads ClickGraph's runtime configuration from built-in
// defaults, an optional YAML file, environment variables and command-line
// flags, in that order of increasing precedence (flags win, matching the
// teacher's layered viper+godotenv loader).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the server needs at startup. Schema content
// itself is not part of Config — it is loaded separately by the catalog
// package from the paths named in GraphConfigPaths.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Server   ServerConfig   `yaml:"server"`
	Query    QueryConfig    `yaml:"query"`
	Compat   CompatConfig   `yaml:"compat"`
	LogLevel string         `yaml:"log_level"`
	LogJSON  bool           `yaml:"log_json"`
}

// BackendConfig describes how to reach the columnar store (§6 env vars).
type BackendConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ServerConfig holds the two protocol adapters' listen settings.
type ServerConfig struct {
	HTTPPort     int    `yaml:"http_port"`
	BoltPort     int    `yaml:"bolt_port"`
	DisableBolt  bool   `yaml:"disable_bolt"`
	GraphConfigs string `yaml:"graph_config_path"` // comma-separated
}

// QueryConfig bounds resource usage for a single query (§5 resource bounds).
type QueryConfig struct {
	MaxRecursionDepth int           `yaml:"max_recursion_depth"`
	BackendTimeout    time.Duration `yaml:"backend_timeout"`
	MaxPoolSize       int           `yaml:"max_pool_size"`
}

// CompatConfig toggles wire-protocol compatibility behavior.
type CompatConfig struct {
	Neo4jCompatMode bool `yaml:"neo4j_compat_mode"`
}

const (
	defaultMaxRecursionDepth = 100
	hardMaxRecursionDepth    = 1000
)

// Default returns the built-in defaults, overridden by env/file/flags in Load.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:      "",
			Database: "default",
		},
		Server: ServerConfig{
			HTTPPort: 8080,
			BoltPort: 7687,
		},
		Query: QueryConfig{
			MaxRecursionDepth: defaultMaxRecursionDepth,
			BackendTimeout:    30 * time.Second,
			MaxPoolSize:       50,
		},
		LogLevel: "info",
		LogJSON:  false,
	}
}

// Load builds a Config from (lowest to highest precedence) built-in
// defaults, a YAML file (explicit path, or ./clickgraph.yaml /
// ~/.clickgraph/config.yaml if unset), and CLICKGRAPH_*-prefixed /
// well-known environment variables. Flags are applied by the caller
// (cmd/clickgraphd) after Load returns, since cobra owns flag parsing.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CLICKGRAPH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("clickgraph")
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".clickgraph"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	clampRecursionDepth(cfg)

	return cfg, nil
}

func loadEnvFiles() {
	envFiles := []string{".env.local", ".env"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies the §6 well-known environment variables, which
// take precedence over the YAML file (but not over flags, applied later).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLICKHOUSE_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("CLICKHOUSE_USER"); v != "" {
		cfg.Backend.User = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		cfg.Backend.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_DATABASE"); v != "" {
		cfg.Backend.Database = v
	}
	if v := os.Getenv("GRAPH_CONFIG_PATH"); v != "" {
		cfg.Server.GraphConfigs = v
	}
	if v := os.Getenv("CLICKGRAPH_MAX_RECURSION_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Query.MaxRecursionDepth = n
		}
	}
}

func clampRecursionDepth(cfg *Config) {
	if cfg.Query.MaxRecursionDepth <= 0 {
		cfg.Query.MaxRecursionDepth = defaultMaxRecursionDepth
	}
	if cfg.Query.MaxRecursionDepth > hardMaxRecursionDepth {
		cfg.Query.MaxRecursionDepth = hardMaxRecursionDepth
	}
}

// GraphConfigPaths splits the comma-separated GRAPH_CONFIG_PATH value.
func (c *Config) GraphConfigPaths() []string {
	if c.Server.GraphConfigs == "" {
		return nil
	}
	parts := strings.Split(c.Server.GraphConfigs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Save writes the configuration to a YAML file. No command in this
// repository calls it.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("backend", c.Backend)
	v.Set("server", c.Server)
	v.Set("query", c.Query)
	v.Set("compat", c.Compat)
	v.Set("log_level", c.LogLevel)
	v.Set("log_json", c.LogJSON)

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
