package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the runtime configuration shared by cs2d and cs2ctl.
type Config struct {
	Name        string
	Addr        string
	CorsOrigins []string
	// SchemaDir holds *.toml schema files loaded next to the built-in schemas.
	SchemaDir       string
	TrailingNewline bool
	DisallowUnknown bool
	MaxBodyBytes    int64
	LogLevel        string
	// APIToken, when set, is required as a bearer token on /v1 routes.
	APIToken string
}

// fileConfig is the on-disk key mapping of Config.
type fileConfig struct {
	Name            string   `toml:"name"`
	Addr            string   `toml:"addr"`
	CorsOrigins     []string `toml:"cors_origins"`
	SchemaDir       string   `toml:"schema_dir"`
	TrailingNewline bool     `toml:"trailing_newline"`
	DisallowUnknown bool     `toml:"disallow_unknown_fields"`
	MaxBodyBytes    int64    `toml:"max_body_bytes"`
	LogLevel        string   `toml:"log_level"`
	APIToken        string   `toml:"api_token"`
}

func DefaultConfig() Config {
	return Config{
		Name:            "cs2d",
		Addr:            ":9300",
		CorsOrigins:     []string{"http://localhost:3000"},
		TrailingNewline: true,
		MaxBodyBytes:    1 << 20,
		LogLevel:        "info",
	}
}

// Load reads path and overlays every key it defines on DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("schema_dir") {
		cfg.SchemaDir = strings.TrimSpace(raw.SchemaDir)
	}
	if meta.IsDefined("trailing_newline") {
		cfg.TrailingNewline = raw.TrailingNewline
	}
	if meta.IsDefined("disallow_unknown_fields") {
		cfg.DisallowUnknown = raw.DisallowUnknown
	}
	if meta.IsDefined("max_body_bytes") {
		cfg.MaxBodyBytes = raw.MaxBodyBytes
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("api_token") {
		cfg.APIToken = strings.TrimSpace(raw.APIToken)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("addr is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", cfg.MaxBodyBytes)
	}
	for i, origin := range cfg.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors_origins[%d] is empty", i)
		}
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "off", "disabled":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	return nil
}
