// Package config loads and persists the application's JSON configuration:
// logging, contents backend selection, handler routing overrides, and the
// startup script.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidConfig indicates the configuration file was not valid JSON.
var ErrInvalidConfig = errors.New("invalid configuration")

// Backend names accepted in the "backend" field.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendREST   = "rest"
)

// Config is the application configuration.
type Config struct {
	// LogLevel is the minimum log level ("debug", "info", "warn", "error").
	LogLevel string

	// LogFile is the log output path. Empty logs to stderr.
	LogFile string

	// Backend selects the contents backend.
	Backend string

	// Root is the document root for the local backend.
	Root string

	// ServerURL is the contents server base URL for the rest backend.
	ServerURL string

	// Token authenticates against the contents server.
	Token string

	// InitScript is the path of the Lua startup script. Empty disables it.
	InitScript string

	// Handlers maps file extensions (with leading dot) to handler names,
	// overriding the built-in routing.
	Handlers map[string]string
}

// Default returns the default configuration: info logging to stderr and a
// local backend rooted at the working directory.
func Default() Config {
	return Config{
		LogLevel: "info",
		Backend:  BackendLocal,
		Root:     ".",
		Handlers: make(map[string]string),
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults without error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration JSON, filling unset fields with defaults.
func Parse(data []byte) (Config, error) {
	if !gjson.ValidBytes(data) {
		return Config{}, ErrInvalidConfig
	}

	cfg := Default()
	if v := gjson.GetBytes(data, "log.level"); v.Exists() {
		cfg.LogLevel = v.String()
	}
	if v := gjson.GetBytes(data, "log.file"); v.Exists() {
		cfg.LogFile = v.String()
	}
	if v := gjson.GetBytes(data, "backend"); v.Exists() {
		cfg.Backend = v.String()
	}
	if v := gjson.GetBytes(data, "root"); v.Exists() {
		cfg.Root = v.String()
	}
	if v := gjson.GetBytes(data, "server.url"); v.Exists() {
		cfg.ServerURL = v.String()
	}
	if v := gjson.GetBytes(data, "server.token"); v.Exists() {
		cfg.Token = v.String()
	}
	if v := gjson.GetBytes(data, "init_script"); v.Exists() {
		cfg.InitScript = v.String()
	}
	if v := gjson.GetBytes(data, "handlers"); v.IsObject() {
		for ext, name := range v.Map() {
			key := strings.ToLower(ext)
			if !strings.HasPrefix(key, ".") {
				key = "." + key
			}
			cfg.Handlers[key] = name.String()
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the configuration as JSON to path, creating parent
// directories as needed.
func (c Config) Save(path string) error {
	data, err := c.marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// marshal builds the configuration JSON.
func (c Config) marshal() ([]byte, error) {
	data := []byte("{}")
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		data, err = sjson.SetBytes(data, path, value)
	}

	set("log.level", c.LogLevel)
	if c.LogFile != "" {
		set("log.file", c.LogFile)
	}
	set("backend", c.Backend)
	if c.Root != "" {
		set("root", c.Root)
	}
	if c.ServerURL != "" {
		set("server.url", c.ServerURL)
	}
	if c.Token != "" {
		set("server.token", c.Token)
	}
	if c.InitScript != "" {
		set("init_script", c.InitScript)
	}
	for ext, name := range c.Handlers {
		set("handlers."+strings.TrimPrefix(ext, "."), name)
	}

	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// validate checks field values after parsing.
func (c Config) validate() error {
	switch c.Backend {
	case BackendLocal, BackendMemory, BackendREST:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Backend == BackendREST && c.ServerURL == "" {
		return fmt.Errorf("%w: rest backend needs server.url", ErrInvalidConfig)
	}
	return nil
}
