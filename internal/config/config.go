// Package config provides configuration management for pyexec.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultConfigDir  = ".config/pyexec"
	DefaultConfigFile = "config.yaml"
)

// defaultProbeTimeout mirrors interpreter.DefaultProbeTimeout.
const defaultProbeTimeout = 2 * time.Second

// Sentinel errors for configuration operations.
var (
	ErrInvalidKey = errors.New("invalid configuration key")
	ErrNoEditor   = errors.New("$EDITOR environment variable not set")
)

// validKeys is built once from Config struct reflection.
var validKeys = buildValidKeys()

// validate is the shared validator instance.
var validate = validator.New()

// Config represents the full pyexec configuration.
type Config struct {
	Execution   ExecutionConfig   `mapstructure:"execution" yaml:"execution"`
	Interpreter InterpreterConfig `mapstructure:"interpreter" yaml:"interpreter"`
	Host        HostConfig        `mapstructure:"host" yaml:"host"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
}

// ExecutionConfig controls how child processes are run.
type ExecutionConfig struct {
	// Env is overlaid on the inherited environment of every child.
	Env            map[string]string `mapstructure:"env" yaml:"env"`
	MaxOutputBytes int               `mapstructure:"max_output_bytes" yaml:"max_output_bytes" validate:"gte=0"`
}

// InterpreterConfig controls interpreter discovery.
type InterpreterConfig struct {
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout" validate:"gt=0"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl" validate:"gte=0"`
	SystemCandidates []string      `mapstructure:"system_candidates" yaml:"system_candidates" validate:"dive,required"`
}

// HostConfig describes the host application.
type HostConfig struct {
	// DataDir overrides the pointer-file lookup of the host data directory.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// ServerConfig configures `pyexec serve`.
type ServerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// Validate checks the configuration for errors using struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// EnvList returns Execution.Env as sorted KEY=VALUE pairs.
func (c *Config) EnvList() []string {
	out := make([]string, 0, len(c.Execution.Env))
	for k, v := range c.Execution.Env {
		out = append(out, strings.ToUpper(k)+"="+v)
	}
	sort.Strings(out)
	return out
}

// Loader provides configuration loading and saving.
type Loader struct {
	v       *viper.Viper
	path    string
	homeDir string
}

// NewLoader creates a new configuration loader.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	configPath := filepath.Join(home, DefaultConfigDir, DefaultConfigFile)

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Environment variable binding
	v.SetEnvPrefix("PYEXEC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("host.data_dir", "PYEXEC_DATA_DIR")
	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("server.metrics_addr", "PYEXEC_METRICS_ADDR")

	l := &Loader{
		v:       v,
		path:    configPath,
		homeDir: home,
	}

	l.setDefaults()

	return l, nil
}

// setDefaults sets all default configuration values using Viper.
func (l *Loader) setDefaults() {
	l.v.SetDefault("execution.env", map[string]any{"no_color": "true"})
	l.v.SetDefault("execution.max_output_bytes", 0)
	l.v.SetDefault("interpreter.probe_timeout", defaultProbeTimeout)
	l.v.SetDefault("interpreter.cache_ttl", time.Duration(0))
	l.v.SetDefault("interpreter.system_candidates", []string{})
	l.v.SetDefault("host.data_dir", "")
	l.v.SetDefault("server.metrics_addr", "")
}

// Load reads the configuration file, creating defaults if it doesn't exist.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.createDefault(); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Host.DataDir = l.expandPath(cfg.Host.DataDir)

	return &cfg, nil
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Get returns a configuration value by dot-notation key.
func (l *Loader) Get(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return l.v.Get(key), nil
}

// Set sets a configuration value by dot-notation key and writes the file.
func (l *Loader) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	l.v.Set(key, value)
	return l.v.WriteConfig()
}

// createDefault writes the default configuration file using Viper.
func (l *Loader) createDefault() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return l.v.SafeWriteConfigAs(l.path)
}

// expandPath replaces ~ with the home directory.
func (l *Loader) expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	if path == "~" {
		return l.homeDir
	}
	return path
}

// ValidateKey checks if a key is a valid configuration key.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	if validKeys[key] {
		return nil
	}

	// execution.env.<NAME> addresses a single overlay entry.
	if name, ok := strings.CutPrefix(key, "execution.env."); ok && name != "" && !strings.Contains(name, ".") {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

// buildValidKeys builds the set of valid keys from Config struct using reflection.
func buildValidKeys() map[string]bool {
	keys := make(map[string]bool)
	addKeysFromType(reflect.TypeOf(Config{}), "", keys)
	return keys
}

// addKeysFromType recursively adds keys from a struct type.
func addKeysFromType(t reflect.Type, prefix string, keys map[string]bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		keys[key] = true

		// Recurse into nested structs (but not maps or durations)
		if field.Type.Kind() == reflect.Struct {
			addKeysFromType(field.Type, key, keys)
		}
	}
}
