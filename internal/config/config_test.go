package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_CreatesDefaultIfMissing(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	// Check defaults
	assert.Equal(t, []string{"NO_COLOR=true"}, cfg.EnvList())
	assert.Equal(t, 0, cfg.Execution.MaxOutputBytes)
	assert.Equal(t, 2*time.Second, cfg.Interpreter.ProbeTimeout)
	assert.Equal(t, time.Duration(0), cfg.Interpreter.CacheTTL)
	assert.Empty(t, cfg.Interpreter.SystemCandidates)
	assert.Empty(t, cfg.Host.DataDir)
	assert.Empty(t, cfg.Server.MetricsAddr)
	assert.NoError(t, cfg.Validate())

	// Verify file was created
	_, err = os.Stat(loader.Path())
	assert.NoError(t, err)
}

func TestLoader_Load_ReadsExistingConfig(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "pyexec")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	configContent := `
execution:
  env:
    PYTHONUNBUFFERED: "1"
  max_output_bytes: 1048576
interpreter:
  probe_timeout: 5s
  cache_ttl: 1m
  system_candidates:
    - python3.12
    - python3
host:
  data_dir: ~/lmstudio-data
server:
  metrics_addr: 127.0.0.1:9464
`
	require.NoError(t, os.WriteFile(
		filepath.Join(configDir, "config.yaml"),
		[]byte(configContent),
		0o644,
	))

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	// Note: viper lowercases all keys, EnvList restores the case
	assert.Contains(t, cfg.EnvList(), "PYTHONUNBUFFERED=1")
	assert.Equal(t, 1048576, cfg.Execution.MaxOutputBytes)
	assert.Equal(t, 5*time.Second, cfg.Interpreter.ProbeTimeout)
	assert.Equal(t, time.Minute, cfg.Interpreter.CacheTTL)
	assert.Equal(t, []string{"python3.12", "python3"}, cfg.Interpreter.SystemCandidates)
	assert.Equal(t, filepath.Join(tmpHome, "lmstudio-data"), cfg.Host.DataDir)
	assert.Equal(t, "127.0.0.1:9464", cfg.Server.MetricsAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_Load_EnvVarOverride(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("PYEXEC_DATA_DIR", "/opt/lmstudio")
	t.Setenv("PYEXEC_METRICS_ADDR", ":9464")
	t.Setenv("PYEXEC_EXECUTION_MAX_OUTPUT_BYTES", "4096")

	loader, err := NewLoader()
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/lmstudio", cfg.Host.DataDir)
	assert.Equal(t, ":9464", cfg.Server.MetricsAddr)
	assert.Equal(t, 4096, cfg.Execution.MaxOutputBytes)
}

func TestLoader_Path(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	expected := filepath.Join(tmpHome, ".config", "pyexec", "config.yaml")
	assert.Equal(t, expected, loader.Path())
}

func TestLoader_Get(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Load()
	require.NoError(t, err)

	t.Run("valid key returns value", func(t *testing.T) {
		val, err := loader.Get("host.data_dir")
		require.NoError(t, err)
		assert.Equal(t, "", val)
	})

	t.Run("invalid key returns error", func(t *testing.T) {
		_, err := loader.Get("invalid.key")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestLoader_Set(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Load()
	require.NoError(t, err)

	t.Run("sets valid key", func(t *testing.T) {
		err := loader.Set("interpreter.cache_ttl", "30s")
		require.NoError(t, err)

		val, err := loader.Get("interpreter.cache_ttl")
		require.NoError(t, err)
		assert.Equal(t, "30s", val)

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.Interpreter.CacheTTL)
	})

	t.Run("sets env overlay entry", func(t *testing.T) {
		require.NoError(t, loader.Set("execution.env.PYTHONHASHSEED", "0"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Contains(t, cfg.EnvList(), "PYTHONHASHSEED=0")
	})

	t.Run("rejects invalid key", func(t *testing.T) {
		err := loader.Set("invalid.key", "value")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Interpreter: InterpreterConfig{ProbeTimeout: time.Second},
		}
	}

	t.Run("valid minimal config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects negative output cap", func(t *testing.T) {
		cfg := valid()
		cfg.Execution.MaxOutputBytes = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxOutputBytes")
	})

	t.Run("rejects zero probe timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Interpreter.ProbeTimeout = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ProbeTimeout")
	})

	t.Run("rejects empty system candidate", func(t *testing.T) {
		cfg := valid()
		cfg.Interpreter.SystemCandidates = []string{"python3", ""}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects malformed metrics address", func(t *testing.T) {
		cfg := valid()
		cfg.Server.MetricsAddr = "not an address"
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_EnvList(t *testing.T) {
	cfg := &Config{Execution: ExecutionConfig{Env: map[string]string{
		"no_color":         "true",
		"pythonunbuffered": "1",
	}}}

	assert.Equal(t, []string{"NO_COLOR=true", "PYTHONUNBUFFERED=1"}, cfg.EnvList())
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"execution", false},
		{"execution.env", false},
		{"execution.env.NO_COLOR", false},
		{"execution.max_output_bytes", false},
		{"interpreter.probe_timeout", false},
		{"interpreter.cache_ttl", false},
		{"interpreter.system_candidates", false},
		{"host.data_dir", false},
		{"server.metrics_addr", false},
		{"", true},
		{"execution.env.", true},
		{"execution.env.a.b", true},
		{"unknown", true},
		{"interpreter.unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
