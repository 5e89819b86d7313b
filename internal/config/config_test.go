package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"curriculum-graph/internal/domain/topic"
	apperrors "curriculum-graph/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var envKeys = []string{
	"STORE_DRIVER", "NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD", "NEO4J_DATABASE",
	"SERVER_ADDRESS", "LOG_LEVEL", "LOG_FORMAT", "ENABLE_METRICS", "ENABLE_TRACING",
	"OTLP_ENDPOINT", "TRACE_SAMPLE_RATE", "EVENTS_PROVIDER", "EVENT_BUS_NAME", "AWS_REGION",
}

// unsetEnv removes the variables the loader reads for the duration of the test.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t)

	cfg, err := NewLoader(t.TempDir(), Development).Load()
	require.NoError(t, err)

	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, "neo4j", cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "none", cfg.Events.Provider)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Equal(t, topic.DefaultCatalog().Entries(), catalog.Entries())
}

func TestLoadLayering(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  address: ":9000"
  shutdown_timeout: 3s
logging:
  level: debug
store:
  driver: memory
`)
	writeFile(t, dir, "development.yaml", `
server:
  address: ":9100"
`)
	writeFile(t, dir, "local.yaml", `
logging:
  format: console
`)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := NewLoader(dir, Development).Load()
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Address)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, []string{
		"defaults",
		filepath.Join(dir, "base.yaml"),
		filepath.Join(dir, "development.yaml"),
		filepath.Join(dir, "local.yaml"),
		"environment",
	}, cfg.LoadedFrom)
}

func TestLocalOverridesIgnoredOutsideDevelopment(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "local.yaml", "logging:\n  level: debug\n")

	cfg, err := NewLoader(dir, Production).Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, Production, cfg.Environment)
}

func TestLoadJSON(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.json", `{"metrics": {"namespace": "syllabus"}, "events": {"provider": "log"}}`)

	cfg, err := NewLoader(dir, Staging).Load()
	require.NoError(t, err)

	assert.Equal(t, "syllabus", cfg.Metrics.Namespace)
	assert.Equal(t, "log", cfg.Events.Provider)
}

func TestLoadClassTable(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
classes:
  - tag: Phys
    namespace: A_level_physics
  - tag: M
    namespace: A_level_maths
`)

	cfg, err := NewLoader(dir, Development).Load()
	require.NoError(t, err)

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	ns, err := catalog.Namespace("Phys")
	require.NoError(t, err)
	assert.Equal(t, topic.Namespace("A_level_physics"), ns)
	assert.False(t, catalog.Has(topic.ClassFurtherPure1))
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "eventbridge without bus", env: map[string]string{"EVENTS_PROVIDER": "eventbridge"}},
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "sqlite"}},
		{name: "sample rate out of range", env: map[string]string{"TRACE_SAMPLE_RATE": "1.5"}},
		{name: "tracing without endpoint", env: map[string]string{"ENABLE_TRACING": "true"}},
		{name: "duplicate class tags", file: "classes:\n  - {tag: M, namespace: A}\n  - {tag: M, namespace: B}\n"},
		{name: "bad namespace", file: "classes:\n  - {tag: M, namespace: \"bad label\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, dir, "base.yaml", tt.file)
			}

			_, err := NewLoader(dir, Development).Load()

			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, apperrors.CodeInvalidConfig, apperrors.CodeOf(err))
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server: [unterminated")

	_, err := NewLoader(dir, Development).Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "base config")
}

func TestDotenvFillsUnsetVariables(t *testing.T) {
	unsetEnv(t)
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	writeFile(t, dir, ".env", "NEO4J_DATABASE=curriculum\nLOG_LEVEL=debug\n")

	cfg, err := NewLoader(dir, Development).Load()
	require.NoError(t, err)

	assert.Equal(t, "curriculum", cfg.Store.Database)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Contains(t, cfg.LoadedFrom, filepath.Join(dir, ".env"))
}

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, Production, ParseEnvironment("PROD"))
	assert.Equal(t, Staging, ParseEnvironment("staging"))
	assert.Equal(t, Development, ParseEnvironment(""))
	assert.Equal(t, Development, ParseEnvironment("qa"))
}

func TestWatcherReloadsOnChange(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "logging:\n  level: info\n")

	loader := NewLoader(dir, Development)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := NewWatcher(loader, initial, zap.NewNop(), 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan *Config, 1)
	w.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	writeFile(t, dir, "base.yaml", "logging:\n  level: debug\n")

	select {
	case c := <-changed:
		assert.Equal(t, "debug", c.Logging.Level)
		assert.Equal(t, "debug", w.Config().Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
}

func TestWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "logging:\n  level: info\n")

	loader := NewLoader(dir, Development)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := NewWatcher(loader, initial, zap.NewNop(), 10*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	writeFile(t, dir, "base.yaml", "logging:\n  level: chatty\n")
	time.Sleep(200 * time.Millisecond)

	assert.Same(t, initial, w.Config())
}

func TestWatcherDisabledOutsideDevelopment(t *testing.T) {
	unsetEnv(t)
	loader := NewLoader(t.TempDir(), Production)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := NewWatcher(loader, initial, zap.NewNop(), 0)
	require.NoError(t, err)

	assert.Nil(t, w.fsWatcher)
	assert.Same(t, initial, w.Config())
	w.Stop()
}

func TestIsConfigFile(t *testing.T) {
	assert.True(t, isConfigFile("/etc/app/base.yaml"))
	assert.True(t, isConfigFile("local.JSON"))
	assert.True(t, isConfigFile("config/.env"))
	assert.False(t, isConfigFile("base.yaml.swp"))
}
