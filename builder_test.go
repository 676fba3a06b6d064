// FILE: lixenwraith/nodeconf/builder_test.go
package nodeconf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const builderTemplate = "# app settings\nversion: 2\nserver:\n\thost: localhost\n\tport: 80\n\n# added in version 2\nmotd: welcome\n"

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestBuilderTemplate(t *testing.T) {
	t.Run("CreatesMissingFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.sk")
		cfg, err := NewBuilder().WithArgs(nil).WithFile(path).WithTemplate(builderTemplate).Build()
		require.NoError(t, err)
		assert.Equal(t, path, cfg.Path())
		assert.Equal(t, builderTemplate, readFile(t, path))
	})

	t.Run("UpgradeKeepsValues", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.sk")
		old := "version: 1\nserver:\n\thost: example.com\n\tport: 8080\n"
		require.NoError(t, os.WriteFile(path, []byte(old), 0644))

		cfg, err := NewBuilder().
			WithArgs(nil).
			WithFile(path).
			WithTemplate(builderTemplate).
			WithExcluded("version").
			Build()
		require.NoError(t, err)

		want := "# app settings\nversion: 2\nserver:\n\thost: example.com\n\tport: 8080\n\n# added in version 2\nmotd: welcome\n"
		assert.Equal(t, want, cfg.String())
		assert.Equal(t, want, readFile(t, path))
	})

	t.Run("CurrentFileUntouched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.sk")
		current := "version: 2\nserver:\n  host: h\n  port: 1\nmotd: hi   # custom\n"
		require.NoError(t, os.WriteFile(path, []byte(current), 0644))

		cfg, err := NewBuilder().WithArgs(nil).WithFile(path).WithTemplate(builderTemplate).Build()
		require.NoError(t, err)
		assert.Equal(t, current, cfg.String())
		assert.Equal(t, current, readFile(t, path))
	})

	t.Run("TemplateFileMissing", func(t *testing.T) {
		_, err := NewBuilder().WithTemplateFile(filepath.Join(t.TempDir(), "none.sk")).Build()
		assert.Error(t, err)
	})

	t.Run("NoWriteBack", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.sk")
		_, err := NewBuilder().WithArgs(nil).WithFile(path).WithTemplate(builderTemplate).WithWriteBack(false).Build()
		require.NoError(t, err)
		_, err = os.Stat(path)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

type builderDefaults struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

func TestBuilderDefaultsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.sk")
	require.NoError(t, os.WriteFile(path, []byte("app:\n\thost: example.com\n"), 0644))
	t.Setenv("BT_APP_HOST", "env.example.com")

	var target builderDefaults
	cfg, err := NewBuilder().
		WithFile(path).
		WithPrefix("app").
		WithDefaults(builderDefaults{Host: "localhost", Port: 80}).
		WithEnvPrefix("BT_").
		WithArgs([]string{"--app.port=9090"}).
		BuildAndScan(&target)
	require.NoError(t, err)

	assert.Equal(t, "env.example.com", target.Host)
	assert.Equal(t, 9090, target.Port)

	// defaults are written back, overrides are not
	assert.Equal(t, "app:\n\thost: example.com\n\tport: 80\n", readFile(t, path))
	v, _ := cfg.Value("app.port")
	assert.Equal(t, "9090", v)
}

func TestBuilderValidators(t *testing.T) {
	var order []int
	_, err := NewBuilder().
		WithArgs(nil).
		WithTemplate("a: 1\n").
		WithValidator(func(c *Config) error {
			order = append(order, 1)
			return nil
		}).
		WithValidator(func(c *Config) error {
			order = append(order, 2)
			return c.Validate("b")
		}).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Equal(t, []int{1, 2}, order)

	assert.Panics(t, func() {
		NewBuilder().WithArgs(nil).WithValidator(func(*Config) error { return errors.New("no") }).MustBuild()
	})
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "myapp.conf")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0644))

	opts := DefaultDiscoveryOptions("myapp")
	opts.UseXDG = false
	opts.UseCurrentDir = false
	opts.Paths = []string{dir}

	t.Run("SearchPaths", func(t *testing.T) {
		got, ok := Discover(opts, nil)
		assert.True(t, ok)
		assert.Equal(t, path, got)
	})

	t.Run("CLIFlag", func(t *testing.T) {
		got, ok := Discover(opts, []string{"--config", "/x/y.sk"})
		assert.True(t, ok)
		assert.Equal(t, "/x/y.sk", got)
		got, _ = Discover(opts, []string{"--config=/z.sk"})
		assert.Equal(t, "/z.sk", got)
	})

	t.Run("EnvVar", func(t *testing.T) {
		t.Setenv("MYAPP_CONFIG", "/env.sk")
		got, ok := Discover(opts, nil)
		assert.True(t, ok)
		assert.Equal(t, "/env.sk", got)
	})

	t.Run("NotFound", func(t *testing.T) {
		o := opts
		o.Paths = []string{t.TempDir()}
		_, ok := Discover(o, nil)
		assert.False(t, ok)
	})

	t.Run("Builder", func(t *testing.T) {
		cfg, err := NewBuilder().WithArgs(nil).WithFileDiscovery(opts).Build()
		require.NoError(t, err)
		assert.Equal(t, path, cfg.Path())
	})
}
