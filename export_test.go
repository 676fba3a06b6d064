// FILE: lixenwraith/nodeconf/export_test.go
package nodeconf

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const exportText = "# database\ndb:\n\thost: localhost\n\tport: 5432\nname: app\n"

func TestToMap(t *testing.T) {
	c, _ := parse(t, exportText)

	t.Run("Nested", func(t *testing.T) {
		want := map[string]any{
			"db":   map[string]any{"host": "localhost", "port": "5432"},
			"name": "app",
		}
		assert.Equal(t, want, c.ToMap())
	})

	t.Run("Flat", func(t *testing.T) {
		want := map[string]any{"db.host": "localhost", "db.port": "5432", "name": "app"}
		assert.Equal(t, want, c.FlatMap())
	})

	t.Run("Section", func(t *testing.T) {
		m, err := c.SectionMap("db")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"host": "localhost", "port": "5432"}, m)

		_, err = c.SectionMap("name")
		assert.ErrorIs(t, err, ErrNotSection)
		_, err = c.SectionMap("missing")
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("FirstDuplicateWins", func(t *testing.T) {
		d, _ := parse(t, "a: 1\na: 2\n")
		assert.Equal(t, map[string]any{"a": "1"}, d.ToMap())

		d, _ = parse(t, "Host: a\nhost: b\nsrv:\n\tPort: 1\n\tPORT: 2\n")
		want := map[string]any{"Host": "a", "srv": map[string]any{"Port": "1"}}
		assert.Equal(t, want, d.ToMap())
		v, _ := d.Value("host")
		assert.Equal(t, "a", v)
	})

	t.Run("SimpleTokens", func(t *testing.T) {
		s, _ := parse(t, "on load:\n\tstop\n", WithSimple(true))
		assert.Equal(t, map[string]any{"on load": map[string]any{"stop": nil}}, s.ToMap())
	})
}

func TestFromMap(t *testing.T) {
	c := FromMap(map[string]any{
		"name": "app",
		"db": map[string]any{
			"port": 5432,
			"host": "localhost",
		},
		"tags": []any{"a", "b"},
	})
	assert.Equal(t, "db:\n\thost: localhost\n\tport: 5432\nname: app\ntags: a,b\n", c.String())
}

func TestDump(t *testing.T) {
	c, _ := parse(t, exportText)

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Dump(&buf, FormatJSON))
		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, c.ToMap(), got)
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Dump(&buf, FormatYAML))
		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, c.ToMap(), got)
	})

	t.Run("TOML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Dump(&buf, FormatTOML))
		var got map[string]any
		_, err := toml.Decode(buf.String(), &got)
		require.NoError(t, err)
		assert.Equal(t, c.ToMap(), got)
	})

	t.Run("Unsupported", func(t *testing.T) {
		assert.Error(t, c.Dump(&bytes.Buffer{}, Format("ini")))
	})
}

func TestImport(t *testing.T) {
	want := "db:\n\thost: localhost\n\tport: 5432\n"

	inputs := map[Format]string{
		FormatJSON: `{"db": {"host": "localhost", "port": 5432}}`,
		FormatYAML: "db:\n  host: localhost\n  port: 5432\n",
		FormatTOML: "[db]\nhost = \"localhost\"\nport = 5432\n",
	}
	for format, input := range inputs {
		t.Run(string(format), func(t *testing.T) {
			c, err := Import(strings.NewReader(input), format)
			require.NoError(t, err)
			assert.Equal(t, want, c.String())
		})
	}

	t.Run("Malformed", func(t *testing.T) {
		_, err := Import(strings.NewReader("{"), FormatJSON)
		assert.Error(t, err)
	})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	c, _ := parse(t, exportText)

	for _, name := range []string{"out.json", "out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, c.ExportFile(path))

			back, err := ImportFile(path)
			require.NoError(t, err)
			assert.False(t, c.Compare(back))
			assert.False(t, back.Compare(c))
		})
	}

	t.Run("UnknownExtension", func(t *testing.T) {
		assert.Error(t, c.ExportFile(filepath.Join(dir, "out.txt")))
		_, err := ImportFile(filepath.Join(dir, "out.txt"))
		assert.Error(t, err)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := ImportFile(filepath.Join(dir, "absent.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
