// FILE: lixenwraith/nodeconf/loader_test.go
package nodeconf

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse is a test helper collecting diagnostics
func parse(t *testing.T, text string, opts ...Option) (*Config, *Collector) {
	t.Helper()
	coll := &Collector{}
	c, err := Parse(strings.NewReader(text), "test.sk", append(opts, WithReporter(coll))...)
	require.NoError(t, err)
	return c, coll
}

func TestScenarios(t *testing.T) {
	t.Run("NestedSimpleSection", func(t *testing.T) {
		c, coll := parse(t, "on join:\n\tbroadcast \"hi\"", WithSimple(true))
		assert.Empty(t, coll.Diagnostics())

		root := c.Root()
		require.Equal(t, 1, root.Len())
		sec, ok := root.Section("on join")
		require.True(t, ok)
		assert.Equal(t, "on join", sec.Key())
		require.Equal(t, 1, sec.Len())

		leaf, _ := sec.At(0)
		assert.Equal(t, KindSimple, leaf.Kind())
		assert.Equal(t, `broadcast "hi"`, leaf.Key())
		assert.Equal(t, "tab", c.IndentationName())
	})

	t.Run("DoubledHashValue", func(t *testing.T) {
		c, coll := parse(t, "value ## with double hash", WithSimple(true))
		assert.Empty(t, coll.Diagnostics())
		n, ok := c.Root().At(0)
		require.True(t, ok)
		assert.Equal(t, "value # with double hash", n.Text())
		assert.Empty(t, n.Comment())
	})

	t.Run("EntryWithTrailingComment", func(t *testing.T) {
		c, coll := parse(t, "key: value # trailing comment\n")
		assert.Empty(t, coll.Diagnostics())
		n, ok := c.Get("key")
		require.True(t, ok)
		e, ok := n.AsEntry()
		require.True(t, ok)
		assert.Equal(t, "key", e.Key())
		assert.Equal(t, "value", e.Value())
		assert.Equal(t, "# trailing comment", e.Comment())
	})

	t.Run("BlockComment", func(t *testing.T) {
		c, coll := parse(t, "###\nthis # is not code\n###\n")
		assert.Empty(t, coll.Diagnostics())
		require.Equal(t, 3, c.Root().Len())
		n, _ := c.Root().At(1)
		assert.Equal(t, KindVoid, n.Kind())
		assert.Equal(t, "this # is not code", n.Text())
		assert.True(t, c.IsEmpty())
	})
}

func TestRoundTrip(t *testing.T) {
	inputs := map[string]string{
		"Tabs": "# header comment\n\nserver:\n\thost: localhost\n\tport:5432   # default\n\ttls:\n\t\tenabled: yes\n\n# trailing\n",
		"Spaces": "a:\n    b: 1\n    c:\n        d: 2\ne: 3\n",
		"NoTrailingNewline": "a: 1\nb: 2",
		"BlockComment": "a: 1\n###\nanything # goes: here\n###\nb: 2\n",
		"EscapedHash": "color: ####ff0000\nnote: a ## b # real comment\n",
		"CRLF": "a: 1\r\nb:\r\n\tc: 2 # x\r\n",
		"BOM": "\uFEFFa: 1\n",
		"CommentsInSections": "a:\n\tb: 1\n  # odd comment\n\n\tc: 2\nd: 3\n",
		"Invalid": "a:\n\tb: 1\n\t\tc: 2\nno separator here\n",
		"DisabledSection": "a: #-#\nb:\n\tc: 1\n",
	}

	for name, text := range inputs {
		t.Run(name, func(t *testing.T) {
			c, _ := parse(t, text)
			assert.Equal(t, text, c.String())

			again, _ := parse(t, c.String())
			assert.Equal(t, c.String(), again.String())
		})
	}

	t.Run("SimpleMode", func(t *testing.T) {
		text := "on load:\n\tset {x} to 1 # init\n\tif {x} is 1:\n\t\tbroadcast \"## not a comment\"\n"
		c, coll := parse(t, text, WithSimple(true))
		assert.Empty(t, coll.Errors())
		assert.Equal(t, text, c.String())
	})
}

func TestIndentation(t *testing.T) {
	t.Run("DepthMatchesNesting", func(t *testing.T) {
		c, coll := parse(t, "a:\n  b:\n    c: 1\n  d: 2\ne: 3\n")
		assert.Empty(t, coll.Diagnostics())
		assert.Equal(t, "  ", c.Indentation())
		assert.Equal(t, "space", c.IndentationName())

		for n := range c.Root().Walk() {
			parent, ok := n.Parent()
			require.True(t, ok)
			assert.Equal(t, parent.Depth()+1, n.Depth(), n.Path())
			assert.Equal(t, len(n.PathSteps()), n.Depth(), n.Path())
		}

		c1, _ := c.Get("a.b.c")
		assert.Equal(t, 3, c1.Depth())
		e, _ := c.Get("e")
		assert.Equal(t, 1, e.Depth())
	})

	t.Run("Overindented", func(t *testing.T) {
		c, coll := parse(t, "a:\n\tb: 1\n\t\t\tc: 2\n")
		require.Len(t, coll.Errors(), 1)
		d := coll.Errors()[0]
		assert.Equal(t, 3, d.Line)
		assert.Contains(t, d.Message, "indentation error: expected 1 tab, but found 3 tabs")

		sec, _ := c.Root().Section("a")
		last, _ := sec.At(1)
		assert.Equal(t, KindInvalid, last.Kind())
	})

	t.Run("PartialUnit", func(t *testing.T) {
		_, coll := parse(t, "a:\n    b: 1\n  c: 2\n")
		require.Len(t, coll.Errors(), 1)
		assert.Contains(t, coll.Errors()[0].Message, "expected 4 spaces, but found 2 spaces")
	})

	t.Run("MixedWhitespace", func(t *testing.T) {
		_, coll := parse(t, "a:\n\t b: 1\n")
		require.NotEmpty(t, coll.Errors())
		assert.Contains(t, coll.Errors()[0].Message, "mixes tabs and spaces")
	})

	t.Run("MaxDepth", func(t *testing.T) {
		c, coll := parse(t, "a:\n\tb:\n\t\tc: 1\n", WithMaxDepth(1))
		require.NotEmpty(t, coll.Errors())
		assert.Contains(t, coll.Errors()[0].Message, "nested deeper than 1")
		_, ok := c.Get("a.b")
		assert.False(t, ok)
	})
}

func TestLoaderDiagnostics(t *testing.T) {
	t.Run("MissingSeparator", func(t *testing.T) {
		c, coll := parse(t, "a: 1\nnot an entry\n")
		require.Len(t, coll.Errors(), 1)
		d := coll.Errors()[0]
		assert.Equal(t, 2, d.Line)
		assert.Equal(t, "test.sk", d.File)
		assert.Equal(t, "not an entry", d.Text)

		n, _ := c.Root().At(1)
		assert.Equal(t, KindInvalid, n.Kind())
		assert.True(t, n.IsVoid())
	})

	t.Run("CustomMissingSeparator", func(t *testing.T) {
		var seen []string
		_, coll := parse(t, "just text\n", WithMissingSeparator(func(scope *Scope, text, sep string) {
			seen = append(seen, text)
			scope.Warnf(text, "ignored")
		}))
		assert.Equal(t, []string{"just text"}, seen)
		assert.Empty(t, coll.Errors())
		assert.Len(t, coll.Warnings(), 1)
	})

	t.Run("LineFailureRecovered", func(t *testing.T) {
		const text = "a: 1\nboom\nb: 2\nother\n"
		var lines []int
		c, coll := parse(t, text, WithMissingSeparator(func(scope *Scope, text, sep string) {
			lines = append(lines, scope.Line())
			if text == "boom" {
				panic("boom")
			}
			scope.Errorf(text, "no separator")
		}))

		assert.Equal(t, []int{2, 4}, lines)
		require.Len(t, coll.Errors(), 2)
		d := coll.Errors()[0]
		assert.Equal(t, 2, d.Line)
		assert.Equal(t, "boom", d.Text)
		assert.Contains(t, d.Message, "internal error")
		assert.Contains(t, d.Message, "(boom)")
		assert.Equal(t, 4, coll.Errors()[1].Line)

		n, ok := c.Root().At(1)
		require.True(t, ok)
		assert.Equal(t, KindInvalid, n.Kind())
		assert.Equal(t, 2, n.Line())

		v, ok := c.Value("b")
		assert.True(t, ok)
		assert.Equal(t, "2", v)
		assert.Equal(t, text, c.String())
	})

	t.Run("EmptyKey", func(t *testing.T) {
		_, coll := parse(t, ": value\n")
		require.Len(t, coll.Errors(), 1)
		assert.Contains(t, coll.Errors()[0].Message, "entry without a key")
	})

	t.Run("EmptySectionWarning", func(t *testing.T) {
		_, coll := parse(t, "a:\nb: 1\n")
		require.Len(t, coll.Warnings(), 1)
		assert.Equal(t, 1, coll.Warnings()[0].Line)

		_, coll = parse(t, "a:\nb: 1\n", WithAllowEmptySections(true))
		assert.Empty(t, coll.Warnings())
	})

	t.Run("UnterminatedBlockComment", func(t *testing.T) {
		_, coll := parse(t, "a: 1\n###\nb: 2\n")
		require.Len(t, coll.Errors(), 1)
		assert.Equal(t, 2, coll.Errors()[0].Line)
		assert.Contains(t, coll.Errors()[0].Message, "unterminated block comment")
	})

	t.Run("Collector", func(t *testing.T) {
		_, coll := parse(t, "x\ny\n")
		assert.Len(t, coll.Diagnostics(), 2)
		assert.Error(t, coll.Err())
		coll.Reset()
		assert.NoError(t, coll.Err())
	})
}

func TestSectionDetection(t *testing.T) {
	t.Run("EntryWithColonInValue", func(t *testing.T) {
		c, _ := parse(t, "url: http:\n")
		n, ok := c.Get("url")
		require.True(t, ok)
		assert.Equal(t, KindEntry, n.Kind())
		v, _ := n.Value()
		assert.Equal(t, "http:", v)
	})

	t.Run("DisabledMarkerKeepsEntry", func(t *testing.T) {
		c, coll := parse(t, "a: #-#\n", WithSeparator("="))
		n, _ := c.Root().At(0)
		assert.NotEqual(t, KindSection, n.Kind())
		assert.Len(t, coll.Errors(), 1)
	})

	t.Run("DisabledMarkerInSimpleMode", func(t *testing.T) {
		c, _ := parse(t, "on load: #-#\n", WithSimple(true))
		n, _ := c.Root().At(0)
		assert.Equal(t, KindSimple, n.Kind())
		assert.Equal(t, "on load:", n.Key())
	})

	t.Run("OtherCommentOpensSection", func(t *testing.T) {
		c, _ := parse(t, "on load: # handler\n\tstop\n", WithSimple(true))
		sec, ok := c.Root().Section("on load")
		require.True(t, ok)
		assert.Equal(t, "# handler", sec.Comment())
		assert.Equal(t, 1, sec.Len())
	})

	t.Run("CustomDelimiters", func(t *testing.T) {
		c, coll := parse(t, "server {\n\tport = 80\n", WithSeparator("="), WithSectionDelimiter(" {"))
		assert.Empty(t, coll.Errors())
		v, ok := c.Value("server.port")
		assert.True(t, ok)
		assert.Equal(t, "80", v)
		assert.Equal(t, "server {\n\tport = 80\n", c.String())
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Existing", func(t *testing.T) {
		path := filepath.Join(dir, "a.sk")
		require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0644))
		c, err := LoadFile(path, WithReporter(DiscardReporter))
		require.NoError(t, err)
		assert.Equal(t, path, c.Path())
		assert.Equal(t, "a.sk", c.Name())
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "missing.sk"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("SaveAndReload", func(t *testing.T) {
		c := New()
		require.NoError(t, c.Set("db.host", "localhost"))
		c.GetNode("db.host").SetComment("primary")

		path := filepath.Join(dir, "nested", "out.sk")
		require.NoError(t, c.Save(path))
		assert.Equal(t, path, c.Path())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "db:\n\thost: localhost # primary\n", string(data))

		loaded, err := LoadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, loaded.Bytes()))
	})

	t.Run("SaveFileWithoutPath", func(t *testing.T) {
		assert.ErrorIs(t, New().SaveFile(), ErrNoFile)
	})
}

func TestParseLargeSection(t *testing.T) {
	const n = 50000
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "key%d: %d\n", i%(n/2), i)
	}
	c, coll := parse(t, b.String())
	assert.Empty(t, coll.Diagnostics())
	assert.Equal(t, n, c.Root().Len())

	v, ok := c.Value("KEY7")
	require.True(t, ok)
	assert.Equal(t, "7", v, "first of the duplicated keys wins")
}

func BenchmarkParseFlat(b *testing.B) {
	var sb strings.Builder
	for i := range 20000 {
		fmt.Fprintf(&sb, "key%d: %d\n", i, i)
	}
	text := sb.String()
	b.ResetTimer()
	for range b.N {
		ParseString(text, "bench.sk", WithReporter(DiscardReporter))
	}
}
