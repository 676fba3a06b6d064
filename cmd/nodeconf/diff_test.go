package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/lixenwraith/nodeconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) *nodeconf.Config {
	t.Helper()
	return nodeconf.ParseString(text, "test.sk", nodeconf.WithReporter(nodeconf.DiscardReporter))
}

func TestKeyDiff(t *testing.T) {
	color.NoColor = true
	from := mustParse(t, "a: 1\nb: 2\ns:\n\tx: 1\n")
	to := mustParse(t, "a: 1\nb: 3\nc: 4\n")

	t.Run("Differences", func(t *testing.T) {
		var buf bytes.Buffer
		assert.True(t, keyDiff(&buf, from, to, nil))
		assert.Equal(t, "- s\n+ c\n~ b: 2 -> 3\n", buf.String())
	})

	t.Run("Excluded", func(t *testing.T) {
		var buf bytes.Buffer
		assert.True(t, keyDiff(&buf, from, to, []string{"B", "s"}))
		assert.Equal(t, "+ c\n", buf.String())
	})

	t.Run("Equal", func(t *testing.T) {
		var buf bytes.Buffer
		assert.False(t, keyDiff(&buf, from, from.Clone(), nil))
		assert.Empty(t, buf.String())
	})
}

func TestTextDiff(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	assert.True(t, textDiff(&buf, "a: 1\nb: 2\n", "a: 1\nb: 3\n"))
	assert.Equal(t, " a: 1\n-b: 2\n+b: 3\n", buf.String())

	buf.Reset()
	assert.False(t, textDiff(&buf, "a: 1\n", "a: 1\n"))
	assert.False(t, strings.ContainsAny(buf.String(), "+-"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b.c"}, splitList(" a, ,b.c,"))
	assert.Nil(t, splitList(""))
}

func TestIndentUnit(t *testing.T) {
	for in, want := range map[string]string{"": "\t", "tab": "\t", "TAB": "\t", "2": "  ", "4": "    "} {
		got, err := indentUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"0", "-1", "spaces"} {
		_, err := indentUnit(in)
		assert.Error(t, err, in)
	}
}
