// FILE: lixenwraith/nodeconf/escape_test.go
package nodeconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		value   string
		comment string
	}{
		{"Plain", "key: value", "key: value", ""},
		{"TrailingComment", "key: value # trailing comment", "key: value ", "# trailing comment"},
		{"DoubledHash", "value ## with double hash", "value # with double hash", ""},
		{"HashInString", `say "a # b" # c`, `say "a # b" `, "# c"},
		{"DoubledHashInString", `say "a ## b"`, `say "a ## b"`, ""},
		{"DoubledQuote", `say "a "" b" # c`, `say "a "" b" `, "# c"},
		{"DoubledPercent", "100%% done # note", "100%% done ", "# note"},
		{"FullLineComment", "   # just a comment", "", "# just a comment"},
		{"HashAfterVariable", "{a}# b", "{a}", "# b"},
		{"Empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inBlock := false
			value, comment := SplitLine(tt.line, &inBlock)
			assert.Equal(t, tt.value, value)
			assert.Equal(t, tt.comment, comment)
			assert.False(t, inBlock)
		})
	}
}

func TestSplitLineBlockComment(t *testing.T) {
	lines := []string{"a: 1", "###", "this # is not code", "b: 2", "  ###  ", "c: 3"}
	wantValue := []string{"a: 1", "", "", "", "", "c: 3"}
	wantBlock := []bool{false, true, true, true, false, false}

	inBlock := false
	for i, line := range lines {
		value, comment := SplitLine(line, &inBlock)
		assert.Equal(t, wantValue[i], value, "line %d", i)
		assert.Equal(t, wantBlock[i], inBlock, "line %d", i)
		if wantValue[i] == "" {
			assert.Equal(t, line, comment, "line %d", i)
		}
	}
}

func TestReescape(t *testing.T) {
	t.Run("NoHash", func(t *testing.T) {
		assert.Equal(t, "key: value", Reescape("key: value"))
	})

	t.Run("DoublesHashOutsideString", func(t *testing.T) {
		assert.Equal(t, "value ## with double hash", Reescape("value # with double hash"))
	})

	t.Run("KeepsHashInString", func(t *testing.T) {
		assert.Equal(t, `say "a # b"`, Reescape(`say "a # b"`))
	})

	t.Run("Inverse", func(t *testing.T) {
		lines := []string{
			"value ## with double hash",
			`say "a # b" and ## more`,
			"{a}## b",
			"color: ####ff0000",
			`say "x "" y" ## z`,
			"100%% ## sure",
		}
		for _, line := range lines {
			inBlock := false
			value, comment := SplitLine(line, &inBlock)
			assert.Empty(t, comment, line)

			escaped := Reescape(value)
			again, comment := SplitLine(escaped, &inBlock)
			assert.Empty(t, comment, line)
			assert.Equal(t, value, again, line)
		}
	})
}
