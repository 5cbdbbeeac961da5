package askutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prefixed prose", `Sure, here it is: {"a":1}`, `{"a":1}`},
		{"array", `noise [1,2,3] trailing`, `[1,2,3]`},
		{"no json", "nothing here", "nothing here"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSONObject(tc.in))
		})
	}
}

func TestCollapseNewlines(t *testing.T) {
	assert.Equal(t, "a b c", CollapseNewlines("a\nb\r\nc"))
	assert.Equal(t, "trimmed", CollapseNewlines("\ntrimmed\n"))
	assert.Equal(t, "", CollapseNewlines(""))
}

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateByRunes("abc", 10))
	assert.Equal(t, "ab", TruncateByRunes("abcd", 2))
	assert.Equal(t, "", TruncateByRunes("abc", 0))

	// 多字节字符按 rune 截断，不能截出半个字符
	s := strings.Repeat("记", 5)
	got := TruncateByRunes(s, 3)
	assert.Equal(t, strings.Repeat("记", 3), got)
}
