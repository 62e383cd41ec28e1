package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLength int
		want      string
	}{
		{
			name:      "short text passes through",
			text:      "hello",
			maxLength: 10,
			want:      "hello",
		},
		{
			name:      "exact length passes through",
			text:      "hello",
			maxLength: 5,
			want:      "hello",
		},
		{
			name:      "long text gets suffix",
			text:      strings.Repeat("a", 40),
			maxLength: 30,
			want:      strings.Repeat("a", 15) + TruncateSuffix,
		},
		{
			name:      "tiny limit cuts hard without suffix",
			text:      "abcdefghij",
			maxLength: 4,
			want:      "abcd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateText(tt.text, tt.maxLength)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.maxLength)
		})
	}
}

func TestTruncateTextCountsRunes(t *testing.T) {
	// マルチバイト文字でもrune単位で切り詰める
	text := strings.Repeat("課", 120)

	got := TruncateText(text, 100)

	assert.Equal(t, 100, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, TruncateSuffix))
	assert.True(t, strings.HasPrefix(got, "課"))
}
