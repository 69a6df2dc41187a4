package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		absent   []string
	}{
		{
			name:     "emphasis",
			input:    "hello **world**",
			contains: []string{"<strong>world</strong>"},
		},
		{
			name:   "script stripped",
			input:  "hi <script>alert(1)</script>",
			absent: []string{"<script", "alert(1)</script>"},
		},
		{
			name:   "javascript link dropped",
			input:  "[x](javascript:alert(1))",
			absent: []string{"javascript:"},
		},
		{
			name:     "external link hardened",
			input:    "[site](https://example.com)",
			contains: []string{`href="https://example.com"`, "nofollow", "noreferrer", `target="_blank"`},
		},
		{
			name:     "gfm table",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "hard wraps",
			input:    "line one\nline two",
			contains: []string{"<br"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Markdown(tt.input)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, bad := range tt.absent {
				assert.False(t, strings.Contains(out, bad), "unexpected %q in %q", bad, out)
			}
		})
	}
}
