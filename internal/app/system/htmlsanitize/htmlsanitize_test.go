package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/canvashub/canvashub/internal/app/system/htmlsanitize"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string // exact match when set
		keeps []string
		drops []string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain text unchanged", in: "Crew meeting at 8am", want: "Crew meeting at 8am"},
		{name: "safe formatting preserved", in: "<p><strong>Bold</strong> and <em>italic</em></p>", want: "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{name: "lists preserved", in: "<ul><li>Route A</li><li>Route B</li></ul>", want: "<ul><li>Route A</li><li>Route B</li></ul>"},
		{
			name: "script removed",
			in:   "<p>Hello</p><script>alert('xss')</script>",
			want: "<p>Hello</p>",
		},
		{
			name:  "onclick stripped",
			in:    `<button onclick="alert('xss')">Click</button>`,
			drops: []string{"onclick"},
		},
		{
			name:  "javascript href stripped",
			in:    `<a href="javascript:alert('xss')">Click</a>`,
			drops: []string{"javascript:"},
		},
		{
			name:  "safe link kept",
			in:    `<a href="https://example.com">Link</a>`,
			keeps: []string{"https://example.com"},
		},
		{
			name:  "tables with spans kept",
			in:    `<table><tr><td colspan="2" rowspan="2">Cell</td></tr></table>`,
			keeps: []string{`colspan="2"`, `rowspan="2"`},
		},
		{
			name:  "iframe removed",
			in:    `<p>Content</p><iframe src="https://evil.com"></iframe>`,
			keeps: []string{"Content"},
			drops: []string{"iframe"},
		},
		{
			name:  "img onerror stripped",
			in:    `<img src="x" onerror="alert('xss')">`,
			drops: []string{"onerror"},
		},
		{
			name:  "form elements removed",
			in:    `<form action="/submit"><input type="text"><button>Go</button></form>`,
			drops: []string{"<form", "<input"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := htmlsanitize.Sanitize(tc.in)
			if tc.want != "" || tc.in == "" {
				if got != tc.want {
					t.Fatalf("got %q, want %q", got, tc.want)
				}
				return
			}
			for _, k := range tc.keeps {
				if !strings.Contains(got, k) {
					t.Errorf("expected %q kept, got %q", k, got)
				}
			}
			for _, d := range tc.drops {
				if strings.Contains(got, d) {
					t.Errorf("expected %q dropped, got %q", d, got)
				}
			}
		})
	}
}

func TestStripTags(t *testing.T) {
	if got := htmlsanitize.StripTags("<p>New <strong>bonus</strong> program</p>"); got != "New bonus program" {
		t.Errorf("got %q", got)
	}
	if got := htmlsanitize.StripTags(""); got != "" {
		t.Errorf("empty: got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello, World!", true},
		{"<p>Hello</p>", false},
		{"5 < 10", true},
		{"5 > 3", true},
	}
	for _, tc := range tests {
		if got := htmlsanitize.IsPlainText(tc.in); got != tc.want {
			t.Errorf("IsPlainText(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}
