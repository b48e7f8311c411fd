// Package htmlsanitize cleans operator-supplied rich text before it is
// stored. News content arrives as HTML from the admin clients; everything
// not on the allowlist is stripped.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = buildPolicy()

var stripPolicy = bluemonday.StrictPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowTables()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("style").OnElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowElements("u", "s", "sub", "sup", "mark", "hr")
	return p
}

// Sanitize removes disallowed tags and attributes from HTML content.
// Plain text passes through unchanged.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return policy.Sanitize(html)
}

// StripTags reduces HTML to its text content, for notification bodies and
// search excerpts.
func StripTags(html string) string {
	if html == "" {
		return ""
	}
	return strings.TrimSpace(stripPolicy.Sanitize(html))
}

// IsPlainText reports whether the string contains no HTML tags.
func IsPlainText(s string) bool {
	open := strings.Index(s, "<")
	if open < 0 {
		return true
	}
	return strings.Index(s[open:], ">") < 0
}
