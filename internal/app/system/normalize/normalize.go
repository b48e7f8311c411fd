// Package normalize canonicalizes user-entered identity fields before
// they are stored or matched against unique indexes.
package normalize

import "strings"

// Username lowercases and trims a username. Usernames are the foreign key
// between users, leads, sessions, and ledgers, so every write path must
// pass through here.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses internal runs of whitespace.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Phone strips spaces, dashes, dots, and parentheses from a phone number,
// keeping a leading plus.
func Phone(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
