package normalize_test

import (
	"testing"

	"github.com/canvashub/canvashub/internal/app/system/normalize"
)

func TestUsername(t *testing.T) {
	if got := normalize.Username("  JDoe "); got != "jdoe" {
		t.Errorf("got %q", got)
	}
}

func TestEmail(t *testing.T) {
	if got := normalize.Email(" Pat@Example.COM "); got != "pat@example.com" {
		t.Errorf("got %q", got)
	}
}

func TestName(t *testing.T) {
	if got := normalize.Name("  Jane   Q   Doe "); got != "Jane Q Doe" {
		t.Errorf("got %q", got)
	}
}

func TestPhone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"(217) 555-0134", "2175550134"},
		{"+1 217.555.0134", "+12175550134"},
		{"  217 555 0134 ", "2175550134"},
	}
	for _, tc := range tests {
		if got := normalize.Phone(tc.in); got != tc.want {
			t.Errorf("Phone(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}
