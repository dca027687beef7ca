package flows

import "testing"

func TestValidEmail(t *testing.T) {
	cases := map[string]bool{
		"a@test.com":             true,
		"first.last@example.org": true,
		"":                       false,
		"nope":                   false,
		"a@":                     false,
		"@test.com":              false,
		"two@@test.com":          false,
	}
	for email, want := range cases {
		if got := ValidEmail(email); got != want {
			t.Fatalf("ValidEmail(%q) = %v, want %v", email, got, want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}
