package auth

import "testing"

func TestEmptyAllowlistAuthorizesEveryone(t *testing.T) {
	a := NewAllowlist(nil)
	for _, id := range []string{"anyone@example.com", "U123", ""} {
		if !a.IsAuthorized(id) {
			t.Errorf("empty allowlist must authorize %q", id)
		}
	}
}

func TestAllowlistMatches(t *testing.T) {
	a := NewAllowlist([]string{"Alice@Example.com", " U123 ", ""})

	allowed := []string{"alice@example.com", "ALICE@EXAMPLE.COM", " alice@example.com ", "u123"}
	for _, id := range allowed {
		if !a.IsAuthorized(id) {
			t.Errorf("%q should be authorized", id)
		}
	}

	denied := []string{"bob@example.com", "U456", ""}
	for _, id := range denied {
		if a.IsAuthorized(id) {
			t.Errorf("%q should be denied", id)
		}
	}
}
