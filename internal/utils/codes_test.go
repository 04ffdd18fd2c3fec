package utils

import (
	"regexp"
	"testing"
)

func TestNewAuthCodeShape(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := NewAuthCode()
		if err != nil {
			t.Fatalf("NewAuthCode: %v", err)
		}
		if !re.MatchString(code) {
			t.Fatalf("code %q is not 6 digits", code)
		}
		seen[code] = true
	}
	// 100 draws from a 10^6 space colliding down to a handful would
	// mean a broken random source
	if len(seen) < 90 {
		t.Fatalf("only %d distinct codes out of 100", len(seen))
	}
}

func TestNewInvitationCodeShape(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z2-7]{16}$`)
	a, err := NewInvitationCode()
	if err != nil {
		t.Fatalf("NewInvitationCode: %v", err)
	}
	b, err := NewInvitationCode()
	if err != nil {
		t.Fatalf("NewInvitationCode: %v", err)
	}
	if !re.MatchString(a) || !re.MatchString(b) {
		t.Fatalf("unexpected code shape: %q, %q", a, b)
	}
	if a == b {
		t.Fatal("two invitation codes collided")
	}
}
