package token

import (
	"testing"
	"time"
)

func TestMintValidateRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok := Mint("alice@10.0.0.2", ScopeChat, 30, now)

	if err := Validate(tok, ScopeChat, "10.0.0.2", now.Add(10*time.Second)); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
}

func TestValidateExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok := Mint("alice@10.0.0.2", ScopeChat, 1, now)

	err := Validate(tok, ScopeChat, "10.0.0.2", now.Add(2*time.Second))
	if reason, ok := Reasonof(err); !ok || reason != ReasonExpired {
		t.Fatalf("expected Expired, got %v", err)
	}
}

func TestValidateScopeMismatch(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok := Mint("alice@10.0.0.2", ScopeChat, 30, now)

	err := Validate(tok, ScopeFile, "10.0.0.2", now)
	if reason, ok := Reasonof(err); !ok || reason != ReasonScopeMismatch {
		t.Fatalf("expected ScopeMismatch, got %v", err)
	}
}

func TestValidateIPMismatch(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok := Mint("alice@10.0.0.2", ScopeChat, 30, now)

	err := Validate(tok, ScopeChat, "10.0.0.9", now)
	if reason, ok := Reasonof(err); !ok || reason != ReasonIPMismatch {
		t.Fatalf("expected IPMismatch, got %v", err)
	}
}

func TestValidateMalformed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	for _, tok := range []string{"", "nopipes", "a@b|notanumber|chat", "a@b|123"} {
		err := Validate(tok, ScopeChat, "b", now)
		if reason, ok := Reasonof(err); !ok || reason != ReasonMalformed {
			t.Fatalf("token %q: expected Malformed, got %v", tok, err)
		}
	}
}

func TestScopeForType(t *testing.T) {
	cases := map[string]Scope{
		"DM":          ScopeChat,
		"POST":        ScopeBroadcast,
		"FOLLOW":      ScopeFollow,
		"UNFOLLOW":    ScopeFollow,
		"FILE_OFFER":  ScopeFile,
		"GAME_INVITE": ScopeGame,
		"GROUP_MSG":   ScopeGroup,
	}
	for msgType, want := range cases {
		got, ok := ScopeForType(msgType)
		if !ok || got != want {
			t.Fatalf("ScopeForType(%s) = %v, %v; want %v, true", msgType, got, ok, want)
		}
	}

	if _, ok := ScopeForType("PROFILE"); ok {
		t.Fatal("PROFILE should not require a scope")
	}
}
