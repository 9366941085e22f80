// Package token mints and validates the short-lived, scope-carrying
// authorization tokens attached to LSNP records. Tokens are advisory, not
// cryptographic: they exist to scope what a message TYPE is allowed to do
// and to bind a message to the IP it was actually sent from.
package token

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Scope is the permission class embedded in a token.
type Scope string

// Scopes recognized by the protocol.
const (
	ScopeChat      Scope = "chat"
	ScopeFile      Scope = "file"
	ScopeBroadcast Scope = "broadcast"
	ScopeFollow    Scope = "follow"
	ScopeGame      Scope = "game"
	ScopeGroup     Scope = "group"
)

// Reason is why a Validate call failed.
type Reason string

// Validation failure reasons.
const (
	ReasonMalformed    Reason = "Malformed"
	ReasonExpired      Reason = "Expired"
	ReasonScopeMismatch Reason = "ScopeMismatch"
	ReasonIPMismatch   Reason = "IPMismatch"
)

// Error wraps a validation Reason so callers can switch on it.
type Error struct {
	Reason Reason
}

func (e *Error) Error() string {
	return "token: " + string(e.Reason)
}

func fail(reason Reason) error {
	return &Error{Reason: reason}
}

// Reasonof extracts the Reason from an error produced by Validate, if any.
func Reasonof(err error) (Reason, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Reason, true
	}
	return "", false
}

// Mint returns a token string "user_full_id|expiry|scope", expiry being
// now+ttlSeconds as a Unix timestamp.
func Mint(userFullID string, scope Scope, ttlSeconds int, now time.Time) string {
	expiry := now.Add(time.Duration(ttlSeconds) * time.Second).Unix()
	return userFullID + "|" + strconv.FormatInt(expiry, 10) + "|" + string(scope)
}

// Validate checks a token against the expected scope, the UDP source
// address the record carrying it arrived on, and the current time. The
// embedded user_full_id's IP portion must equal senderIP exactly.
func Validate(tok string, expectedScope Scope, senderIP string, now time.Time) error {
	parts := strings.SplitN(tok, "|", 3)
	if len(parts) != 3 {
		return fail(ReasonMalformed)
	}
	fullID, expiryStr, scopeStr := parts[0], parts[1], parts[2]

	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return fail(ReasonMalformed)
	}

	at := strings.LastIndexByte(fullID, '@')
	if at < 0 || at == len(fullID)-1 {
		return fail(ReasonMalformed)
	}
	tokenIP := fullID[at+1:]

	if now.Unix() > expiry {
		return fail(ReasonExpired)
	}
	if Scope(scopeStr) != expectedScope {
		return fail(ReasonScopeMismatch)
	}
	if tokenIP != senderIP {
		return fail(ReasonIPMismatch)
	}
	return nil
}

// ScopeForType returns the scope required for a given message TYPE, and
// whether that TYPE requires a scoped token at all (PROFILE/PING/ACK do
// not carry tokens).
func ScopeForType(msgType string) (Scope, bool) {
	switch msgType {
	case "DM":
		return ScopeChat, true
	case "POST", "LIKE":
		return ScopeBroadcast, true
	case "FOLLOW", "UNFOLLOW":
		return ScopeFollow, true
	case "FILE_OFFER", "FILE_ACCEPT", "FILE_REJECT", "FILE_CHUNK", "FILE_RECEIVED":
		return ScopeFile, true
	case "GAME_INVITE", "GAME_MOVE", "GAME_RESULT":
		return ScopeGame, true
	case "GROUP_CREATE", "GROUP_MSG":
		return ScopeGroup, true
	default:
		return "", false
	}
}
