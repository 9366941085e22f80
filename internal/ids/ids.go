// Package ids provides the full peer-identity helpers shared across the
// LSNP peer: parsing/formatting "user@ip" identities and minting the UUIDs
// that tag outbound messages and file transfers.
package ids

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrMalformedFullID is returned when a string isn't "user@ip".
var ErrMalformedFullID = errors.New("ids: malformed full id")

// FullID is the canonical "user@ip" peer identifier.
type FullID struct {
	User string
	IP   string
}

// String renders the canonical "user@ip" form.
func (f FullID) String() string {
	return f.User + "@" + f.IP
}

// ParseFullID splits "user@ip" into its parts. The IP is not validated for
// well-formedness here; callers that need that guarantee should parse it
// with net.ParseIP themselves.
func ParseFullID(s string) (FullID, error) {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return FullID{}, errors.Wrapf(ErrMalformedFullID, "%q", s)
	}
	return FullID{User: s[:at], IP: s[at+1:]}, nil
}

// NewMessageID mints a fresh MESSAGE_ID for an outbound record.
func NewMessageID() string {
	return uuid.NewString()
}

// NewFileID mints a fresh FILEID for a file offer.
func NewFileID() string {
	return uuid.NewString()
}
