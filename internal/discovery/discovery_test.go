package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestInstanceName(t *testing.T) {
	got := instanceName("alice", "10.0.0.2")
	want := "alice_at_10_0_0_2"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseEntryExtractsTXTFields(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		Text:     []string{"user_id=alice", "display_name=Alice A."},
		Port:     7001,
		AddrIPv4: []net.IP{net.ParseIP("10.0.0.2")},
	}

	sighting, ok := parseEntry(entry)
	if !ok {
		t.Fatal("expected entry to parse")
	}
	if sighting.UserID != "alice" || sighting.DisplayName != "Alice A." || sighting.IP != "10.0.0.2" || sighting.Port != 7001 {
		t.Fatalf("got %+v", sighting)
	}
}

func TestParseEntryRejectsMissingUserIDOrAddress(t *testing.T) {
	if _, ok := parseEntry(&zeroconf.ServiceEntry{Text: []string{"display_name=X"}, AddrIPv4: []net.IP{net.ParseIP("10.0.0.2")}}); ok {
		t.Fatal("expected rejection without user_id")
	}
	if _, ok := parseEntry(&zeroconf.ServiceEntry{Text: []string{"user_id=alice"}}); ok {
		t.Fatal("expected rejection without an IPv4 address")
	}
}
