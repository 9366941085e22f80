// Package discovery advertises this peer and observes advertisements from
// others via mDNS, writing only into the peer registry. The shape is two
// goroutines, an advertise loop and a listen loop feeding a channel the
// controller consumes, built on a real mDNS implementation rather than a
// hand-rolled UDP multicast socket, since the wire contract names an
// actual service type, TXT record keys, and SRV port that a custom
// beacon can't produce.
package discovery

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/registry"
)

// ServiceType is the fixed mDNS service type for LSNP peers.
const ServiceType = "_lsnp._udp"

// Sighting is one observed peer advertisement, ready to be upserted into
// the registry by the controller.
type Sighting struct {
	UserID      string
	DisplayName string
	IP          string
	Port        uint16
}

// Discovery advertises this peer and watches for others, upserting
// sightings into reg as they arrive.
type Discovery struct {
	log *logrus.Logger
	reg *registry.Registry

	server    *zeroconf.Server
	sightings chan Sighting
}

// New constructs a Discovery bound to reg; it does no network I/O until
// Start is called.
func New(reg *registry.Registry, log *logrus.Logger) *Discovery {
	return &Discovery{reg: reg, log: log, sightings: make(chan Sighting, 64)}
}

// instanceName renders "<user_id>_at_<ip-with-dots-as-underscores>".
func instanceName(userID, ip string) string {
	return userID + "_at_" + strings.ReplaceAll(ip, ".", "_")
}

// Start registers this peer's mDNS advertisement and begins browsing for
// others. It returns once advertising is live; browsing runs in the
// background until ctx is cancelled. The advertised instance name is
// built from userID and the address 0.0.0.0, not from this host's IP.
func (d *Discovery) Start(ctx context.Context, userID, displayName string, port int) error {
	server, err := zeroconf.Register(
		instanceName(userID, "0.0.0.0"),
		ServiceType,
		"local.",
		port,
		[]string{"user_id=" + userID, "display_name=" + displayName},
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "discovery: register")
	}
	d.server = server

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		server.Shutdown()
		return errors.Wrap(err, "discovery: new resolver")
	}

	entries := make(chan *zeroconf.ServiceEntry, 32)
	go d.consume(entries)

	go func() {
		if err := resolver.Browse(ctx, ServiceType, "local.", entries); err != nil {
			d.log.WithError(err).Warn("discovery: browse stopped")
		}
	}()

	return nil
}

func (d *Discovery) consume(entries <-chan *zeroconf.ServiceEntry) {
	for entry := range entries {
		sighting, ok := parseEntry(entry)
		if !ok {
			continue
		}

		d.reg.Upsert(registry.Peer{
			UserID:      sighting.UserID,
			DisplayName: sighting.DisplayName,
			IP:          sighting.IP,
			Port:        sighting.Port,
			LastSeen:    time.Now(),
		})

		select {
		case d.sightings <- sighting:
		default:
		}
	}
}

// parseEntry extracts user_id, display_name, address, and port from a
// discovered service entry's TXT fields. Service removal
// and update events with no usable address are acknowledged (by returning
// false) but otherwise ignored; peers are never evicted by the registry.
func parseEntry(entry *zeroconf.ServiceEntry) (Sighting, bool) {
	var userID, displayName string
	for _, kv := range entry.Text {
		switch {
		case strings.HasPrefix(kv, "user_id="):
			userID = strings.TrimPrefix(kv, "user_id=")
		case strings.HasPrefix(kv, "display_name="):
			displayName = strings.TrimPrefix(kv, "display_name=")
		}
	}
	if userID == "" || len(entry.AddrIPv4) == 0 {
		return Sighting{}, false
	}

	return Sighting{
		UserID:      userID,
		DisplayName: displayName,
		IP:          entry.AddrIPv4[0].String(),
		Port:        uint16(entry.Port),
	}, true
}

// Sightings returns the channel of observed peer advertisements, for
// components (like the controller's central loop) that want to react to
// discovery as it happens rather than polling the registry.
func (d *Discovery) Sightings() <-chan Sighting {
	return d.sightings
}

// Close withdraws this peer's mDNS advertisement.
func (d *Discovery) Close() {
	if d.server != nil {
		d.server.Shutdown()
	}
}

// LocalIPv4 returns a best-guess non-loopback IPv4 address for this host,
// used to populate PROFILE/advertisement fields when the caller hasn't
// pinned one via configuration.
func LocalIPv4() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", errors.Wrap(err, "discovery: interface addrs")
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", errors.New("discovery: no non-loopback IPv4 address found")
}
