// Package transport wraps a single UDP socket bound to the configured
// port with broadcast enabled: a plain directed-broadcast LAN socket
// rather than a multicast group join.
package transport

import (
	"context"
	"net"
	"sync"
	"syscall"

	"github.com/pkg/errors"
)

// MaxDatagramSize is the largest payload this layer will accept; larger
// writes are rejected outright. Chunking to stay under this ceiling is the
// file-transfer engine's responsibility.
const MaxDatagramSize = 60 * 1024

// Transport is a bound UDP4 socket with broadcast enabled.
type Transport struct {
	conn      *net.UDPConn
	broadcast *net.UDPAddr
	sendMu    sync.Mutex // single send lock; receive is single-consumer
}

// Listen binds a UDP4 socket on port across all interfaces, with
// SO_BROADCAST enabled so SendBroadcast can reach the LAN's directed
// broadcast address.
func Listen(port int, broadcastAddr string) (*Transport, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort("0.0.0.0", itoa(port)))
	if err != nil {
		return nil, errors.Wrap(err, "transport: bind")
	}

	bcast, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(broadcastAddr, itoa(port)))
	if err != nil {
		pc.Close()
		return nil, errors.Wrap(err, "transport: resolve broadcast address")
	}

	return &Transport{conn: pc.(*net.UDPConn), broadcast: bcast}, nil
}

// LocalPort returns the bound local UDP port.
func (t *Transport) LocalPort() int {
	return t.conn.LocalAddr().(*net.UDPAddr).Port
}

// SendUnicast fire-and-forgets bytes to addr.
func (t *Transport) SendUnicast(addr *net.UDPAddr, data []byte) error {
	if len(data) > MaxDatagramSize {
		return errors.Errorf("transport: payload %d bytes exceeds max %d", len(data), MaxDatagramSize)
	}
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	_, err := t.conn.WriteToUDP(data, addr)
	return errors.Wrap(err, "transport: send")
}

// SendBroadcast fire-and-forgets bytes to the subnet's directed broadcast
// address.
func (t *Transport) SendBroadcast(data []byte) error {
	return t.SendUnicast(t.broadcast, data)
}

// Recv blocks until a datagram arrives, or ctx is cancelled. Malformed
// datagrams and transient read errors (e.g. a prior unreachable-port ICMP
// surfacing as ECONNREFUSED on this socket) are absorbed by the caller's
// dispatch loop, never by tearing down the socket here.
func (t *Transport) Recv(ctx context.Context) ([]byte, *net.UDPAddr, error) {
	buf := make([]byte, MaxDatagramSize)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			t.conn.SetReadDeadline(timeNow())
		case <-done:
		}
	}()
	defer close(done)

	n, addr, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, errors.Wrap(err, "transport: recv")
	}
	return buf[:n], addr, nil
}

// Close releases the underlying socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}
