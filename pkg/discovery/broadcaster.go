// Package discovery implements the zero-configuration half of the tool: a
// receiver periodically shouts its transfer address at the subnet broadcast
// address, and a sender invoked with the `auto` token listens for the first
// valid announcement.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Lonami/sf/internal"
	"github.com/Lonami/sf/pkg/wire"
)

type BroadcasterConfig struct {
	// Announce is the transfer address embedded in every datagram.
	Announce wire.Announcement
	// DiscoveryPort is the destination UDP port peers listen on.
	DiscoveryPort int
	// SourcePort is the preferred local bind port; an ephemeral port is used
	// when it is unavailable.
	SourcePort int
	Interval   time.Duration
}

// Broadcaster repeatedly announces a receiver's address to the local subnet.
// Individual send failures are logged and retried on the next tick; only a
// failure to open the socket at all is fatal.
type Broadcaster struct {
	cfg     BroadcasterConfig
	payload []byte
}

func NewBroadcaster(cfg BroadcasterConfig) (*Broadcaster, error) {
	buf := make([]byte, wire.MaxAnnouncementLen)
	n, err := cfg.Announce.Encode(buf)
	if err != nil {
		return nil, fmt.Errorf("encode announcement: %w", err)
	}
	return &Broadcaster{cfg: cfg, payload: buf[:n]}, nil
}

// Run blocks, announcing once immediately and then on every interval tick,
// until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	lc := broadcastListenConfig()
	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", b.cfg.SourcePort))
	if err != nil {
		internal.Warn("preferred broadcast port unavailable, using ephemeral", internal.Fields{
			internal.FieldPort:  b.cfg.SourcePort,
			internal.FieldError: err.Error(),
		})
		conn, err = lc.ListenPacket(ctx, "udp4", ":0")
		if err != nil {
			return fmt.Errorf("open broadcast socket: %w", err)
		}
	}
	defer conn.Close()

	internal.Info("announcing receiver on subnet broadcast", internal.Fields{
		internal.FieldAddr: b.cfg.Announce.TCPAddr().String(),
		internal.FieldPort: b.cfg.DiscoveryPort,
		"interval":         b.cfg.Interval.String(),
	})

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		b.announceOnce(conn)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Broadcaster) announceOnce(conn net.PacketConn) {
	targets, err := internal.BroadcastTargets()
	if err != nil {
		internal.Warn("cannot resolve broadcast targets, direct ip must be used", internal.Fields{
			internal.FieldError: err.Error(),
		})
		return
	}
	for _, target := range targets {
		dst := &net.UDPAddr{IP: target, Port: b.cfg.DiscoveryPort}
		if _, err := conn.WriteTo(b.payload, dst); err != nil {
			internal.Warn("broadcast send failed, will retry next tick", internal.Fields{
				internal.FieldAddr:  dst.String(),
				internal.FieldError: err.Error(),
			})
		}
	}
}
