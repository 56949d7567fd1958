package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Lonami/sf/internal"
	"github.com/Lonami/sf/pkg/wire"
)

// ErrTimeout is returned when no valid announcement arrives within the
// resolution bound.
var ErrTimeout = errors.New("discovery timed out waiting for a receiver")

// Resolve binds the discovery port and blocks until the first datagram that
// decodes as a valid announcement arrives, returning the announced transfer
// address. Datagrams that do not match are discarded and listening
// continues. The wait is bounded by timeout.
func Resolve(ctx context.Context, port int, timeout time.Duration) (*net.TCPAddr, error) {
	lc := broadcastListenConfig()
	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind discovery port %d: %w", port, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	buf := make([]byte, 512)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("read discovery datagram: %w", err)
		}

		var ann wire.Announcement
		if _, err := ann.Decode(buf[:n]); err != nil {
			internal.Debug("discarding unrelated datagram", internal.Fields{
				internal.FieldAddr:  from.String(),
				internal.FieldBytes: n,
			})
			continue
		}

		addr := ann.TCPAddr()
		internal.Info("receiver discovered", internal.Fields{
			internal.FieldAddr: addr.String(),
		})
		return addr, nil
	}
}
