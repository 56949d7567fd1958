package discovery

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// broadcastListenConfig prepares UDP sockets for discovery use. SO_BROADCAST
// is required to send to directed broadcast addresses; SO_REUSEADDR lets a
// fresh invocation bind the well-known ports while an old socket lingers in
// TIME_WAIT.
func broadcastListenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
		},
	}
}
