// Package transfer implements both ends of the framed TCP file stream: the
// receiver that reconstructs files on disk and the sender that streams them
// out, plus the common-prefix policy shared between them.
package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Lonami/sf/internal"
	"github.com/Lonami/sf/pkg/discovery"
	"github.com/Lonami/sf/pkg/wire"
)

type ServerConfig struct {
	// Port to listen on for the transfer stream.
	Port int
	// StripPrefix applies the sender's common-prefix hint to every
	// destination path.
	StripPrefix bool
	// Broadcast announces the listener's address on the discovery port until
	// a connection is accepted.
	Broadcast           bool
	DiscoveryPort       int
	BroadcastSourcePort int
	BroadcastInterval   time.Duration
	// ChunkSize is the copy buffer size for content bytes.
	ChunkSize int
}

// Server accepts exactly one connection per invocation and writes the files
// it carries to the local filesystem, in arrival order, one at a time.
type Server struct {
	cfg ServerConfig
	ln  net.Listener
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4 << 20
	}
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = time.Second
	}
	return &Server{cfg: cfg}
}

// Listen binds the transfer port. Split from Serve so callers can learn the
// bound address (tests bind port 0) before the session starts.
func (s *Server) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	s.ln = ln
	return nil
}

func (s *Server) Addr() *net.TCPAddr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr().(*net.TCPAddr)
}

// Serve waits for the one client, then runs the session to completion.
// Completed files stay on disk whatever happens to later entries.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(ctx); err != nil {
			return err
		}
	}
	defer s.ln.Close()

	bctx, stopBroadcast := context.WithCancel(ctx)
	defer stopBroadcast()
	if s.cfg.Broadcast {
		s.startBroadcaster(bctx)
	}

	// Unblock Accept when the caller gives up.
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	internal.Info("waiting for sender", internal.Fields{
		internal.FieldAddr: s.ln.Addr().String(),
	})

	conn, err := s.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer conn.Close()

	// One session per invocation: drop the listener so a second sender is
	// refused instead of queued behind this stream.
	stopBroadcast()
	s.ln.Close()

	sessionID := uuid.New().String()
	internal.Info("sender connected", internal.Fields{
		internal.FieldAddr:      conn.RemoteAddr().String(),
		internal.FieldSessionID: sessionID,
	})

	if err := s.receive(conn, sessionID); err != nil {
		internal.Error("session failed", internal.Fields{
			internal.FieldSessionID: sessionID,
			internal.FieldError:     err.Error(),
		})
		return err
	}
	return nil
}

func (s *Server) startBroadcaster(ctx context.Context) {
	ip, err := internal.AdvertiseIP()
	if err != nil {
		internal.Warn("cannot announce own address, direct ip must be used", internal.Fields{
			internal.FieldError: err.Error(),
		})
		return
	}
	b, err := discovery.NewBroadcaster(discovery.BroadcasterConfig{
		Announce:      wire.Announcement{IP: ip, Port: s.Addr().Port},
		DiscoveryPort: s.cfg.DiscoveryPort,
		SourcePort:    s.cfg.BroadcastSourcePort,
		Interval:      s.cfg.BroadcastInterval,
	})
	if err != nil {
		internal.Warn("cannot announce own address, direct ip must be used", internal.Fields{
			internal.FieldError: err.Error(),
		})
		return
	}
	go func() {
		if err := b.Run(ctx); err != nil {
			internal.Warn("broadcaster stopped", internal.Fields{
				internal.FieldError: err.Error(),
			})
		}
	}()
}

func (s *Server) receive(conn net.Conn, sessionID string) error {
	fr := wire.NewReader(bufio.NewReaderSize(conn, s.cfg.ChunkSize))

	hint, err := fr.ReadHeader()
	if err != nil {
		return classify(err)
	}
	if s.cfg.StripPrefix && hint != "" {
		internal.Debug("stripping common path prefix", internal.Fields{
			internal.FieldSessionID: sessionID,
			internal.FieldPath:      hint,
		})
	}

	buf := make([]byte, s.cfg.ChunkSize)
	createdDirs := make(map[string]struct{})
	received := 0

	for {
		entry, err := fr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return classify(err)
		}

		dst := entry.Path
		if s.cfg.StripPrefix {
			dst = StripPrefix(dst, hint)
		}

		internal.Info("receiving file", internal.Fields{
			internal.FieldPath:  dst,
			internal.FieldBytes: entry.Size,
		})
		if err := writeEntry(dst, entry, buf, createdDirs); err != nil {
			return err
		}
		received++
	}

	internal.Info("session complete", internal.Fields{
		internal.FieldSessionID: sessionID,
		internal.FieldFileCount: received,
	})
	return nil
}

// writeEntry creates the parent directories and the file for one entry and
// streams exactly the declared content into it. The destination path is used
// exactly as received; absolute and parent-relative paths are intentionally
// not sanitized.
func writeEntry(dst string, entry *wire.Entry, buf []byte, createdDirs map[string]struct{}) error {
	if dir := filepath.Dir(dst); dir != "." {
		if _, done := createdDirs[dir]; !done {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("%w: %w", ErrLocalIO, err)
			}
			createdDirs[dir] = struct{}{}
		}
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalIO, err)
	}
	if _, err := io.CopyBuffer(f, entry.Content, buf); err != nil {
		f.Close()
		return classify(err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrLocalIO, err)
	}
	return nil
}
