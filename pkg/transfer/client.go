package transfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/Lonami/sf/internal"
	"github.com/Lonami/sf/pkg/wire"
)

type ClientConfig struct {
	// Addr is the receiver's resolved transfer address.
	Addr *net.TCPAddr
	// ChunkSize is the socket write buffer size.
	ChunkSize int
	// Progress renders a per-file progress bar on stderr.
	Progress bool
	// DialTimeout bounds the TCP connect.
	DialTimeout time.Duration
}

// Client streams an ordered list of local files to a receiver over one TCP
// connection. The whole invocation either fully succeeds or fails at the
// first unreadable file or broken write; single files are never retried.
type Client struct {
	cfg ClientConfig
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4 << 20
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Client{cfg: cfg}
}

// Send transfers the given paths in order. Paths go on the wire exactly as
// provided, without normalization, together with a common-prefix hint the
// receiver may use for stripping.
func (c *Client) Send(ctx context.Context, paths []string) error {
	// Stat everything up front so an unreadable file fails the invocation
	// before a single byte hits the wire.
	sizes := make([]uint64, len(paths))
	for i, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLocalIO, err)
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("%w: %s is not a regular file", ErrLocalIO, p)
		}
		sizes[i] = uint64(fi.Size())
	}

	hint := CommonPrefix(paths)
	sessionID := uuid.New().String()

	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.cfg.Addr.String())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer conn.Close()

	internal.Info("connected to receiver", internal.Fields{
		internal.FieldAddr:      c.cfg.Addr.String(),
		internal.FieldSessionID: sessionID,
		internal.FieldFileCount: len(paths),
	})

	bw := bufio.NewWriterSize(conn, c.cfg.ChunkSize)
	fw := wire.NewWriter(bw)

	if err := fw.WriteHeader(hint); err != nil {
		return classify(err)
	}
	for i, p := range paths {
		internal.Info("sending file", internal.Fields{
			internal.FieldPath:  p,
			internal.FieldBytes: sizes[i],
			"progress":          fmt.Sprintf("%d/%d", i+1, len(paths)),
		})
		if err := c.sendOne(fw, p, sizes[i]); err != nil {
			return err
		}
	}
	if err := fw.WriteTrailer(); err != nil {
		return classify(err)
	}
	if err := bw.Flush(); err != nil {
		return classify(err)
	}

	internal.Info("session complete", internal.Fields{
		internal.FieldSessionID: sessionID,
		internal.FieldFileCount: len(paths),
	})
	return nil
}

func (c *Client) sendOne(fw *wire.Writer, path string, size uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalIO, err)
	}
	defer f.Close()

	var content io.Reader = f
	if c.cfg.Progress {
		bar := progressbar.NewOptions64(int64(size),
			progressbar.OptionSetDescription(path),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		content = io.TeeReader(f, bar)
	}

	if err := fw.WriteEntry(path, size, content); err != nil {
		return classify(err)
	}
	return nil
}
