// Package wire defines the byte-level formats shared by the sender and the
// receiver: the framed TCP transfer stream and the UDP discovery
// announcement. It operates on abstract readers and writers only and never
// touches sockets or the filesystem.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Version byte = 4

	// MaxPathLen bounds the path-length field. Anything larger than this is
	// treated as a corrupt stream rather than an absurdly long path.
	MaxPathLen = 64 << 10

	// endOfStream is the sentinel value in the path-length field that marks
	// the end of the entry sequence. Connection close mid-field is a framing
	// error; close on a record boundary before the sentinel is ErrClosed.
	endOfStream uint32 = 0xFFFFFFFF
)

var streamMagic = [3]byte{'s', 'f', '-'}

var (
	ErrFraming     = errors.New("framing error")
	ErrBadMagic    = fmt.Errorf("%w: bad magic", ErrFraming)
	ErrBadVersion  = fmt.Errorf("%w: incompatible version", ErrFraming)
	ErrTruncated   = fmt.Errorf("%w: stream truncated", ErrFraming)
	ErrPathTooLong = fmt.Errorf("%w: path length over limit", ErrFraming)

	// ErrClosed marks a stream that ended exactly on a record boundary but
	// before the end-of-stream sentinel: no field was cut short, the peer
	// simply went away. Unlike the errors above it is not a framing problem,
	// so callers can report it as a transport failure instead.
	ErrClosed = errors.New("stream closed before end-of-stream marker")
)

// Writer serializes one transfer session onto a byte stream. Call
// WriteHeader once, WriteEntry once per file in order, then WriteTrailer.
type Writer struct {
	w   io.Writer
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader emits the stream magic, the protocol version and the common
// path-prefix hint (may be empty) computed by the sender.
func (fw *Writer) WriteHeader(prefixHint string) error {
	if len(prefixHint) > MaxPathLen {
		return ErrPathTooLong
	}
	hdr := make([]byte, 0, 6+len(prefixHint))
	hdr = append(hdr, streamMagic[:]...)
	hdr = append(hdr, Version)
	hdr = binary.BigEndian.AppendUint16(hdr, uint16(len(prefixHint)))
	hdr = append(hdr, prefixHint...)
	_, err := fw.w.Write(hdr)
	return err
}

// WriteEntry emits one file record: length-prefixed path, content length and
// exactly size content bytes copied from content. The path is sent verbatim.
func (fw *Writer) WriteEntry(path string, size uint64, content io.Reader) error {
	if len(path) > MaxPathLen {
		return ErrPathTooLong
	}
	binary.BigEndian.PutUint32(fw.buf[0:4], uint32(len(path)))
	if _, err := fw.w.Write(fw.buf[:4]); err != nil {
		return err
	}
	if _, err := io.WriteString(fw.w, path); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(fw.buf[0:8], size)
	if _, err := fw.w.Write(fw.buf[:8]); err != nil {
		return err
	}
	n, err := io.CopyN(fw.w, content, int64(size))
	if err != nil {
		return fmt.Errorf("copy content after %d of %d bytes: %w", n, size, err)
	}
	return nil
}

// WriteTrailer emits the end-of-stream sentinel.
func (fw *Writer) WriteTrailer() error {
	binary.BigEndian.PutUint32(fw.buf[0:4], endOfStream)
	_, err := fw.w.Write(fw.buf[:4])
	return err
}

// Entry is one decoded file record. Content is valid until the next call to
// Next on the Reader that produced it and yields exactly Size bytes.
type Entry struct {
	Path    string
	Size    uint64
	Content io.Reader
}

// Reader decodes a transfer session from a byte stream. Decoding is strictly
// pull-based: ReadHeader once, then Next until it returns io.EOF.
type Reader struct {
	r       io.Reader
	pending int64 // content bytes of the current entry not yet consumed
	done    bool
	buf     [8]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadHeader consumes and validates the session header, returning the
// sender's path-prefix hint.
func (fr *Reader) ReadHeader() (string, error) {
	if err := fr.readFullOrClosed(fr.buf[:4]); err != nil {
		return "", err
	}
	if [3]byte(fr.buf[:3]) != streamMagic {
		return "", fmt.Errorf("%w: got %q", ErrBadMagic, fr.buf[:3])
	}
	if fr.buf[3] != Version {
		return "", fmt.Errorf("%w: got %d, want %d", ErrBadVersion, fr.buf[3], Version)
	}
	if err := fr.readFull(fr.buf[:2]); err != nil {
		return "", err
	}
	hintLen := int(binary.BigEndian.Uint16(fr.buf[:2]))
	hint := make([]byte, hintLen)
	if err := fr.readFull(hint); err != nil {
		return "", err
	}
	return string(hint), nil
}

// Next returns the next entry, or io.EOF once the end-of-stream sentinel has
// been read. Unconsumed content of the previous entry is discarded first so
// the stream stays aligned on record boundaries.
func (fr *Reader) Next() (*Entry, error) {
	if fr.done {
		return nil, io.EOF
	}
	if fr.pending > 0 {
		if _, err := io.CopyN(io.Discard, fr.r, fr.pending); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		fr.pending = 0
	}

	if err := fr.readFullOrClosed(fr.buf[:4]); err != nil {
		return nil, err
	}
	pathLen := binary.BigEndian.Uint32(fr.buf[:4])
	if pathLen == endOfStream {
		fr.done = true
		return nil, io.EOF
	}
	if pathLen > MaxPathLen {
		return nil, fmt.Errorf("%w: %d", ErrPathTooLong, pathLen)
	}

	path := make([]byte, pathLen)
	if err := fr.readFull(path); err != nil {
		return nil, err
	}
	if err := fr.readFull(fr.buf[:8]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint64(fr.buf[:8])

	fr.pending = int64(size)
	return &Entry{
		Path:    string(path),
		Size:    size,
		Content: &contentReader{fr: fr},
	}, nil
}

func (fr *Reader) readFull(dst []byte) error {
	if _, err := io.ReadFull(fr.r, dst); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return err
	}
	return nil
}

// readFullOrClosed is readFull for reads that start a new record: a clean
// EOF with zero bytes consumed means the peer closed between records, which
// is ErrClosed rather than a truncated field.
func (fr *Reader) readFullOrClosed(dst []byte) error {
	_, err := io.ReadFull(fr.r, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return ErrTruncated
	case errors.Is(err, io.EOF):
		return ErrClosed
	default:
		return err
	}
}

// contentReader exposes the current entry's content, bounded by the declared
// size. A short read from the underlying stream surfaces as ErrTruncated,
// never as a silent short file.
type contentReader struct {
	fr *Reader
}

func (cr *contentReader) Read(p []byte) (int, error) {
	fr := cr.fr
	if fr.pending <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > fr.pending {
		p = p[:fr.pending]
	}
	n, err := fr.r.Read(p)
	fr.pending -= int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if fr.pending > 0 {
				return n, ErrTruncated
			}
			return n, io.EOF
		}
		return n, err
	}
	if fr.pending == 0 {
		return n, io.EOF
	}
	return n, nil
}
