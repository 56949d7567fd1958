package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type testEntry struct {
	path    string
	content string
}

func encodeSession(t *testing.T, hint string, entries []testEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw := NewWriter(&buf)
	if err := fw.WriteHeader(hint); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	for _, e := range entries {
		if err := fw.WriteEntry(e.path, uint64(len(e.content)), strings.NewReader(e.content)); err != nil {
			t.Fatalf("WriteEntry(%q): %v", e.path, err)
		}
	}
	if err := fw.WriteTrailer(); err != nil {
		t.Fatalf("WriteTrailer: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		hint    string
		entries []testEntry
	}{
		{name: "empty session"},
		{name: "single file", entries: []testEntry{{"a.txt", "foo"}}},
		{name: "empty file", entries: []testEntry{{"sub/b.txt", ""}}},
		{
			name: "several with hint",
			hint: "/mnt/x/",
			entries: []testEntry{
				{"/mnt/x/one.bin", "one one one"},
				{"/mnt/x/two.bin", strings.Repeat("z", 4096)},
				{"/mnt/x/deep/three.bin", "3"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fr := NewReader(bytes.NewReader(encodeSession(t, tc.hint, tc.entries)))
			hint, err := fr.ReadHeader()
			if err != nil {
				t.Fatalf("ReadHeader: %v", err)
			}
			if hint != tc.hint {
				t.Fatalf("hint mismatch: got %q want %q", hint, tc.hint)
			}

			for i, want := range tc.entries {
				entry, err := fr.Next()
				if err != nil {
					t.Fatalf("Next #%d: %v", i, err)
				}
				if entry.Path != want.path {
					t.Fatalf("entry #%d path: got %q want %q", i, entry.Path, want.path)
				}
				if entry.Size != uint64(len(want.content)) {
					t.Fatalf("entry #%d size: got %d want %d", i, entry.Size, len(want.content))
				}
				got, err := io.ReadAll(entry.Content)
				if err != nil {
					t.Fatalf("entry #%d content: %v", i, err)
				}
				if string(got) != want.content {
					t.Fatalf("entry #%d content mismatch: got %d bytes", i, len(got))
				}
			}

			if _, err := fr.Next(); err != io.EOF {
				t.Fatalf("expected io.EOF after last entry, got %v", err)
			}
			// The sentinel latches: further calls stay at EOF.
			if _, err := fr.Next(); err != io.EOF {
				t.Fatalf("expected io.EOF on repeat call, got %v", err)
			}
		})
	}
}

func TestNextSkipsUnreadContent(t *testing.T) {
	stream := encodeSession(t, "", []testEntry{
		{"first", "some bytes nobody reads"},
		{"second", "hi"},
	})
	fr := NewReader(bytes.NewReader(stream))
	if _, err := fr.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if _, err := fr.Next(); err != nil {
		t.Fatalf("Next first: %v", err)
	}
	entry, err := fr.Next() // first entry's content never consumed
	if err != nil {
		t.Fatalf("Next second: %v", err)
	}
	if entry.Path != "second" {
		t.Fatalf("got path %q, want \"second\"", entry.Path)
	}
	got, err := io.ReadAll(entry.Content)
	if err != nil || string(got) != "hi" {
		t.Fatalf("second content: %q, %v", got, err)
	}
}

func TestTruncationIsFramingError(t *testing.T) {
	full := encodeSession(t, "pfx/", []testEntry{
		{"dir/file.bin", "0123456789"},
	})

	// Cutting the stream anywhere before the final sentinel byte must fail
	// loudly at some stage of decoding.
	for cut := 0; cut < len(full); cut++ {
		fr := NewReader(bytes.NewReader(full[:cut]))
		err := func() error {
			if _, err := fr.ReadHeader(); err != nil {
				return err
			}
			for {
				entry, err := fr.Next()
				if err != nil {
					return err
				}
				if _, err := io.ReadAll(entry.Content); err != nil {
					return err
				}
			}
		}()
		if err == nil || err == io.EOF {
			t.Fatalf("cut at %d/%d: expected framing error, got %v", cut, len(full), err)
		}
		if !errors.Is(err, ErrFraming) && !errors.Is(err, ErrClosed) {
			t.Fatalf("cut at %d/%d: error %v is neither framing nor closed", cut, len(full), err)
		}
	}

	// A cut strictly inside a field is always a framing error; ErrClosed is
	// reserved for record boundaries.
	fr := NewReader(bytes.NewReader(full[:len(full)-6])) // inside content
	if _, err := fr.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	entry, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := io.ReadAll(entry.Content); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated mid-content, got %v", err)
	}
}

func TestCleanCloseAtRecordBoundary(t *testing.T) {
	full := encodeSession(t, "", []testEntry{{"only", "data"}})
	fr := NewReader(bytes.NewReader(full[:len(full)-4])) // drop the sentinel
	if _, err := fr.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	entry, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := io.ReadAll(entry.Content); err != nil {
		t.Fatalf("content: %v", err)
	}
	if _, err := fr.Next(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed without sentinel, got %v", err)
	}
}

func TestBadHeader(t *testing.T) {
	garbage := []byte{'s', 'f', '!', Version, 0, 0}
	if _, err := NewReader(bytes.NewReader(garbage)).ReadHeader(); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}

	wrongVersion := []byte{'s', 'f', '-', Version + 1, 0, 0}
	if _, err := NewReader(bytes.NewReader(wrongVersion)).ReadHeader(); !errors.Is(err, ErrBadVersion) {
		t.Fatalf("expected ErrBadVersion, got %v", err)
	}
}

func TestOversizedPathRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{'s', 'f', '-', Version, 0, 0})
	buf.Write([]byte{0x00, 0x10, 0x00, 0x01}) // path length MaxPathLen+1
	fr := NewReader(bytes.NewReader(buf.Bytes()))
	if _, err := fr.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if _, err := fr.Next(); !errors.Is(err, ErrPathTooLong) {
		t.Fatalf("expected ErrPathTooLong, got %v", err)
	}
}

func TestWriterRejectsShortContent(t *testing.T) {
	var buf bytes.Buffer
	fw := NewWriter(&buf)
	if err := fw.WriteHeader(""); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	err := fw.WriteEntry("short", 10, strings.NewReader("abc"))
	if err == nil {
		t.Fatal("expected error when content is shorter than declared size")
	}
}
