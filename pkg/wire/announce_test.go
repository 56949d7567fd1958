package wire

import (
	"bytes"
	"errors"
	"net"
	"testing"
)

func TestAnnouncementRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		ip   net.IP
		port int
	}{
		{"ipv4", net.IPv4(192, 168, 1, 7), 8370},
		{"ipv6", net.ParseIP("fe80::1"), 8370},
		{"high port", net.IPv4(10, 0, 0, 1), 65535},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := Announcement{IP: tc.ip, Port: tc.port}
			buf := make([]byte, MaxAnnouncementLen)
			n, err := in.Encode(buf)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			var out Announcement
			m, err := out.Decode(buf[:n])
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if m != n {
				t.Fatalf("consumed %d bytes, encoded %d", m, n)
			}
			if !out.IP.Equal(tc.ip) || out.Port != tc.port {
				t.Fatalf("round trip mismatch: got %v:%d want %v:%d", out.IP, out.Port, tc.ip, tc.port)
			}
			if got := out.TCPAddr().String(); got == "" {
				t.Fatal("TCPAddr produced empty address")
			}
		})
	}
}

func TestAnnouncementEncodeSmallBuffer(t *testing.T) {
	a := Announcement{IP: net.IPv4(127, 0, 0, 1), Port: 8370}
	if _, err := a.Encode(make([]byte, 5)); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}

func TestAnnouncementDecodeRejectsGarbage(t *testing.T) {
	var a Announcement

	if _, err := a.Decode([]byte("nonsense broadcast")); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
	if _, err := a.Decode([]byte{'s', 'f'}); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if _, err := a.Decode([]byte{'s', 'f', '-', Version + 9, 4}); !errors.Is(err, ErrBadVersion) {
		t.Fatalf("expected ErrBadVersion, got %v", err)
	}
	if _, err := a.Decode([]byte{'s', 'f', '-', Version, 9, 0, 0}); !errors.Is(err, ErrFraming) {
		t.Fatalf("expected framing error for unknown family, got %v", err)
	}

	// Valid prefix but truncated address body.
	good := Announcement{IP: net.IPv4(10, 1, 2, 3), Port: 1234}
	buf := make([]byte, MaxAnnouncementLen)
	n, err := good.Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := a.Decode(bytes.Clone(buf[:n-1])); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
