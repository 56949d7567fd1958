package wire

import (
	"fmt"
	"net"
)

const (
	familyV4 byte = 4
	familyV6 byte = 6

	// MaxAnnouncementLen is the largest encoded announcement: magic, version,
	// family byte, 16 IPv6 octets and the port.
	MaxAnnouncementLen = 4 + 1 + 16 + 2
)

// Announcement is one discovery datagram: the receiver's dialable TCP
// address, tagged with the stream magic so unrelated broadcast traffic is
// cheap to discard.
type Announcement struct {
	IP   net.IP
	Port int
}

func (a *Announcement) Encode(dst []byte) (int, error) {
	var ip []byte
	var family byte
	if v4 := a.IP.To4(); v4 != nil {
		ip, family = v4, familyV4
	} else if v6 := a.IP.To16(); v6 != nil {
		ip, family = v6, familyV6
	} else {
		return 0, fmt.Errorf("unrepresentable ip %v", a.IP)
	}

	need := 4 + 1 + len(ip) + 2
	if len(dst) < need {
		return 0, fmt.Errorf("buffer too small: need %d, got %d", need, len(dst))
	}
	copy(dst[0:3], streamMagic[:])
	dst[3] = Version
	dst[4] = family
	copy(dst[5:5+len(ip)], ip)
	dst[5+len(ip)] = byte(a.Port >> 8)
	dst[6+len(ip)] = byte(a.Port)
	return need, nil
}

func (a *Announcement) Decode(src []byte) (int, error) {
	if len(src) < 5 {
		return 0, ErrTruncated
	}
	if [3]byte(src[:3]) != streamMagic {
		return 0, ErrBadMagic
	}
	if src[3] != Version {
		return 0, ErrBadVersion
	}

	var ipLen int
	switch src[4] {
	case familyV4:
		ipLen = net.IPv4len
	case familyV6:
		ipLen = net.IPv6len
	default:
		return 0, fmt.Errorf("%w: unknown address family %d", ErrFraming, src[4])
	}

	need := 4 + 1 + ipLen + 2
	if len(src) < need {
		return 0, ErrTruncated
	}
	a.IP = append(net.IP(nil), src[5:5+ipLen]...)
	a.Port = int(src[5+ipLen])<<8 | int(src[6+ipLen])
	return need, nil
}

// TCPAddr returns the announced address in dialable form.
func (a *Announcement) TCPAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: a.IP, Port: a.Port}
}
