package internal

import (
	"net"
	"testing"
)

func TestBroadcastAddr(t *testing.T) {
	cases := []struct {
		cidr string
		want string
	}{
		{"192.168.1.7/24", "192.168.1.255"},
		{"10.0.0.1/8", "10.255.255.255"},
		{"172.16.5.9/20", "172.16.15.255"},
		{"192.168.0.42/31", "192.168.0.43"},
	}

	for _, tc := range cases {
		ip, ipnet, err := net.ParseCIDR(tc.cidr)
		if err != nil {
			t.Fatalf("ParseCIDR(%q): %v", tc.cidr, err)
		}
		ipnet.IP = ip // keep the host address, not the network address

		got := BroadcastAddr(ipnet)
		if got == nil || got.String() != tc.want {
			t.Errorf("BroadcastAddr(%s): got %v, want %s", tc.cidr, got, tc.want)
		}
	}
}

func TestBroadcastAddrRejectsIPv6(t *testing.T) {
	_, ipnet, err := net.ParseCIDR("fe80::1/64")
	if err != nil {
		t.Fatalf("ParseCIDR: %v", err)
	}
	if got := BroadcastAddr(ipnet); got != nil {
		t.Fatalf("expected nil for IPv6 network, got %v", got)
	}
}
