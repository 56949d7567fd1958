package internal

import (
	"errors"
	"net"
)

var ErrNoUsableInterface = errors.New("no usable network interface")

// BroadcastAddr computes the directed broadcast address of an IPv4 network:
// the host bits of the address all set to one.
func BroadcastAddr(n *net.IPNet) net.IP {
	ip4 := n.IP.To4()
	if ip4 == nil {
		return nil
	}
	mask := net.IP(n.Mask).To4()
	if mask == nil {
		return nil
	}
	out := make(net.IP, net.IPv4len)
	for i := range out {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}

// usableIPv4Networks lists the IPv4 networks of every interface that is up,
// broadcast-capable and not loopback.
func usableIPv4Networks() ([]*net.IPNet, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var nets []*net.IPNet
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipn, ok := addr.(*net.IPNet)
			if !ok || ipn.IP.To4() == nil {
				continue
			}
			nets = append(nets, ipn)
		}
	}
	if len(nets) == 0 {
		return nil, ErrNoUsableInterface
	}
	return nets, nil
}

// BroadcastTargets returns the directed broadcast address of each usable
// IPv4 network, deduplicated.
func BroadcastTargets() ([]net.IP, error) {
	nets, err := usableIPv4Networks()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(nets))
	targets := make([]net.IP, 0, len(nets))
	for _, n := range nets {
		b := BroadcastAddr(n)
		if b == nil {
			continue
		}
		if _, dup := seen[b.String()]; dup {
			continue
		}
		seen[b.String()] = struct{}{}
		targets = append(targets, b)
	}
	if len(targets) == 0 {
		return nil, ErrNoUsableInterface
	}
	return targets, nil
}

// AdvertiseIP picks the address a receiver announces to peers: the first
// usable IPv4 interface address.
func AdvertiseIP() (net.IP, error) {
	nets, err := usableIPv4Networks()
	if err != nil {
		return nil, err
	}
	return nets[0].IP.To4(), nil
}
