package artnet

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"go4.org/netipx"
)

// ErrNoInterface is returned by Bind when the bind host is not inside the
// prefix of any local interface.
var ErrNoInterface = errors.New("bind host does not match any network interface")

// InterfaceAddr is one IPv4 address configured on a host interface.
type InterfaceAddr struct {
	Name   string
	Prefix netip.Prefix // address with its prefix length, e.g. 192.168.1.10/24
}

// InterfaceSource enumerates host interface addresses.
type InterfaceSource func() ([]InterfaceAddr, error)

// HostInterfaces lists the IPv4 addresses of every interface on the host.
func HostInterfaces() ([]InterfaceAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("error getting interfaces: %w", err)
	}

	var out []InterfaceAddr
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("error getting ips of %s: %w", iface.Name, err)
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			prefix, ok := netipx.FromStdIPNet(ipNet)
			if !ok || !prefix.Addr().Unmap().Is4() {
				continue
			}
			prefix = netip.PrefixFrom(prefix.Addr().Unmap(), prefix.Bits())
			out = append(out, InterfaceAddr{Name: iface.Name, Prefix: prefix})
		}
	}
	return out, nil
}

// isAnyHost reports whether host means "no specific interface".
func isAnyHost(host string) bool {
	return host == "" || host == "0.0.0.0" || host == "::"
}

// resolveBroadcast finds the interface whose prefix contains host and returns
// its directed broadcast address. An empty or wildcard host resolves to
// 0.0.0.0 with no unicast address.
func resolveBroadcast(host string, ifaces []InterfaceAddr) (broadcast, unicast netip.Addr, err error) {
	if isAnyHost(host) {
		return netip.IPv4Unspecified(), netip.Addr{}, nil
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("bind host %q: %w", host, err)
	}
	ip = ip.Unmap()

	for _, iface := range ifaces {
		if iface.Prefix.Contains(ip) {
			return DirectedBroadcast(iface.Prefix), ip, nil
		}
	}
	return netip.Addr{}, netip.Addr{}, fmt.Errorf("bind host %s: %w", ip, ErrNoInterface)
}

// DirectedBroadcast returns the highest address of the prefix.
func DirectedBroadcast(p netip.Prefix) netip.Addr {
	return netipx.PrefixLastIP(p.Masked())
}
