package artnet

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"
)

// Transport is a bound UDP socket.
type Transport interface {
	// ReadFrom blocks until a datagram arrives. dst is the address the
	// datagram was sent to, or the zero AddrPort when the socket cannot
	// tell. It returns net.ErrClosed once the transport is closed.
	ReadFrom(b []byte) (n int, src, dst netip.AddrPort, err error)
	WriteTo(b []byte, dst netip.AddrPort) error
	Close() error
}

// Listener opens a Transport bound to addr. broadcast requests a socket that
// may send to broadcast addresses.
type Listener func(ctx context.Context, addr netip.AddrPort, broadcast bool) (Transport, error)

type udpTransport struct {
	pc   *ipv4.PacketConn
	port uint16
}

// ListenUDP is the Listener used outside tests. Sockets share the Art-Net
// port with SO_REUSEADDR so the broadcast and unicast sockets can coexist.
func ListenUDP(ctx context.Context, addr netip.AddrPort, broadcast bool) (Transport, error) {
	lc := net.ListenConfig{Control: socketControl(broadcast)}
	conn, err := lc.ListenPacket(ctx, "udp4", addr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	pc := ipv4.NewPacketConn(conn)
	// Without IP_PKTINFO support reads report no destination and the
	// session falls back to the bound address.
	_ = pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true)

	return &udpTransport{pc: pc, port: addr.Port()}, nil
}

func (t *udpTransport) ReadFrom(b []byte) (int, netip.AddrPort, netip.AddrPort, error) {
	n, cm, src, err := t.pc.ReadFrom(b)
	if err != nil {
		return 0, netip.AddrPort{}, netip.AddrPort{}, err
	}
	return n, udpAddrPort(src), t.destination(cm), nil
}

// destination is the address a datagram was sent to, taken from its
// control message.
func (t *udpTransport) destination(cm *ipv4.ControlMessage) netip.AddrPort {
	if cm == nil {
		return netip.AddrPort{}
	}
	a, ok := netip.AddrFromSlice(cm.Dst)
	if !ok {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(a.Unmap(), t.port)
}

func udpAddrPort(addr net.Addr) netip.AddrPort {
	udp, ok := addr.(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	ap := udp.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

func (t *udpTransport) WriteTo(b []byte, dst netip.AddrPort) error {
	_, err := t.pc.WriteTo(b, nil, net.UDPAddrFromAddrPort(dst))
	return err
}

func (t *udpTransport) Close() error {
	return t.pc.Close()
}
