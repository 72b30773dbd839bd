package artnet

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"artnetd/internal/artnet/packet"
)

type datagram struct {
	b   []byte
	src netip.AddrPort
	dst netip.AddrPort
}

type fakeTransport struct {
	addr      netip.AddrPort
	broadcast bool
	in        chan datagram
	done      chan struct{}
	once      sync.Once

	mu     sync.Mutex
	writes []datagram
}

func (t *fakeTransport) ReadFrom(b []byte) (int, netip.AddrPort, netip.AddrPort, error) {
	select {
	case d := <-t.in:
		return copy(b, d.b), d.src, d.dst, nil
	case <-t.done:
		return 0, netip.AddrPort{}, netip.AddrPort{}, net.ErrClosed
	}
}

func (t *fakeTransport) WriteTo(b []byte, dst netip.AddrPort) error {
	select {
	case <-t.done:
		return net.ErrClosed
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, datagram{b: append([]byte(nil), b...), dst: dst})
	return nil
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) inject(p packet.Packet, src netip.AddrPort) {
	t.in <- datagram{b: p.Encode(), src: src}
}

// injectTo delivers p as if the socket reported dst as its destination.
func (t *fakeTransport) injectTo(p packet.Packet, src, dst netip.AddrPort) {
	t.in <- datagram{b: p.Encode(), src: src, dst: dst}
}

// sent returns the written packets with the given opcode.
func (t *fakeTransport) sent(op packet.OpCode) []datagram {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []datagram
	for _, d := range t.writes {
		if got, err := packet.Header(d.b); err == nil && got == op {
			out = append(out, d)
		}
	}
	return out
}

// fakeNet hands out fake transports and remembers them.
type fakeNet struct {
	mu     sync.Mutex
	opened []*fakeTransport
	fail   map[netip.Addr]bool
}

func (n *fakeNet) listen(_ context.Context, addr netip.AddrPort, broadcast bool) (Transport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[addr.Addr()] {
		return nil, errors.New("address in use")
	}
	t := &fakeTransport{
		addr:      addr,
		broadcast: broadcast,
		in:        make(chan datagram, 16),
		done:      make(chan struct{}),
	}
	n.opened = append(n.opened, t)
	return t, nil
}

func (n *fakeNet) transports() []*fakeTransport {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*fakeTransport(nil), n.opened...)
}

func (n *fakeNet) broadcastTransport() *fakeTransport {
	for _, t := range n.transports() {
		if t.broadcast {
			return t
		}
	}
	return nil
}

func staticInterfaces(prefixes ...string) InterfaceSource {
	return func() ([]InterfaceAddr, error) {
		out := make([]InterfaceAddr, 0, len(prefixes))
		for i, p := range prefixes {
			out = append(out, InterfaceAddr{Name: "eth" + string(rune('0'+i)), Prefix: netip.MustParsePrefix(p)})
		}
		return out, nil
	}
}

type tapRecord struct {
	src, dst netip.AddrPort
	payload  []byte
}

type fakeTap struct {
	mu      sync.Mutex
	records []tapRecord
}

func (f *fakeTap) Record(src, dst netip.AddrPort, payload []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, tapRecord{src: src, dst: dst, payload: append([]byte(nil), payload...)})
	return nil
}

func (f *fakeTap) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}
