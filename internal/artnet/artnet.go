package artnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"artnetd/internal/artnet/packet"
	"artnetd/internal/logger"
)

// maxDatagram is larger than any Art-Net packet.
const maxDatagram = 2048

// Session is an Art-Net controller or node bound to one interface. It owns
// the sockets, the controller poll timer and the universes it created.
type Session struct {
	log  *logger.Log
	opts Options

	mu            sync.RWMutex
	bound         bool
	closed        bool
	broadcast     Transport
	unicast       Transport
	broadcastAddr netip.Addr
	unicastAddr   netip.Addr
	universes     map[uint16]*Universe
	order         []*Universe

	frames  chan Frame
	dropped atomic.Uint64

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup // poll and render loops
	readers   sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewSession returns an unbound session.
func NewSession(log logger.Logger, opts Options) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		log:       log.Module("art-net").With(logger.Fields{"role": opts.Role.String()}),
		opts:      opts,
		universes: make(map[uint16]*Universe),
		frames:    make(chan Frame, opts.EventBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Role returns the role the session was created with.
func (s *Session) Role() Role {
	return s.opts.Role
}

// Frames delivers every ArtDmx packet received. It is closed by Close.
// Frames arriving while the channel is full are dropped and counted.
func (s *Session) Frames() <-chan Frame {
	return s.frames
}

// Dropped returns how many received frames did not fit in Frames.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// BroadcastAddr returns the address packets are broadcast to. It is invalid
// before Bind.
func (s *Session) BroadcastAddr() netip.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broadcastAddr
}

// UnicastAddr returns the bound host address, invalid when bound to any.
func (s *Session) UnicastAddr() netip.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unicastAddr
}

// Bind opens the sockets. host selects the interface; an empty string,
// "0.0.0.0" or "::" broadcasts to 0.0.0.0 without a unicast socket. On error
// nothing is left open.
func (s *Session) Bind(ctx context.Context, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.bound {
		return ErrAlreadyBound
	}

	var ifaces []InterfaceAddr
	if !isAnyHost(host) {
		var err error
		if ifaces, err = s.opts.Interfaces(); err != nil {
			return fmt.Errorf("failed to list interfaces: %w", err)
		}
	}
	broadcast, unicast, err := resolveBroadcast(host, ifaces)
	if err != nil {
		return err
	}

	bt, err := s.opts.Listen(ctx, netip.AddrPortFrom(broadcast, s.opts.Port), true)
	if err != nil {
		return fmt.Errorf("failed to bind broadcast address %s: %w", broadcast, err)
	}
	var ut Transport
	if unicast.IsValid() {
		ut, err = s.opts.Listen(ctx, netip.AddrPortFrom(unicast, s.opts.Port), false)
		if err != nil {
			_ = bt.Close()
			return fmt.Errorf("failed to bind unicast address %s: %w", unicast, err)
		}
	}

	s.broadcast, s.unicast = bt, ut
	s.broadcastAddr, s.unicastAddr = broadcast, unicast
	s.bound = true

	s.log.Infof("Binding broadcast address %s:%d", broadcast, s.opts.Port)
	s.readers.Add(1)
	go s.readLoop(bt, broadcast)
	if ut != nil {
		s.log.Infof("Binding unicast address %s:%d", unicast, s.opts.Port)
		s.readers.Add(1)
		go s.readLoop(ut, unicast)
	}

	if s.opts.Role == RoleController {
		s.wg.Add(1)
		go s.pollLoop()
	}

	for _, u := range s.order {
		u.startLocked()
	}

	if unicast.IsValid() {
		reply := s.buildReply(unicast)
		if err := s.send(bt, s.localAddrPort(), netip.AddrPortFrom(broadcast, s.opts.Port), reply); err != nil {
			s.log.Warnf("startup announcement: %v", err)
		}
	}
	return nil
}

// CreateUniverse adds a universe with size channels, 512 when size is 0.
// Universes created before Bind start rendering when the session binds;
// later ones need Start.
func (s *Session) CreateUniverse(number uint16, size int) (*Universe, error) {
	if size == 0 {
		size = packet.MaxChannels
	}
	if size < 0 || size > packet.MaxChannels {
		return nil, fmt.Errorf("universe %d: size %d outside 1..%d", number, size, packet.MaxChannels)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.universes[number]; ok {
		return nil, fmt.Errorf("universe %d: %w", number, ErrUniverseExists)
	}

	u := newUniverse(s, number, size)
	s.universes[number] = u
	s.order = append(s.order, u)
	return u, nil
}

// Universe looks up a universe created by this session.
func (s *Session) Universe(number uint16) (*Universe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.universes[number]
	return u, ok
}

// Universes returns the universes in creation order.
func (s *Session) Universes() []*Universe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Universe(nil), s.order...)
}

// SetChannelValues writes each value into its universe. Values for unknown
// universes or channels are skipped and reported in the returned error.
func (s *Session) SetChannelValues(values []ChannelValue) error {
	var errs []error
	for _, v := range values {
		u, ok := s.Universe(v.Universe)
		if !ok {
			errs = append(errs, fmt.Errorf("universe %d: not created", v.Universe))
			continue
		}
		if err := u.SetChannel(int(v.Channel), v.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendBroadcast sends p to the broadcast address. Before Bind and after
// Close it does nothing.
func (s *Session) SendBroadcast(p packet.Packet) error {
	s.mu.RLock()
	t, closed := s.broadcast, s.closed
	src, dst := s.localAddrPort(), netip.AddrPortFrom(s.broadcastAddr, s.opts.Port)
	s.mu.RUnlock()

	if t == nil || closed {
		return nil
	}
	return s.send(t, src, dst, p)
}

func (s *Session) send(t Transport, src, dst netip.AddrPort, p packet.Packet) error {
	b := p.Encode()
	if err := t.WriteTo(b, dst); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", p.OpCode(), dst, err)
	}
	s.record(src, dst, b)
	return nil
}

// localAddrPort is the source recorded for outgoing packets. Callers hold s.mu.
func (s *Session) localAddrPort() netip.AddrPort {
	if s.unicastAddr.IsValid() {
		return netip.AddrPortFrom(s.unicastAddr, s.opts.Port)
	}
	return netip.AddrPortFrom(netip.IPv4Unspecified(), s.opts.Port)
}

func (s *Session) record(src, dst netip.AddrPort, b []byte) {
	if s.opts.Tap == nil {
		return
	}
	if err := s.opts.Tap.Record(src, dst, b, time.Now()); err != nil {
		s.log.Debugf("capture: %v", err)
	}
}

// Reply builds the ArtPollReply announcing this session.
func (s *Session) Reply() *packet.DiscoveryReply {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buildReply(s.unicastAddr)
}

// buildReply advertises one output port carrying the first universe. Callers hold s.mu.
func (s *Session) buildReply(ip netip.Addr) *packet.DiscoveryReply {
	if !ip.IsValid() {
		ip = netip.IPv4Unspecified()
	}
	r := packet.NewDiscoveryReply(ip, s.opts.Port)
	r.ShortName = s.opts.ShortName
	r.LongName = s.opts.LongName
	r.NumPorts = 1
	r.Ports[0] = packet.PortInfo{Output: true, Protocol: packet.ProtocolDMX512}
	if s.opts.Role == RoleController {
		r.Style = packet.StyleController
	}
	if len(s.order) > 0 {
		n := s.order[0].number
		r.NetSwitch = uint8(n >> 8 & 0x7f)
		r.SubSwitch = uint8(n >> 4 & 0x0f)
		r.OutputUniverse[0] = uint8(n & 0x0f)
	}
	return r
}

func (s *Session) pollLoop() {
	defer s.wg.Done()

	t := time.NewTicker(s.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			if err := s.SendBroadcast(packet.NewDiscoveryPoll()); err != nil {
				s.log.Warnf("ArtPoll: %v", err)
			}
		}
	}
}

// readLoop receives datagrams until the transport is closed. Read errors
// are logged and the loop keeps going; the socket is not re-bound.
func (s *Session) readLoop(t Transport, local netip.Addr) {
	defer s.readers.Done()

	bound := netip.AddrPortFrom(local, s.opts.Port)
	buf := make([]byte, maxDatagram)
	for {
		n, src, dst, err := t.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.ctx.Err() != nil {
				return
			}
			s.log.Warnf("read on %s: %v", bound, err)
			continue
		}
		if !dst.IsValid() {
			dst = bound
		}
		s.handle(buf[:n], src, dst)
	}
}

// handle dispatches one datagram. Anything that does not decode is dropped.
func (s *Session) handle(b []byte, src, dst netip.AddrPort) {
	now := time.Now()
	s.record(src, dst, b)

	p, err := packet.Unmarshal(b)
	if err != nil {
		s.log.Debugf("dropped datagram from %s: %v", src, err)
		return
	}

	switch p := p.(type) {
	case *packet.ChannelData:
		s.emit(Frame{Packet: p, Source: src, ReceivedAt: now})
	case *packet.DiscoveryPoll:
		s.log.Debugf("%s from %s", p, src)
		if s.opts.Role == RoleNode {
			if err := s.SendBroadcast(s.Reply()); err != nil {
				s.log.Warnf("ArtPollReply: %v", err)
			}
		}
	case *packet.DiscoveryReply:
		s.log.Debugf("%s from %s", p, src)
	}
}

func (s *Session) emit(f Frame) {
	select {
	case s.frames <- f:
	default:
		s.dropped.Add(1)
		s.log.Debugf("frame queue full, dropped universe %d from %s", f.Packet.Universe, f.Source)
	}
}

// Close stops the poll timer and every universe, closes both sockets and
// waits for the receive loops to finish. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		bt, ut := s.broadcast, s.unicast
		s.mu.Unlock()

		s.cancel()
		s.wg.Wait()

		var errs []error
		for _, t := range []Transport{bt, ut} {
			if t == nil {
				continue
			}
			if err := t.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.readers.Wait()
		close(s.frames)

		s.closeErr = errors.Join(errs...)
		s.log.Info("session closed")
	})
	return s.closeErr
}
