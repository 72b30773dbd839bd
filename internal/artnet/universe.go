package artnet

import (
	"fmt"
	"sync"
	"time"

	"artnetd/internal/artnet/packet"
)

// Universe is a block of DMX channels rendered as ArtDmx broadcasts at the
// session frame rate.
type Universe struct {
	session *Session
	number  uint16

	mu       sync.Mutex
	channels []byte
	sequence uint8
	running  bool
	stop     chan struct{}
}

func newUniverse(s *Session, number uint16, size int) *Universe {
	return &Universe{
		session:  s,
		number:   number,
		channels: make([]byte, size),
		sequence: 1,
	}
}

// Number returns the 15-bit port-address.
func (u *Universe) Number() uint16 {
	return u.number
}

// Size returns the channel count.
func (u *Universe) Size() int {
	return len(u.channels)
}

func (u *Universe) String() string {
	return fmt.Sprintf("universe %d (%s)", u.number, PortAddress(u.number))
}

// SetChannel stores value at channel, 0-based.
func (u *Universe) SetChannel(channel int, value uint8) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if channel < 0 || channel >= len(u.channels) {
		return fmt.Errorf("universe %d channel %d: %w", u.number, channel, ErrChannelOutOfRange)
	}
	u.channels[channel] = value
	return nil
}

// SetChannels copies values starting at channel offset. Nothing is written
// when the run does not fit.
func (u *Universe) SetChannels(offset int, values []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if offset < 0 || offset+len(values) > len(u.channels) {
		return fmt.Errorf("universe %d channels %d..%d: %w", u.number, offset, offset+len(values)-1, ErrChannelOutOfRange)
	}
	copy(u.channels[offset:], values)
	return nil
}

// Channel returns the value at channel, 0-based.
func (u *Universe) Channel(channel int) (uint8, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if channel < 0 || channel >= len(u.channels) {
		return 0, fmt.Errorf("universe %d channel %d: %w", u.number, channel, ErrChannelOutOfRange)
	}
	return u.channels[channel], nil
}

// Snapshot copies the current channel values.
func (u *Universe) Snapshot() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.channels...)
}

// Running reports whether the render loop is active.
func (u *Universe) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

// Start begins rendering. It returns ErrClosed once the session is closed
// and does nothing when already running. Before Bind frames are built but
// not sent.
func (u *Universe) Start() error {
	s := u.session
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	u.startLocked()
	return nil
}

// startLocked runs with s.mu held so Close cannot be waiting on s.wg yet.
func (u *Universe) startLocked() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.running {
		return
	}
	u.running = true
	u.stop = make(chan struct{})

	s := u.session
	s.wg.Add(1)
	go u.run(u.stop)
}

// Stop ends rendering. Channel values are kept.
func (u *Universe) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		return
	}
	u.running = false
	close(u.stop)
}

func (u *Universe) run(stop <-chan struct{}) {
	s := u.session
	defer s.wg.Done()

	t := time.NewTicker(time.Second / time.Duration(s.opts.FrameRate))
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			u.mu.Lock()
			if u.stop == stop {
				u.running = false
			}
			u.mu.Unlock()
			return
		case <-stop:
			return
		case <-t.C:
			if err := s.SendBroadcast(u.frame()); err != nil {
				s.log.Warnf("%s: %v", u, err)
			}
		}
	}
}

// frame builds the next ArtDmx packet. The sequence runs 1..255 and skips 0,
// which would disable reordering on receivers.
func (u *Universe) frame() *packet.ChannelData {
	u.mu.Lock()
	defer u.mu.Unlock()

	p := &packet.ChannelData{
		Version:  packet.ProtocolVersion,
		Sequence: u.sequence,
		Universe: u.number,
		Data:     append([]byte(nil), u.channels...),
	}
	u.sequence++
	if u.sequence == 0 {
		u.sequence = 1
	}
	return p
}
