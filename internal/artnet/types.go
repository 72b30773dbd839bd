package artnet

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"artnetd/internal/artnet/packet"
)

// Role selects how a Session behaves on the network.
type Role int

const (
	// RoleNode answers polls.
	RoleNode Role = iota
	// RoleController polls the network periodically.
	RoleController
)

func (r Role) String() string {
	switch r {
	case RoleNode:
		return "node"
	case RoleController:
		return "controller"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole accepts "node" or "controller".
func ParseRole(s string) (Role, error) {
	switch s {
	case "node":
		return RoleNode, nil
	case "controller":
		return RoleController, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

var (
	ErrAlreadyBound      = errors.New("session already bound")
	ErrClosed            = errors.New("session closed")
	ErrUniverseExists    = errors.New("universe already exists")
	ErrChannelOutOfRange = errors.New("channel out of range")
)

const (
	// DefaultFrameRate is the render rate of every universe.
	DefaultFrameRate = 44
	// MaxFrameRate caps the render rate; faster rates are clamped to it.
	MaxFrameRate = 1000
	// DefaultPollInterval is how often a controller broadcasts ArtPoll.
	DefaultPollInterval = 5 * time.Second
	// DefaultEventBuffer is the capacity of the Frames channel.
	DefaultEventBuffer = 256
)

// Frame is one ArtDmx packet received by the session.
type Frame struct {
	Packet     *packet.ChannelData
	Source     netip.AddrPort
	ReceivedAt time.Time
}

// ChannelValue defines an Art-Net universe and the value of one DMX channel.
type ChannelValue struct {
	Universe uint16 // Universe is the 15-bit port-address.
	Channel  uint16 // Channel is the 0-based slot (0-511).
	Value    uint8
}

// Tap observes every datagram the session sends or receives.
type Tap interface {
	Record(src, dst netip.AddrPort, payload []byte, ts time.Time) error
}

// Options configure a Session. Zero values fall back to defaults.
type Options struct {
	Role      Role
	ShortName string
	LongName  string

	Port         uint16
	PollInterval time.Duration
	FrameRate    int
	EventBuffer  int

	Interfaces InterfaceSource
	Listen     Listener
	Tap        Tap
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = packet.Port
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.FrameRate <= 0 {
		o.FrameRate = DefaultFrameRate
	}
	o.FrameRate = min(o.FrameRate, MaxFrameRate)
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	if o.Interfaces == nil {
		o.Interfaces = HostInterfaces
	}
	if o.Listen == nil {
		o.Listen = ListenUDP
	}
	return o
}
