package packet

import (
	"encoding/binary"
	"fmt"
)

// PollSize is the ArtPoll body length.
const PollSize = 4

// DiscoveryPoll is an ArtPoll: a controller asking every node to identify itself.
type DiscoveryPoll struct {
	Version            uint16
	ReplyOnChange      bool
	Diagnostics        bool
	DiagnosticsUnicast bool
	DisableVLC         bool
	Priority           Priority
}

// NewDiscoveryPoll returns the poll a controller broadcasts periodically.
func NewDiscoveryPoll() *DiscoveryPoll {
	return &DiscoveryPoll{
		Version:            ProtocolVersion,
		ReplyOnChange:      true,
		Diagnostics:        true,
		DiagnosticsUnicast: true,
		Priority:           PriorityAll,
	}
}

func (p *DiscoveryPoll) OpCode() OpCode { return OpPoll }

func (p *DiscoveryPoll) isPacket() {}

func (p *DiscoveryPoll) Encode() []byte {
	b := newBuffer(OpPoll, PollSize)
	body := b[HeaderSize:]
	binary.BigEndian.PutUint16(body[0:2], p.Version)

	var talk byte
	set(&talk, bit1, p.ReplyOnChange)
	set(&talk, bit2, p.Diagnostics)
	set(&talk, bit3, p.DiagnosticsUnicast)
	set(&talk, bit4, p.DisableVLC)
	body[2] = talk
	body[3] = byte(p.Priority)
	return b
}

func (p *DiscoveryPoll) MarshalBinary() ([]byte, error) {
	return p.Encode(), nil
}

func (p *DiscoveryPoll) String() string {
	return fmt.Sprintf("ArtPoll version=%d replyOnChange=%t diagnostics=%t unicast=%t disableVLC=%t priority=%s",
		p.Version, p.ReplyOnChange, p.Diagnostics, p.DiagnosticsUnicast, p.DisableVLC, p.Priority)
}

func decodePoll(body []byte) (*DiscoveryPoll, error) {
	if len(body) < PollSize {
		return nil, fmt.Errorf("%w: ArtPoll body is %d bytes, want %d", ErrShortPacket, len(body), PollSize)
	}
	talk := body[2]
	return &DiscoveryPoll{
		Version:            binary.BigEndian.Uint16(body[0:2]),
		ReplyOnChange:      flag(talk, bit1),
		Diagnostics:        flag(talk, bit2),
		DiagnosticsUnicast: flag(talk, bit3),
		DisableVLC:         flag(talk, bit4),
		Priority:           Priority(body[3]),
	}, nil
}
