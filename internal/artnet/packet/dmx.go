package packet

import (
	"encoding/binary"
	"fmt"
)

const (
	// DMXHeaderSize is the ArtDmx body length before the channel data.
	DMXHeaderSize = 8
	// MaxChannels is the number of channels in a full universe.
	MaxChannels = 512
)

// ChannelData is an ArtDmx frame carrying one universe's channel values.
type ChannelData struct {
	Version uint16
	// Sequence is 0 when the sender does not sequence, else 1..255 wrapping.
	Sequence uint8
	Physical uint8
	// Universe is the 15-bit port-address, little-endian on the wire.
	Universe uint16
	Data     []byte
}

func (p *ChannelData) OpCode() OpCode { return OpDMX }

func (p *ChannelData) isPacket() {}

// SequenceEnabled reports whether the sender numbers its frames.
func (p *ChannelData) SequenceEnabled() bool {
	return p.Sequence != 0
}

// Encode writes the frame. Data beyond MaxChannels is not sent.
func (p *ChannelData) Encode() []byte {
	data := p.Data
	if len(data) > MaxChannels {
		data = data[:MaxChannels]
	}

	b := newBuffer(OpDMX, DMXHeaderSize+len(data))
	body := b[HeaderSize:]
	binary.BigEndian.PutUint16(body[0:2], p.Version)
	body[2] = p.Sequence
	body[3] = p.Physical
	binary.LittleEndian.PutUint16(body[4:6], p.Universe)
	binary.BigEndian.PutUint16(body[6:8], uint16(len(data)))
	copy(body[DMXHeaderSize:], data)
	return b
}

func (p *ChannelData) MarshalBinary() ([]byte, error) {
	return p.Encode(), nil
}

func (p *ChannelData) String() string {
	return fmt.Sprintf("ArtDmx version=%d sequence=%d physical=%d universe=%d length=%d",
		p.Version, p.Sequence, p.Physical, p.Universe, len(p.Data))
}

// decodeChannelData clamps the declared length to the bytes actually present.
func decodeChannelData(body []byte) (*ChannelData, error) {
	if len(body) < DMXHeaderSize {
		return nil, fmt.Errorf("%w: ArtDmx body is %d bytes, want at least %d", ErrShortPacket, len(body), DMXHeaderSize)
	}

	length := int(binary.BigEndian.Uint16(body[6:8]))
	length = min(length, len(body)-DMXHeaderSize, MaxChannels)

	data := make([]byte, length)
	copy(data, body[DMXHeaderSize:])

	return &ChannelData{
		Version:  binary.BigEndian.Uint16(body[0:2]),
		Sequence: body[2],
		Physical: body[3],
		Universe: binary.LittleEndian.Uint16(body[4:6]),
		Data:     data,
	}, nil
}
