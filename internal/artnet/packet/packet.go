// Package packet encodes and decodes the Art-Net packets this service speaks:
// ArtPoll, ArtPollReply and ArtDmx.
package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Port is the UDP port reserved for Art-Net.
	Port = 6454
	// ProtocolVersion is the Art-Net revision written into outgoing packets.
	ProtocolVersion uint16 = 14
	// HeaderSize is the length of the ID and OpCode envelope.
	HeaderSize = 10
)

// id is the 8-byte packet ID. Only the first 7 bytes are checked on decode.
var id = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

var (
	// ErrShortPacket is returned when a buffer is shorter than the layout it claims.
	ErrShortPacket = errors.New("packet too short")
	// ErrInvalidSignature is returned when a buffer does not start with "Art-Net".
	ErrInvalidSignature = errors.New("invalid Art-Net signature")
	// ErrUnknownOpCode matches every *UnknownOpCodeError.
	ErrUnknownOpCode = errors.New("unknown opcode")
)

// UnknownOpCodeError reports a well-formed envelope carrying an opcode this
// package does not decode. Such packets are routine on a shared network.
type UnknownOpCodeError struct {
	OpCode OpCode
}

func (e *UnknownOpCodeError) Error() string {
	return fmt.Sprintf("unknown opcode %s", e.OpCode)
}

func (e *UnknownOpCodeError) Is(target error) bool {
	return target == ErrUnknownOpCode
}

// Packet is one of *DiscoveryPoll, *DiscoveryReply or *ChannelData.
type Packet interface {
	OpCode() OpCode
	// Encode returns the envelope followed by the packet body.
	Encode() []byte
	MarshalBinary() ([]byte, error)

	isPacket()
}

// Unmarshal decodes one datagram. Callers on a shared network should treat
// any error as "not a packet for us" and drop the datagram.
func Unmarshal(b []byte) (Packet, error) {
	op, err := Header(b)
	if err != nil {
		return nil, err
	}

	body := b[HeaderSize:]
	switch op {
	case OpPoll:
		return decodePoll(body)
	case OpPollReply:
		return decodePollReply(body)
	case OpDMX:
		return decodeChannelData(body)
	default:
		return nil, &UnknownOpCodeError{OpCode: op}
	}
}

// Header validates the envelope of b and returns its opcode.
func Header(b []byte) (OpCode, error) {
	if len(b) < HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	if !bytes.Equal(b[:7], id[:7]) {
		return 0, ErrInvalidSignature
	}
	return OpCode(binary.LittleEndian.Uint16(b[8:10])), nil
}

// newBuffer allocates envelope plus body and writes the envelope.
func newBuffer(op OpCode, bodySize int) []byte {
	b := make([]byte, HeaderSize+bodySize)
	copy(b, id[:])
	binary.LittleEndian.PutUint16(b[8:10], uint16(op))
	return b
}

// putString writes s into dst, truncated to len(dst) and NUL padded.
func putString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// getString reads a NUL terminated field and trims surrounding whitespace.
func getString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(bytes.TrimSpace(src))
}
