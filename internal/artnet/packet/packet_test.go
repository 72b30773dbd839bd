package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net/netip"
	"strings"
	"testing"

	artnetpkt "github.com/Haba1234/go-artnet/packet"
	"github.com/Haba1234/go-artnet/packet/code"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addrOpt = cmpopts.EquateComparable(netip.Addr{})

func roundTrip(t *testing.T, p Packet) Packet {
	t.Helper()
	got, err := Unmarshal(p.Encode())
	require.NoError(t, err)
	if diff := cmp.Diff(p, got, addrOpt); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	return got
}

func TestEnvelope(t *testing.T) {
	b := NewDiscoveryPoll().Encode()
	assert.Equal(t, []byte("Art-Net\x00"), b[:8])
	assert.Equal(t, []byte{0x00, 0x20}, b[8:10])
	assert.Len(t, b, HeaderSize+PollSize)
}

func TestChannelDataScenario(t *testing.T) {
	p := &ChannelData{Version: 14, Sequence: 5, Physical: 0, Universe: 3, Data: []byte{10, 20, 30}}
	b := p.Encode()
	require.Len(t, b, 21)

	assert.Equal(t, []byte{0x00, 0x50}, b[8:10])
	assert.Equal(t, []byte{0x00, 0x0e}, b[10:12], "version is big-endian")
	assert.Equal(t, []byte{0x03, 0x00}, b[14:16], "universe is little-endian")
	assert.Equal(t, []byte{0x00, 0x03}, b[16:18], "length is big-endian")

	got := roundTrip(t, p).(*ChannelData)
	assert.True(t, got.SequenceEnabled())
}

func TestChannelDataBoundaries(t *testing.T) {
	full := bytes.Repeat([]byte{0xff}, MaxChannels)
	tests := []struct {
		name string
		p    *ChannelData
	}{
		{"sequence disabled", &ChannelData{Version: 14, Sequence: 0, Universe: 0, Data: []byte{}}},
		{"sequence max", &ChannelData{Version: 14, Sequence: 255, Universe: 0x7fff, Data: []byte{1}}},
		{"full universe", &ChannelData{Version: 14, Sequence: 1, Physical: 3, Universe: 256, Data: full}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundTrip(t, tt.p)
			assert.Len(t, tt.p.Encode(), HeaderSize+DMXHeaderSize+len(tt.p.Data))
		})
	}
}

func TestChannelDataOversizeTruncated(t *testing.T) {
	p := &ChannelData{Version: 14, Data: make([]byte, MaxChannels+10)}
	b := p.Encode()
	assert.Len(t, b, HeaderSize+DMXHeaderSize+MaxChannels)
	assert.Equal(t, uint16(MaxChannels), binary.BigEndian.Uint16(b[16:18]))
}

func TestChannelDataLengthClamped(t *testing.T) {
	b := (&ChannelData{Version: 14, Sequence: 9, Universe: 1, Data: []byte{1, 2, 3, 4}}).Encode()
	binary.BigEndian.PutUint16(b[16:18], 400)

	p, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, p.(*ChannelData).Data)
}

func TestDiscoveryPollRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		p    *DiscoveryPoll
	}{
		{"defaults", NewDiscoveryPoll()},
		{"all false", &DiscoveryPoll{Version: 14}},
		{"all true", &DiscoveryPoll{Version: 14, ReplyOnChange: true, Diagnostics: true, DiagnosticsUnicast: true, DisableVLC: true, Priority: PriorityVolatile}},
		{"unicast without diagnostics", &DiscoveryPoll{Version: 14, DiagnosticsUnicast: true, Priority: 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundTrip(t, tt.p)
		})
	}
}

func TestDiscoveryPollTalkToMeBits(t *testing.T) {
	tests := []struct {
		p    DiscoveryPoll
		want byte
	}{
		{DiscoveryPoll{ReplyOnChange: true}, 0x02},
		{DiscoveryPoll{Diagnostics: true}, 0x04},
		{DiscoveryPoll{DiagnosticsUnicast: true}, 0x08},
		{DiscoveryPoll{DisableVLC: true}, 0x10},
	}
	for _, tt := range tests {
		b := tt.p.Encode()
		assert.Equal(t, tt.want, b[HeaderSize+2])
	}
}

func TestPriorityBucket(t *testing.T) {
	assert.Equal(t, "all", Priority(0x0f).String())
	assert.Equal(t, "low", Priority(0x10).String())
	assert.Equal(t, "med", Priority(0x7f).String())
	assert.Equal(t, "high", Priority(0x80).String())
	assert.Equal(t, "critical", Priority(0xe5).String())
	assert.Equal(t, "volatile", Priority(0xff).String())
}

func fullReply() *DiscoveryReply {
	r := NewDiscoveryReply(netip.MustParseAddr("10.0.0.7"), Port)
	r.FirmwareVersion = 0x0102
	r.NetSwitch = 0x7f
	r.SubSwitch = 0x0f
	r.OEM = 0x1234
	r.UBEAVersion = 9
	r.Status = NodeStatus{Indicator: IndicatorMute, Authority: AuthorityFrontPanel, ROMBooted: true, RDM: true, UBEA: true}
	r.ESTACode = 0x4142
	r.ShortName = strings.Repeat("s", ShortNameSize)
	r.LongName = strings.Repeat("l", LongNameSize)
	r.Report = "#0001 [0042] ok"
	r.NumPorts = 4
	r.Ports = [MaxPorts]PortInfo{{Output: true}, {Input: true}, {Output: true, Input: true, Protocol: ProtocolArtNet}, {}}
	r.InputStatus[1] = InputPortStatus{DataReceived: true, ReceiveErrorsDetected: true}
	r.OutputStatus[2] = OutputPortStatus{DataTransmitted: true, TransmittingSACN: true, RDMDisabled: true}
	r.InputUniverse = [MaxPorts]uint8{1, 2, 3, 4}
	r.OutputUniverse = [MaxPorts]uint8{5, 6, 7, 8}
	r.Macros = Switches{true, false, true}
	r.Remote = Switches{7: true}
	r.Style = StyleController
	r.MAC = MAC{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	r.BindIP = netip.MustParseAddr("10.0.0.1")
	r.BindIndex = 2
	r.Status2 = NodeStatus2{WebConfig: true, DHCPUsed: true, SACN: true, Squawking: true, OutputStyleCommand: true, RDMControlCommand: true}
	r.FailOver = FailOver{State: FailOverAllFull, Supported: true}
	return r
}

func TestDiscoveryReplyRoundTrip(t *testing.T) {
	roundTrip(t, fullReply())
	roundTrip(t, NewDiscoveryReply(netip.IPv4Unspecified(), Port))
}

func TestDiscoveryReplyLayout(t *testing.T) {
	b := fullReply().Encode()
	require.Len(t, b, HeaderSize+PollReplySize)
	body := b[HeaderSize:]

	assert.Equal(t, []byte{10, 0, 0, 7}, body[0:4])
	assert.Equal(t, []byte{0x36, 0x19}, body[4:6], "port 6454 little-endian")
	assert.Equal(t, []byte{0x00, 0x04}, body[162:164], "port count big-endian")
	assert.Equal(t, byte(0x05), body[185])
	assert.Equal(t, byte(0x80), body[186])
	assert.Equal(t, byte(StyleController), body[190])
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}, body[191:197])
	assert.Equal(t, byte(0), body[33], "short name terminator")
	assert.Equal(t, byte(0), body[97], "long name terminator")
	assert.Equal(t, byte(0), body[161], "report terminator")
	assert.Equal(t, byte(0x06), body[207])
}

func TestDiscoveryReplyStringPadding(t *testing.T) {
	r := NewDiscoveryReply(netip.IPv4Unspecified(), Port)
	r.ShortName = "desk"
	r.LongName = strings.Repeat("x", LongNameSize+20)
	b := r.Encode()
	body := b[HeaderSize:]

	assert.Equal(t, []byte("desk"), body[16:20])
	assert.Equal(t, make([]byte, 14), body[20:34])
	assert.Equal(t, byte(0), body[97])

	got, err := Unmarshal(b)
	require.NoError(t, err)
	reply := got.(*DiscoveryReply)
	assert.Equal(t, "desk", reply.ShortName)
	assert.Equal(t, strings.Repeat("x", LongNameSize), reply.LongName)
}

func TestDecodeTrimsNames(t *testing.T) {
	b := NewDiscoveryReply(netip.IPv4Unspecified(), Port).Encode()
	copy(b[HeaderSize+16:], "  node \x00junk")

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, "node", got.(*DiscoveryReply).ShortName)
}

func TestMACString(t *testing.T) {
	m, err := ParseMAC("00:1a:2b:3c:4d:5e")
	require.NoError(t, err)
	assert.Equal(t, "00:1a:2b:3c:4d:5e", m.String())

	_, err = ParseMAC("00:1a:2b:3c:4d:5e:6f:70")
	assert.Error(t, err)
}

func TestUnmarshalRejects(t *testing.T) {
	unknown := newBuffer(0x9999, 4)
	badSig := NewDiscoveryPoll().Encode()
	badSig[0] = 'a'
	shortReply := NewDiscoveryReply(netip.IPv4Unspecified(), Port).Encode()[:HeaderSize+100]

	tests := []struct {
		name string
		b    []byte
		err  error
	}{
		{"empty", nil, ErrShortPacket},
		{"nine bytes", []byte("Art-Net\x00\x00"), ErrShortPacket},
		{"bad signature", badSig, ErrInvalidSignature},
		{"unknown opcode", unknown, ErrUnknownOpCode},
		{"short reply", shortReply, ErrShortPacket},
		{"short dmx", (&ChannelData{}).Encode()[:HeaderSize+4], ErrShortPacket},
		{"short poll", NewDiscoveryPoll().Encode()[:HeaderSize+2], ErrShortPacket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Packet
			assert.NotPanics(t, func() {
				var err error
				p, err = Unmarshal(tt.b)
				assert.ErrorIs(t, err, tt.err)
			})
			assert.Nil(t, p)
		})
	}
}

func TestUnknownOpCodeError(t *testing.T) {
	_, err := Unmarshal(newBuffer(OpSync, 2))
	var opErr *UnknownOpCodeError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpSync, opErr.OpCode)
	assert.Equal(t, "unknown opcode OpSync", err.Error())
	assert.Equal(t, "OpCode(0x9999)", OpCode(0x9999).String())
	assert.Equal(t, "OpDmx", OpDMX.String())
	assert.Equal(t, "OpTimeSync", OpTimeSync.String())
	assert.False(t, OpCode(0x9999).Known())
	assert.True(t, OpIPProgReply.Known())
}

func TestStyleString(t *testing.T) {
	assert.Equal(t, "node", StyleNode.String())
	assert.Equal(t, "controller", StyleController.String())
	assert.Equal(t, "visual", StyleVisual.String())
	assert.Equal(t, "Style(7)", Style(7).String())
}

func TestDecodedByGoArtnet(t *testing.T) {
	t.Run("dmx", func(t *testing.T) {
		b := (&ChannelData{Version: 14, Sequence: 5, Universe: 0x0103, Data: []byte{10, 20, 30, 40}}).Encode()
		p, err := artnetpkt.Unmarshal(b)
		require.NoError(t, err)
		dmx, ok := p.(*artnetpkt.ArtDMXPacket)
		require.True(t, ok, "got %T", p)
		assert.Equal(t, code.OpDMX, dmx.GetOpCode())
		assert.Equal(t, uint8(5), dmx.Sequence)
		assert.Equal(t, uint8(1), dmx.Net)
		assert.Equal(t, uint8(3), dmx.SubUni)
		assert.Equal(t, uint16(4), dmx.Length)
		assert.Equal(t, []byte{10, 20, 30, 40}, dmx.Data[:dmx.Length])
	})

	t.Run("poll", func(t *testing.T) {
		p, err := artnetpkt.Unmarshal(NewDiscoveryPoll().Encode())
		require.NoError(t, err)
		poll, ok := p.(*artnetpkt.ArtPollPacket)
		require.True(t, ok, "got %T", p)
		assert.True(t, poll.TalkToMe.ReplyOnChange())
		assert.True(t, poll.TalkToMe.Diagnostics())
		assert.True(t, poll.TalkToMe.DiagUnicast())
		assert.Equal(t, code.DpAll, poll.Priority)
		assert.Equal(t, PriorityAll, Priority(poll.Priority))
	})

	t.Run("reply", func(t *testing.T) {
		r := NewDiscoveryReply(netip.MustParseAddr("192.168.1.10"), Port)
		r.ShortName = "rig"
		r.NumPorts = 1
		r.Style = StyleController
		p, err := artnetpkt.Unmarshal(r.Encode())
		require.NoError(t, err)
		reply, ok := p.(*artnetpkt.ArtPollReplyPacket)
		require.True(t, ok, "got %T", p)
		assert.Equal(t, [4]byte{192, 168, 1, 10}, reply.IPAddress)
		assert.Equal(t, uint16(Port), reply.Port)
		assert.Equal(t, uint16(1), reply.NumPorts)
		assert.Equal(t, code.StController, reply.Style)
		assert.Equal(t, "rig", string(bytes.TrimRight(reply.ShortName[:], "\x00")))
	})
}

func TestSignatureIgnoresEighthByte(t *testing.T) {
	b := (&ChannelData{Version: 14, Data: []byte{1}}).Encode()
	b[7] = 'x'
	_, err := Unmarshal(b)
	assert.NoError(t, err)
}
