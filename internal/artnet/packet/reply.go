package packet

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

const (
	// PollReplySize is the fixed ArtPollReply body length.
	PollReplySize = 229

	// Usable lengths of the name fields; each is followed by a NUL on the wire.
	ShortNameSize = 17
	LongNameSize  = 63
	ReportSize    = 63

	// MaxPorts is the number of ports a single poll reply can describe.
	MaxPorts = 4

	// OEMUnknown is the OEM code used by equipment without a registered code.
	OEMUnknown uint16 = 0xffff
	// ESTAExperimental is the ESTA manufacturer code reserved for prototypes.
	ESTAExperimental uint16 = 0x7ff0
)

// ArtPollReply body offsets.
const (
	offIP          = 0
	offPort        = 4
	offVersion     = 6
	offNetSwitch   = 8
	offSubSwitch   = 9
	offOEM         = 10
	offUBEA        = 12
	offStatus      = 13
	offESTA        = 14
	offShortName   = 16
	offLongName    = 34
	offReport      = 98
	offNumPorts    = 162
	offPortTypes   = 164
	offGoodInput   = 168
	offGoodOutputA = 172
	offSwIn        = 176
	offSwOut       = 180
	offSwMacro     = 185
	offSwRemote    = 186
	offStyle       = 190
	offMAC         = 191
	offBindIP      = 197
	offBindIndex   = 201
	offStatus2     = 202
	offGoodOutputB = 203
	offStatus3     = 207
)

// MAC is a 6-byte hardware address.
type MAC [6]byte

// ParseMAC parses the colon separated hex form.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	hw, err := net.ParseMAC(s)
	if err != nil {
		return m, err
	}
	if len(hw) != len(m) {
		return m, fmt.Errorf("mac %q is not 6 bytes", s)
	}
	copy(m[:], hw)
	return m, nil
}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// DiscoveryReply is an ArtPollReply: a device announcing its identity and ports.
type DiscoveryReply struct {
	IP              netip.Addr
	Port            uint16
	FirmwareVersion uint16
	NetSwitch       uint8
	SubSwitch       uint8
	OEM             uint16
	UBEAVersion     uint8
	Status          NodeStatus
	ESTACode        uint16

	ShortName string
	LongName  string
	Report    string

	NumPorts       uint16
	Ports          [MaxPorts]PortInfo
	InputStatus    [MaxPorts]InputPortStatus
	OutputStatus   [MaxPorts]OutputPortStatus
	InputUniverse  [MaxPorts]uint8
	OutputUniverse [MaxPorts]uint8

	Macros Switches
	Remote Switches
	Style  Style

	MAC       MAC
	BindIP    netip.Addr
	BindIndex uint8
	Status2   NodeStatus2
	FailOver  FailOver
}

// NewDiscoveryReply returns a reply with the defaults of a device that has
// no ports in use: inputs disabled, outputs without RDM, DHCP capable.
func NewDiscoveryReply(ip netip.Addr, port uint16) *DiscoveryReply {
	r := &DiscoveryReply{
		IP:       ip,
		Port:     port,
		OEM:      OEMUnknown,
		ESTACode: ESTAExperimental,
		Status: NodeStatus{
			Indicator: IndicatorNormal,
			Authority: AuthorityUnused,
		},
		Style:  StyleNode,
		BindIP: netip.IPv4Unspecified(),
		Status2: NodeStatus2{
			DHCPSupported:    true,
			PortAddress15Bit: true,
		},
		FailOver: FailOver{State: FailOverHold},
	}
	for i := 0; i < MaxPorts; i++ {
		r.Ports[i] = PortInfo{Protocol: ProtocolDMX512}
		r.InputStatus[i] = InputPortStatus{InputDisabled: true}
		r.OutputStatus[i] = OutputPortStatus{RDMDisabled: true, ContinuousOutput: true}
	}
	return r
}

func (p *DiscoveryReply) OpCode() OpCode { return OpPollReply }

func (p *DiscoveryReply) isPacket() {}

func (p *DiscoveryReply) Encode() []byte {
	b := newBuffer(OpPollReply, PollReplySize)
	body := b[HeaderSize:]

	putIPv4(body[offIP:offIP+4], p.IP)
	binary.LittleEndian.PutUint16(body[offPort:], p.Port)
	binary.LittleEndian.PutUint16(body[offVersion:], p.FirmwareVersion)
	body[offNetSwitch] = p.NetSwitch
	body[offSubSwitch] = p.SubSwitch
	binary.LittleEndian.PutUint16(body[offOEM:], p.OEM)
	body[offUBEA] = p.UBEAVersion
	body[offStatus] = p.Status.Encode()
	binary.LittleEndian.PutUint16(body[offESTA:], p.ESTACode)

	putString(body[offShortName:offShortName+ShortNameSize], p.ShortName)
	putString(body[offLongName:offLongName+LongNameSize], p.LongName)
	putString(body[offReport:offReport+ReportSize], p.Report)

	binary.BigEndian.PutUint16(body[offNumPorts:], p.NumPorts)
	for i := 0; i < MaxPorts; i++ {
		body[offPortTypes+i] = p.Ports[i].Encode()
		body[offGoodInput+i] = p.InputStatus[i].Encode()
		body[offGoodOutputA+i] = p.OutputStatus[i].EncodeA()
		body[offGoodOutputB+i] = p.OutputStatus[i].EncodeB()
		body[offSwIn+i] = p.InputUniverse[i]
		body[offSwOut+i] = p.OutputUniverse[i]
	}

	body[offSwMacro] = p.Macros.Encode()
	body[offSwRemote] = p.Remote.Encode()
	body[offStyle] = byte(p.Style)
	copy(body[offMAC:offMAC+6], p.MAC[:])
	putIPv4(body[offBindIP:offBindIP+4], p.BindIP)
	body[offBindIndex] = p.BindIndex
	body[offStatus2] = p.Status2.Encode()
	body[offStatus3] = p.FailOver.Encode()
	return b
}

func (p *DiscoveryReply) MarshalBinary() ([]byte, error) {
	return p.Encode(), nil
}

func (p *DiscoveryReply) String() string {
	return fmt.Sprintf("ArtPollReply ip=%s port=%d short=%q long=%q style=%s ports=%d mac=%s",
		p.IP, p.Port, p.ShortName, p.LongName, p.Style, p.NumPorts, p.MAC)
}

func decodePollReply(body []byte) (*DiscoveryReply, error) {
	if len(body) < PollReplySize {
		return nil, fmt.Errorf("%w: ArtPollReply body is %d bytes, want %d", ErrShortPacket, len(body), PollReplySize)
	}

	p := &DiscoveryReply{
		IP:              netip.AddrFrom4([4]byte(body[offIP : offIP+4])),
		Port:            binary.LittleEndian.Uint16(body[offPort:]),
		FirmwareVersion: binary.LittleEndian.Uint16(body[offVersion:]),
		NetSwitch:       body[offNetSwitch],
		SubSwitch:       body[offSubSwitch],
		OEM:             binary.LittleEndian.Uint16(body[offOEM:]),
		UBEAVersion:     body[offUBEA],
		Status:          DecodeNodeStatus(body[offStatus]),
		ESTACode:        binary.LittleEndian.Uint16(body[offESTA:]),
		ShortName:       getString(body[offShortName : offShortName+ShortNameSize]),
		LongName:        getString(body[offLongName : offLongName+LongNameSize]),
		Report:          getString(body[offReport : offReport+ReportSize]),
		NumPorts:        binary.BigEndian.Uint16(body[offNumPorts:]),
		Macros:          DecodeSwitches(body[offSwMacro]),
		Remote:          DecodeSwitches(body[offSwRemote]),
		Style:           Style(body[offStyle]),
		MAC:             MAC([6]byte(body[offMAC : offMAC+6])),
		BindIP:          netip.AddrFrom4([4]byte(body[offBindIP : offBindIP+4])),
		BindIndex:       body[offBindIndex],
		Status2:         DecodeNodeStatus2(body[offStatus2]),
		FailOver:        DecodeFailOver(body[offStatus3]),
	}
	for i := 0; i < MaxPorts; i++ {
		p.Ports[i] = DecodePortInfo(body[offPortTypes+i])
		p.InputStatus[i] = DecodeInputPortStatus(body[offGoodInput+i])
		p.OutputStatus[i] = DecodeOutputPortStatus(body[offGoodOutputA+i], body[offGoodOutputB+i])
		p.InputUniverse[i] = body[offSwIn+i]
		p.OutputUniverse[i] = body[offSwOut+i]
	}
	return p, nil
}

// putIPv4 writes a as four bytes; anything other than IPv4 is written as 0.0.0.0.
func putIPv4(dst []byte, a netip.Addr) {
	if a.Is4In6() {
		a = a.Unmap()
	}
	if !a.Is4() {
		copy(dst, []byte{0, 0, 0, 0})
		return
	}
	ip := a.As4()
	copy(dst, ip[:])
}
