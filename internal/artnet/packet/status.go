package packet

// Bitfield codecs for the packed status bytes of a poll reply. Decoders mask
// only the documented bits; encoders leave reserved bits zero.

const (
	bit0 byte = 1 << iota
	bit1
	bit2
	bit3
	bit4
	bit5
	bit6
	bit7
)

func flag(b, mask byte) bool {
	return b&mask == mask
}

func set(b *byte, mask byte, on bool) {
	if on {
		*b |= mask
	}
}

// PortInfo describes the capabilities of one physical port.
type PortInfo struct {
	Output   bool
	Input    bool
	Protocol PortProtocol // 6 bits
}

// DecodePortInfo unpacks a PortTypes byte.
func DecodePortInfo(b byte) PortInfo {
	return PortInfo{
		Output:   flag(b, bit7),
		Input:    flag(b, bit6),
		Protocol: PortProtocol(b & 0x3f),
	}
}

// Encode packs p into a PortTypes byte.
func (p PortInfo) Encode() byte {
	var b byte
	set(&b, bit7, p.Output)
	set(&b, bit6, p.Input)
	return b | byte(p.Protocol)&0x3f
}

// InputPortStatus is the GoodInput byte of one port.
type InputPortStatus struct {
	DataReceived          bool
	TestPacketsSupported  bool
	SIPSupported          bool
	TextPacketsSupported  bool
	InputDisabled         bool
	ReceiveErrorsDetected bool
}

// DecodeInputPortStatus unpacks a GoodInput byte.
func DecodeInputPortStatus(b byte) InputPortStatus {
	return InputPortStatus{
		DataReceived:          flag(b, bit7),
		TestPacketsSupported:  flag(b, bit6),
		SIPSupported:          flag(b, bit5),
		TextPacketsSupported:  flag(b, bit4),
		InputDisabled:         flag(b, bit3),
		ReceiveErrorsDetected: flag(b, bit2),
	}
}

// Encode packs s into a GoodInput byte.
func (s InputPortStatus) Encode() byte {
	var b byte
	set(&b, bit7, s.DataReceived)
	set(&b, bit6, s.TestPacketsSupported)
	set(&b, bit5, s.SIPSupported)
	set(&b, bit4, s.TextPacketsSupported)
	set(&b, bit3, s.InputDisabled)
	set(&b, bit2, s.ReceiveErrorsDetected)
	return b
}

// OutputPortStatus spans two bytes on the wire: GoodOutputA holds the first
// eight flags and the top two bits of GoodOutputB hold the rest.
type OutputPortStatus struct {
	DataTransmitted      bool
	TestPacketsSupported bool
	SIPSupported         bool
	TextPacketsSupported bool
	Merging              bool
	ShortCircuit         bool
	MergeLTP             bool
	TransmittingSACN     bool

	RDMDisabled      bool
	ContinuousOutput bool
}

// DecodeOutputPortStatus unpacks the GoodOutputA and GoodOutputB bytes of a port.
func DecodeOutputPortStatus(a, b byte) OutputPortStatus {
	return OutputPortStatus{
		DataTransmitted:      flag(a, bit7),
		TestPacketsSupported: flag(a, bit6),
		SIPSupported:         flag(a, bit5),
		TextPacketsSupported: flag(a, bit4),
		Merging:              flag(a, bit3),
		ShortCircuit:         flag(a, bit2),
		MergeLTP:             flag(a, bit1),
		TransmittingSACN:     flag(a, bit0),
		RDMDisabled:          flag(b, bit7),
		ContinuousOutput:     flag(b, bit6),
	}
}

// EncodeA packs the GoodOutputA byte.
func (s OutputPortStatus) EncodeA() byte {
	var b byte
	set(&b, bit7, s.DataTransmitted)
	set(&b, bit6, s.TestPacketsSupported)
	set(&b, bit5, s.SIPSupported)
	set(&b, bit4, s.TextPacketsSupported)
	set(&b, bit3, s.Merging)
	set(&b, bit2, s.ShortCircuit)
	set(&b, bit1, s.MergeLTP)
	set(&b, bit0, s.TransmittingSACN)
	return b
}

// EncodeB packs the GoodOutputB byte.
func (s OutputPortStatus) EncodeB() byte {
	var b byte
	set(&b, bit7, s.RDMDisabled)
	set(&b, bit6, s.ContinuousOutput)
	return b
}

// NodeStatus is the Status1 byte.
type NodeStatus struct {
	Indicator IndicatorState       // bits 7-6
	Authority ProgrammingAuthority // bits 5-4
	ROMBooted bool
	RDM       bool
	UBEA      bool
}

// DecodeNodeStatus unpacks a Status1 byte.
func DecodeNodeStatus(b byte) NodeStatus {
	return NodeStatus{
		Indicator: IndicatorState(b>>6&0x03),
		Authority: ProgrammingAuthority(b>>4&0x03),
		ROMBooted: flag(b, bit2),
		RDM:       flag(b, bit1),
		UBEA:      flag(b, bit0),
	}
}

// Encode packs s into a Status1 byte.
func (s NodeStatus) Encode() byte {
	b := byte(s.Indicator)&0x03<<6 | byte(s.Authority)&0x03<<4
	set(&b, bit2, s.ROMBooted)
	set(&b, bit1, s.RDM)
	set(&b, bit0, s.UBEA)
	return b
}

// NodeStatus2 is the Status2 byte.
type NodeStatus2 struct {
	WebConfig          bool
	DHCPUsed           bool
	DHCPSupported      bool
	PortAddress15Bit   bool
	SACN               bool
	Squawking          bool
	OutputStyleCommand bool
	RDMControlCommand  bool
}

// DecodeNodeStatus2 unpacks a Status2 byte.
func DecodeNodeStatus2(b byte) NodeStatus2 {
	return NodeStatus2{
		WebConfig:          flag(b, bit0),
		DHCPUsed:           flag(b, bit1),
		DHCPSupported:      flag(b, bit2),
		PortAddress15Bit:   flag(b, bit3),
		SACN:               flag(b, bit4),
		Squawking:          flag(b, bit5),
		OutputStyleCommand: flag(b, bit6),
		RDMControlCommand:  flag(b, bit7),
	}
}

// Encode packs s into a Status2 byte.
func (s NodeStatus2) Encode() byte {
	var b byte
	set(&b, bit0, s.WebConfig)
	set(&b, bit1, s.DHCPUsed)
	set(&b, bit2, s.DHCPSupported)
	set(&b, bit3, s.PortAddress15Bit)
	set(&b, bit4, s.SACN)
	set(&b, bit5, s.Squawking)
	set(&b, bit6, s.OutputStyleCommand)
	set(&b, bit7, s.RDMControlCommand)
	return b
}

// FailOver is the Status3 byte.
type FailOver struct {
	State     FailOverState // bits 1-0
	Supported bool
}

// DecodeFailOver unpacks a Status3 byte.
func DecodeFailOver(b byte) FailOver {
	return FailOver{
		State:     FailOverState(b & 0x03),
		Supported: flag(b, bit2),
	}
}

// Encode packs f into a Status3 byte.
func (f FailOver) Encode() byte {
	b := byte(f.State) & 0x03
	set(&b, bit2, f.Supported)
	return b
}

// Switches is an 8-bit trigger array where index i maps to bit i.
type Switches [8]bool

// DecodeSwitches unpacks a SwMacro or SwRemote byte.
func DecodeSwitches(b byte) Switches {
	var s Switches
	for i := range s {
		s[i] = b&(1<<i) != 0
	}
	return s
}

// Encode packs s into one byte.
func (s Switches) Encode() byte {
	var b byte
	for i, on := range s {
		if on {
			b |= 1 << i
		}
	}
	return b
}
