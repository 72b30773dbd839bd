package packet

import (
	"fmt"
	"strings"

	"github.com/Haba1234/go-artnet/packet/code"
)

// Priority is the lowest diagnostics priority a poller wants to receive.
type Priority code.PriorityCode

const (
	PriorityAll      = Priority(code.DpAll)
	PriorityLow      = Priority(code.DpLow)
	PriorityMed      = Priority(code.DpMed)
	PriorityHigh     = Priority(code.DpHigh)
	PriorityCritical = Priority(code.DpCritical)
	PriorityVolatile = Priority(code.DpVolatile)
)

// Bucket rounds p down to the nearest named priority.
func (p Priority) Bucket() Priority {
	switch {
	case p >= PriorityVolatile:
		return PriorityVolatile
	case p >= PriorityCritical:
		return PriorityCritical
	case p >= PriorityHigh:
		return PriorityHigh
	case p >= PriorityMed:
		return PriorityMed
	case p >= PriorityLow:
		return PriorityLow
	default:
		return PriorityAll
	}
}

func (p Priority) String() string {
	switch p.Bucket() {
	case PriorityVolatile:
		return "volatile"
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMed:
		return "med"
	case PriorityLow:
		return "low"
	default:
		return "all"
	}
}

// IndicatorState is the front panel indicator mode reported in Status1.
type IndicatorState uint8

const (
	IndicatorUnknown IndicatorState = iota
	IndicatorLocate
	IndicatorMute
	IndicatorNormal
)

func (s IndicatorState) String() string {
	switch s {
	case IndicatorUnknown:
		return "unknown"
	case IndicatorLocate:
		return "locate"
	case IndicatorMute:
		return "mute"
	case IndicatorNormal:
		return "normal"
	}
	return fmt.Sprintf("IndicatorState(%d)", uint8(s))
}

// ProgrammingAuthority tells who set the port-address of a node.
type ProgrammingAuthority uint8

const (
	AuthorityUnknown ProgrammingAuthority = iota
	AuthorityFrontPanel
	AuthorityNetwork
	AuthorityUnused
)

func (a ProgrammingAuthority) String() string {
	switch a {
	case AuthorityUnknown:
		return "unknown"
	case AuthorityFrontPanel:
		return "front-panel"
	case AuthorityNetwork:
		return "network"
	case AuthorityUnused:
		return "unused"
	}
	return fmt.Sprintf("ProgrammingAuthority(%d)", uint8(a))
}

// Style is the kind of equipment sending a poll reply.
type Style code.StyleCode

const (
	StyleNode       = Style(code.StNode)
	StyleController = Style(code.StController)
	StyleMedia      = Style(code.StMedia)
	StyleRoute      = Style(code.StRoute)
	StyleBackup     = Style(code.StBackup)
	StyleConfig     = Style(code.StConfig)
	StyleVisual     = Style(code.StVisual)
)

func (s Style) String() string {
	if !code.ValidStyle(code.StyleCode(s)) {
		return fmt.Sprintf("Style(%d)", uint8(s))
	}
	return strings.ToLower(code.StyleCode(s).String())
}

// FailOverState is what a node outputs when network data is lost.
type FailOverState uint8

const (
	FailOverHold FailOverState = iota
	FailOverAllZero
	FailOverAllFull
	FailOverPlaybackScene
)

func (s FailOverState) String() string {
	switch s {
	case FailOverHold:
		return "hold"
	case FailOverAllZero:
		return "all-zero"
	case FailOverAllFull:
		return "all-full"
	case FailOverPlaybackScene:
		return "playback-scene"
	}
	return fmt.Sprintf("FailOverState(%d)", uint8(s))
}

// PortProtocol is the 6-bit protocol id in a port-info byte.
type PortProtocol uint8

const (
	ProtocolDMX512 PortProtocol = iota
	ProtocolMIDI
	ProtocolAvab
	ProtocolColortranCMX
	ProtocolADB625
	ProtocolArtNet
)

func (p PortProtocol) String() string {
	switch p {
	case ProtocolDMX512:
		return "DMX512"
	case ProtocolMIDI:
		return "MIDI"
	case ProtocolAvab:
		return "Avab"
	case ProtocolColortranCMX:
		return "Colortran CMX"
	case ProtocolADB625:
		return "ADB 62.5"
	case ProtocolArtNet:
		return "Art-Net"
	}
	return fmt.Sprintf("PortProtocol(%d)", uint8(p))
}
