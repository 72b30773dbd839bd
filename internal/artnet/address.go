package artnet

import (
	"encoding/binary"

	goartnet "github.com/Haba1234/go-artnet"
)

// PortAddress splits a 15-bit port-address into its Net and Sub-Net/Universe
// bytes: the high byte is the Net, the low byte the SubUni.
func PortAddress(universe uint16) goartnet.Address {
	v := make([]uint8, 2)
	binary.BigEndian.PutUint16(v, universe&0x7fff)

	return goartnet.Address{
		Net:    v[0],
		SubUni: v[1],
	}
}
