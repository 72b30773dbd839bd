package packet

import (
	"fmt"

	"github.com/Haba1234/go-artnet/packet/code"
)

// OpCode identifies the packet body that follows the Art-Net envelope.
type OpCode code.OpCode

const (
	OpPoll              = OpCode(code.OpPoll)
	OpPollReply         = OpCode(code.OpPollReply)
	OpDiagData          = OpCode(code.OpDiagData)
	OpCommand           = OpCode(code.OpCommand)
	OpDMX               = OpCode(code.OpDMX) // OpDMX is also called OpOutput.
	OpNzs               = OpCode(code.OpNzs)
	OpSync              = OpCode(code.OpSync)
	OpAddress           = OpCode(code.OpAddress)
	OpInput             = OpCode(code.OpInput)
	OpTodRequest        = OpCode(code.OpTodRequest)
	OpTodData           = OpCode(code.OpTodData)
	OpTodControl        = OpCode(code.OpTodControl)
	OpRdm               = OpCode(code.OpRdm)
	OpRdmSub            = OpCode(code.OpRdmSub)
	OpMedia             = OpCode(code.OpMedia)
	OpMediaPatch        = OpCode(code.OpMediaPatch)
	OpMediaControl      = OpCode(code.OpMediaControl)
	OpMediaControlReply = OpCode(code.OpMediaContrlReply)
	OpTimeCode          = OpCode(code.OpTimeCode)
	OpTimeSync          = OpCode(code.OpTimeSync)
	OpTrigger           = OpCode(code.OpTrigger)
	OpDirectory         = OpCode(code.OpDirectory)
	OpDirectoryReply    = OpCode(code.OpDirectoryReply)
	OpFirmwareMaster    = OpCode(code.OpFirmwareMaster)
	OpFirmwareReply     = OpCode(code.OpFirmwareReply)
	OpFileTnMaster      = OpCode(code.OpFileTnMaster)
	OpFileFnMaster      = OpCode(code.OpFileFnMaster)
	OpFileFnReply       = OpCode(code.OpFileFnReply)
	OpIPProg            = OpCode(code.OpIPProg)
	OpIPProgReply       = OpCode(code.OpIPProgReply)
)

// Known reports whether o is a registered Art-Net opcode.
func (o OpCode) Known() bool {
	return code.ValidOp(code.OpCode(o))
}

func (o OpCode) String() string {
	switch o {
	case OpDMX:
		return "OpDmx"
	case OpMediaControlReply:
		return "OpMediaControlReply"
	}
	if !o.Known() {
		return fmt.Sprintf("OpCode(0x%04x)", uint16(o))
	}
	return code.OpCode(o).String()
}
