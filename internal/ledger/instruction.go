package ledger

import (
	"bytes"
	"encoding/base64"
	"strings"
)

// MintLogMarker is the log line the issuance program emits for its mint
// instruction. It is only a cheap pre-filter on the log stream; the
// decision of whether a transaction minted a ticket is made by
// DecodeMint on the instruction data.
const MintLogMarker = "Instruction: MintTicket"

// mintDiscriminator is the 8-byte discriminator of the issuance
// program's mint instruction.
var mintDiscriminator = []byte{0xd3, 0x3a, 0x1f, 0x8b, 0x5c, 0x07, 0x2d, 0xe9}

// Account ordering of the mint instruction as defined by the issuance
// program. These constants are the single source of that ordering.
const (
	mintAccountMachine = 0
	mintAccountAsset   = 1
	mintAccountOwner   = 2

	mintAccountCount = 3
)

// MintArgs is the account tuple of a recognized mint instruction.
type MintArgs struct {
	MachineID string
	AssetID   string
	Owner     string
}

// DecodeMint inspects one instruction and, when its discriminator and
// account tuple match the issuance program's mint instruction, returns
// the extracted arguments. The second return is false for anything
// unrecognized or incomplete.
func DecodeMint(inst Instruction) (*MintArgs, bool) {
	data, err := base64.StdEncoding.DecodeString(inst.Data)
	if err != nil {
		return nil, false
	}
	if len(data) < len(mintDiscriminator) {
		return nil, false
	}
	if !bytes.Equal(data[:len(mintDiscriminator)], mintDiscriminator) {
		return nil, false
	}
	if len(inst.Accounts) < mintAccountCount {
		return nil, false
	}

	return &MintArgs{
		MachineID: inst.Accounts[mintAccountMachine],
		AssetID:   inst.Accounts[mintAccountAsset],
		Owner:     inst.Accounts[mintAccountOwner],
	}, true
}

// ContainsMintLog reports whether a log batch mentions the mint
// instruction marker.
func ContainsMintLog(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, MintLogMarker) {
			return true
		}
	}
	return false
}
