package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// FillProgram is a deterministic stand-in for an opaque aggregator, used by
// sandboxed execution and tests. Its payload is {dest meta index: u8,
// amount: u64 LE}; it credits the destination token account by amount. The
// destination must have been granted writability, so a reconciler that
// refuses to escalate shows up immediately as a failed fill.
func FillProgram() ProgramHandler {
	return func(l *Ledger, ix solana.Instruction) error {
		data, err := ix.Data()
		if err != nil {
			return err
		}
		if len(data) < 9 {
			return fmt.Errorf("fill payload too short: %d bytes", len(data))
		}
		metas := ix.Accounts()
		destIdx := int(data[0])
		amount := binary.LittleEndian.Uint64(data[1:9])
		if destIdx >= len(metas) {
			return fmt.Errorf("fill destination index %d out of range", destIdx)
		}
		dest := metas[destIdx]
		if !dest.IsWritable {
			return fmt.Errorf("fill destination %s not writable", dest.PublicKey)
		}
		acc, err := l.Account(dest.PublicKey)
		if err != nil {
			return err
		}
		ta, err := ParseTokenAccount(acc.Data)
		if err != nil {
			return err
		}
		PutTokenAmount(acc.Data, ta.Amount+amount)
		return nil
	}
}

// FillPayload builds a FillProgram payload.
func FillPayload(destMetaIndex uint8, amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = destMetaIndex
	binary.LittleEndian.PutUint64(data[1:9], amount)
	return data
}
