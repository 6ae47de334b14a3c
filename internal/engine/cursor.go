package engine

import (
	"fmt"

	"github.com/thepaypay420/racepump/internal/ledger"
	"github.com/thepaypay420/racepump/internal/request"
)

// Cursor tracks consumption of the externally supplied account table across
// legs. Full-encoding legs consume sequentially and must match keys
// position-for-position; indexed legs resolve by index. Either way every
// table entry must end up consumed, so a forged request cannot smuggle
// extra privileged accounts into the transaction.
type Cursor struct {
	table []ledger.GrantedAccount
	pos   int
	used  []bool
}

func NewCursor(table []ledger.GrantedAccount) *Cursor {
	return &Cursor{table: table, used: make([]bool, len(table))}
}

// TakeSequential consumes the next table entry and checks it against the
// reference's key.
func (c *Cursor) TakeSequential(ref request.AccountRef) (ledger.GrantedAccount, error) {
	if c.pos >= len(c.table) {
		return ledger.GrantedAccount{}, fmt.Errorf("%w: account table exhausted at position %d", ErrAccountMismatch, c.pos)
	}
	entry := c.table[c.pos]
	if !entry.Key.Equals(ref.Key) {
		return ledger.GrantedAccount{}, fmt.Errorf("%w: reference %s does not match table entry %s at position %d",
			ErrAccountMismatch, ref.Key, entry.Key, c.pos)
	}
	c.used[c.pos] = true
	c.pos++
	return entry, nil
}

// TakeIndexed resolves a table entry by index. Range was checked at decode
// time; the re-check here keeps the cursor safe against hand-built requests.
func (c *Cursor) TakeIndexed(ref request.AccountRef) (ledger.GrantedAccount, error) {
	if int(ref.Index) >= len(c.table) {
		return ledger.GrantedAccount{}, fmt.Errorf("%w: index %d, table has %d entries", ErrAccountMismatch, ref.Index, len(c.table))
	}
	c.used[ref.Index] = true
	return c.table[ref.Index], nil
}

// AssertExhausted fails if any table entry was never consumed by a leg.
func (c *Cursor) AssertExhausted() error {
	for i, u := range c.used {
		if !u {
			return fmt.Errorf("%w: unconsumed account %s at position %d", ErrAccountMismatch, c.table[i].Key, i)
		}
	}
	return nil
}
