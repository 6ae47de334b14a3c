package engine

import (
	"github.com/gagliardetto/solana-go"

	"github.com/thepaypay420/racepump/internal/ledger"
)

// balanceSnapshot pins a destination token balance before a leg so the
// realized increase can be checked afterwards. It lives for one leg only.
type balanceSnapshot struct {
	account solana.PublicKey
	before  uint64
}

func snapshotBalance(rt ledger.Runtime, account solana.PublicKey) (balanceSnapshot, error) {
	bal, err := rt.TokenBalance(account)
	if err != nil {
		return balanceSnapshot{}, err
	}
	return balanceSnapshot{account: account, before: bal}, nil
}

// delta re-reads the balance and returns the increase. A decrease is an
// accounting-invariant violation, not slippage, and is reported through
// accountingErr so the caller can attribute it to the right leg.
func (s balanceSnapshot) delta(rt ledger.Runtime, accountingErr error) (uint64, error) {
	after, err := rt.TokenBalance(s.account)
	if err != nil {
		return 0, err
	}
	if after < s.before {
		return 0, accountingErr
	}
	return after - s.before, nil
}
