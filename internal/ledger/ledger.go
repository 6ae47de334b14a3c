package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Account is one ledger account as the runtime sees it: owner program,
// lamport balance and raw data.
type Account struct {
	Key      solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// GrantedAccount is an entry of a transaction's account table together with
// the signer/writable privileges the transaction actually conferred on it.
// These bits are the only authoritative source of privilege; anything a
// request claims about its accounts is advisory at best.
type GrantedAccount struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Runtime is the host surface the engine runs against. Production execution
// and tests differ only in which Runtime they hand the engine.
type Runtime interface {
	// Account returns the current state of an account, or an error if the
	// account does not exist.
	Account(key solana.PublicKey) (*Account, error)

	// TokenBalance reads the amount field of an SPL token account.
	TokenBalance(key solana.PublicKey) (uint64, error)

	// TransferLamports moves native value between two accounts.
	TransferLamports(from, to solana.PublicKey, lamports uint64) error

	// TransferToken moves tokens between two token accounts of the same
	// mint, verifying the supplied decimals against the mint.
	TransferToken(from, to solana.PublicKey, amount uint64, decimals uint8) error

	// Invoke executes an opaque instruction against whatever program it
	// targets. The caller never interprets the payload.
	Invoke(ctx context.Context, ix solana.Instruction) error
}

// ProgramHandler executes one instruction on behalf of a registered program.
type ProgramHandler func(l *Ledger, ix solana.Instruction) error

// Ledger is an in-memory Runtime with all-or-nothing transaction semantics.
// It backs the engine's tests and the service's sandboxed execution path.
type Ledger struct {
	accounts map[solana.PublicKey]*Account
	programs map[solana.PublicKey]ProgramHandler
}

func New() *Ledger {
	return &Ledger{
		accounts: make(map[solana.PublicKey]*Account),
		programs: make(map[solana.PublicKey]ProgramHandler),
	}
}

// RegisterProgram installs a handler invoked for instructions targeting id.
func (l *Ledger) RegisterProgram(id solana.PublicKey, h ProgramHandler) {
	l.programs[id] = h
}

// SetAccount installs or replaces an account.
func (l *Ledger) SetAccount(acc *Account) {
	cp := *acc
	cp.Data = append([]byte(nil), acc.Data...)
	l.accounts[acc.Key] = &cp
}

func (l *Ledger) Account(key solana.PublicKey) (*Account, error) {
	acc, ok := l.accounts[key]
	if !ok {
		return nil, fmt.Errorf("account %s not found", key)
	}
	return acc, nil
}

func (l *Ledger) TokenBalance(key solana.PublicKey) (uint64, error) {
	acc, err := l.Account(key)
	if err != nil {
		return 0, err
	}
	ta, err := ParseTokenAccount(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("account %s: %w", key, err)
	}
	return ta.Amount, nil
}

func (l *Ledger) TransferLamports(from, to solana.PublicKey, lamports uint64) error {
	src, err := l.Account(from)
	if err != nil {
		return err
	}
	dst, err := l.Account(to)
	if err != nil {
		return err
	}
	if src.Lamports < lamports {
		return fmt.Errorf("insufficient lamports: have %d, need %d", src.Lamports, lamports)
	}
	src.Lamports -= lamports
	dst.Lamports += lamports
	return nil
}

func (l *Ledger) TransferToken(from, to solana.PublicKey, amount uint64, decimals uint8) error {
	src, err := l.Account(from)
	if err != nil {
		return err
	}
	dst, err := l.Account(to)
	if err != nil {
		return err
	}
	srcTA, err := ParseTokenAccount(src.Data)
	if err != nil {
		return fmt.Errorf("account %s: %w", from, err)
	}
	dstTA, err := ParseTokenAccount(dst.Data)
	if err != nil {
		return fmt.Errorf("account %s: %w", to, err)
	}
	if !srcTA.Mint.Equals(dstTA.Mint) {
		return fmt.Errorf("mint mismatch: %s vs %s", srcTA.Mint, dstTA.Mint)
	}
	if mintAcc, ok := l.accounts[srcTA.Mint]; ok {
		mint, err := ParseMint(mintAcc.Data)
		if err != nil {
			return fmt.Errorf("mint %s: %w", srcTA.Mint, err)
		}
		if mint.Decimals != decimals {
			return fmt.Errorf("decimals mismatch: mint has %d, caller supplied %d", mint.Decimals, decimals)
		}
	}
	if srcTA.Amount < amount {
		return fmt.Errorf("insufficient token balance: have %d, need %d", srcTA.Amount, amount)
	}
	PutTokenAmount(src.Data, srcTA.Amount-amount)
	PutTokenAmount(dst.Data, dstTA.Amount+amount)
	return nil
}

func (l *Ledger) Invoke(ctx context.Context, ix solana.Instruction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, ok := l.programs[ix.ProgramID()]
	if !ok {
		return fmt.Errorf("no program registered at %s", ix.ProgramID())
	}
	return h(l, ix)
}

// ExecuteAtomic runs fn against a private copy of the ledger. The copy is
// committed only if fn returns nil; on error every effect fn performed is
// discarded, matching the host chain's transaction atomicity.
func (l *Ledger) ExecuteAtomic(fn func(tx *Ledger) error) error {
	tx := l.snapshot()
	if err := fn(tx); err != nil {
		return err
	}
	l.accounts = tx.accounts
	return nil
}

func (l *Ledger) snapshot() *Ledger {
	accounts := make(map[solana.PublicKey]*Account, len(l.accounts))
	for k, v := range l.accounts {
		cp := *v
		cp.Data = append([]byte(nil), v.Data...)
		accounts[k] = &cp
	}
	return &Ledger{accounts: accounts, programs: l.programs}
}

var _ Runtime = (*Ledger)(nil)
