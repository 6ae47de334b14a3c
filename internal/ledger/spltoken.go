package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SPL token program ids. Output accounts may live under either program.
var (
	TokenProgramID     = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// Fixed SPL record sizes.
const (
	MintSize         = 82
	TokenAccountSize = 165
)

// Mint record byte layout:
//
//	[0:36]  mint authority (COption<Pubkey>)
//	[36:44] supply (u64 LE)
//	[44]    decimals
//	[45]    is_initialized
//	[46:82] freeze authority (COption<Pubkey>)
type Mint struct {
	Supply   uint64
	Decimals uint8
}

// ParseMint decodes an SPL mint record. Undersized input is rejected rather
// than indexed into.
func ParseMint(data []byte) (*Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("mint record too short: %d bytes, want %d", len(data), MintSize)
	}
	return &Mint{
		Supply:   binary.LittleEndian.Uint64(data[36:44]),
		Decimals: data[44],
	}, nil
}

// TokenAccount record byte layout (prefix):
//
//	[0:32]  mint
//	[32:64] owner
//	[64:72] amount (u64 LE)
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// ParseTokenAccount decodes an SPL token account record.
func ParseTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account record too short: %d bytes, want %d", len(data), TokenAccountSize)
	}
	var ta TokenAccount
	copy(ta.Mint[:], data[0:32])
	copy(ta.Owner[:], data[32:64])
	ta.Amount = binary.LittleEndian.Uint64(data[64:72])
	return &ta, nil
}

// PutTokenAmount rewrites the amount field in place. The caller must have
// validated the record size already.
func PutTokenAmount(data []byte, amount uint64) {
	binary.LittleEndian.PutUint64(data[64:72], amount)
}

// NewMintData builds a minimal mint record with the given decimals.
func NewMintData(decimals uint8, supply uint64) []byte {
	data := make([]byte, MintSize)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1 // initialized
	return data
}

// NewTokenAccountData builds a token account record for (mint, owner).
func NewTokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, TokenAccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1 // state = initialized
	return data
}
