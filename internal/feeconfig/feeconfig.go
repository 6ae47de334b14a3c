package feeconfig

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"github.com/thepaypay420/racepump/internal/constants"
)

var (
	ErrInvalidFeeConfig   = errors.New("invalid fee configuration")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotInitialized     = errors.New("config not initialized")
	ErrAlreadyInitialized = errors.New("config already initialized")
)

// RecordSize is the fixed width of the serialized config record:
// authority (32) + treasury wallet (32) + two u16 bps fields + two bumps.
const RecordSize = 32 + 32 + 2 + 2 + 1 + 1

// Config holds the protocol fee parameters. It is written once by
// Initialize, mutated only by the holder of Authority, and read-only to the
// swap engine.
type Config struct {
	Authority        solana.PublicKey
	TreasuryWallet   solana.PublicKey
	ReflectionFeeBps uint16
	TreasuryFeeBps   uint16
	Bump             uint8
	AuthorityBump    uint8
}

// Validate enforces the rate invariants: each field capped at MaxFeeBps and
// the sum strictly below the denominator.
func (c *Config) Validate() error {
	if c.ReflectionFeeBps > constants.MaxFeeBps {
		return fmt.Errorf("%w: reflection fee %d bps exceeds %d", ErrInvalidFeeConfig, c.ReflectionFeeBps, constants.MaxFeeBps)
	}
	if c.TreasuryFeeBps > constants.MaxFeeBps {
		return fmt.Errorf("%w: treasury fee %d bps exceeds %d", ErrInvalidFeeConfig, c.TreasuryFeeBps, constants.MaxFeeBps)
	}
	if uint32(c.ReflectionFeeBps)+uint32(c.TreasuryFeeBps) >= constants.FeeDenominator {
		return fmt.Errorf("%w: fee sum %d bps not below denominator", ErrInvalidFeeConfig, uint32(c.ReflectionFeeBps)+uint32(c.TreasuryFeeBps))
	}
	return nil
}

// Marshal serializes the config to its fixed-width borsh record.
func (c *Config) Marshal() ([]byte, error) {
	data, err := borsh.Serialize(*c)
	if err != nil {
		return nil, fmt.Errorf("serialize config: %w", err)
	}
	if len(data) != RecordSize {
		return nil, fmt.Errorf("config record is %d bytes, want %d", len(data), RecordSize)
	}
	return data, nil
}

// Unmarshal decodes a fixed-width config record, failing closed on any
// undersized input.
func Unmarshal(data []byte) (*Config, error) {
	if len(data) < RecordSize {
		return nil, fmt.Errorf("config record too short: %d bytes, want %d", len(data), RecordSize)
	}
	var c Config
	if err := borsh.Deserialize(&c, data[:RecordSize]); err != nil {
		return nil, fmt.Errorf("deserialize config: %w", err)
	}
	return &c, nil
}

// DeriveConfigAddress computes the program-derived address of the config
// record for a deployment of the program.
func DeriveConfigAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(constants.ConfigSeed)},
		programID,
	)
}

// DeriveAuthority computes the swap authority for a config record. The
// address is never stored; it exists only as the nominal owner of transient
// holding accounts and must never sign a forwarded call.
func DeriveAuthority(configKey, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(constants.AuthoritySeed), configKey.Bytes()},
		programID,
	)
}
