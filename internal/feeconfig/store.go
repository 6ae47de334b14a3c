package feeconfig

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/thepaypay420/racepump/internal/ledger"
)

// AccountBackend is the slice of the ledger the store needs: record reads
// and whole-account writes.
type AccountBackend interface {
	Account(key solana.PublicKey) (*ledger.Account, error)
	SetAccount(acc *ledger.Account)
}

// Store persists the config record in a program-derived ledger account.
type Store struct {
	backend   AccountBackend
	programID solana.PublicKey
	configKey solana.PublicKey
	bump      uint8
}

func NewStore(backend AccountBackend, programID solana.PublicKey) (*Store, error) {
	configKey, bump, err := DeriveConfigAddress(programID)
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}
	return &Store{
		backend:   backend,
		programID: programID,
		configKey: configKey,
		bump:      bump,
	}, nil
}

// ConfigKey returns the derived address the record lives at.
func (s *Store) ConfigKey() solana.PublicKey {
	return s.configKey
}

// Load reads and decodes the current config record.
func (s *Store) Load() (*Config, error) {
	acc, err := s.backend.Account(s.configKey)
	if err != nil {
		return nil, ErrNotInitialized
	}
	return Unmarshal(acc.Data)
}

type InitializeParams struct {
	Authority        solana.PublicKey
	TreasuryWallet   solana.PublicKey
	ReflectionFeeBps uint16
	TreasuryFeeBps   uint16
}

// Initialize creates the config record. It may run once per deployment.
func (s *Store) Initialize(params InitializeParams) (*Config, error) {
	if _, err := s.backend.Account(s.configKey); err == nil {
		return nil, ErrAlreadyInitialized
	}

	_, authorityBump, err := DeriveAuthority(s.configKey, s.programID)
	if err != nil {
		return nil, fmt.Errorf("derive authority: %w", err)
	}

	cfg := &Config{
		Authority:        params.Authority,
		TreasuryWallet:   params.TreasuryWallet,
		ReflectionFeeBps: params.ReflectionFeeBps,
		TreasuryFeeBps:   params.TreasuryFeeBps,
		Bump:             s.bump,
		AuthorityBump:    authorityBump,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.write(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateParams carries partial updates; nil fields keep their current value.
type UpdateParams struct {
	NewAuthority     *solana.PublicKey
	TreasuryWallet   *solana.PublicKey
	ReflectionFeeBps *uint16
	TreasuryFeeBps   *uint16
}

// Update mutates the config. The caller must present the configured
// authority as an actual signer of the outer call; a rejected update leaves
// the stored record untouched.
func (s *Store) Update(by ledger.GrantedAccount, params UpdateParams) (*Config, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	if !by.IsSigner || !by.Key.Equals(cfg.Authority) {
		return nil, ErrUnauthorized
	}

	next := *cfg
	if params.NewAuthority != nil {
		next.Authority = *params.NewAuthority
	}
	if params.TreasuryWallet != nil {
		next.TreasuryWallet = *params.TreasuryWallet
	}
	if params.ReflectionFeeBps != nil {
		next.ReflectionFeeBps = *params.ReflectionFeeBps
	}
	if params.TreasuryFeeBps != nil {
		next.TreasuryFeeBps = *params.TreasuryFeeBps
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := s.write(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) write(cfg *Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	s.backend.SetAccount(&ledger.Account{
		Key:   s.configKey,
		Owner: s.programID,
		Data:  data,
	})
	return nil
}
