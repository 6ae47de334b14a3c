package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/thepaypay420/racepump/internal/events"
	"github.com/thepaypay420/racepump/internal/feeconfig"
	"github.com/thepaypay420/racepump/internal/ledger"
	"github.com/thepaypay420/racepump/internal/request"
)

// AuthorityMode selects how the forwarded call is authorized.
type AuthorityMode int

const (
	// AuthorityDirect passes the requester's own signature through: the
	// user keeps custody the whole time and no holding vault exists.
	AuthorityDirect AuthorityMode = iota
	// AuthorityMediated routes the input through a vault owned by the
	// derived swap authority, which is what makes a second "reflection"
	// output leg possible within one atomic transaction.
	AuthorityMediated
)

// Params are the fixed addresses and mode choices an engine is built with.
// They are injected, never read from process globals, so tests can
// substitute alternate programs.
type Params struct {
	ProgramID  solana.PublicKey
	Aggregator solana.PublicKey
	Encoding   request.Encoding
	Mode       AuthorityMode
}

// Engine validates swap requests, reconciles forwarded-call permissions,
// collects protocol fees and dispatches the aggregator legs. One instance
// serves any number of invocations; it holds no per-swap state.
type Engine struct {
	params Params
	store  *feeconfig.Store
	sink   events.Sink
	log    *logrus.Logger
}

func New(params Params, store *feeconfig.Store, sink events.Sink, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{params: params, store: store, sink: sink, log: log}
}

func (e *Engine) Params() Params {
	return e.params
}

// Accounts are the named accounts of the outer call plus the flat table the
// legs draw from. Granted bits on User and Table entries are what the outer
// invocation actually conferred, never what the request asked for.
type Accounts struct {
	User                      ledger.GrantedAccount
	UserInput                 solana.PublicKey
	InputMint                 solana.PublicKey
	InputTokenProgram         solana.PublicKey
	InputVault                solana.PublicKey
	UserMainDestination       solana.PublicKey
	UserReflectionDestination solana.PublicKey
	Table                     []ledger.GrantedAccount
}

// Execute runs one swap to completion against the runtime. Any error aborts
// the whole invocation; the caller is expected to run this inside an atomic
// transaction so partial effects never persist.
func (e *Engine) Execute(ctx context.Context, rt ledger.Runtime, req *request.SwapRequest, acc Accounts) (*events.SwapExecuted, error) {
	log := e.log.WithFields(logrus.Fields{
		"user":      acc.User.Key.String(),
		"amount_in": req.AmountIn,
		"encoding":  req.Encoding.String(),
	})
	log.WithField("state", "decoded").Debug("executing swap")

	if req.AmountIn == 0 {
		return nil, ErrInvalidAmount
	}
	if !acc.User.IsSigner {
		return nil, ErrMissingUserSignature
	}

	cfg, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		derivedAuthority *solana.PublicKey
		decimals         uint8
	)
	if e.params.Mode == AuthorityMediated {
		auth, _, err := feeconfig.DeriveAuthority(e.store.ConfigKey(), e.params.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("derive authority: %w", err)
		}
		derivedAuthority = &auth

		decimals, err = e.checkCustodialBindings(rt, req, acc, auth)
		if err != nil {
			return nil, err
		}
	}

	if err := e.checkDestination(rt, acc.UserMainDestination, req.MainOutputMint, acc.User.Key, ErrInvalidMainAccount); err != nil {
		return nil, err
	}

	reflectionEnabled := !req.DisableReflection && e.params.Mode == AuthorityMediated
	var reflectionAmount uint64
	if reflectionEnabled {
		reflectionAmount = Fee(req.AmountIn, cfg.ReflectionFeeBps)
	}
	reflectionRequired := reflectionEnabled && reflectionAmount > 0

	if reflectionRequired {
		if err := e.checkDestination(rt, acc.UserReflectionDestination, req.ReflectionMint, acc.User.Key, ErrInvalidReflectionAccount); err != nil {
			return nil, err
		}
	}
	if req.AmountIn < reflectionAmount {
		return nil, ErrMathOverflow
	}

	// Fees come out before any leg runs. If a leg fails later the whole
	// transaction aborts and this transfer rolls back with it.
	treasuryFee := Fee(req.AmountIn, cfg.TreasuryFeeBps)
	if treasuryFee > 0 {
		if err := rt.TransferLamports(acc.User.Key, cfg.TreasuryWallet, treasuryFee); err != nil {
			return nil, fmt.Errorf("treasury fee: %w", err)
		}
	}
	log.WithFields(logrus.Fields{"state": "fee_paid", "treasury_fee": treasuryFee}).Debug("treasury fee collected")

	if e.params.Mode == AuthorityMediated {
		if err := rt.TransferToken(acc.UserInput, acc.InputVault, req.AmountIn, decimals); err != nil {
			return nil, fmt.Errorf("input transfer: %w", err)
		}
	}

	cur := NewCursor(acc.Table)

	var reflectionOut uint64
	if reflectionRequired {
		if req.ReflectionLeg == nil {
			return nil, ErrMissingReflectionLeg
		}
		snap, err := snapshotBalance(rt, acc.UserReflectionDestination)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReflectionAccount, err)
		}
		if err := e.dispatchLeg(ctx, rt, req.ReflectionLeg, cur, derivedAuthority); err != nil {
			return nil, err
		}
		delta, err := snap.delta(rt, ErrInvalidReflectionAccounting)
		if err != nil {
			return nil, err
		}
		if delta < req.MinReflectionOut {
			return nil, ErrReflectionBelowMinOut
		}
		// A required leg that silently no-ops is rejected, not skipped.
		if delta == 0 {
			return nil, ErrReflectionBelowMinOut
		}
		reflectionOut = delta
		log.WithFields(logrus.Fields{"state": "reflection_leg_done", "reflection_out": reflectionOut}).Debug("reflection leg verified")
	} else if req.ReflectionLeg != nil {
		return nil, ErrUnexpectedReflectionLeg
	}

	if req.MainLeg == nil {
		return nil, ErrMissingMainLeg
	}
	snap, err := snapshotBalance(rt, acc.UserMainDestination)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMainAccount, err)
	}
	if err := e.dispatchLeg(ctx, rt, req.MainLeg, cur, derivedAuthority); err != nil {
		return nil, err
	}
	mainOut, err := snap.delta(rt, ErrInvalidMainAccounting)
	if err != nil {
		return nil, err
	}
	if mainOut < req.MinMainOut {
		return nil, ErrMainBelowMinOut
	}
	log.WithFields(logrus.Fields{"state": "main_leg_done", "main_out": mainOut}).Debug("main leg verified")

	if err := cur.AssertExhausted(); err != nil {
		return nil, err
	}

	ev := &events.SwapExecuted{
		User:                 acc.User.Key,
		InputMint:            req.InputMint,
		MainOutputMint:       req.MainOutputMint,
		ReflectionOutputMint: req.ReflectionMint,
		AmountIn:             req.AmountIn,
		MainOut:              mainOut,
		ReflectionOut:        reflectionOut,
		TreasuryFee:          treasuryFee,
		Timestamp:            time.Now().UTC(),
	}
	if e.sink != nil {
		_ = e.sink.PublishSwap(ctx, ev)
	}
	log.WithField("state", "committed").Info("swap committed")
	return ev, nil
}

// checkCustodialBindings verifies the custodial variant's account bindings:
// input mint ownership and shape, vault ownership by the derived authority,
// and the user's source account. Returns the mint decimals for the checked
// input transfer.
func (e *Engine) checkCustodialBindings(rt ledger.Runtime, req *request.SwapRequest, acc Accounts, authority solana.PublicKey) (uint8, error) {
	if !acc.InputMint.Equals(req.InputMint) {
		return 0, ErrInvalidInputMint
	}
	mintAcc, err := rt.Account(acc.InputMint)
	if err != nil {
		return 0, ErrInvalidInputMint
	}
	if !mintAcc.Owner.Equals(acc.InputTokenProgram) {
		return 0, ErrInvalidInputMintOwner
	}
	mint, err := ledger.ParseMint(mintAcc.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInputMint, err)
	}

	vaultAcc, err := rt.Account(acc.InputVault)
	if err != nil {
		return 0, ErrInvalidVaultOwner
	}
	vault, err := ledger.ParseTokenAccount(vaultAcc.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidVaultOwner, err)
	}
	if !vault.Owner.Equals(authority) {
		return 0, ErrInvalidVaultOwner
	}
	if !vault.Mint.Equals(req.InputMint) {
		return 0, ErrInvalidVaultMint
	}

	srcAcc, err := rt.Account(acc.UserInput)
	if err != nil {
		return 0, ErrInvalidUserSource
	}
	src, err := ledger.ParseTokenAccount(srcAcc.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidUserSource, err)
	}
	if !src.Mint.Equals(req.InputMint) || !src.Owner.Equals(acc.User.Key) {
		return 0, ErrInvalidUserSource
	}

	return mint.Decimals, nil
}

// checkDestination verifies a destination token account binds to the
// declared mint, belongs to the user, and lives under a known token program.
func (e *Engine) checkDestination(rt ledger.Runtime, dest, mint, user solana.PublicKey, bindErr error) error {
	destAcc, err := rt.Account(dest)
	if err != nil {
		return bindErr
	}
	ta, err := ledger.ParseTokenAccount(destAcc.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", bindErr, err)
	}
	if !ta.Mint.Equals(mint) || !ta.Owner.Equals(user) {
		return bindErr
	}
	if !destAcc.Owner.Equals(ledger.TokenProgramID) && !destAcc.Owner.Equals(ledger.Token2022ProgramID) {
		return bindErr
	}
	return nil
}
