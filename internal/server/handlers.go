package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/thepaypay420/racepump/internal/engine"
	"github.com/thepaypay420/racepump/internal/events"
	"github.com/thepaypay420/racepump/internal/feeconfig"
	"github.com/thepaypay420/racepump/internal/ledger"
	"github.com/thepaypay420/racepump/internal/request"
	"github.com/thepaypay420/racepump/internal/rpc"
)

// Handlers contains all dependencies for API endpoint handlers.
type Handlers struct {
	Engine  *engine.Engine
	Store   *feeconfig.Store
	Sandbox *ledger.Ledger
	Chain   *rpc.Client // optional; enables seeding the sandbox from live state
	Sink    events.Sink
	Logger  *logrus.Logger
	DevMode bool

	// The sandbox ledger serializes whole transactions the way the host
	// chain write-locks accounts; one lock stands in for that here.
	mu sync.Mutex
}

func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// Health returns a simple health check.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// GetConfig returns the current fee configuration.
func (h *Handlers) GetConfig(c echo.Context) error {
	cfg, err := h.Store.Load()
	if err != nil {
		return h.err(c, http.StatusNotFound, "config not initialized", nil)
	}
	return c.JSON(http.StatusOK, h.configResponse(cfg))
}

// InitConfig creates the fee configuration. Runs once per deployment.
func (h *Handlers) InitConfig(c echo.Context) error {
	var req InitConfigRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	authority, err := parseKey(req.Authority)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid authority", err.Error())
	}
	treasury, err := parseKey(req.TreasuryWallet)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid treasury wallet", err.Error())
	}

	h.mu.Lock()
	cfg, err := h.Store.Initialize(feeconfig.InitializeParams{
		Authority:        authority,
		TreasuryWallet:   treasury,
		ReflectionFeeBps: req.ReflectionFeeBps,
		TreasuryFeeBps:   req.TreasuryFeeBps,
	})
	h.mu.Unlock()
	if err != nil {
		switch {
		case errors.Is(err, feeconfig.ErrAlreadyInitialized):
			return h.err(c, http.StatusConflict, "config already initialized", nil)
		case errors.Is(err, feeconfig.ErrInvalidFeeConfig):
			return h.err(c, http.StatusBadRequest, "invalid fee configuration", err.Error())
		default:
			return h.err(c, http.StatusInternalServerError, "initialize failed", err.Error())
		}
	}

	h.publishConfig(c.Request().Context(), cfg)
	return c.JSON(http.StatusCreated, h.configResponse(cfg))
}

// UpdateConfig applies a partial update on behalf of the stated authority.
func (h *Handlers) UpdateConfig(c echo.Context) error {
	var req UpdateConfigRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	authority, err := parseKey(req.Authority)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid authority", err.Error())
	}

	params := feeconfig.UpdateParams{
		ReflectionFeeBps: req.ReflectionFeeBps,
		TreasuryFeeBps:   req.TreasuryFeeBps,
	}
	if req.NewAuthority != nil {
		k, err := parseKey(*req.NewAuthority)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid new authority", err.Error())
		}
		params.NewAuthority = &k
	}
	if req.TreasuryWallet != nil {
		k, err := parseKey(*req.TreasuryWallet)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid treasury wallet", err.Error())
		}
		params.TreasuryWallet = &k
	}

	h.mu.Lock()
	cfg, err := h.Store.Update(ledger.GrantedAccount{Key: authority, IsSigner: true}, params)
	h.mu.Unlock()
	if err != nil {
		switch {
		case errors.Is(err, feeconfig.ErrUnauthorized):
			return h.err(c, http.StatusForbidden, "unauthorized", nil)
		case errors.Is(err, feeconfig.ErrInvalidFeeConfig):
			return h.err(c, http.StatusBadRequest, "invalid fee configuration", err.Error())
		case errors.Is(err, feeconfig.ErrNotInitialized):
			return h.err(c, http.StatusNotFound, "config not initialized", nil)
		default:
			return h.err(c, http.StatusInternalServerError, "update failed", err.Error())
		}
	}

	h.publishConfig(c.Request().Context(), cfg)
	return c.JSON(http.StatusOK, h.configResponse(cfg))
}

// DecodeSwap decodes an encoded swap request without executing it.
func (h *Handlers) DecodeSwap(c echo.Context) error {
	var req DecodeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	raw, err := base58.Decode(req.Request)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "request is not valid base58", nil)
	}
	decoded, err := request.Decode(raw, h.Engine.Params().Encoding, req.TableLen)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid request", err.Error())
	}
	return c.JSON(http.StatusOK, decodeResponse(decoded))
}

// ExecuteSwap runs an encoded swap request in the sandbox ledger. The whole
// pipeline executes atomically: a failed swap leaves the sandbox untouched.
func (h *Handlers) ExecuteSwap(c echo.Context) error {
	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	raw, err := base58.Decode(req.Request)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "request is not valid base58", nil)
	}

	table := make([]ledger.GrantedAccount, 0, len(req.Table))
	for _, entry := range req.Table {
		k, err := parseKey(entry.Key)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid table entry", err.Error())
		}
		table = append(table, ledger.GrantedAccount{Key: k, IsSigner: entry.Signer, IsWritable: entry.Writable})
	}

	decoded, err := request.Decode(raw, h.Engine.Params().Encoding, len(table))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid request", err.Error())
	}

	acc, err := h.namedAccounts(req.Accounts, table)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid accounts", err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	var ev *events.SwapExecuted
	h.mu.Lock()
	execErr := h.Sandbox.ExecuteAtomic(func(tx *ledger.Ledger) error {
		var err error
		ev, err = h.Engine.Execute(ctx, tx, decoded, acc)
		return err
	})
	h.mu.Unlock()
	if execErr != nil {
		return h.err(c, http.StatusUnprocessableEntity, execErr.Error(), nil)
	}

	return c.JSON(http.StatusOK, ExecuteResponse{
		User:          ev.User.String(),
		AmountIn:      ev.AmountIn,
		MainOut:       ev.MainOut,
		ReflectionOut: ev.ReflectionOut,
		TreasuryFee:   ev.TreasuryFee,
	})
}

// SeedSandbox copies live chain accounts into the sandbox ledger.
func (h *Handlers) SeedSandbox(c echo.Context) error {
	if h.Chain == nil {
		return h.err(c, http.StatusServiceUnavailable, "no chain RPC configured", nil)
	}
	var req SeedRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	keys := make([]solana.PublicKey, 0, len(req.Keys))
	for _, s := range req.Keys {
		k, err := parseKey(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid key", err.Error())
		}
		keys = append(keys, k)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	h.mu.Lock()
	err := h.Chain.SeedLedger(ctx, h.Sandbox, keys)
	h.mu.Unlock()
	if err != nil {
		return h.err(c, http.StatusBadGateway, "seed failed", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"seeded": len(keys)})
}

func (h *Handlers) namedAccounts(in NamedAccounts, table []ledger.GrantedAccount) (engine.Accounts, error) {
	var acc engine.Accounts
	user, err := parseKey(in.User)
	if err != nil {
		return acc, err
	}
	// The HTTP surface vouches for the user the way the outer transaction
	// signature would; the engine still enforces everything else.
	acc.User = ledger.GrantedAccount{Key: user, IsSigner: true, IsWritable: true}
	acc.Table = table

	optional := []struct {
		src string
		dst *solana.PublicKey
	}{
		{in.UserInput, &acc.UserInput},
		{in.InputMint, &acc.InputMint},
		{in.InputTokenProgram, &acc.InputTokenProgram},
		{in.InputVault, &acc.InputVault},
		{in.UserMainDestination, &acc.UserMainDestination},
		{in.UserReflectionDestination, &acc.UserReflectionDestination},
	}
	for _, f := range optional {
		if f.src == "" {
			continue
		}
		k, err := parseKey(f.src)
		if err != nil {
			return acc, err
		}
		*f.dst = k
	}
	return acc, nil
}

func (h *Handlers) publishConfig(ctx context.Context, cfg *feeconfig.Config) {
	if h.Sink == nil {
		return
	}
	_ = h.Sink.PublishConfig(ctx, &events.ConfigUpdated{
		Authority:        cfg.Authority,
		TreasuryWallet:   cfg.TreasuryWallet,
		ReflectionFeeBps: cfg.ReflectionFeeBps,
		TreasuryFeeBps:   cfg.TreasuryFeeBps,
		Timestamp:        time.Now().UTC(),
	})
}

func (h *Handlers) configResponse(cfg *feeconfig.Config) ConfigResponse {
	return ConfigResponse{
		ConfigKey:        h.Store.ConfigKey().String(),
		Authority:        cfg.Authority.String(),
		TreasuryWallet:   cfg.TreasuryWallet.String(),
		ReflectionFeeBps: cfg.ReflectionFeeBps,
		TreasuryFeeBps:   cfg.TreasuryFeeBps,
	}
}

func decodeResponse(req *request.SwapRequest) DecodeResponse {
	return DecodeResponse{
		InputMint:         req.InputMint.String(),
		MainOutputMint:    req.MainOutputMint.String(),
		ReflectionMint:    req.ReflectionMint.String(),
		AmountIn:          req.AmountIn,
		MinMainOut:        req.MinMainOut,
		MinReflectionOut:  req.MinReflectionOut,
		DisableReflection: req.DisableReflection,
		MainLeg:           decodedLeg(req.MainLeg, req.Encoding),
		ReflectionLeg:     decodedLeg(req.ReflectionLeg, req.Encoding),
	}
}

func decodedLeg(call *request.OpaqueCall, enc request.Encoding) *DecodedLeg {
	if call == nil {
		return nil
	}
	refs := make([]DecodedRef, len(call.Refs))
	for i, r := range call.Refs {
		ref := DecodedRef{
			Index:             r.Index,
			RequestedSigner:   r.RequestedSigner,
			RequestedWritable: r.RequestedWritable,
		}
		if enc == request.EncodingFull {
			ref.Key = r.Key.String()
		}
		refs[i] = ref
	}
	return &DecodedLeg{
		AccountCount: call.AccountCount,
		Refs:         refs,
		PayloadLen:   len(call.Payload),
	}
}

func parseKey(s string) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(s)
}
