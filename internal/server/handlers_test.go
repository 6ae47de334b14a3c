package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thepaypay420/racepump/internal/engine"
	"github.com/thepaypay420/racepump/internal/feeconfig"
	"github.com/thepaypay420/racepump/internal/ledger"
	"github.com/thepaypay420/racepump/internal/request"
)

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = 0x9d
	k[31] = b
	return k
}

type harness struct {
	h   *Handlers
	e   *echo.Echo
	ldg *ledger.Ledger

	programID  solana.PublicKey
	aggregator solana.PublicKey
	admin      solana.PublicKey
	treasury   solana.PublicKey
	user       solana.PublicKey
	mainMint   solana.PublicKey
	mainDest   solana.PublicKey
}

func newHarness(t *testing.T, cfg ServerConfig) *harness {
	t.Helper()

	hn := &harness{
		ldg:        ledger.New(),
		programID:  testKey(0x10),
		aggregator: testKey(0x11),
		admin:      testKey(0x12),
		treasury:   testKey(0x13),
		user:       testKey(0x20),
		mainMint:   testKey(0x21),
		mainDest:   testKey(0x22),
	}
	hn.ldg.RegisterProgram(hn.aggregator, ledger.FillProgram())
	hn.ldg.SetAccount(&ledger.Account{Key: hn.user, Lamports: 1_000_000_000})
	hn.ldg.SetAccount(&ledger.Account{Key: hn.treasury})
	hn.ldg.SetAccount(&ledger.Account{
		Key:   hn.mainDest,
		Owner: ledger.TokenProgramID,
		Data:  ledger.NewTokenAccountData(hn.mainMint, hn.user, 0),
	})

	store, err := feeconfig.NewStore(hn.ldg, hn.programID)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	eng := engine.New(engine.Params{
		ProgramID:  hn.programID,
		Aggregator: hn.aggregator,
		Encoding:   request.EncodingFull,
		Mode:       engine.AuthorityDirect,
	}, store, nil, log)

	hn.h = &Handlers{
		Engine:  eng,
		Store:   store,
		Sandbox: hn.ldg,
		Logger:  log,
	}

	hn.e = echo.New()
	RegisterRoutes(hn.e, hn.h, cfg)
	return hn
}

func (hn *harness) initConfig(t *testing.T, treasuryBps uint16) {
	t.Helper()
	_, err := hn.h.Store.Initialize(feeconfig.InitializeParams{
		Authority:      hn.admin,
		TreasuryWallet: hn.treasury,
		TreasuryFeeBps: treasuryBps,
	})
	require.NoError(t, err)
}

func (hn *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	hn.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	hn := newHarness(t, ServerConfig{})

	rec := hn.do(t, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[HealthResponse](t, rec).OK)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	hn := newHarness(t, ServerConfig{})

	rec := hn.do(t, http.MethodGet, "/v1/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeBody[ErrorResponse](t, rec).Code)
}

func TestConfigLifecycle(t *testing.T) {
	hn := newHarness(t, ServerConfig{})

	rec := hn.do(t, http.MethodGet, "/v1/config", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	init := InitConfigRequest{
		Authority:        hn.admin.String(),
		TreasuryWallet:   hn.treasury.String(),
		ReflectionFeeBps: 100,
		TreasuryFeeBps:   20,
	}
	rec = hn.do(t, http.MethodPost, "/v1/config", init)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = hn.do(t, http.MethodGet, "/v1/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[ConfigResponse](t, rec)
	assert.Equal(t, hn.admin.String(), got.Authority)
	assert.Equal(t, uint16(100), got.ReflectionFeeBps)
	assert.Equal(t, uint16(20), got.TreasuryFeeBps)

	rec = hn.do(t, http.MethodPost, "/v1/config", init)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInitConfigRejectsBadRates(t *testing.T) {
	hn := newHarness(t, ServerConfig{})

	rec := hn.do(t, http.MethodPost, "/v1/config", InitConfigRequest{
		Authority:      hn.admin.String(),
		TreasuryWallet: hn.treasury.String(),
		TreasuryFeeBps: 1_001,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateConfig(t *testing.T) {
	hn := newHarness(t, ServerConfig{})
	hn.initConfig(t, 20)

	bps := uint16(50)
	rec := hn.do(t, http.MethodPut, "/v1/config", UpdateConfigRequest{
		Authority:      hn.admin.String(),
		TreasuryFeeBps: &bps,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint16(50), decodeBody[ConfigResponse](t, rec).TreasuryFeeBps)

	// Only the configured authority may update.
	rec = hn.do(t, http.MethodPut, "/v1/config", UpdateConfigRequest{
		Authority:      hn.user.String(),
		TreasuryFeeBps: &bps,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	over := uint16(1_001)
	rec = hn.do(t, http.MethodPut, "/v1/config", UpdateConfigRequest{
		Authority:      hn.admin.String(),
		TreasuryFeeBps: &over,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func (hn *harness) encodedRequest(t *testing.T, amount, fill, minMainOut uint64) string {
	t.Helper()
	req := &request.SwapRequest{
		InputMint:      testKey(0x31),
		MainOutputMint: hn.mainMint,
		AmountIn:       amount,
		MinMainOut:     minMainOut,
		MainLeg: &request.OpaqueCall{
			AccountCount: 1,
			Refs:         []request.AccountRef{{Key: hn.mainDest, RequestedWritable: true}},
			Payload:      ledger.FillPayload(0, fill),
		},
		Encoding: request.EncodingFull,
	}
	raw, err := request.Encode(req, request.EncodingFull)
	require.NoError(t, err)
	return base58.Encode(raw)
}

func TestDecodeSwap(t *testing.T) {
	hn := newHarness(t, ServerConfig{})

	rec := hn.do(t, http.MethodPost, "/v1/swap/decode", DecodeRequest{
		Request: hn.encodedRequest(t, 1_000_000, 950_000, 900_000),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[DecodeResponse](t, rec)
	assert.Equal(t, uint64(1_000_000), got.AmountIn)
	assert.Equal(t, hn.mainMint.String(), got.MainOutputMint)
	require.NotNil(t, got.MainLeg)
	assert.Equal(t, uint16(1), got.MainLeg.AccountCount)
	assert.Nil(t, got.ReflectionLeg)
}

func TestDecodeSwapRejectsBadInput(t *testing.T) {
	hn := newHarness(t, ServerConfig{})

	rec := hn.do(t, http.MethodPost, "/v1/swap/decode", DecodeRequest{Request: "not-base58!!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = hn.do(t, http.MethodPost, "/v1/swap/decode", DecodeRequest{
		Request: base58.Encode([]byte{1, 2, 3}),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteSwap(t *testing.T) {
	hn := newHarness(t, ServerConfig{})
	hn.initConfig(t, 20)

	exec := ExecuteRequest{
		Request: hn.encodedRequest(t, 1_000_000, 950_000, 900_000),
		Accounts: NamedAccounts{
			User:                hn.user.String(),
			UserMainDestination: hn.mainDest.String(),
		},
		Table: []TableEntry{{Key: hn.mainDest.String(), Writable: true}},
	}
	rec := hn.do(t, http.MethodPost, "/v1/swap/execute", exec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[ExecuteResponse](t, rec)
	assert.Equal(t, hn.user.String(), got.User)
	assert.Equal(t, uint64(950_000), got.MainOut)
	assert.Equal(t, uint64(2_000), got.TreasuryFee)

	bal, err := hn.ldg.TokenBalance(hn.mainDest)
	require.NoError(t, err)
	assert.Equal(t, uint64(950_000), bal, "committed swap persists in the sandbox")
}

func TestExecuteSwapFailureLeavesSandbox(t *testing.T) {
	hn := newHarness(t, ServerConfig{})
	hn.initConfig(t, 20)

	exec := ExecuteRequest{
		// Fill below min-out so the swap aborts after the fee transfer.
		Request: hn.encodedRequest(t, 1_000_000, 1, 900_000),
		Accounts: NamedAccounts{
			User:                hn.user.String(),
			UserMainDestination: hn.mainDest.String(),
		},
		Table: []TableEntry{{Key: hn.mainDest.String(), Writable: true}},
	}
	rec := hn.do(t, http.MethodPost, "/v1/swap/execute", exec)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	bal, err := hn.ldg.TokenBalance(hn.mainDest)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)

	treasury, err := hn.ldg.Account(hn.treasury)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), treasury.Lamports, "aborted swap pays no fee")
}

func TestExecuteSwapRejectsBadTableEntry(t *testing.T) {
	hn := newHarness(t, ServerConfig{})
	hn.initConfig(t, 20)

	exec := ExecuteRequest{
		Request:  hn.encodedRequest(t, 1_000_000, 950_000, 0),
		Accounts: NamedAccounts{User: hn.user.String()},
		Table:    []TableEntry{{Key: "garbage"}},
	}
	rec := hn.do(t, http.MethodPost, "/v1/swap/execute", exec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeedSandboxWithoutChain(t *testing.T) {
	hn := newHarness(t, ServerConfig{})

	rec := hn.do(t, http.MethodPost, "/v1/sandbox/seed", SeedRequest{Keys: []string{hn.user.String()}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	hn := newHarness(t, ServerConfig{APIKey: "sekrit"})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	hn.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "sekrit")
	rec = httptest.NewRecorder()
	hn.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
