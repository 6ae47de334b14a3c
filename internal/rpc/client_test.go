package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thepaypay420/racepump/internal/ledger"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func accountInfoBody(t *testing.T, data []byte, owner string, lamports uint64) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"result": map[string]any{
			"value": map[string]any{
				"data":     []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"owner":    owner,
				"lamports": lamports,
			},
		},
	})
	require.NoError(t, err)
	return raw
}

func TestGetAccount(t *testing.T) {
	key := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	owner := ledger.TokenProgramID

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getAccountInfo", req["method"])

		params, ok := req["params"].([]any)
		require.True(t, ok)
		assert.Equal(t, key.String(), params[0])

		_, _ = w.Write(accountInfoBody(t, []byte{1, 2, 3}, owner.String(), 42))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: quietLogger()})

	acc, err := c.GetAccount(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, key, acc.Key)
	assert.Equal(t, owner, acc.Owner)
	assert.Equal(t, uint64(42), acc.Lamports)
	assert.Equal(t, []byte{1, 2, 3}, acc.Data)
}

func TestGetAccountMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"value":null}}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: quietLogger()})

	_, err := c.GetAccount(context.Background(), solana.PublicKey{})
	assert.Error(t, err)
}

func TestCallRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":"ok"}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		Logger:       quietLogger(),
	})

	var result string
	require.NoError(t, c.Call(context.Background(), "ping", nil, &result))
	assert.Equal(t, "ok", result)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Logger:       quietLogger(),
	})

	err := c.Call(context.Background(), "ping", nil, nil)
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestCallSurfacesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bad params"}}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: quietLogger()})

	err := c.Call(context.Background(), "ping", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad params")
}

func TestSeedLedger(t *testing.T) {
	owner := ledger.TokenProgramID
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(accountInfoBody(t, ledger.NewMintData(6, 100), owner.String(), 7))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: quietLogger()})

	l := ledger.New()
	key := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	require.NoError(t, c.SeedLedger(context.Background(), l, []solana.PublicKey{key}))

	acc, err := l.Account(key)
	require.NoError(t, err)
	assert.Equal(t, owner, acc.Owner)
	assert.Equal(t, uint64(7), acc.Lamports)
}
