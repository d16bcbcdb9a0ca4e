package solana

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func balanceResponse(amounts ...float64) string {
	type tokenAmount struct {
		Amount   string  `json:"amount"`
		Decimals int     `json:"decimals"`
		UIAmount float64 `json:"uiAmount"`
	}
	value := make([]map[string]interface{}, 0, len(amounts))
	for _, a := range amounts {
		value = append(value, map[string]interface{}{
			"account": map[string]interface{}{
				"data": map[string]interface{}{
					"parsed": map[string]interface{}{
						"info": map[string]interface{}{
							"tokenAmount": tokenAmount{Amount: "1", UIAmount: a},
						},
					},
				},
			},
		})
	}
	b, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result":  map[string]interface{}{"value": value},
	})
	return string(b)
}

func TestTokenBalanceSumsAccounts(t *testing.T) {
	t.Parallel()

	var gotMethod string
	var gotOwner string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("unmarshal rpc request: %v", err)
		}
		gotMethod = req.Method
		if len(req.Params) > 0 {
			gotOwner, _ = req.Params[0].(string)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, balanceResponse(1, 2))
	}))
	defer srv.Close()

	c, err := NewClient(Config{RPCURL: srv.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.TokenBalance(context.Background(), "wallet-x", "mint-y")
	if err != nil {
		t.Fatalf("TokenBalance: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected summed balance 3, got %v", got)
	}
	if gotMethod != "getTokenAccountsByOwner" {
		t.Fatalf("unexpected rpc method: %s", gotMethod)
	}
	if gotOwner != "wallet-x" {
		t.Fatalf("unexpected owner param: %s", gotOwner)
	}
}

func TestTokenBalanceNoAccounts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, balanceResponse())
	}))
	defer srv.Close()

	c, err := NewClient(Config{RPCURL: srv.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.TokenBalance(context.Background(), "wallet-x", "mint-y")
	if err != nil {
		t.Fatalf("TokenBalance: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero balance, got %v", got)
	}
}

func TestTokenBalanceRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			http.Error(w, "node busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, balanceResponse(1))
	}))
	defer srv.Close()

	c, err := NewClient(Config{
		RPCURL:      srv.URL,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.TokenBalance(context.Background(), "wallet-x", "mint-y")
	if err != nil {
		t.Fatalf("TokenBalance: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected balance 1, got %v", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestTokenBalanceRPCError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{RPCURL: srv.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.TokenBalance(context.Background(), "bad", "mint"); err == nil {
		t.Fatalf("expected rpc error")
	}
}
