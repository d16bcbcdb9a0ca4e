// Package solana queries token balances over Solana JSON-RPC. Only the
// single call the token gate needs (getTokenAccountsByOwner) is
// implemented; everything else about the chain is out of scope.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chibi-bot/internal/retry"
)

type Config struct {
	RPCURL string // required

	Timeout     time.Duration // per-request timeout (default: 15s)
	MaxAttempts int           // total attempts (default: 3)
	BaseBackoff time.Duration // initial backoff (default: 200ms)

	HTTPClient *http.Client
}

func (c *Config) withDefaults() Config {
	cfg := *c
	cfg.RPCURL = strings.TrimRight(cfg.RPCURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	return cfg
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.withDefaults()

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("solana: RPCURL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    20,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}

	policy := retry.NewPolicy(cfg.MaxAttempts)
	policy.BaseBackoff = cfg.BaseBackoff

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		policy:     policy,
		logger:     logger.Named("solana"),
	}, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type tokenAccountsResponse struct {
	Result struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							TokenAmount struct {
								Amount   string  `json:"amount"`
								Decimals int     `json:"decimals"`
								UIAmount float64 `json:"uiAmount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error,omitempty"`
}

// TokenBalance returns the owner's total balance of the given token mint,
// summed across all of the owner's token accounts. Zero with no error
// means the wallet verifiably holds nothing.
func (c *Client) TokenBalance(ctx context.Context, owner, mint string) (float64, error) {
	start := time.Now()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getTokenAccountsByOwner",
		Params: []interface{}{
			owner,
			map[string]string{"mint": mint},
			map[string]string{"encoding": "jsonParsed"},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("solana: marshal request: %w", err)
	}

	var parsed tokenAccountsResponse
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.RPCURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("solana: build HTTP request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if retry.RetryableStatus(resp.StatusCode) {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &retry.StatusError{Status: resp.StatusCode, Body: string(b)}
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("solana: rpc status %d: %s", resp.StatusCode, string(b))
		}

		parsed = tokenAccountsResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("solana: decode rpc response: %w", err)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("token balance query failed",
			zap.String("owner", owner),
			zap.String("mint", mint),
			zap.Error(err),
		)
		return 0, err
	}

	if parsed.Error != nil {
		c.logger.Error("token balance rpc error",
			zap.String("owner", owner),
			zap.Int("code", parsed.Error.Code),
			zap.String("message", parsed.Error.Message),
		)
		return 0, fmt.Errorf("solana: %w", parsed.Error)
	}

	var total float64
	for _, v := range parsed.Result.Value {
		total += v.Account.Data.Parsed.Info.TokenAmount.UIAmount
	}

	c.logger.Debug("token balance query completed",
		zap.String("owner", owner),
		zap.Float64("balance", total),
		zap.Int("accounts", len(parsed.Result.Value)),
		zap.Duration("duration", time.Since(start)),
	)

	return total, nil
}
