// Package imagegen calls the external image-generation backend: one POST
// with a text prompt, answered with an image URL or inline base64 data.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	BaseURL string // required
	Token   string // optional bearer token

	Timeout time.Duration // per-job timeout (default: 2m; generation is slow)

	HTTPClient *http.Client
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("imagegen: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("imagegen"),
	}, nil
}

// Result holds one generated image: either a URL reference or the raw
// bytes, depending on what the backend returned.
type Result struct {
	URL  string
	Data []byte
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Image string `json:"image"`
}

// Generate runs one image job. Jobs are not retried: they are slow and
// the dispatcher already reports failure to the user.
func (c *Client) Generate(ctx context.Context, prompt string) (*Result, error) {
	start := time.Now()

	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("imagegen: marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("imagegen: build HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("image job failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("image backend error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(b)),
		)
		return nil, fmt.Errorf("imagegen: backend status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("imagegen: decode response: %w", err)
	}
	if gen.Image == "" {
		return nil, fmt.Errorf("imagegen: backend returned no image")
	}

	c.logger.Info("image job completed",
		zap.Duration("duration", time.Since(start)),
	)

	if strings.HasPrefix(gen.Image, "http://") || strings.HasPrefix(gen.Image, "https://") {
		return &Result{URL: gen.Image}, nil
	}

	// Backends that inline the image send it base64-encoded, sometimes
	// as a data: URI.
	payload := gen.Image
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("imagegen: decode image payload: %w", err)
	}

	return &Result{Data: data}, nil
}
