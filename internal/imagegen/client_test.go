package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestGenerateReturnsURL(t *testing.T) {
	t.Parallel()

	var gotPrompt string
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		var req generateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
		}
		gotPrompt = req.Prompt

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Image: "https://cdn.example.com/img/1.png"})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Token: "hf-token"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	res, err := c.Generate(context.Background(), "a chibi cat in space")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.URL != "https://cdn.example.com/img/1.png" {
		t.Fatalf("unexpected URL: %q", res.URL)
	}
	if gotPrompt != "a chibi cat in space" {
		t.Fatalf("unexpected prompt: %q", gotPrompt)
	}
	if gotAuth != "Bearer hf-token" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
}

func TestGenerateDecodesInlineImage(t *testing.T) {
	t.Parallel()

	raw := []byte{0x89, 'P', 'N', 'G'}
	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Image: inline})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	res, err := c.Generate(context.Background(), "pixels")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(res.Data) != string(raw) {
		t.Fatalf("unexpected image bytes: %v", res.Data)
	}
}

func TestGenerateBackendFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gpu melted", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.Generate(context.Background(), "anything"); err == nil {
		t.Fatalf("expected error from failing backend")
	}
}

func TestGenerateEmptyImage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.Generate(context.Background(), "anything"); err == nil {
		t.Fatalf("expected error for missing image field")
	}
}
