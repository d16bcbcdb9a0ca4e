package responder

import (
	"context"
	"errors"
	"testing"
	"time"

	"chibi-bot/internal/cache"
	"chibi-bot/internal/grok"
)

type mockGrok struct {
	resp  *grok.ChatResponse
	err   error
	calls int
	last  *grok.ChatRequest
}

func (m *mockGrok) ChatCompletion(ctx context.Context, req *grok.ChatRequest) (*grok.ChatResponse, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func reply(text string) *grok.ChatResponse {
	return &grok.ChatResponse{
		Choices: []grok.ChatChoice{
			{Message: grok.ChatMessage{Role: grok.RoleAssistant, Content: text}},
		},
	}
}

func TestRespondCachesProviderReply(t *testing.T) {
	store := cache.NewMemoryReplyCache(time.Minute)
	t.Cleanup(func() { store.Close() })

	m := &mockGrok{resp: reply("hi from chibi!")}
	r := New(store, time.Minute, m, "grok-beta", 0.7)

	ctx := context.Background()

	got := r.Respond(ctx, "hello", "Chibi")
	if got != "hi from chibi!" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if m.calls != 1 {
		t.Fatalf("expected one provider call, got %d", m.calls)
	}
	if m.last.Messages[0].Role != grok.RoleSystem {
		t.Fatalf("first message should be the persona system prompt")
	}
	if m.last.Messages[1].Content != "hello" {
		t.Fatalf("unexpected user message: %q", m.last.Messages[1].Content)
	}

	// Second identical message within the freshness window: identical
	// text, no second provider call.
	got = r.Respond(ctx, "hello", "Chibi")
	if got != "hi from chibi!" {
		t.Fatalf("expected cached reply verbatim, got %q", got)
	}
	if m.calls != 1 {
		t.Fatalf("cache hit should not call the provider again, got %d calls", m.calls)
	}
}

func TestRespondDifferentPersonaMisses(t *testing.T) {
	store := cache.NewMemoryReplyCache(time.Minute)
	t.Cleanup(func() { store.Close() })

	m := &mockGrok{resp: reply("meh.")}
	r := New(store, time.Minute, m, "grok-beta", 0.7)

	ctx := context.Background()
	r.Respond(ctx, "hello", "Chibi")
	r.Respond(ctx, "hello", "Bitty")

	if m.calls != 2 {
		t.Fatalf("different personas must not share cache entries, got %d calls", m.calls)
	}
}

func TestRespondExpiredEntryMisses(t *testing.T) {
	store := cache.NewMemoryReplyCache(time.Minute)
	t.Cleanup(func() { store.Close() })

	m := &mockGrok{resp: reply("fresh")}
	r := New(store, 20*time.Millisecond, m, "grok-beta", 0.7)

	ctx := context.Background()
	r.Respond(ctx, "hello", "Chibi")

	time.Sleep(30 * time.Millisecond)

	r.Respond(ctx, "hello", "Chibi")
	if m.calls != 2 {
		t.Fatalf("expired entry must be a miss, got %d calls", m.calls)
	}
}

func TestRespondFallsBackToApology(t *testing.T) {
	store := cache.NewMemoryReplyCache(time.Minute)
	t.Cleanup(func() { store.Close() })

	m := &mockGrok{err: errors.New("grok: max retries (3) exceeded: upstream status 503")}
	r := New(store, time.Minute, m, "grok-beta", 0.7)

	got := r.Respond(context.Background(), "hello", "Chibi")
	if got != Apology {
		t.Fatalf("expected apology, got %q", got)
	}

	// The apology must not be cached as a real reply.
	m.err = nil
	m.resp = reply("back online")
	got = r.Respond(context.Background(), "hello", "Chibi")
	if got != "back online" {
		t.Fatalf("expected fresh reply after recovery, got %q", got)
	}
}

func TestSystemPromptFallback(t *testing.T) {
	if SystemPrompt("Chibi") == SystemPrompt("Bitty") {
		t.Fatalf("personas should have distinct prompts")
	}
	if SystemPrompt("nobody") != defaultPrompt {
		t.Fatalf("unknown persona should get the default prompt")
	}
}
