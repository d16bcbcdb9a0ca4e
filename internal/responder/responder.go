// Package responder turns a user message into reply text: consult the
// reply cache, otherwise ask the Grok API with a persona system prompt,
// cache the result, and always hand the dispatcher something to send.
package responder

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"chibi-bot/internal/cache"
	"chibi-bot/internal/grok"
	"chibi-bot/pkg/logging"
)

// Apology is what the user gets when the provider is unreachable. The
// webhook must always produce some reply.
const Apology = "Sorry, I'm having trouble thinking right now. Give me a moment and try again!"

// Persona system prompts. A persona is a named system-prompt variant
// controlling the response style.
var personaPrompts = map[string]string{
	"chibi": "You are Chibi, a cheerful chibi-style manga mascot. " +
		"You answer in short, upbeat messages, love NFT art and manga culture, " +
		"and sprinkle in the occasional emoji. Keep replies under a few sentences.",
	"bitty": "You are Bitty, a dry, laconic pixel-art creature. " +
		"You answer in terse, slightly sarcastic one-liners and never use emoji.",
}

const defaultPrompt = "You are a friendly chat assistant. Keep replies short and helpful."

// SystemPrompt returns the prompt for a persona, falling back to a
// generic assistant prompt for unknown names.
func SystemPrompt(persona string) string {
	if p, ok := personaPrompts[strings.ToLower(strings.TrimSpace(persona))]; ok {
		return p
	}
	return defaultPrompt
}

type Responder struct {
	cache       cache.ReplyCache
	cacheTTL    time.Duration
	client      grok.Client
	model       string
	temperature float32
}

func New(c cache.ReplyCache, ttl time.Duration, client grok.Client, model string, temperature float32) *Responder {
	return &Responder{
		cache:       c,
		cacheTTL:    ttl,
		client:      client,
		model:       model,
		temperature: temperature,
	}
}

// Respond returns the reply text for (message, persona). It never returns
// an error: provider failures degrade to the apology string after the
// client's retries are exhausted.
func (r *Responder) Respond(ctx context.Context, message, persona string) string {
	logger := logging.L(ctx)

	key := cache.BuildReplyKey(message, persona).String()

	cached, hit, err := r.cache.Get(ctx, key)
	if err != nil {
		// Cache is best-effort; treat errors as a miss.
		logger.Warn("reply cache lookup failed", zap.Error(err))
	}
	if hit {
		return string(cached)
	}

	req := &grok.ChatRequest{
		Model: r.model,
		Messages: []grok.ChatMessage{
			{Role: grok.RoleSystem, Content: SystemPrompt(persona)},
			{Role: grok.RoleUser, Content: message},
		},
		Temperature: r.temperature,
	}

	resp, err := r.client.ChatCompletion(ctx, req)
	if err != nil {
		logger.Error("chat completion failed",
			zap.String("persona", persona),
			zap.Error(err),
		)
		return Apology
	}

	text := resp.Text()
	if text == "" {
		logger.Warn("provider returned empty reply", zap.String("persona", persona))
		return Apology
	}

	// Store failures must not block delivery of the computed reply.
	if err := r.cache.Set(ctx, key, []byte(text), r.cacheTTL); err != nil {
		logger.Warn("reply cache store failed", zap.Error(err))
	}

	return text
}
