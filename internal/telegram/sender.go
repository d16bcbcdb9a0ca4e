// Package telegram wraps the outbound half of the Telegram Bot API
// behind a small interface the dispatcher (and its tests) can hold.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender delivers outbound messages to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhotoURL(ctx context.Context, chatID int64, url string) error
	SendPhotoBytes(ctx context.Context, chatID int64, data []byte) error
}

// BotSender is the production Sender backed by tgbotapi.
type BotSender struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewBotSender(api *tgbotapi.BotAPI, logger *zap.Logger) *BotSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotSender{
		api:    api,
		logger: logger.Named("telegram"),
	}
}

// send pushes one prepared message through the API. tgbotapi requests are
// not context-aware, so the context is only consulted up front.
func (s *BotSender) send(ctx context.Context, chatID int64, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.api.Send(c); err != nil {
		s.logger.Error("telegram send failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (s *BotSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	return s.send(ctx, chatID, tgbotapi.NewMessage(chatID, text))
}

func (s *BotSender) SendPhotoURL(ctx context.Context, chatID int64, url string) error {
	return s.send(ctx, chatID, tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url)))
}

func (s *BotSender) SendPhotoBytes(ctx context.Context, chatID int64, data []byte) error {
	return s.send(ctx, chatID, tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "image.png",
		Bytes: data,
	}))
}
