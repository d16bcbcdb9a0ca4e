// Command setwebhook registers the bot's webhook URL with the Telegram
// Bot API. Run once after deploying:
//
//	TELEGRAM_BOT_TOKEN=... WEBHOOK_BASE_URL=https://bot.example.com setwebhook
//
// The registered URL is <WEBHOOK_BASE_URL>/webhook/<token>.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}
	baseURL := os.Getenv("WEBHOOK_BASE_URL")
	if baseURL == "" {
		log.Fatal("WEBHOOK_BASE_URL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Fatalf("telegram bot init failed: %v", err)
	}

	wh, err := tgbotapi.NewWebhook(baseURL + "/webhook/" + token)
	if err != nil {
		log.Fatalf("build webhook config: %v", err)
	}

	resp, err := api.Request(wh)
	if err != nil {
		log.Fatalf("setWebhook failed: %v", err)
	}
	if !resp.Ok {
		log.Fatalf("setWebhook rejected: %s", resp.Description)
	}

	info, err := api.GetWebhookInfo()
	if err != nil {
		log.Fatalf("getWebhookInfo failed: %v", err)
	}

	fmt.Printf("webhook set: %s (pending updates: %d)\n", info.URL, info.PendingUpdateCount)
}
