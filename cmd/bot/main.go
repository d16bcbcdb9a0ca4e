package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chibi-bot/internal/cache"
	"chibi-bot/internal/config"
	"chibi-bot/internal/gate"
	"chibi-bot/internal/grok"
	"chibi-bot/internal/handlers"
	"chibi-bot/internal/httpserver"
	"chibi-bot/internal/imagegen"
	"chibi-bot/internal/metrics"
	"chibi-bot/internal/responder"
	"chibi-bot/internal/solana"
	"chibi-bot/internal/telegram"
	"chibi-bot/internal/userstate"
	"chibi-bot/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("bot exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", zap.Error(err))
		return err
	}

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("grok_url", cfg.GrokAPIURL),
		zap.String("model", cfg.GrokModel),
		zap.String("persona", cfg.Persona),
		zap.Bool("token_gate", cfg.TokenGateEnabled),
		zap.Bool("image_backend", cfg.ImageAPIURL != ""),
	)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.StoreBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Reply cache -----
	replyCache := cache.NewReplyCache(cache.Config{
		Backend: cfg.StoreBackend,
		Prefix:  "chibi",
	}, redisClient)
	replyCache = cache.NewLoggingReplyCache(replyCache)

	// ----- AI provider -----
	grokClient, err := grok.NewClient(grok.Config{
		BaseURL: cfg.GrokAPIURL,
		APIKey:  cfg.GrokAPIKey,
	}, logger)
	if err != nil {
		return err
	}
	if closer, ok := grokClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	conv := responder.New(replyCache, cfg.CacheTTL, grokClient, cfg.GrokModel, cfg.GrokTemperature)

	// ----- Token gate -----
	var gateStore gate.Store
	if cfg.StoreBackend == "redis" {
		gateStore = gate.NewRedisStore(redisClient, "chibi")
	} else {
		gateStore = gate.NewMemoryStore()
	}

	solanaClient, err := solana.NewClient(solana.Config{
		RPCURL: cfg.SolanaRPCURL,
	}, logger)
	if err != nil {
		return err
	}

	tokenGate := gate.New(gateStore, solanaClient, gate.Config{
		TokenMint:  cfg.GateTokenMint,
		MinBalance: cfg.GateMinBalance,
		NonceTTL:   cfg.NonceTTL,
	})

	// ----- Image backend (optional) -----
	var images handlers.ImageGenerator
	if cfg.ImageAPIURL != "" {
		imageClient, err := imagegen.NewClient(imagegen.Config{
			BaseURL: cfg.ImageAPIURL,
			Token:   cfg.ImageAPIToken,
		}, logger)
		if err != nil {
			return err
		}
		images = imageClient
	}

	// ----- Telegram -----
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("telegram bot init failed", zap.Error(err))
		return err
	}
	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	// ----- Per-user state -----
	users := userstate.NewTracker(cfg.RateLimitCommands, time.Minute)
	defer users.Close()

	// ----- Webhook handler -----
	webhook := &handlers.WebhookHandler{
		BotToken:    cfg.TelegramBotToken,
		Persona:     cfg.Persona,
		GateEnabled: cfg.TokenGateEnabled,
		Gate:        tokenGate,
		Responder:   conv,
		Images:      images,
		Sender:      telegram.NewBotSender(api, logger),
		Users:       users,
	}

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, webhook)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting webhook server",
		zap.String("addr", srv.Addr),
		zap.String("store_backend", cfg.StoreBackend),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
