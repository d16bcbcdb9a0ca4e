package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chibi-bot/internal/gate"
	"chibi-bot/internal/imagegen"
	"chibi-bot/internal/metrics"
	"chibi-bot/internal/telegram"
	"chibi-bot/internal/userstate"
	"chibi-bot/pkg/logging"
)

// Responder produces reply text for a user message. It never fails; the
// apology path is inside.
type Responder interface {
	Respond(ctx context.Context, message, persona string) string
}

// Gate drives the wallet verification state machine.
type Gate interface {
	Challenge(ctx context.Context, userID string) (string, error)
	Verify(ctx context.Context, userID, wallet, signature string) (gate.Outcome, error)
	IsVerified(ctx context.Context, userID string) (bool, error)
}

// ImageGenerator runs one image job.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*imagegen.Result, error)
}

// WebhookHandler is the single entry point for inbound Telegram updates.
type WebhookHandler struct {
	BotToken    string
	Persona     string
	GateEnabled bool

	Gate      Gate
	Responder Responder
	Images    ImageGenerator // nil disables the image path
	Sender    telegram.Sender
	Users     *userstate.Tracker

	// ImageJobTimeout bounds the detached image goroutine (default 3m).
	ImageJobTimeout time.Duration
}

// HandleUpdate handles POST /webhook/{token}. The handler acknowledges
// every successfully parsed update with 200 {"status":"ok"}; business
// failures are reported to the user over Telegram, never to the webhook
// caller, so the platform does not retry them.
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	// The URL path carries the bot token as a shared secret.
	if subtle.ConstantTimeCompare([]byte(chi.URLParam(r, "token")), []byte(h.BotToken)) != 1 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Warn("malformed update payload", zap.Error(err))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	// Edited messages, callbacks etc. are acknowledged and ignored.
	if update.Message == nil || update.Message.Chat == nil {
		h.writeOK(w)
		return
	}

	chatID := update.Message.Chat.ID
	userID := strconv.FormatInt(chatID, 10)
	text := strings.TrimSpace(update.Message.Text)

	ctx = logging.WithFields(ctx, zap.String("user_id", userID))

	h.dispatch(ctx, chatID, userID, text)
	h.writeOK(w)
}

// dispatch routes one message. Exactly one reply (at least) is sent per
// inbound message.
func (h *WebhookHandler) dispatch(ctx context.Context, chatID int64, userID, text string) {
	logger := logging.L(ctx)

	// Stickers, photos and other non-text messages are ignored.
	if text == "" {
		return
	}

	// Wallet commands drive the state machine directly; they are how a
	// user becomes verified, so the gate check below does not apply.
	switch cmd, args := splitCommand(text); cmd {
	case "/start":
		h.reply(ctx, chatID, telegram.ReplyWelcome)
		return
	case "/connect":
		h.handleConnect(ctx, chatID, userID)
		return
	case "/verify":
		h.handleVerify(ctx, chatID, userID, args)
		return
	}

	if !h.Users.Allow(userID) {
		logger.Info("user throttled")
		metrics.ThrottledTotal.Inc()
		h.reply(ctx, chatID, telegram.ReplyThrottled)
		return
	}

	if h.GateEnabled {
		verified, err := h.Gate.IsVerified(ctx, userID)
		if err != nil {
			// Fail closed, but tell the user it is transient.
			logger.Error("verification lookup failed", zap.Error(err))
			h.reply(ctx, chatID, telegram.ReplyTransientFailure)
			return
		}
		if !verified {
			h.reply(ctx, chatID, telegram.ReplyAccessDenied)
			return
		}
	}

	if h.Images != nil && wantsImage(text) {
		h.handleImage(ctx, chatID, userID, text)
		return
	}

	reply := h.Responder.Respond(ctx, text, h.Persona)
	h.reply(ctx, chatID, reply)
}

func (h *WebhookHandler) handleConnect(ctx context.Context, chatID int64, userID string) {
	nonce, err := h.Gate.Challenge(ctx, userID)
	if err != nil {
		logging.L(ctx).Error("challenge failed", zap.Error(err))
		h.reply(ctx, chatID, telegram.ReplyTransientFailure)
		return
	}
	h.reply(ctx, chatID, telegram.ReplyChallenge(nonce))
}

func (h *WebhookHandler) handleVerify(ctx context.Context, chatID int64, userID string, args []string) {
	if len(args) != 2 {
		h.reply(ctx, chatID, telegram.ReplyVerifyUsage)
		return
	}
	wallet, signature := args[0], args[1]

	outcome, err := h.Gate.Verify(ctx, userID, wallet, signature)
	if err != nil {
		logging.L(ctx).Error("verification failed", zap.Error(err))
		h.reply(ctx, chatID, telegram.ReplyTransientFailure)
		return
	}

	switch outcome {
	case gate.OutcomeVerified:
		h.reply(ctx, chatID, telegram.ReplyVerifySuccess)
	case gate.OutcomeNoChallenge:
		h.reply(ctx, chatID, telegram.ReplyVerifyNoChallenge)
	case gate.OutcomeBadSignature:
		h.reply(ctx, chatID, telegram.ReplyVerifyBadSignature)
	case gate.OutcomeInsufficientBalance:
		h.reply(ctx, chatID, telegram.ReplyVerifyNoBalance)
	default:
		h.reply(ctx, chatID, telegram.ReplyTransientFailure)
	}
}

// handleImage acknowledges immediately and runs the job in a detached
// goroutine: the webhook ack must not wait for (or cancel) a slow
// render. The in-flight flag is claimed before the job starts and
// released on every exit path.
func (h *WebhookHandler) handleImage(ctx context.Context, chatID int64, userID, prompt string) {
	logger := logging.L(ctx)

	if !h.Users.TryStartImage(userID) {
		h.reply(ctx, chatID, telegram.ReplyImageBusy)
		return
	}

	h.reply(ctx, chatID, telegram.ReplyImageAck)
	metrics.ImageJobsTotal.WithLabelValues("started").Inc()

	timeout := h.ImageJobTimeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	go func() {
		jobCtx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), logger), timeout)
		defer cancel()
		defer h.Users.FinishImage(userID)
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("image job panicked",
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				metrics.ImageJobsTotal.WithLabelValues("failed").Inc()
				h.reply(jobCtx, chatID, telegram.ReplyImageFailed)
			}
		}()

		res, err := h.Images.Generate(jobCtx, prompt)
		if err != nil {
			logger.Error("image job failed", zap.Error(err))
			metrics.ImageJobsTotal.WithLabelValues("failed").Inc()
			h.reply(jobCtx, chatID, telegram.ReplyImageFailed)
			return
		}

		var sendErr error
		if res.URL != "" {
			sendErr = h.Sender.SendPhotoURL(jobCtx, chatID, res.URL)
		} else {
			sendErr = h.Sender.SendPhotoBytes(jobCtx, chatID, res.Data)
		}
		if sendErr != nil {
			logger.Error("image delivery failed", zap.Error(sendErr))
			metrics.ImageJobsTotal.WithLabelValues("failed").Inc()
			h.reply(jobCtx, chatID, telegram.ReplyImageFailed)
			return
		}

		metrics.ImageJobsTotal.WithLabelValues("completed").Inc()
	}()
}

// reply sends a text message, logging delivery failures. There is no
// recovery path beyond logging: the webhook has already been (or will
// be) acknowledged.
func (h *WebhookHandler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.Sender.SendMessage(ctx, chatID, text); err != nil {
		logging.L(ctx).Error("reply delivery failed", zap.Error(err))
	}
}

func (h *WebhookHandler) writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// wantsImage detects image requests the way the bot always has: the
// message mentions an image or a comic.
func wantsImage(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "image") || strings.Contains(lower, "comic")
}

// splitCommand splits "/verify abc def" into "/verify" and its args.
// Non-commands return an empty command. Telegram suffixes commands with
// the bot name in groups ("/start@chibi_bot"), which is stripped.
func splitCommand(text string) (string, []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text)
	cmd := fields[0]
	if idx := strings.Index(cmd, "@"); idx > 0 {
		cmd = cmd[:idx]
	}
	return cmd, fields[1:]
}
