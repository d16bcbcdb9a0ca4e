package gate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chibi-bot/internal/metrics"
	"chibi-bot/internal/wallet"
	"chibi-bot/pkg/logging"
)

// Outcome is the business result of a verification attempt. Denials are
// normal branches, not errors; errors mean the gate could not decide and
// fails closed.
type Outcome int

const (
	OutcomeVerified Outcome = iota
	OutcomeNoChallenge
	OutcomeBadSignature
	OutcomeInsufficientBalance
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeNoChallenge:
		return "no_challenge"
	case OutcomeBadSignature:
		return "bad_signature"
	case OutcomeInsufficientBalance:
		return "insufficient_balance"
	default:
		return "unknown"
	}
}

// BalanceChecker is the ledger query the gate depends on.
type BalanceChecker interface {
	TokenBalance(ctx context.Context, owner, mint string) (float64, error)
}

type Config struct {
	TokenMint  string
	MinBalance float64       // gate passes when balance >= MinBalance (default 1)
	NonceTTL   time.Duration // default 5 minutes
}

// TokenGate drives the wallet verification state machine.
type TokenGate struct {
	store      Store
	balances   BalanceChecker
	tokenMint  string
	minBalance float64
	nonceTTL   time.Duration
}

func New(store Store, balances BalanceChecker, cfg Config) *TokenGate {
	if cfg.MinBalance <= 0 {
		cfg.MinBalance = 1
	}
	if cfg.NonceTTL <= 0 {
		cfg.NonceTTL = 5 * time.Minute
	}
	return &TokenGate{
		store:      store,
		balances:   balances,
		tokenMint:  cfg.TokenMint,
		minBalance: cfg.MinBalance,
		nonceTTL:   cfg.NonceTTL,
	}
}

// Challenge issues a fresh nonce for the user, replacing any prior one.
// The nonce must be signed by the wallet key and presented to Verify
// before it expires.
func (g *TokenGate) Challenge(ctx context.Context, userID string) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", fmt.Errorf("gate: generate nonce: %w", err)
	}

	if err := g.store.PutNonce(ctx, userID, nonce, g.nonceTTL); err != nil {
		return "", fmt.Errorf("gate: store nonce: %w", err)
	}

	logging.L(ctx).Info("nonce issued",
		zap.String("user_id", userID),
		zap.Duration("ttl", g.nonceTTL),
	)

	return nonce, nil
}

// Verify checks the signature over the user's active nonce and the
// wallet's token balance. On success the nonce is consumed and the user
// is recorded verified with that wallet. A non-nil error means the
// decision could not be made (store or RPC failure); callers must treat
// that as denied-but-retryable.
func (g *TokenGate) Verify(ctx context.Context, userID, walletAddr, signature string) (Outcome, error) {
	logger := logging.L(ctx)

	nonce, ok, err := g.store.GetNonce(ctx, userID)
	if err != nil {
		metrics.GateDecisionsTotal.WithLabelValues("error").Inc()
		return OutcomeNoChallenge, fmt.Errorf("gate: load nonce: %w", err)
	}
	if !ok {
		metrics.GateDecisionsTotal.WithLabelValues("denied").Inc()
		return OutcomeNoChallenge, nil
	}

	valid, err := wallet.VerifySignature(walletAddr, signature, nonce)
	if err != nil {
		// Malformed address or signature is a user mistake, not a
		// transient failure.
		logger.Warn("malformed verification input",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		metrics.GateDecisionsTotal.WithLabelValues("denied").Inc()
		return OutcomeBadSignature, nil
	}
	if !valid {
		logger.Info("signature rejected", zap.String("user_id", userID))
		metrics.GateDecisionsTotal.WithLabelValues("denied").Inc()
		return OutcomeBadSignature, nil
	}

	balance, err := g.balances.TokenBalance(ctx, walletAddr, g.tokenMint)
	if err != nil {
		// Fail closed: an unreachable ledger denies access but tells the
		// user to retry.
		metrics.GateDecisionsTotal.WithLabelValues("error").Inc()
		return OutcomeInsufficientBalance, fmt.Errorf("gate: balance check: %w", err)
	}
	if balance < g.minBalance {
		logger.Info("balance below gate minimum",
			zap.String("user_id", userID),
			zap.Float64("balance", balance),
			zap.Float64("min", g.minBalance),
		)
		metrics.GateDecisionsTotal.WithLabelValues("denied").Inc()
		return OutcomeInsufficientBalance, nil
	}

	if err := g.store.DeleteNonce(ctx, userID); err != nil {
		metrics.GateDecisionsTotal.WithLabelValues("error").Inc()
		return OutcomeVerified, fmt.Errorf("gate: consume nonce: %w", err)
	}
	if err := g.store.SetVerified(ctx, userID, walletAddr); err != nil {
		metrics.GateDecisionsTotal.WithLabelValues("error").Inc()
		return OutcomeVerified, fmt.Errorf("gate: record verification: %w", err)
	}

	logger.Info("wallet verified",
		zap.String("user_id", userID),
		zap.Float64("balance", balance),
	)
	metrics.GateDecisionsTotal.WithLabelValues("allowed").Inc()

	return OutcomeVerified, nil
}

// IsVerified reports whether the user has completed verification.
func (g *TokenGate) IsVerified(ctx context.Context, userID string) (bool, error) {
	_, ok, err := g.store.Verified(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("gate: load verification: %w", err)
	}
	return ok, nil
}

// newNonce returns a 32-byte random challenge, hex-encoded.
func newNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
