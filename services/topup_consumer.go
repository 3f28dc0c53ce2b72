package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	awspkg "storefront-service/pkg/aws"

	"go.uber.org/zap"
)

const TypeTopUpSettled = "balance.topup.settled"

// TopUpSettled is published by the payment watcher once a transfer confirms.
type TopUpSettled struct {
	Event       string `json:"event"`
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference"`
}

// TopUpHandler credits balances from settlement messages.
type TopUpHandler struct {
	creditor BalanceCreditor
	metrics  MetricsRecorder
	logger   *zap.Logger
}

func NewTopUpHandler(creditor BalanceCreditor, metrics MetricsRecorder, logger *zap.Logger) *TopUpHandler {
	return &TopUpHandler{creditor: creditor, metrics: metrics, logger: logger}
}

// Handle returns an error for messages that must stay on the queue.
// Unrelated event types are acknowledged and skipped.
func (h *TopUpHandler) Handle(ctx context.Context, body string) error {
	var msg TopUpSettled
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		h.logger.Error("Malformed top-up message", zap.Error(err))
		return fmt.Errorf("failed to decode top-up message: %w", err)
	}

	if msg.Event != TypeTopUpSettled {
		h.logger.Debug("Ignoring event", zap.String("event", msg.Event))
		return nil
	}
	if strings.TrimSpace(msg.AccountID) == "" || strings.TrimSpace(msg.Reference) == "" {
		return fmt.Errorf("top-up message missing account_id or reference")
	}
	if msg.AmountCents <= 0 {
		return fmt.Errorf("top-up amount must be positive, got %d", msg.AmountCents)
	}

	applied, err := h.creditor.Credit(ctx, msg.AccountID, msg.AmountCents, msg.Reference)
	if err != nil {
		return fmt.Errorf("failed to credit top-up %s: %w", msg.Reference, err)
	}
	if !applied {
		h.logger.Info("Top-up already applied", zap.String("reference", msg.Reference))
		return nil
	}

	h.logger.Info("Top-up credited",
		zap.String("user_id", msg.AccountID),
		zap.Int64("amount_cents", msg.AmountCents),
		zap.String("reference", msg.Reference),
	)
	if h.metrics != nil {
		_ = h.metrics.RecordCount(ctx, awspkg.MetricTopUpsSettled, map[string]string{"Service": "storefront-service"})
	}
	return nil
}
