package services

import (
	"context"

	"storefront-service/models"

	"go.uber.org/zap"
)

type TopUpConfig struct {
	WalletAddress string
	Network       string
	MinimumUSD    int64
}

type TopUpInstructions struct {
	WalletAddress  string `json:"wallet_address"`
	Network        string `json:"network"`
	MinimumCents   int64  `json:"minimum_cents"`
	Minimum        string `json:"minimum"`
	BalanceCents   int64  `json:"balance_cents"`
	Balance        string `json:"balance"`
	ShortfallCents int64  `json:"shortfall_cents"`
	SuggestedCents int64  `json:"suggested_cents"`
	Suggested      string `json:"suggested"`
}

// TopUpAdvisor tells a visitor where and how much to send to cover a cart.
type TopUpAdvisor struct {
	balances BalanceReader
	cfg      TopUpConfig
	logger   *zap.Logger
}

func NewTopUpAdvisor(balances BalanceReader, cfg TopUpConfig, logger *zap.Logger) *TopUpAdvisor {
	return &TopUpAdvisor{balances: balances, cfg: cfg, logger: logger}
}

// Instructions never fails: an unreadable balance counts as zero.
func (a *TopUpAdvisor) Instructions(ctx context.Context, accountID string, requiredCents int64) *TopUpInstructions {
	balance, err := a.balances.GetBalance(ctx, accountID)
	if err != nil {
		a.logger.Warn("Failed to load balance for top-up", zap.String("user_id", accountID), zap.Error(err))
		balance = 0
	}

	minimum := models.DollarsToCents(a.cfg.MinimumUSD)
	shortfall := requiredCents - balance
	if shortfall < 0 {
		shortfall = 0
	}
	suggested := shortfall
	if suggested < minimum {
		suggested = minimum
	}

	return &TopUpInstructions{
		WalletAddress:  a.cfg.WalletAddress,
		Network:        a.cfg.Network,
		MinimumCents:   minimum,
		Minimum:        models.FormatCents(minimum),
		BalanceCents:   balance,
		Balance:        models.FormatCents(balance),
		ShortfallCents: shortfall,
		SuggestedCents: suggested,
		Suggested:      models.FormatCents(suggested),
	}
}
