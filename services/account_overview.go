package services

import (
	"context"

	"storefront-service/models"

	"go.uber.org/zap"
)

type BalanceReader interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
}

type OrderLister interface {
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
}

// AccountOverview is the account page: who, how much and what was bought.
// A nil BalanceCents means the balance could not be read.
type AccountOverview struct {
	Account      models.Account `json:"account"`
	BalanceCents *int64         `json:"balance_cents"`
	Balance      string         `json:"balance,omitempty"`
	Orders       []models.Order `json:"orders"`
	Warnings     []string       `json:"warnings,omitempty"`
}

type AccountOverviewService struct {
	balances BalanceReader
	orders   OrderLister
	logger   *zap.Logger
}

func NewAccountOverviewService(balances BalanceReader, orders OrderLister, logger *zap.Logger) *AccountOverviewService {
	return &AccountOverviewService{balances: balances, orders: orders, logger: logger}
}

// Overview returns whatever parts are available; backend failures become warnings.
func (s *AccountOverviewService) Overview(ctx context.Context, account models.Account) *AccountOverview {
	overview := &AccountOverview{
		Account: account,
		Orders:  []models.Order{},
	}

	balance, err := s.balances.GetBalance(ctx, account.ID)
	if err != nil {
		s.logger.Warn("Failed to load balance", zap.String("user_id", account.ID), zap.Error(err))
		overview.Warnings = append(overview.Warnings, MsgBalanceUnavailable)
	} else {
		overview.BalanceCents = &balance
		overview.Balance = models.FormatCents(balance)
	}

	orders, err := s.orders.ListOrders(ctx, account.ID)
	if err != nil {
		s.logger.Warn("Failed to load orders", zap.String("user_id", account.ID), zap.Error(err))
		overview.Warnings = append(overview.Warnings, MsgOrdersUnavailable)
	} else if orders != nil {
		overview.Orders = orders
	}
	return overview
}
