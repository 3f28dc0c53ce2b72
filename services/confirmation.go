package services

import (
	"context"
	"strings"
	"time"

	apperrors "storefront-service/common/errors"
	"storefront-service/models"

	"go.uber.org/zap"
)

// NotRecorded stands in for order fields that were never captured.
const NotRecorded = "Not recorded"

type ConfirmationLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type ConfirmationView struct {
	Empty              bool               `json:"empty"`
	Message            string             `json:"message,omitempty"`
	OrderID            string             `json:"order_id,omitempty"`
	PlacedAt           string             `json:"placed_at,omitempty"`
	CustomerName       string             `json:"customer_name,omitempty"`
	CustomerEmail      string             `json:"customer_email,omitempty"`
	SessionCredential  string             `json:"session_credential,omitempty"`
	PaymentMethod      string             `json:"payment_method,omitempty"`
	Network            string             `json:"network,omitempty"`
	TxReference        string             `json:"tx_reference,omitempty"`
	DestinationAddress string             `json:"destination_address,omitempty"`
	LineItems          []ConfirmationLine `json:"line_items,omitempty"`
	Total              string             `json:"total,omitempty"`
}

type LastOrderReader interface {
	GetLastOrder(ctx context.Context, userID string) (*models.Order, error)
}

// ConfirmationRenderer presents the most recent order of an account.
type ConfirmationRenderer struct {
	orders LastOrderReader
	logger *zap.Logger
}

func NewConfirmationRenderer(orders LastOrderReader, logger *zap.Logger) *ConfirmationRenderer {
	return &ConfirmationRenderer{orders: orders, logger: logger}
}

func (r *ConfirmationRenderer) Render(ctx context.Context, accountID string) (*ConfirmationView, error) {
	order, err := r.orders.GetLastOrder(ctx, accountID)
	if err != nil {
		r.logger.Error("Failed to load last order", zap.String("user_id", accountID), zap.Error(err))
		return nil, apperrors.BackendUnavailable(MsgOrdersUnavailable, err)
	}
	return RenderOrder(order), nil
}

// RenderOrder builds the view for order; a nil order yields the empty state.
func RenderOrder(order *models.Order) *ConfirmationView {
	if order == nil {
		return &ConfirmationView{Empty: true, Message: MsgNoRecentOrder}
	}

	view := &ConfirmationView{
		OrderID:            orNotRecorded(order.OrderID),
		PlacedAt:           NotRecorded,
		CustomerName:       orNotRecorded(order.Account.Name),
		CustomerEmail:      orNotRecorded(order.Account.Email),
		SessionCredential:  orNotRecorded(order.SessionCredential),
		PaymentMethod:      orNotRecorded(order.Payment.Method),
		Network:            orNotRecorded(order.Payment.Network),
		TxReference:        orNotRecorded(order.Payment.TxReference),
		DestinationAddress: orNotRecorded(order.Payment.DestinationAddress),
		LineItems:          make([]ConfirmationLine, 0, len(order.LineItems)),
		Total:              models.FormatCents(order.TotalsCents),
	}
	if !order.CreatedAt.IsZero() {
		view.PlacedAt = order.CreatedAt.UTC().Format(time.RFC1123)
	}
	for _, item := range order.LineItems {
		view.LineItems = append(view.LineItems, ConfirmationLine{
			Name:      orNotRecorded(item.Name),
			Quantity:  item.Quantity,
			UnitPrice: models.FormatCents(item.UnitPriceCents),
			LineTotal: models.FormatCents(item.UnitPriceCents * int64(item.Quantity)),
		})
	}
	return view
}

func orNotRecorded(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotRecorded
	}
	return s
}
