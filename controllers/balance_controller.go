package controllers

import (
	"net/http"

	apperrors "storefront-service/common/errors"
	"storefront-service/middleware"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BalanceController struct {
	advisor  *services.TopUpAdvisor
	creditor services.BalanceCreditor
	logger   *zap.Logger
}

func NewBalanceController(advisor *services.TopUpAdvisor, creditor services.BalanceCreditor, logger *zap.Logger) *BalanceController {
	return &BalanceController{advisor: advisor, creditor: creditor, logger: logger}
}

type CreditRequest struct {
	AccountID   string `json:"account_id" binding:"required,uuid"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Reference   string `json:"reference" binding:"required"`
}

// TopUp sizes the suggested top-up against the visitor's current cart.
func (bc *BalanceController) TopUp(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	sf := middleware.GetStorefront(c)
	if account == nil || sf == nil {
		respondError(c, bc.logger, apperrors.Auth(services.MsgSignInRequired))
		return
	}

	required := sf.Cart.Totals().SubtotalCents
	c.JSON(http.StatusOK, bc.advisor.Instructions(c.Request.Context(), account.ID, required))
}

// Credit applies a manual top-up. Replaying a reference is reported, not repeated.
func (bc *BalanceController) Credit(c *gin.Context) {
	var req CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bc.logger, apperrors.Validation("account_id, a positive amount_cents and reference are required."))
		return
	}

	applied, err := bc.creditor.Credit(c.Request.Context(), req.AccountID, req.AmountCents, req.Reference)
	if err != nil {
		respondError(c, bc.logger, apperrors.BackendUnavailable(services.MsgBalanceUnavailable, err))
		return
	}

	bc.logger.Info("Manual balance credit",
		zap.String("user_id", req.AccountID),
		zap.Int64("amount_cents", req.AmountCents),
		zap.String("reference", req.Reference),
		zap.Bool("applied", applied),
	)
	c.JSON(http.StatusOK, gin.H{"applied": applied, "reference": req.Reference})
}
