package controllers

import (
	"net/http"

	apperrors "storefront-service/common/errors"
	"storefront-service/middleware"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const confirmationPath = "/confirmation"

type CheckoutController struct {
	carts  CartSnapshotter
	logger *zap.Logger
}

func NewCheckoutController(carts CartSnapshotter, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{carts: carts, logger: logger}
}

type SubmitRequest struct {
	SessionID   string `json:"session_id"`
	Network     string `json:"network"`
	TxReference string `json:"tx_reference"`
}

// StartCheckout opens an attempt. An underfunded balance is a normal outcome
// reported in the snapshot together with the top-up redirect.
func (cc *CheckoutController) StartCheckout(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}

	snapshot, err := sf.Checkout.Start(c.Request.Context())
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (cc *CheckoutController) SubmitCheckout(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, cc.logger, apperrors.Format(services.MsgCredentialFormat))
		return
	}

	order, err := sf.Checkout.Submit(c.Request.Context(), services.SubmitInput{
		Credential:  req.SessionID,
		Network:     req.Network,
		TxReference: req.TxReference,
	})
	if err != nil {
		if apperrors.Is(err, apperrors.KindInsufficientFunds) {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":    services.MsgInsufficientFunds,
				"kind":     apperrors.KindInsufficientFunds,
				"redirect": services.TopUpPath,
				"checkout": sf.Checkout.Snapshot(),
			})
			return
		}
		respondError(c, cc.logger, err)
		return
	}

	cc.carts.PersistCart(c.Request.Context(), sf)
	c.JSON(http.StatusCreated, gin.H{
		"order":    order,
		"redirect": confirmationPath,
	})
}

func (cc *CheckoutController) ResetCheckout(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}
	if err := sf.Checkout.Reset(); err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, sf.Checkout.Snapshot())
}

func (cc *CheckoutController) GetCheckout(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}
	c.JSON(http.StatusOK, sf.Checkout.Snapshot())
}
