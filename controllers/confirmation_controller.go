package controllers

import (
	"net/http"

	apperrors "storefront-service/common/errors"
	"storefront-service/middleware"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConfirmationController struct {
	renderer *services.ConfirmationRenderer
	logger   *zap.Logger
}

func NewConfirmationController(renderer *services.ConfirmationRenderer, logger *zap.Logger) *ConfirmationController {
	return &ConfirmationController{renderer: renderer, logger: logger}
}

// GetConfirmation prefers the order committed in this storefront and falls
// back to the account's stored last order.
func (cc *ConfirmationController) GetConfirmation(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	if account == nil {
		respondError(c, cc.logger, apperrors.Auth(services.MsgSignInRequired))
		return
	}

	if sf := middleware.GetStorefront(c); sf != nil {
		if order := sf.Checkout.LastOrder(); order != nil && order.Account.ID == account.ID {
			c.JSON(http.StatusOK, services.RenderOrder(order))
			return
		}
	}

	view, err := cc.renderer.Render(c.Request.Context(), account.ID)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
