package controllers

import (
	"context"
	"net/http"

	apperrors "storefront-service/common/errors"
	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CartSnapshotter mirrors a storefront's cart to durable storage.
type CartSnapshotter interface {
	PersistCart(ctx context.Context, sf *services.Storefront)
}

type CartController struct {
	carts  CartSnapshotter
	logger *zap.Logger
}

func NewCartController(carts CartSnapshotter, logger *zap.Logger) *CartController {
	return &CartController{carts: carts, logger: logger}
}

type AddItemRequest struct {
	ProductRef string `json:"product_ref" binding:"required,productref"`
	Quantity   any    `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity any `json:"quantity"`
}

type cartResponse struct {
	Items         []models.CartItem `json:"items"`
	SubtotalCents int64             `json:"subtotal_cents"`
	Subtotal      string            `json:"subtotal"`
	ItemCount     int               `json:"item_count"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	totals := cart.Totals()
	return cartResponse{
		Items:         cart.Items(),
		SubtotalCents: totals.SubtotalCents,
		Subtotal:      models.FormatCents(totals.SubtotalCents),
		ItemCount:     totals.ItemCount,
	}
}

func (cc *CartController) GetCart(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(sf.Cart))
}

// AddItem merges the product into the cart. A missing quantity adds one.
func (cc *CartController) AddItem(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, cc.logger, apperrors.Validation("Choose a product from the catalog."))
		return
	}
	product, _ := models.FindProduct(req.ProductRef)

	qty := 1
	if req.Quantity != nil {
		qty = models.CoerceQuantity(req.Quantity)
	}
	sf.Cart.AddItem(product, qty)
	cc.carts.PersistCart(c.Request.Context(), sf)

	c.JSON(http.StatusOK, newCartResponse(sf.Cart))
}

// SetQuantity is a no-op for products not in the cart.
func (cc *CartController) SetQuantity(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}

	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, cc.logger, apperrors.Validation("Quantity is required."))
		return
	}
	sf.Cart.SetQuantity(c.Param("ref"), models.CoerceQuantity(req.Quantity))
	cc.carts.PersistCart(c.Request.Context(), sf)

	c.JSON(http.StatusOK, newCartResponse(sf.Cart))
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}
	sf.Cart.RemoveItem(c.Param("ref"))
	cc.carts.PersistCart(c.Request.Context(), sf)

	c.JSON(http.StatusOK, newCartResponse(sf.Cart))
}

func (cc *CartController) ClearCart(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}
	sf.Cart.Clear()
	cc.carts.PersistCart(c.Request.Context(), sf)

	c.JSON(http.StatusOK, newCartResponse(sf.Cart))
}
