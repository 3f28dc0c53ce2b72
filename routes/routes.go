package routes

import (
	"time"

	commonmw "storefront-service/common/middleware"
	"storefront-service/controllers"
	"storefront-service/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Catalog      *controllers.CatalogController
	Cart         *controllers.CartController
	Account      *controllers.AccountController
	Checkout     *controllers.CheckoutController
	Confirmation *controllers.ConfirmationController
	Balance      *controllers.BalanceController
}

type Options struct {
	Storefronts      middleware.StorefrontProvider
	Cookies          middleware.CookieConfig
	AuthReadyTimeout time.Duration
	AuthLimiter      *commonmw.RateLimiter
	AdminAPIKey      string
}

// RegisterStorefrontRoutes mounts the catalog, cart, account and checkout surface.
func RegisterStorefrontRoutes(r *gin.Engine, ctl Controllers, opts Options) {
	products := r.Group("/products")
	{
		products.GET("", ctl.Catalog.ListProducts)
		products.GET("/:ref", ctl.Catalog.GetProduct)
	}

	// Everything below is per-visitor
	visitor := r.Group("/")
	visitor.Use(middleware.Storefront(opts.Storefronts, opts.Cookies))

	cart := visitor.Group("/cart")
	{
		cart.GET("", ctl.Cart.GetCart)
		cart.POST("/items", ctl.Cart.AddItem)
		cart.PATCH("/items/:ref", ctl.Cart.SetQuantity)
		cart.DELETE("/items/:ref", ctl.Cart.RemoveItem)
		cart.DELETE("", ctl.Cart.ClearCart)
	}

	account := visitor.Group("/account")
	{
		signIn := account.Group("")
		if opts.AuthLimiter != nil {
			signIn.Use(opts.AuthLimiter.Middleware())
		}
		signIn.POST("/register", ctl.Account.Register)
		signIn.POST("/login", ctl.Account.Login)

		account.POST("/logout", ctl.Account.Logout)
	}
	visitor.GET("/session", ctl.Account.Session)

	gated := visitor.Group("/")
	gated.Use(middleware.RequireAccount(opts.AuthReadyTimeout))
	{
		gated.GET("/account", ctl.Account.Overview)

		gated.POST("/checkout", ctl.Checkout.StartCheckout)
		gated.POST("/checkout/submit", ctl.Checkout.SubmitCheckout)
		gated.DELETE("/checkout", ctl.Checkout.ResetCheckout)
		gated.GET("/checkout", ctl.Checkout.GetCheckout)

		gated.GET("/confirmation", ctl.Confirmation.GetConfirmation)
		gated.GET("/balance/topup", ctl.Balance.TopUp)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.RequireAdminKey(opts.AdminAPIKey))
	{
		admin.POST("/balance/credit", ctl.Balance.Credit)
	}
}
