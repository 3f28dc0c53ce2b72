package middleware

import (
	"context"
	"net/http"

	commonmw "storefront-service/common/middleware"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	VisitorCookie = "sf_visitor"
	TokenCookie   = "sf_token"

	storefrontKey = "storefront"
)

// StorefrontProvider is satisfied by services.StorefrontRegistry.
type StorefrontProvider interface {
	Get(ctx context.Context, visitorID, token string) *services.Storefront
}

type CookieConfig struct {
	Secure        bool
	VisitorMaxAge int
	TokenMaxAge   int
}

// Storefront attaches the visitor's storefront to the request, issuing a
// visitor cookie on first contact.
func Storefront(provider StorefrontProvider, cookies CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		visitorID, err := c.Cookie(VisitorCookie)
		if err != nil || !validVisitorID(visitorID) {
			visitorID = uuid.NewString()
			setCookie(c, VisitorCookie, visitorID, cookies.VisitorMaxAge, cookies.Secure)
		}
		token, _ := c.Cookie(TokenCookie)

		c.Set(commonmw.VisitorIDKey, visitorID)

		c.Set(storefrontKey, provider.Get(c.Request.Context(), visitorID, token))
		c.Next()
	}
}

// GetStorefront returns the storefront attached by the Storefront middleware.
func GetStorefront(c *gin.Context) *services.Storefront {
	v, ok := c.Get(storefrontKey)
	if !ok {
		return nil
	}
	sf, _ := v.(*services.Storefront)
	return sf
}

// WriteTokenCookie stores the access token, or expires the cookie when token is empty.
func WriteTokenCookie(c *gin.Context, token string, cookies CookieConfig) {
	if token == "" {
		setCookie(c, TokenCookie, "", -1, cookies.Secure)
		return
	}
	setCookie(c, TokenCookie, token, cookies.TokenMaxAge, cookies.Secure)
}

func setCookie(c *gin.Context, name, value string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}

func validVisitorID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
