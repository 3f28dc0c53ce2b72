package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

const accountKey = "account"

// RequireAccount lets only signed-in visitors through. While the visitor's
// session is still resolving it waits up to readyTimeout, then answers 503
// rather than treating the visitor as signed out.
func RequireAccount(readyTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sf := GetStorefront(c)
		if sf == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storefront unavailable"})
			return
		}

		path := c.Request.URL.Path
		decision := services.EvaluateAccess(sf.Session, path)
		if decision.Outcome == services.GateSuspend {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
			_ = sf.Session.WaitReady(ctx)
			cancel()
			decision = services.EvaluateAccess(sf.Session, path)
		}

		switch decision.Outcome {
		case services.GateSuspend:
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(readyTimeout)))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Your session is still loading. Please try again.",
			})
		case services.GateRedirect:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    services.MsgSignInRequired,
				"redirect": decision.RedirectTo,
				"from":     decision.From,
			})
		default:
			c.Set(accountKey, sf.Session.Account())
			c.Next()
		}
	}
}

// CurrentAccount returns the account admitted by RequireAccount.
func CurrentAccount(c *gin.Context) *models.Account {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil
	}
	account, _ := v.(*models.Account)
	return account
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
