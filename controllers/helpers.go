package controllers

import (
	"net/http"

	apperrors "storefront-service/common/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgSomethingWentWrong = "Something went wrong. Please try again."

// respondError writes an application error as {"error","kind"}. Foreign errors
// are logged and reported as a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	_ = c.Error(err)

	appErr, ok := apperrors.As(err)
	if !ok {
		logger.Error("Unhandled error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": msgSomethingWentWrong,
			"kind":  apperrors.KindInternal,
		})
		return
	}

	if appErr.Code >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(appErr))
	}
	c.AbortWithStatusJSON(appErr.Code, gin.H{
		"error": appErr.Message,
		"kind":  appErr.Kind,
	})
}

func storefrontMissing(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgSomethingWentWrong})
}
