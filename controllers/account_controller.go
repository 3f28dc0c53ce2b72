package controllers

import (
	"net/http"

	apperrors "storefront-service/common/errors"
	"storefront-service/middleware"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccountController struct {
	overview *services.AccountOverviewService
	cookies  middleware.CookieConfig
	logger   *zap.Logger
}

func NewAccountController(overview *services.AccountOverviewService, cookies middleware.CookieConfig, logger *zap.Logger) *AccountController {
	return &AccountController{overview: overview, cookies: cookies, logger: logger}
}

// Field presence is checked by the session so every missing-field case
// gets the same message.
type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ac *AccountController) Register(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ac.logger, apperrors.Validation(services.MsgRegisterRequired))
		return
	}

	account, err := sf.Session.Register(c.Request.Context(), services.RegisterInput{
		Name:              req.Name,
		Email:             req.Email,
		SessionCredential: req.SessionID,
		Password:          req.Password,
	})
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	middleware.WriteTokenCookie(c, sf.Accounts.Token(), ac.cookies)
	c.JSON(http.StatusCreated, gin.H{"account": account})
}

func (ac *AccountController) Login(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ac.logger, apperrors.Validation(services.MsgLoginRequired))
		return
	}

	account, err := sf.Session.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	middleware.WriteTokenCookie(c, sf.Accounts.Token(), ac.cookies)
	c.JSON(http.StatusOK, gin.H{"account": account})
}

func (ac *AccountController) Logout(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}

	if err := sf.Session.Logout(c.Request.Context()); err != nil {
		respondError(c, ac.logger, err)
		return
	}

	middleware.WriteTokenCookie(c, "", ac.cookies)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Session reports the account session without blocking on resolution.
func (ac *AccountController) Session(c *gin.Context) {
	sf := middleware.GetStorefront(c)
	if sf == nil {
		storefrontMissing(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":      sf.Session.State(),
		"auth_ready": sf.Session.AuthReady(),
		"account":    sf.Session.Account(),
	})
}

// Overview is served behind RequireAccount.
func (ac *AccountController) Overview(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	if account == nil {
		respondError(c, ac.logger, apperrors.Auth(services.MsgSignInRequired))
		return
	}
	c.JSON(http.StatusOK, ac.overview.Overview(c.Request.Context(), *account))
}
