package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "storefront-service/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := map[apperrors.Kind]int{
		apperrors.KindValidation:         http.StatusBadRequest,
		apperrors.KindFormat:             http.StatusBadRequest,
		apperrors.KindConflict:           http.StatusConflict,
		apperrors.KindAuth:               http.StatusUnauthorized,
		apperrors.KindPrecondition:       http.StatusPreconditionFailed,
		apperrors.KindCredentialMismatch: http.StatusUnprocessableEntity,
		apperrors.KindInsufficientFunds:  http.StatusPaymentRequired,
		apperrors.KindBackendUnavailable: http.StatusServiceUnavailable,
		apperrors.KindNotFound:           http.StatusNotFound,
		apperrors.KindInternal:           http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, apperrors.StatusFor(kind), string(kind))
	}
}

func TestAsAndIs(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("loading balance: %w", apperrors.BackendUnavailable("We couldn't reach the balance service.", cause))

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.True(t, apperrors.Is(err, apperrors.KindBackendUnavailable))
	assert.False(t, apperrors.Is(err, apperrors.KindAuth))
	assert.False(t, apperrors.Is(nil, apperrors.KindInternal))
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(cause))
}

func TestNewDerivesKind(t *testing.T) {
	assert.Equal(t, apperrors.KindAuth, apperrors.New(http.StatusForbidden, "no", nil).Kind)
	assert.Equal(t, apperrors.KindInternal, apperrors.New(http.StatusTeapot, "no", nil).Kind)
}

func TestErrorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.GET("/app", func(c *gin.Context) { _ = c.Error(apperrors.Conflict("busy")) })
	r.GET("/foreign", func(c *gin.Context) { _ = c.Error(stderrors.New("boom")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"code":409,"kind":"conflict","message":"busy"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/foreign", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}
