package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/handlers"
	"cardprint-backend/internal/middleware"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/services"
)

type stubCheckout struct {
	err    error
	req    models.CheckoutRequest
	origin string
}

func (s *stubCheckout) CreateCheckout(_ context.Context, req models.CheckoutRequest, origin string) (*models.CheckoutResponse, error) {
	s.req = req
	s.origin = origin
	if s.err != nil {
		return nil, s.err
	}
	return &models.CheckoutResponse{Success: true, SessionID: "cs_test_1", URL: "https://pay.test/cs_test_1"}, nil
}

const checkoutBody = `{"quantity":2,"shippingAddress":{"name":"A","line1":"1 Main St","city":"Springfield","postal_code":"12345","country":"US"},"cardData":[{"id":"a","quantity":2}]}`

func setupCheckoutRouter(checkout handlers.CheckoutCreator, limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/checkout", middleware.MaxBodyBytes(limit), handlers.NewCheckoutHandler(checkout, zerolog.Nop()).CreateCheckout)
	return router
}

func TestCreateCheckout(t *testing.T) {
	checkout := &stubCheckout{}
	router := setupCheckoutRouter(checkout, 1<<20)

	req, _ := http.NewRequest("POST", "/checkout", strings.NewReader(checkoutBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://shop.test")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "cs_test_1", resp.SessionID)
	assert.Equal(t, "https://shop.test", checkout.origin)
	assert.Equal(t, 2, checkout.req.Quantity)
	require.NotNil(t, checkout.req.ShippingAddress)
}

func TestCreateCheckout_OriginFromReferer(t *testing.T) {
	checkout := &stubCheckout{}
	router := setupCheckoutRouter(checkout, 1<<20)

	req, _ := http.NewRequest("POST", "/checkout", strings.NewReader(checkoutBody))
	req.Header.Set("Referer", "https://shop.test/cart?step=2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.test", checkout.origin)
}

func TestCreateCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"invalid quantity", services.ErrInvalidQuantity, http.StatusBadRequest, "Invalid quantity"},
		{"invalid address", fmt.Errorf("%w: postal code is required", services.ErrInvalidAddress), http.StatusBadRequest, "Invalid shipping address"},
		{"country", services.ErrCountryNotAllowed, http.StatusBadRequest, "Shipping not available to this country"},
		{"gateway", errors.New("gateway unavailable"), http.StatusInternalServerError, "Failed to create checkout session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupCheckoutRouter(&stubCheckout{err: tt.err}, 1<<20)

			req, _ := http.NewRequest("POST", "/checkout", strings.NewReader(checkoutBody))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestCreateCheckout_BodyTooLarge(t *testing.T) {
	checkout := &stubCheckout{}
	router := setupCheckoutRouter(checkout, 64)

	req, _ := http.NewRequest("POST", "/checkout", strings.NewReader(checkoutBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, checkout.req.Quantity)
}

func TestCreateCheckout_BodyTooLargeWithoutContentLength(t *testing.T) {
	checkout := &stubCheckout{}
	router := setupCheckoutRouter(checkout, 64)

	req, _ := http.NewRequest("POST", "/checkout", strings.NewReader(checkoutBody))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Request body too large")
}
