package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cardprint-backend/internal/middleware"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/services"
)

// CheckoutCreator is implemented by services.CheckoutService.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, req models.CheckoutRequest, origin string) (*models.CheckoutResponse, error)
}

type CheckoutHandler struct {
	checkout CheckoutCreator
	logger   zerolog.Logger
}

func NewCheckoutHandler(checkout CheckoutCreator, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger}
}

// CreateCheckout godoc
// @Summary     Create a checkout session
// @Description Validates and prices the order, stores embedded card images and
// @Description opens a hosted payment session. The order is saved as pending.
// @Tags        checkout
// @Accept      json
// @Produce     json
// @Param       request body models.CheckoutRequest true "Checkout request"
// @Success     200 {object} models.CheckoutResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /checkout [post]
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			respondBodyTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.checkout.CreateCheckout(c.Request.Context(), req, requestOrigin(c))
	switch {
	case errors.Is(err, services.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid quantity"})
		return
	case errors.Is(err, services.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid shipping address"})
		return
	case errors.Is(err, services.ErrCountryNotAllowed):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Shipping not available to this country"})
		return
	case err != nil:
		h.logger.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("Checkout failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to create checkout session",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// requestOrigin is the Origin header, else scheme://host of the Referer.
func requestOrigin(c *gin.Context) string {
	if origin := c.GetHeader("Origin"); origin != "" {
		return origin
	}
	referer := c.GetHeader("Referer")
	if referer == "" {
		return ""
	}
	parts := strings.SplitN(referer, "/", 4)
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:3], "/")
}
