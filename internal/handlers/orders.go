package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cardprint-backend/internal/models"
	"cardprint-backend/internal/supabase"
)

type OrderReader interface {
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
}

type OrdersHandler struct {
	orders OrderReader
}

func NewOrdersHandler(orders OrderReader) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// GetStatus godoc
// @Summary     Get order payment status
// @Description Returns the status of the order created for a checkout session.
// @Description The success page polls this until the webhook marks it paid.
// @Tags        orders
// @Produce     json
// @Param       session_id path string true "Checkout session id"
// @Success     200 {object} models.OrderStatusResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders/{session_id}/status [get]
func (h *OrdersHandler) GetStatus(c *gin.Context) {
	order, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.OrderStatusResponse{
		SessionID:     order.StripeSessionID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Quantity:      order.Quantity,
		UpdatedAt:     order.UpdatedAt,
	})
}

// GetOrder godoc
// @Summary     Get full order
// @Description Returns the stored order including image URLs and card data.
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Checkout session id"
// @Success     200 {object} models.Order
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /admin/orders/{session_id} [get]
func (h *OrdersHandler) GetOrder(c *gin.Context) {
	order, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrdersHandler) lookup(c *gin.Context) (*models.Order, bool) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "session id is required"})
		return nil, false
	}

	order, err := h.orders.FindBySessionID(c.Request.Context(), sessionID)
	if errors.Is(err, supabase.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "order not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get order",
			Message: err.Error(),
		})
		return nil, false
	}
	return order, true
}
