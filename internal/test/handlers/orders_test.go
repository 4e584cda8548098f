package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/handlers"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/supabase"
)

type stubOrders struct {
	orders map[string]*models.Order
	err    error
}

func (s *stubOrders) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	o, ok := s.orders[sessionID]
	if !ok {
		return nil, supabase.ErrOrderNotFound
	}
	return o, nil
}

func setupOrdersRouter(orders handlers.OrderReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewOrdersHandler(orders)
	router := gin.New()
	router.GET("/orders/:session_id/status", h.GetStatus)
	router.GET("/admin/orders/:session_id", h.GetOrder)
	return router
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func paidOrder() *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		StripeSessionID: "cs_test_1",
		Status:          models.OrderStatusPaid,
		PaymentStatus:   "paid",
		CustomerEmail:   "buyer@example.com",
		Quantity:        144,
		FrontImageURLs:  []string{"https://cdn.test/front.png"},
		UpdatedAt:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestGetStatus(t *testing.T) {
	router := setupOrdersRouter(&stubOrders{orders: map[string]*models.Order{"cs_test_1": paidOrder()}})

	w := getPath(router, "/orders/cs_test_1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.OrderStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cs_test_1", resp.SessionID)
	assert.Equal(t, models.OrderStatusPaid, resp.Status)
	assert.Equal(t, 144, resp.Quantity)
	assert.NotContains(t, w.Body.String(), "buyer@example.com")
}

func TestGetOrder(t *testing.T) {
	router := setupOrdersRouter(&stubOrders{orders: map[string]*models.Order{"cs_test_1": paidOrder()}})

	w := getPath(router, "/admin/orders/cs_test_1")
	require.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, "buyer@example.com", order.CustomerEmail)
	assert.Equal(t, []string{"https://cdn.test/front.png"}, order.FrontImageURLs)
}

func TestOrders_Errors(t *testing.T) {
	w := getPath(setupOrdersRouter(&stubOrders{}), "/orders/cs_missing/status")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "order not found")

	w = getPath(setupOrdersRouter(&stubOrders{err: errors.New("connection refused")}), "/admin/orders/cs_test_1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to get order")
}
