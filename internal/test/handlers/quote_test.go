package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/deck"
	"cardprint-backend/internal/handlers"
)

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func setupQuoteRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/quote", handlers.QuoteHandler)
	return router
}

func TestQuoteHandler(t *testing.T) {
	router := setupQuoteRouter()

	w := postJSON(router, "/quote", `{"country":"us","cards":[{"id":"a","finish":"standard","quantity":100},{"id":"b","finish":"silver","quantity":44}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var q deck.Quote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, 144, q.CardCount)
	assert.Equal(t, deck.StarterPrice, q.PricePerCard)
	assert.Equal(t, "US", q.ShippingCountry)
	assert.Equal(t, deck.DomesticShipping, q.ShippingCost)
	assert.InDelta(t, 44*deck.SilverSurcharge, q.FinishSurcharge, 1e-9)
	assert.InDelta(t, q.CardsTotal+q.FinishSurcharge+q.ShippingCost, q.Total, 1e-9)
}

func TestQuoteHandler_CountryDefaults(t *testing.T) {
	router := setupQuoteRouter()

	for _, country := range []string{"", "OTHER"} {
		w := postJSON(router, "/quote", `{"country":"`+country+`","cards":[{"id":"a","quantity":1}]}`)
		require.Equal(t, http.StatusOK, w.Code)

		var q deck.Quote
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
		assert.Equal(t, deck.DefaultCountry, q.ShippingCountry)
		assert.Equal(t, deck.InternationalShipping, q.ShippingCost)
	}
}

func TestQuoteHandler_Rejects(t *testing.T) {
	router := setupQuoteRouter()

	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"malformed body", `{"cards":`, "invalid request body"},
		{"negative quantity", `{"country":"US","cards":[{"id":"a","quantity":-1}]}`, "Invalid quantity"},
		{"unsupported country", `{"country":"KP","cards":[{"id":"a","quantity":1}]}`, "Shipping not available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/quote", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}
