package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/payment"
	"cardprint-backend/internal/retry"
)

func TestStripeClient_CreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[0]"))
		assert.Equal(t, "http://localhost:3000/cart", r.PostForm.Get("cancel_url"))
		assert.Equal(t, "Custom Card Order - 144 cards", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "35", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "144", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "US", r.PostForm.Get("shipping_address_collection[allowed_countries][0]"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_tax[enabled]"))
		assert.Equal(t, "144", r.PostForm.Get("metadata[quantity]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_123","url":"https://checkout.stripe.com/pay/cs_test_123"}`))
	}))
	defer server.Close()

	client := payment.NewStripeClient(server.URL, "sk_test")
	session, err := client.CreateSession(context.Background(), payment.SessionParams{
		LineItems: []payment.LineItem{{
			Name:            "Custom Card Order - 144 cards",
			UnitAmountCents: 35,
			Quantity:        144,
		}},
		SuccessURL:       "http://localhost:3000/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        "http://localhost:3000/cart",
		AllowedCountries: []string{"US"},
		Metadata:         map[string]string{"quantity": "144"},
		AutomaticTax:     true,
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_123", session.URL)
}

func TestStripeClient_RetrieveSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_test_9", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_test_9",
			"object": "checkout.session",
			"payment_status": "paid",
			"amount_total": 5400,
			"currency": "usd",
			"customer_details": {"email": "ada@example.com", "name": "Ada"},
			"collected_information": {"shipping_details": {"name": "Ada", "address": {"country": "US"}}},
			"total_details": {"amount_shipping": 599},
			"metadata": {"quantity": "144"}
		}`))
	}))
	defer server.Close()

	// a configured /v1 suffix is tolerated
	client := payment.NewStripeClient(server.URL+"/v1/", "sk_test")
	session, err := client.RetrieveSession(context.Background(), "cs_test_9")
	require.NoError(t, err)

	assert.Equal(t, "paid", session.PaymentStatus)
	assert.EqualValues(t, 5400, session.AmountTotal)
	require.NotNil(t, session.CustomerDetails)
	assert.Equal(t, "ada@example.com", session.CustomerDetails.Email)
	assert.Equal(t, "US", session.ShippingCountry())
	require.NotNil(t, session.TotalDetails)
	assert.EqualValues(t, 599, session.TotalDetails.AmountShipping)
	assert.Equal(t, "144", session.Metadata["quantity"])
}

func TestStripeClient_ErrorStatuses(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"nope"}}`))
	}))
	defer server.Close()

	client := payment.NewStripeClient(server.URL, "sk_test")

	_, err := client.RetrieveSession(context.Background(), "cs_1")
	assert.ErrorIs(t, err, retry.ErrRateLimited)
	assert.True(t, retry.IsTransient(err))

	status.Store(http.StatusBadRequest)
	_, err = client.RetrieveSession(context.Background(), "cs_1")
	var statusErr *retry.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "nope", statusErr.Body)
	assert.False(t, retry.IsTransient(err))
}

func TestStripeClient_RejectsOversizedMetadata(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := payment.NewStripeClient(server.URL, "sk_test")
	big := make([]byte, 600)

	_, err := client.CreateSession(context.Background(), payment.SessionParams{
		Metadata: map[string]string{"cardData": string(big)},
	})
	assert.ErrorIs(t, err, payment.ErrMetadataTooLarge)
	assert.Zero(t, calls.Load())
}

func TestStripeClient_MissingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1"}`))
	}))
	defer server.Close()

	_, err := payment.NewStripeClient(server.URL, "sk_test").CreateSession(context.Background(), payment.SessionParams{
		LineItems: []payment.LineItem{{Name: "Cards", UnitAmountCents: 35, Quantity: 18}},
	})
	assert.Error(t, err)
}
