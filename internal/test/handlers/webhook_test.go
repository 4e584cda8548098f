package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/config"
	"cardprint-backend/internal/handlers"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/payment"
	"cardprint-backend/internal/services"
)

const webhookSecret = "whsec_test"

type stubProcessor struct {
	outcome services.Outcome
	err     error
	calls   int
	ctxErr  error
	eventID string
}

func (p *stubProcessor) HandleEvent(ctx context.Context, event *payment.Event, correlationID string) (services.Outcome, error) {
	p.calls++
	p.ctxErr = ctx.Err()
	p.eventID = event.ID
	return p.outcome, p.err
}

func setupWebhookRouter(secret string, processor handlers.EventProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{StripeWebhookSecret: secret}
	h := handlers.NewWebhookHandler(cfg, payment.NewVerifier(), processor, zerolog.Nop())

	router := gin.New()
	router.POST("/webhooks/stripe", h.HandleWebhook)
	return router
}

func signedRequest(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()
	req, err := http.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Stripe-Signature", payment.SignatureHeader(payload, secret, time.Now()))
	return req
}

var completedEvent = []byte(`{"id":"evt_1","type":"checkout.session.completed","created":1700000000,"data":{"object":{"id":"cs_test_1"}}}`)

func TestWebhook_MissingSignature(t *testing.T) {
	processor := &stubProcessor{}
	router := setupWebhookRouter(webhookSecret, processor)

	req, _ := http.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(completedEvent))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing stripe-signature header")
	assert.Contains(t, w.Body.String(), `"correlationId":"wh_`)
	assert.Zero(t, processor.calls)
}

func TestWebhook_SecretNotConfigured(t *testing.T) {
	processor := &stubProcessor{}
	router := setupWebhookRouter("", processor)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(t, completedEvent, webhookSecret))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Webhook secret not configured")
	assert.Zero(t, processor.calls)
}

func TestWebhook_BadSignature(t *testing.T) {
	processor := &stubProcessor{}
	router := setupWebhookRouter(webhookSecret, processor)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(t, completedEvent, "whsec_other"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SIGNATURE_VERIFICATION_FAILED")
	assert.Zero(t, processor.calls)
}

func TestWebhook_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		processor  *stubProcessor
		wantStatus string
		wantError  string
	}{
		{
			name:       "processed",
			processor:  &stubProcessor{outcome: services.OutcomeProcessed},
			wantStatus: "processed",
		},
		{
			name:       "duplicate",
			processor:  &stubProcessor{outcome: services.OutcomeAlreadyProcessed},
			wantStatus: "already_processed",
		},
		{
			name:       "processing failed",
			processor:  &stubProcessor{err: errors.New("database unavailable")},
			wantStatus: "failed",
			wantError:  "Event processing failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupWebhookRouter(webhookSecret, tt.processor)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, signedRequest(t, completedEvent, webhookSecret))

			require.Equal(t, http.StatusOK, w.Code)

			var resp models.WebhookResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, resp.Received)
			assert.Equal(t, "evt_1", resp.EventID)
			assert.Equal(t, "checkout.session.completed", resp.EventType)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.True(t, strings.HasPrefix(resp.CorrelationID, "wh_"))
			assert.GreaterOrEqual(t, resp.ProcessingTime, int64(0))

			assert.Equal(t, 1, tt.processor.calls)
			assert.Equal(t, "evt_1", tt.processor.eventID)
			assert.NoError(t, tt.processor.ctxErr)
		})
	}
}
