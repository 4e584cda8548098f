package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cardprint-backend/internal/config"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/payment"
	"cardprint-backend/internal/services"
)

const signatureHeader = "Stripe-Signature"

type EventVerifier interface {
	ConstructEvent(payload []byte, header, secret string) (*payment.Event, error)
}

type EventProcessor interface {
	HandleEvent(ctx context.Context, event *payment.Event, correlationID string) (services.Outcome, error)
}

type WebhookHandler struct {
	config    *config.Config
	verifier  EventVerifier
	processor EventProcessor
	logger    zerolog.Logger
}

func NewWebhookHandler(cfg *config.Config, verifier EventVerifier, processor EventProcessor, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		config:    cfg,
		verifier:  verifier,
		processor: processor,
		logger:    logger,
	}
}

// HandleWebhook godoc
// @Summary     Payment gateway webhook endpoint
// @Description Receives signed payment events. Once the signature is verified
// @Description the response is always 200 so the gateway does not retry;
// @Description processing failures are logged and reported in the body.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Stripe-Signature header string true "Webhook signature"
// @Success     200 {object} models.WebhookResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /webhooks/stripe [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	start := time.Now()
	correlationID := newCorrelationID(start)
	log := h.logger.With().Str("correlation_id", correlationID).Logger()

	sig := c.GetHeader(signatureHeader)
	if sig == "" {
		log.Warn().Msg("Webhook without signature header")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         "Missing stripe-signature header",
			"correlationId": correlationID,
		})
		return
	}

	if h.config.StripeWebhookSecret == "" {
		log.Error().Msg("STRIPE_WEBHOOK_SECRET is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":         "Webhook secret not configured",
			"correlationId": correlationID,
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read request body",
			Message: err.Error(),
		})
		return
	}

	event, err := h.verifier.ConstructEvent(body, sig, h.config.StripeWebhookSecret)
	if err != nil {
		log.Warn().Err(err).Int("body_length", len(body)).Msg("Webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         "Webhook signature verification failed",
			"code":          "SIGNATURE_VERIFICATION_FAILED",
			"correlationId": correlationID,
		})
		return
	}

	// The gateway may hang up before processing finishes; the work must not
	// be cancelled with it.
	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := h.processor.HandleEvent(ctx, event, correlationID)

	response := models.WebhookResponse{
		Received:      true,
		EventType:     event.Type,
		EventID:       event.ID,
		CorrelationID: correlationID,
		Status:        string(outcome),
	}
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Str("event_type", event.Type).Msg("Webhook processing failed")
		response.Status = "failed"
		response.Error = "Event processing failed"
	}
	response.ProcessingTime = time.Since(start).Milliseconds()
	c.JSON(http.StatusOK, response)
}

// newCorrelationID is wh_<unix millis>_<random>.
func newCorrelationID(at time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("wh_%d_%s", at.UnixMilli(), random)
}
