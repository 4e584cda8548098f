package services

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"cardprint-backend/internal/events"
	"cardprint-backend/internal/ledger"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/payment"
	"cardprint-backend/internal/retry"
)

type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
)

const slowOperationThreshold = 5 * time.Second

// ConfirmationService applies verified gateway events to orders at most once
// per event id.
type ConfirmationService struct {
	orders    OrderRepository
	ledger    ledger.Ledger
	publisher events.Publisher
	logger    zerolog.Logger
	retryOpts []retry.Option
}

func NewConfirmationService(orders OrderRepository, l ledger.Ledger, publisher events.Publisher, logger zerolog.Logger, retryOpts ...retry.Option) *ConfirmationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ConfirmationService{
		orders:    orders,
		ledger:    l,
		publisher: publisher,
		logger:    logger,
		retryOpts: retryOpts,
	}
}

// HandleEvent processes event unless the ledger already has it. The event is
// recorded only after processing succeeds, so a failure leads to a full
// reprocess on redelivery.
func (s *ConfirmationService) HandleEvent(ctx context.Context, event *payment.Event, correlationID string) (Outcome, error) {
	log := s.logger.With().
		Str("correlation_id", correlationID).
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Logger()
	start := time.Now()
	defer func() {
		if d := time.Since(start); d > slowOperationThreshold {
			log.Warn().Dur("duration", d).Msg("Slow webhook processing")
		}
	}()

	if s.alreadyProcessed(ctx, event.ID, log) {
		log.Info().Msg("Event already processed, skipping")
		return OutcomeAlreadyProcessed, nil
	}

	if err := s.dispatch(ctx, event, log); err != nil {
		log.Error().Err(err).Msg("Event processing failed")
		return "", err
	}

	record := models.WebhookEvent{ID: event.ID, Type: event.Type, ProcessedAt: time.Now().UTC()}
	if err := s.withRetry(ctx, retry.LedgerPolicy, "mark_processed", log, func(ctx context.Context) error {
		return s.ledger.MarkProcessed(ctx, record)
	}); err != nil {
		log.Error().Err(err).Msg("Failed to record processed event")
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Webhook processing completed")
	return OutcomeProcessed, nil
}

// alreadyProcessed treats a failing ledger as "not processed". Reprocessing
// is safe because order writes are upserts.
func (s *ConfirmationService) alreadyProcessed(ctx context.Context, eventID string, log zerolog.Logger) bool {
	var processed bool
	err := s.withRetry(ctx, retry.LedgerPolicy, "idempotency_check", log, func(ctx context.Context) error {
		var err error
		processed, err = s.ledger.IsProcessed(ctx, eventID)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("Idempotency check failed, processing event")
		return false
	}
	return processed
}

func (s *ConfirmationService) dispatch(ctx context.Context, event *payment.Event, log zerolog.Logger) error {
	switch event.Type {
	case payment.EventCheckoutSessionCompleted:
		session, err := event.Session()
		if err != nil {
			return err
		}
		return s.confirmCheckout(ctx, session, log)
	case payment.EventPaymentIntentSucceeded:
		log.Info().Msg("Payment intent succeeded")
	case payment.EventPaymentIntentPaymentFailed:
		log.Warn().RawJSON("payment_intent", event.Data.Object).Msg("Payment failed")
	default:
		log.Info().Msg("Unhandled event type")
	}
	return nil
}

func (s *ConfirmationService) confirmCheckout(ctx context.Context, session *payment.Session, log zerolog.Logger) error {
	log = log.With().Str("session_id", session.ID).Logger()
	update := PaymentUpdateFromSession(session)

	var order *models.Order
	var inserted bool
	err := s.withRetry(ctx, retry.OrderUpdatePolicy, "order_update", log, func(ctx context.Context) error {
		var err error
		order, inserted, err = s.orders.ApplyPaymentUpdate(ctx, update)
		return err
	})
	if err != nil {
		return err
	}

	if inserted {
		log.Warn().Msg("No order found for session, created from metadata")
	}
	log.Info().
		Str("status", order.Status).
		Str("payment_status", order.PaymentStatus).
		Int64("amount", order.TotalAmountCents).
		Msg("Order updated")

	eventType := events.TypeOrderUpdated
	if order.Status == models.OrderStatusPaid {
		eventType = events.TypeOrderPaid
	}
	if err := s.publisher.Publish(ctx, events.OrderEvent{
		Type:          eventType,
		SessionID:     session.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Quantity:      order.Quantity,
		At:            time.Now().UTC(),
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to publish order event")
	}
	return nil
}

func (s *ConfirmationService) withRetry(ctx context.Context, p retry.Policy, operation string, log zerolog.Logger, fn func(ctx context.Context) error) error {
	start := time.Now()
	opts := append([]retry.Option{
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			log.Warn().Err(err).
				Str("operation", operation).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying after transient error")
		}),
	}, s.retryOpts...)

	err := retry.Do(ctx, p, fn, opts...)
	if d := time.Since(start); d > slowOperationThreshold {
		log.Warn().Str("operation", operation).Dur("duration", d).Msg("Slow operation")
	}
	return err
}

// PaymentUpdateFromSession maps a completed checkout session onto an order
// update. Only fields the session carries are set.
func PaymentUpdateFromSession(session *payment.Session) models.PaymentUpdate {
	status := models.OrderStatusPending
	if session.PaymentStatus == models.PaymentStatusPaid {
		status = models.OrderStatusPaid
	}
	u := models.PaymentUpdate{
		SessionID:     session.ID,
		PaymentStatus: session.PaymentStatus,
		Status:        status,
		Metadata:      session.Metadata,
	}

	email := session.CustomerEmail
	if d := session.CustomerDetails; d != nil {
		if d.Email != "" {
			email = d.Email
		}
		if d.Name != "" {
			u.CustomerName = &d.Name
		}
		if d.Phone != "" {
			u.CustomerPhone = &d.Phone
		}
		if hasJSON(d.Address) {
			u.BillingAddress = d.Address
		}
	}
	if email != "" {
		u.CustomerEmail = &email
	}
	if d := session.Shipping(); d != nil && hasJSON(d.Address) {
		u.ShippingAddress = d.Address
	}
	if session.AmountTotal > 0 {
		total := session.AmountTotal
		u.TotalAmountCents = &total
	}
	switch {
	case session.ShippingCost != nil && session.ShippingCost.AmountTotal > 0:
		shipping := session.ShippingCost.AmountTotal
		u.ShippingCostCents = &shipping
	case session.TotalDetails != nil && session.TotalDetails.AmountShipping > 0:
		shipping := session.TotalDetails.AmountShipping
		u.ShippingCostCents = &shipping
	}

	md := session.Metadata
	u.Quantity, _ = strconv.Atoi(md["quantity"])
	u.PricePerCard, _ = strconv.ParseFloat(md["pricePerCard"], 64)
	u.ShippingCountry = md["shippingCountry"]
	if u.ShippingCountry == "" {
		u.ShippingCountry = session.ShippingCountry()
	}
	u.ImageStoragePath = md["imageStoragePath"]
	return u
}

func hasJSON(raw []byte) bool {
	return len(raw) > 0 && string(raw) != "null"
}
