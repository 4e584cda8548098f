package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

const DefaultTolerance = webhook.DefaultTolerance

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Verifier checks Stripe-Signature headers and decodes the event.
type Verifier struct {
	Tolerance time.Duration
}

func NewVerifier() *Verifier {
	return &Verifier{Tolerance: DefaultTolerance}
}

// ConstructEvent verifies header against payload and secret and decodes the
// event. Deliveries pinned to any API version are accepted.
func (v *Verifier) ConstructEvent(payload []byte, header, secret string) (*Event, error) {
	if header == "" {
		return nil, ErrMissingSignature
	}

	e, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                v.Tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	if e.ID == "" || e.Type == "" {
		return nil, fmt.Errorf("event is missing id or type")
	}

	event := &Event{ID: e.ID, Type: string(e.Type), Created: e.Created}
	if e.Data != nil {
		event.Data.Object = e.Data.Raw
	}
	return event, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

// SignatureHeader produces a header for payload, as the gateway would.
func SignatureHeader(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}
