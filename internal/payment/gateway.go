package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Event types the confirmation flow reacts to.
const (
	EventCheckoutSessionCompleted   = "checkout.session.completed"
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
)

const (
	MetadataValueLimit = 500
	metadataKeyLimit   = 40
	metadataMaxKeys    = 50
	defaultCurrency    = "usd"
)

var ErrMetadataTooLarge = errors.New("metadata exceeds gateway limits")

// Gateway creates and reads hosted checkout sessions.
type Gateway interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
}

type LineItem struct {
	Name            string
	Description     string
	Images          []string
	UnitAmountCents int64
	Quantity        int64
	Currency        string
}

type SessionParams struct {
	LineItems        []LineItem
	SuccessURL       string
	CancelURL        string
	CustomerEmail    string
	AllowedCountries []string
	Metadata         map[string]string
	AutomaticTax     bool
}

// ValidateMetadata enforces the gateway's metadata caps. Large structures
// belong in the order record, not here.
func ValidateMetadata(md map[string]string) error {
	if len(md) > metadataMaxKeys {
		return fmt.Errorf("%w: %d keys", ErrMetadataTooLarge, len(md))
	}
	for k, v := range md {
		if len(k) > metadataKeyLimit {
			return fmt.Errorf("%w: key %q too long", ErrMetadataTooLarge, k)
		}
		if len(v) > MetadataValueLimit {
			return fmt.Errorf("%w: value for %q is %d chars", ErrMetadataTooLarge, k, len(v))
		}
	}
	return nil
}

type Session struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	PaymentStatus   string            `json:"payment_status"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails *CustomerDetails  `json:"customer_details"`
	ShippingDetails *ShippingDetails  `json:"shipping_details"`
	Collected       *Collected        `json:"collected_information"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	ShippingCost    *ShippingCost     `json:"shipping_cost"`
	TotalDetails    *TotalDetails     `json:"total_details"`
	Metadata        map[string]string `json:"metadata"`
}

type CustomerDetails struct {
	Email   string          `json:"email"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone"`
	Address json.RawMessage `json:"address"`
}

type ShippingDetails struct {
	Name    string          `json:"name"`
	Address json.RawMessage `json:"address"`
}

// Collected carries the shipping details on API versions that moved them out
// of the session root.
type Collected struct {
	ShippingDetails *ShippingDetails `json:"shipping_details"`
}

type ShippingCost struct {
	AmountTotal int64 `json:"amount_total"`
}

type TotalDetails struct {
	AmountShipping int64 `json:"amount_shipping"`
}

// Event is a verified webhook delivery.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Shipping returns the collected shipping details wherever the API version
// placed them, or nil.
func (s *Session) Shipping() *ShippingDetails {
	if s.ShippingDetails != nil {
		return s.ShippingDetails
	}
	if s.Collected != nil {
		return s.Collected.ShippingDetails
	}
	return nil
}

// ShippingCountry returns the country of the collected shipping address.
func (s *Session) ShippingCountry() string {
	d := s.Shipping()
	if d == nil || len(d.Address) == 0 {
		return ""
	}
	var addr struct {
		Country string `json:"country"`
	}
	if err := json.Unmarshal(d.Address, &addr); err != nil {
		return ""
	}
	return addr.Country
}

// Session decodes the event payload as a checkout session.
func (e *Event) Session() (*Session, error) {
	var s Session
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("checkout session id is empty")
	}
	return &s, nil
}
