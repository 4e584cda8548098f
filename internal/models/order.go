package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Order is keyed by the payment session id; there is at most one row per
// session.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	StripeSessionID   string          `json:"stripe_session_id"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	CustomerEmail     string          `json:"customer_email,omitempty"`
	CustomerName      string          `json:"customer_name,omitempty"`
	CustomerPhone     string          `json:"customer_phone,omitempty"`
	ShippingAddress   json.RawMessage `json:"shipping_address,omitempty"`
	BillingAddress    json.RawMessage `json:"billing_address,omitempty"`
	TotalAmountCents  int64           `json:"total_amount_cents"`
	Currency          string          `json:"currency"`
	Quantity          int             `json:"quantity"`
	PricePerCard      float64         `json:"price_per_card"`
	ShippingCostCents int64           `json:"shipping_cost_cents"`
	ShippingCountry   string          `json:"shipping_country,omitempty"`
	CardImages        []string        `json:"card_images"`
	FrontImageURLs    []string        `json:"front_image_urls"`
	BackImageURLs     []string        `json:"back_image_urls"`
	MaskImageURLs     []string        `json:"mask_image_urls"`
	CardData          json.RawMessage `json:"card_data,omitempty"`
	ImageStoragePath  string          `json:"image_storage_path,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PaymentUpdate carries what a completed checkout session reports. Nil or
// empty fields were not supplied and must leave stored values untouched.
type PaymentUpdate struct {
	SessionID         string
	PaymentStatus     string
	Status            string
	CustomerEmail     *string
	CustomerName      *string
	CustomerPhone     *string
	ShippingAddress   json.RawMessage
	BillingAddress    json.RawMessage
	TotalAmountCents  *int64
	ShippingCostCents *int64

	// Used only when no order exists for the session yet.
	Quantity         int
	PricePerCard     float64
	ShippingCountry  string
	ImageStoragePath string
	Metadata         map[string]string
}

// WebhookEvent is an idempotency ledger entry keyed by the gateway event id.
type WebhookEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProcessedAt time.Time `json:"processed_at"`
}
