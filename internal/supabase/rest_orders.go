package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardprint-backend/internal/models"
)

const ordersTable = "orders"

// RestOrderStore is the order repository used when no direct database URL is
// configured. It goes through PostgREST with the service key.
type RestOrderStore struct {
	client *Client
}

func NewRestOrderStore(client *Client) *RestOrderStore {
	return &RestOrderStore{client: client}
}

func (r *RestOrderStore) UpsertOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := map[string]interface{}{
		"stripe_session_id":   o.StripeSessionID,
		"status":              o.Status,
		"payment_status":      o.PaymentStatus,
		"customer_email":      o.CustomerEmail,
		"customer_name":       o.CustomerName,
		"total_amount_cents":  o.TotalAmountCents,
		"currency":            o.Currency,
		"quantity":            o.Quantity,
		"price_per_card":      o.PricePerCard,
		"shipping_cost_cents": o.ShippingCostCents,
		"shipping_country":    o.ShippingCountry,
		"card_images":         nonNil(o.CardImages),
		"front_image_urls":    nonNil(o.FrontImageURLs),
		"back_image_urls":     nonNil(o.BackImageURLs),
		"mask_image_urls":     nonNil(o.MaskImageURLs),
	}
	setOptional(row, "customer_phone", o.CustomerPhone)
	setOptional(row, "image_storage_path", o.ImageStoragePath)
	setJSON(row, "shipping_address", o.ShippingAddress)
	setJSON(row, "billing_address", o.BillingAddress)
	setJSON(row, "card_data", o.CardData)
	setJSON(row, "metadata", o.Metadata)

	body, _, err := r.client.Supabase.From(ordersTable).
		Upsert(row, "stripe_session_id", "representation", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert order: %w", err)
	}
	return firstOrder(body)
}

func (r *RestOrderStore) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, _, err := r.client.Supabase.From(ordersTable).
		Select("*", "", false).
		Eq("stripe_session_id", sessionID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	order, err := firstOrder(body)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return order, nil
}

// ApplyPaymentUpdate updates the existing order with the supplied fields or
// inserts one from the fallback fields.
func (r *RestOrderStore) ApplyPaymentUpdate(ctx context.Context, u models.PaymentUpdate) (*models.Order, bool, error) {
	fields := map[string]interface{}{
		"payment_status": u.PaymentStatus,
		"status":         u.Status,
		"updated_at":     time.Now().UTC(),
	}
	if u.CustomerEmail != nil {
		fields["customer_email"] = *u.CustomerEmail
	}
	if u.CustomerName != nil {
		fields["customer_name"] = *u.CustomerName
	}
	if u.CustomerPhone != nil {
		fields["customer_phone"] = *u.CustomerPhone
	}
	setJSON(fields, "shipping_address", u.ShippingAddress)
	setJSON(fields, "billing_address", u.BillingAddress)
	if u.TotalAmountCents != nil {
		fields["total_amount_cents"] = *u.TotalAmountCents
	}
	if u.ShippingCostCents != nil {
		fields["shipping_cost_cents"] = *u.ShippingCostCents
	}

	_, err := r.FindBySessionID(ctx, u.SessionID)
	switch {
	case err == nil:
		body, _, err := r.client.Supabase.From(ordersTable).
			Update(fields, "representation", "").
			Eq("stripe_session_id", u.SessionID).
			Execute()
		if err != nil {
			return nil, false, fmt.Errorf("failed to update order: %w", err)
		}
		order, err := firstOrder(body)
		return order, false, err
	case !errors.Is(err, ErrOrderNotFound):
		return nil, false, err
	}

	delete(fields, "updated_at")
	fields["stripe_session_id"] = u.SessionID
	fields["quantity"] = u.Quantity
	fields["price_per_card"] = u.PricePerCard
	fields["card_images"] = []string{}
	fields["front_image_urls"] = []string{}
	fields["back_image_urls"] = []string{}
	fields["mask_image_urls"] = []string{}
	fields["card_data"] = []interface{}{}
	fields["metadata"] = u.Metadata
	setOptional(fields, "shipping_country", u.ShippingCountry)
	setOptional(fields, "image_storage_path", u.ImageStoragePath)

	body, _, err := r.client.Supabase.From(ordersTable).
		Insert(fields, true, "stripe_session_id", "representation", "").
		Execute()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}
	order, err := firstOrder(body)
	return order, true, err
}

func firstOrder(body []byte) (*models.Order, error) {
	var orders []models.Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

func setOptional(row map[string]interface{}, key, value string) {
	if value != "" {
		row[key] = value
	}
}

func setJSON(row map[string]interface{}, key string, raw json.RawMessage) {
	if len(raw) > 0 {
		row[key] = raw
	}
}
