package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"cardprint-backend/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = `
	id, stripe_session_id, status, payment_status,
	COALESCE(customer_email, ''), COALESCE(customer_name, ''), COALESCE(customer_phone, ''),
	shipping_address, billing_address,
	total_amount_cents, currency, quantity, price_per_card, shipping_cost_cents,
	COALESCE(shipping_country, ''),
	card_images, front_image_urls, back_image_urls, mask_image_urls,
	card_data, COALESCE(image_storage_path, ''), metadata,
	created_at, updated_at`

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// NewDatabaseClientFromDB wraps an existing handle.
func NewDatabaseClientFromDB(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// UpsertOrder inserts the order or, when a row already exists for the same
// session id, replaces its checkout fields.
func (d *DatabaseClient) UpsertOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	row := d.db.QueryRowContext(ctx, `
		INSERT INTO orders (
			stripe_session_id, status, payment_status,
			customer_email, customer_name, customer_phone,
			shipping_address, billing_address,
			total_amount_cents, currency, quantity, price_per_card, shipping_cost_cents, shipping_country,
			card_images, front_image_urls, back_image_urls, mask_image_urls,
			card_data, image_storage_path, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			COALESCE($19::jsonb, '[]'::jsonb), $20, COALESCE($21::jsonb, '{}'::jsonb))
		ON CONFLICT (stripe_session_id) DO UPDATE SET
			customer_email = EXCLUDED.customer_email,
			customer_name = EXCLUDED.customer_name,
			customer_phone = COALESCE(EXCLUDED.customer_phone, orders.customer_phone),
			shipping_address = COALESCE(EXCLUDED.shipping_address, orders.shipping_address),
			total_amount_cents = EXCLUDED.total_amount_cents,
			quantity = EXCLUDED.quantity,
			price_per_card = EXCLUDED.price_per_card,
			shipping_cost_cents = EXCLUDED.shipping_cost_cents,
			shipping_country = EXCLUDED.shipping_country,
			card_images = EXCLUDED.card_images,
			front_image_urls = EXCLUDED.front_image_urls,
			back_image_urls = EXCLUDED.back_image_urls,
			mask_image_urls = EXCLUDED.mask_image_urls,
			card_data = EXCLUDED.card_data,
			image_storage_path = EXCLUDED.image_storage_path,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING `+orderColumns,
		o.StripeSessionID, o.Status, o.PaymentStatus,
		o.CustomerEmail, o.CustomerName, nullString(o.CustomerPhone),
		jsonParam(o.ShippingAddress), jsonParam(o.BillingAddress),
		o.TotalAmountCents, o.Currency, o.Quantity, o.PricePerCard, o.ShippingCostCents, nullString(o.ShippingCountry),
		pq.Array(nonNil(o.CardImages)), pq.Array(nonNil(o.FrontImageURLs)),
		pq.Array(nonNil(o.BackImageURLs)), pq.Array(nonNil(o.MaskImageURLs)),
		jsonParam(o.CardData), nullString(o.ImageStoragePath), jsonParam(o.Metadata),
	)

	saved, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert order: %w", err)
	}
	return saved, nil
}

func (d *DatabaseClient) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1`, sessionID)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ApplyPaymentUpdate writes a confirmed payment onto the session's order.
// Fields absent from u keep their stored values. When no order exists one is
// created from u's fallback fields. The boolean reports whether a row was
// inserted.
func (d *DatabaseClient) ApplyPaymentUpdate(ctx context.Context, u models.PaymentUpdate) (*models.Order, bool, error) {
	md := u.Metadata
	if md == nil {
		md = map[string]string{}
	}
	metadata, err := json.Marshal(md)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode metadata: %w", err)
	}

	var totalCents, shippingCents interface{}
	if u.TotalAmountCents != nil {
		totalCents = *u.TotalAmountCents
	}
	if u.ShippingCostCents != nil {
		shippingCents = *u.ShippingCostCents
	}

	row := d.db.QueryRowContext(ctx, `
		INSERT INTO orders (
			stripe_session_id, status, payment_status,
			customer_email, customer_name, customer_phone,
			shipping_address, billing_address,
			total_amount_cents, shipping_cost_cents,
			quantity, price_per_card, shipping_country, image_storage_path, metadata,
			card_images, front_image_urls, back_image_urls, mask_image_urls, card_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9::bigint, 0), COALESCE($10::bigint, 0), $11, $12, $13, $14, $15,
			'{}', '{}', '{}', '{}', '[]'::jsonb)
		ON CONFLICT (stripe_session_id) DO UPDATE SET
			status = EXCLUDED.status,
			payment_status = EXCLUDED.payment_status,
			customer_email = COALESCE($4::text, orders.customer_email),
			customer_name = COALESCE($5::text, orders.customer_name),
			customer_phone = COALESCE($6::text, orders.customer_phone),
			shipping_address = COALESCE($7::jsonb, orders.shipping_address),
			billing_address = COALESCE($8::jsonb, orders.billing_address),
			total_amount_cents = COALESCE($9::bigint, orders.total_amount_cents),
			shipping_cost_cents = COALESCE($10::bigint, orders.shipping_cost_cents),
			updated_at = NOW()
		RETURNING (xmax = 0), `+orderColumns,
		u.SessionID, u.Status, u.PaymentStatus,
		ptrString(u.CustomerEmail), ptrString(u.CustomerName), ptrString(u.CustomerPhone),
		jsonParam(u.ShippingAddress), jsonParam(u.BillingAddress),
		totalCents, shippingCents,
		u.Quantity, u.PricePerCard, nullString(u.ShippingCountry), nullString(u.ImageStoragePath), string(metadata),
	)

	var inserted bool
	order, err := scanOrder(row, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("failed to apply payment update: %w", err)
	}
	return order, inserted, nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func scanOrder(row *sql.Row, leading ...interface{}) (*models.Order, error) {
	var o models.Order
	var shipping, billing, cardData, metadata []byte

	dest := append(leading,
		&o.ID, &o.StripeSessionID, &o.Status, &o.PaymentStatus,
		&o.CustomerEmail, &o.CustomerName, &o.CustomerPhone,
		&shipping, &billing,
		&o.TotalAmountCents, &o.Currency, &o.Quantity, &o.PricePerCard, &o.ShippingCostCents,
		&o.ShippingCountry,
		pq.Array(&o.CardImages), pq.Array(&o.FrontImageURLs), pq.Array(&o.BackImageURLs), pq.Array(&o.MaskImageURLs),
		&cardData, &o.ImageStoragePath, &metadata,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	o.ShippingAddress = json.RawMessage(shipping)
	o.BillingAddress = json.RawMessage(billing)
	o.CardData = json.RawMessage(cardData)
	o.Metadata = json.RawMessage(metadata)
	return &o, nil
}

// lib/pq sends []byte as bytea, so JSON goes over the wire as text.
func jsonParam(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ptrString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
