package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cardprint-backend/internal/models"
)

const (
	selectWebhookEvent = `SELECT event_id, event_type, processed_at FROM webhook_events WHERE event_id = $1`

	insertWebhookEvent = `
		INSERT INTO webhook_events (event_id, event_type, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`
)

// WebhookEvents is the durable idempotency ledger.
type WebhookEvents struct {
	db *sql.DB
}

func NewWebhookEvents(db *sql.DB) *WebhookEvents {
	return &WebhookEvents{db: db}
}

func (w *WebhookEvents) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	_, err := w.Get(ctx, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns sql.ErrNoRows when the event was never recorded.
func (w *WebhookEvents) Get(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var e models.WebhookEvent
	err := w.db.QueryRowContext(ctx, selectWebhookEvent, eventID).Scan(&e.ID, &e.Type, &e.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook event %s: %w", eventID, err)
	}
	return &e, nil
}

// MarkProcessed records the event. Recording the same id twice is a no-op.
func (w *WebhookEvents) MarkProcessed(ctx context.Context, event models.WebhookEvent) error {
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now().UTC()
	}
	if _, err := w.db.ExecContext(ctx, insertWebhookEvent, event.ID, event.Type, event.ProcessedAt); err != nil {
		return fmt.Errorf("failed to record webhook event %s: %w", event.ID, err)
	}
	return nil
}
