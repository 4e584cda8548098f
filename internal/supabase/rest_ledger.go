package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cardprint-backend/internal/models"
)

const webhookEventsTable = "webhook_events"

type webhookEventRow struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	ProcessedAt time.Time `json:"processed_at"`
}

// RestWebhookEvents is the idempotency ledger over PostgREST.
type RestWebhookEvents struct {
	client *Client
}

func NewRestWebhookEvents(client *Client) *RestWebhookEvents {
	return &RestWebhookEvents{client: client}
}

func (r *RestWebhookEvents) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	body, _, err := r.client.Supabase.From(webhookEventsTable).
		Select("event_id", "", false).
		Eq("event_id", eventID).
		Execute()
	if err != nil {
		return false, fmt.Errorf("failed to read webhook event %s: %w", eventID, err)
	}
	var rows []webhookEventRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, fmt.Errorf("failed to decode webhook events: %w", err)
	}
	return len(rows) > 0, nil
}

func (r *RestWebhookEvents) MarkProcessed(ctx context.Context, event models.WebhookEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now().UTC()
	}
	row := webhookEventRow{EventID: event.ID, EventType: event.Type, ProcessedAt: event.ProcessedAt}
	_, _, err := r.client.Supabase.From(webhookEventsTable).
		Upsert(row, "event_id", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to record webhook event %s: %w", event.ID, err)
	}
	return nil
}
