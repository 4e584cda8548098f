package services

import (
	"context"

	"cardprint-backend/internal/models"
)

// BlobStore stores a raster and returns its public URL.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// OrderRepository addresses orders by payment session id only. Both writes
// are upserts so duplicate deliveries never create a second row.
type OrderRepository interface {
	UpsertOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	ApplyPaymentUpdate(ctx context.Context, update models.PaymentUpdate) (*models.Order, bool, error)
}
