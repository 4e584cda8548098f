package ledger

import (
	"context"
	"sync"
	"time"

	"cardprint-backend/internal/models"
)

// Ledger records which gateway events have been fully processed.
type Ledger interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, event models.WebhookEvent) error
}

// Memory is a process-local ledger for development and tests.
type Memory struct {
	mu     sync.RWMutex
	events map[string]models.WebhookEvent
}

func NewMemory() *Memory {
	return &Memory{events: make(map[string]models.WebhookEvent)}
}

func (m *Memory) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *Memory) MarkProcessed(ctx context.Context, event models.WebhookEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; !ok {
		m.events[event.ID] = event
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
