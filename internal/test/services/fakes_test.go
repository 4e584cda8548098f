package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cardprint-backend/internal/models"
	"cardprint-backend/internal/payment"
	"cardprint-backend/internal/supabase"
)

type fakeBlobStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
	types   map[string]string
	failOn  string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{uploads: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobStore) Upload(_ context.Context, path string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return "", errors.New("storage unavailable")
	}
	f.uploads[path] = data
	f.types[path] = contentType
	return "https://cdn.test/" + path, nil
}

func (f *fakeBlobStore) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.uploads))
	for p := range f.uploads {
		out = append(out, p)
	}
	return out
}


// fakeOrders mimics the upsert-by-session semantics of the real stores.
type fakeOrders struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	upsertErr error
	// updateErrs are returned by successive ApplyPaymentUpdate calls.
	updateErrs  []error
	updateCalls int
	upsertCalls int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*models.Order{}}
}

func (f *fakeOrders) UpsertOrder(_ context.Context, o *models.Order) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	saved := *o
	saved.UpdatedAt = time.Now()
	f.orders[o.StripeSessionID] = &saved
	return &saved, nil
}

func (f *fakeOrders) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[sessionID]
	if !ok {
		return nil, supabase.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ApplyPaymentUpdate(_ context.Context, u models.PaymentUpdate) (*models.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		if err != nil {
			return nil, false, err
		}
	}

	o, ok := f.orders[u.SessionID]
	inserted := !ok
	if !ok {
		o = &models.Order{
			StripeSessionID:  u.SessionID,
			Quantity:         u.Quantity,
			PricePerCard:     u.PricePerCard,
			ShippingCountry:  u.ShippingCountry,
			ImageStoragePath: u.ImageStoragePath,
		}
		f.orders[u.SessionID] = o
	}
	o.Status = u.Status
	o.PaymentStatus = u.PaymentStatus
	if u.CustomerEmail != nil {
		o.CustomerEmail = *u.CustomerEmail
	}
	if u.CustomerName != nil {
		o.CustomerName = *u.CustomerName
	}
	if u.TotalAmountCents != nil {
		o.TotalAmountCents = *u.TotalAmountCents
	}
	if u.ShippingCostCents != nil {
		o.ShippingCostCents = *u.ShippingCostCents
	}
	if len(u.ShippingAddress) > 0 {
		o.ShippingAddress = u.ShippingAddress
	}
	cp := *o
	return &cp, inserted, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	params  []payment.SessionParams
	err     error
	session *payment.Session
}

func (g *fakeGateway) CreateSession(_ context.Context, p payment.SessionParams) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.params = append(g.params, p)
	if g.err != nil {
		return nil, g.err
	}
	if g.session != nil {
		return g.session, nil
	}
	return &payment.Session{ID: "cs_test_123", URL: "https://checkout.test/cs_test_123"}, nil
}

func (g *fakeGateway) RetrieveSession(context.Context, string) (*payment.Session, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) last() payment.SessionParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.params[len(g.params)-1]
}

// failingLedger returns err from every call.
type failingLedger struct {
	err       error
	markCalls int
}

func (l *failingLedger) IsProcessed(context.Context, string) (bool, error) {
	return false, l.err
}

func (l *failingLedger) MarkProcessed(context.Context, models.WebhookEvent) error {
	l.markCalls++
	return l.err
}
