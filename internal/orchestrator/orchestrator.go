package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cardprint-backend/internal/cardimage"
	"cardprint-backend/internal/deck"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/pool"
)

const slotsPerCard = 3

var (
	ErrEmptyDeck     = errors.New("deck has no cards")
	ErrChunkMismatch = errors.New("upload returned a different number of URLs than were sent")
)

// Uploader stores one chunk of images and returns URLs aligned with it.
type Uploader interface {
	UploadImages(ctx context.Context, req models.UploadImagesRequest) ([]string, error)
}

// CheckoutCreator opens a payment session for an uploaded deck.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error)
}

// OrderRecorder keeps a local record of a created checkout.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, result *Result) error
}

type Config struct {
	CompressConcurrency int
	UploadConcurrency   int
	Compress            cardimage.CompressOptions
}

func DefaultConfig() Config {
	return Config{
		CompressConcurrency: 3,
		UploadConcurrency:   4,
		Compress:            cardimage.DefaultCompressOptions(),
	}
}

type Submission struct {
	Cards      []deck.Card
	GlobalBack deck.GlobalBack
	Address    models.ShippingAddress
	// OrderID names the upload folder. A temp id is generated when empty.
	OrderID string
}

type Result struct {
	SessionID string
	URL       string
	OrderID   string
	// Cards are the unit cards as sent to checkout, carrying URLs only.
	Cards     []deck.Card
	ImageURLs []string
}

// Orchestrator drives one checkout attempt from a deck to a payment URL.
type Orchestrator struct {
	uploader Uploader
	checkout CheckoutCreator
	recorder OrderRecorder
	cfg      Config
	observer Observer
	logger   zerolog.Logger

	mu    sync.Mutex
	state State

	notifyMu sync.Mutex
}

type Option func(*Orchestrator)

func WithObserver(o Observer) Option {
	return func(orc *Orchestrator) { orc.observer = o }
}

func WithRecorder(r OrderRecorder) Option {
	return func(orc *Orchestrator) { orc.recorder = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(orc *Orchestrator) { orc.logger = l }
}

func New(uploader Uploader, checkout CheckoutCreator, cfg Config, opts ...Option) *Orchestrator {
	if cfg.CompressConcurrency < 1 {
		cfg.CompressConcurrency = 1
	}
	if cfg.UploadConcurrency < 1 {
		cfg.UploadConcurrency = 1
	}
	o := &Orchestrator{
		uploader: uploader,
		checkout: checkout,
		cfg:      cfg,
		logger:   zerolog.Nop(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes the attempt. Compression finishes for every card before any
// upload starts. A failed compression, upload or session request aborts the
// attempt; a failed order record does not.
func (o *Orchestrator) Run(ctx context.Context, sub Submission) (*Result, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, fmt.Errorf("orchestrator already used (state %s)", o.state)
	}
	o.mu.Unlock()
	if len(sub.Cards) == 0 {
		return nil, ErrEmptyDeck
	}

	o.moveTo(StateExpanding, 0, 0, "Preparing cards")
	units := deck.ExpandQuantities(sub.Cards)
	orderID := sub.OrderID
	if orderID == "" {
		orderID = "temp_" + uuid.NewString()
	}

	o.moveTo(StateCompressing, 0, len(units), "Compressing images")
	triplets, err := o.compress(ctx, units, sub.GlobalBack)
	if err != nil {
		return nil, o.fail(StateCompressing, err)
	}

	o.moveTo(StateUploading, 0, len(units), "Uploading images")
	urls, err := o.upload(ctx, triplets, orderID, sub.Address)
	if err != nil {
		return nil, o.fail(StateUploading, err)
	}
	cards, imageURLs := Remap(units, urls)

	o.moveTo(StateSessionCreating, 0, 0, "Creating checkout session")
	address := sub.Address
	resp, err := o.checkout.CreateCheckout(ctx, models.CheckoutRequest{
		Quantity:        len(cards),
		ShippingAddress: &address,
		CardImages:      imageURLs,
		CardData:        cards,
	})
	if err != nil {
		return nil, o.fail(StateSessionCreating, err)
	}

	result := &Result{
		SessionID: resp.SessionID,
		URL:       resp.URL,
		OrderID:   orderID,
		Cards:     cards,
		ImageURLs: imageURLs,
	}

	o.moveTo(StatePersistingOrder, 0, 0, "Saving order")
	if o.recorder != nil {
		if err := o.recorder.RecordOrder(ctx, result); err != nil {
			o.logger.Error().Err(err).Str("session_id", resp.SessionID).Msg("Failed to record order")
		}
	}

	o.moveTo(StateRedirecting, 0, 0, "Redirecting to payment")
	return result, nil
}

// Triplet is [front, back or global back, mask] for one unit card.
func Triplet(c deck.Card, g deck.GlobalBack) [slotsPerCard]string {
	return [slotsPerCard]string{c.FrontImage(), deck.BackFor(c, g), c.SilverMask}
}

func (o *Orchestrator) compress(ctx context.Context, units []deck.Card, g deck.GlobalBack) ([][slotsPerCard]string, error) {
	var done atomic.Int64
	return pool.Map(ctx, units, o.cfg.CompressConcurrency, func(ctx context.Context, _ int, c deck.Card) ([slotsPerCard]string, error) {
		t := Triplet(c, g)
		// masks keep their alpha-preserving encoding
		t[0] = cardimage.CompressDataURL(t[0], o.cfg.Compress)
		t[1] = cardimage.CompressDataURL(t[1], o.cfg.Compress)
		o.report(StateCompressing, int(done.Add(1)), len(units))
		return t, ctx.Err()
	})
}

func (o *Orchestrator) upload(ctx context.Context, triplets [][slotsPerCard]string, orderID string, address models.ShippingAddress) ([]string, error) {
	var done atomic.Int64
	chunks, err := pool.Map(ctx, triplets, o.cfg.UploadConcurrency, func(ctx context.Context, i int, t [slotsPerCard]string) ([]string, error) {
		addr := address
		urls, err := o.uploader.UploadImages(ctx, models.UploadImagesRequest{
			Images:          t[:],
			OrderID:         orderID,
			ShippingAddress: &addr,
			StartIndex:      i,
		})
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i+1, err)
		}
		if len(urls) != slotsPerCard {
			return nil, fmt.Errorf("card %d: %w: sent %d, got %d", i+1, ErrChunkMismatch, slotsPerCard, len(urls))
		}
		o.report(StateUploading, int(done.Add(1)), len(triplets))
		return urls, nil
	})
	if err != nil {
		return nil, err
	}

	flat := make([]string, 0, len(chunks)*slotsPerCard)
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	return flat, nil
}

// Remap writes uploaded URLs back onto the unit cards by position and drops
// embedded rasters. The second result lists the non-empty URLs in order.
func Remap(units []deck.Card, urls []string) ([]deck.Card, []string) {
	cards := make([]deck.Card, len(units))
	var images []string
	for i, c := range units {
		front, back, mask := urls[i*slotsPerCard], urls[i*slotsPerCard+1], urls[i*slotsPerCard+2]
		c.FrontURL, c.BackURL = front, back
		c.SilverMask = mask
		for _, f := range []*string{&c.OriginalFront, &c.Front, &c.OriginalBack, &c.Back} {
			if !cardimage.IsRemoteURL(*f) {
				*f = ""
			}
		}
		for _, u := range []string{front, back, mask} {
			if u != "" {
				images = append(images, u)
			}
		}
		cards[i] = c
	}
	return cards, images
}

func (o *Orchestrator) moveTo(next State, done, total int, text string) {
	o.mu.Lock()
	if !o.state.canMoveTo(next) {
		o.mu.Unlock()
		panic(fmt.Sprintf("orchestrator: invalid transition %s -> %s", o.state, next))
	}
	o.state = next
	o.mu.Unlock()
	o.notify(Progress{State: next, Done: done, Total: total, Text: text})
}

func (o *Orchestrator) report(state State, done, total int) {
	o.notify(Progress{State: state, Done: done, Total: total})
}

func (o *Orchestrator) notify(p Progress) {
	if o.observer == nil {
		return
	}
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	o.observer(p)
}

func (o *Orchestrator) fail(at State, err error) error {
	o.mu.Lock()
	o.state = StateFailed
	o.mu.Unlock()
	o.logger.Error().Err(err).Str("state", string(at)).Msg("Checkout attempt failed")
	o.notify(Progress{State: StateFailed, Text: err.Error()})
	return &StepError{State: at, Err: err}
}
