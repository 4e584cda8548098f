package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cardprint-backend/internal/cardimage"
	"cardprint-backend/internal/deck"
	"cardprint-backend/internal/events"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/payment"
)

var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidAddress    = errors.New("invalid shipping address")
	ErrCountryNotAllowed = errors.New("shipping not available to this country")
)

const currencyUSD = "usd"

// ValidateShippingAddress checks the required address fields and returns the
// country orders ship to, with OTHER mapped to the default.
func ValidateShippingAddress(a *models.ShippingAddress) (string, error) {
	if a == nil || a.Email == "" || a.Name == "" || a.Line1 == "" || a.City == "" ||
		a.State == "" || a.PostalCode == "" || a.Country == "" {
		return "", ErrInvalidAddress
	}
	country := deck.NormalizeCountry(a.Country)
	if !deck.IsAllowedCountry(country) {
		return "", fmt.Errorf("%w: %s", ErrCountryNotAllowed, country)
	}
	return country, nil
}

type CheckoutService struct {
	gateway   payment.Gateway
	orders    OrderRepository
	storage   *StorageService
	publisher events.Publisher
	origin    string
	logger    zerolog.Logger
}

func NewCheckoutService(
	gateway payment.Gateway,
	orders OrderRepository,
	storage *StorageService,
	publisher events.Publisher,
	defaultOrigin string,
	logger zerolog.Logger,
) *CheckoutService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &CheckoutService{
		gateway:   gateway,
		orders:    orders,
		storage:   storage,
		publisher: publisher,
		origin:    defaultOrigin,
		logger:    logger,
	}
}

// uploadedImages is the result of storing a checkout's card rasters.
type uploadedImages struct {
	all    []string
	fronts []string
	backs  []string
	masks  []string
	cards  []deck.Card
}

// CreateCheckout validates and prices the order, stores any embedded card
// rasters, opens a payment session and records the order as pending. A
// failure to record the order is logged and does not fail the checkout.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req models.CheckoutRequest, origin string) (*models.CheckoutResponse, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	country, err := ValidateShippingAddress(req.ShippingAddress)
	if err != nil {
		return nil, err
	}
	if origin == "" {
		origin = s.origin
	}

	quote := deck.CalculateQuote(req.Quantity, req.CardData, country)
	tempOrderID := "temp_" + uuid.NewString()
	log := s.logger.With().Str("temp_order_id", tempOrderID).Logger()

	images := uploadedImages{cards: make([]deck.Card, len(req.CardData))}
	for i, c := range req.CardData {
		images.cards[i] = withoutEmbeddedRasters(c)
	}
	if len(req.CardData) > 0 && s.storage != nil {
		images, err = s.uploadCardImages(ctx, req.CardData, tempOrderID, req.ShippingAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to upload card images: %w", err)
		}
	}

	imageCount := len(images.all)
	if imageCount == 0 {
		imageCount = len(req.CardImages)
	}
	metadata := map[string]string{
		"quantity":        strconv.Itoa(req.Quantity),
		"pricePerCard":    strconv.FormatFloat(quote.PricePerCard, 'f', -1, 64),
		"finishSurcharge": strconv.FormatFloat(quote.FinishSurcharge, 'f', 2, 64),
		"shippingCountry": country,
		"tempOrderId":     tempOrderID,
		"hasImages":       strconv.FormatBool(imageCount > 0),
		"imageCount":      strconv.Itoa(imageCount),
	}
	if len(images.all) > 0 {
		metadata["imageStoragePath"] = tempOrderID
	}
	if err := payment.ValidateMetadata(metadata); err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, payment.SessionParams{
		LineItems:        lineItems(req.Quantity, quote, images.fronts),
		SuccessURL:       origin + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        origin + "/#pricing-view",
		CustomerEmail:    req.ShippingAddress.Email,
		AllowedCountries: deck.AllowedCountries,
		Metadata:         metadata,
		AutomaticTax:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	log = log.With().Str("session_id", session.ID).Logger()
	log.Info().Int("quantity", req.Quantity).Float64("total", quote.Total).Msg("Checkout session created")

	order, err := s.pendingOrder(session.ID, req, quote, country, tempOrderID, images)
	if err == nil {
		_, err = s.orders.UpsertOrder(ctx, order)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to save order; the webhook will reconcile it")
	}

	if err := s.publisher.Publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderPending,
		SessionID:     session.ID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Quantity:      req.Quantity,
		At:            time.Now().UTC(),
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to publish order event")
	}

	return &models.CheckoutResponse{Success: true, SessionID: session.ID, URL: session.URL}, nil
}

func (s *CheckoutService) uploadCardImages(ctx context.Context, cards []deck.Card, orderID string, address *models.ShippingAddress) (uploadedImages, error) {
	triplets := make([]string, 0, len(cards)*SlotsPerCard)
	for _, c := range cards {
		triplets = append(triplets, firstNonEmpty(c.FrontURL, c.FrontImage()), firstNonEmpty(c.BackURL, c.Back, c.OriginalBack), c.SilverMask)
	}

	urls, err := s.storage.UploadImages(ctx, triplets, orderID, address, 0)
	if err != nil {
		return uploadedImages{}, err
	}

	out := uploadedImages{cards: make([]deck.Card, len(cards))}
	for i, c := range cards {
		front, back, mask := urls[i*SlotsPerCard+SlotFront], urls[i*SlotsPerCard+SlotBack], urls[i*SlotsPerCard+SlotMask]
		if front != "" {
			c.FrontURL = front
			out.fronts = append(out.fronts, front)
			out.all = append(out.all, front)
		}
		if back != "" {
			c.BackURL = back
			out.backs = append(out.backs, back)
			out.all = append(out.all, back)
		}
		if mask != "" {
			c.SilverMask = mask
			out.masks = append(out.masks, mask)
			out.all = append(out.all, mask)
		}
		out.cards[i] = withoutEmbeddedRasters(c)
	}
	return out, nil
}

func (s *CheckoutService) pendingOrder(sessionID string, req models.CheckoutRequest, quote deck.Quote, country, tempOrderID string, images uploadedImages) (*models.Order, error) {
	a := req.ShippingAddress
	shipping, err := json.Marshal(map[string]interface{}{
		"line1":       a.Line1,
		"line2":       nilIfEmpty(a.Line2),
		"city":        a.City,
		"state":       a.State,
		"postal_code": a.PostalCode,
		"country":     a.Country,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode shipping address: %w", err)
	}

	cards := images.cards
	if cards == nil {
		cards = []deck.Card{}
	}
	cardData, err := json.Marshal(cards)
	if err != nil {
		return nil, fmt.Errorf("failed to encode card data: %w", err)
	}

	metadata, err := json.Marshal(map[string]string{
		"created_at":  time.Now().UTC().Format(time.RFC3339),
		"tempOrderId": tempOrderID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	cardImages := images.all
	if len(cardImages) == 0 {
		cardImages = remoteOnly(req.CardImages)
	}
	storagePath := ""
	if len(images.all) > 0 {
		storagePath = sessionID
	}

	return &models.Order{
		StripeSessionID:   sessionID,
		Status:            models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		CustomerEmail:     a.Email,
		CustomerName:      a.Name,
		CustomerPhone:     a.Phone,
		ShippingAddress:   shipping,
		TotalAmountCents:  deck.ToCents(quote.Total),
		Currency:          currencyUSD,
		Quantity:          req.Quantity,
		PricePerCard:      quote.PricePerCard,
		ShippingCostCents: deck.ToCents(quote.ShippingCost),
		ShippingCountry:   country,
		CardImages:        cardImages,
		FrontImageURLs:    images.fronts,
		BackImageURLs:     images.backs,
		MaskImageURLs:     images.masks,
		CardData:          cardData,
		ImageStoragePath:  storagePath,
		Metadata:          metadata,
	}, nil
}

func lineItems(quantity int, q deck.Quote, fronts []string) []payment.LineItem {
	var preview []string
	if len(fronts) > 0 && cardimage.IsRemoteURL(fronts[0]) {
		preview = []string{fronts[0]}
	}

	items := []payment.LineItem{{
		Name:            fmt.Sprintf("Custom Card Order - %d cards", quantity),
		Description:     fmt.Sprintf("Premium S33 cardstock custom cards (%d cards @ $%.2f/card)", quantity, q.PricePerCard),
		Images:          preview,
		UnitAmountCents: deck.ToCents(q.PricePerCard),
		Quantity:        int64(quantity),
		Currency:        currencyUSD,
	}}

	if surcharge := deck.ToCents(q.FinishSurcharge); surcharge > 0 {
		items = append(items, payment.LineItem{
			Name:            "Premium Finishes",
			Description:     "Additional cost for premium finishes (Rainbow Foil, Piano Gloss, Spot Silver)",
			UnitAmountCents: surcharge,
			Quantity:        1,
			Currency:        currencyUSD,
		})
	}

	shippingDesc := "International Shipping"
	if q.ShippingCountry == "US" {
		shippingDesc = "Standard Shipping (US)"
	}
	items = append(items, payment.LineItem{
		Name:            "Shipping",
		Description:     shippingDesc,
		UnitAmountCents: deck.ToCents(q.ShippingCost),
		Quantity:        1,
		Currency:        currencyUSD,
	})
	return items
}

// withoutEmbeddedRasters drops data URLs so the stored card data carries
// URLs only.
func withoutEmbeddedRasters(c deck.Card) deck.Card {
	for _, f := range []*string{&c.OriginalFront, &c.Front, &c.OriginalBack, &c.Back, &c.SilverMask} {
		if cardimage.IsDataURL(*f) {
			*f = ""
		}
	}
	return c
}

func remoteOnly(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if cardimage.IsRemoteURL(img) {
			out = append(out, img)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
