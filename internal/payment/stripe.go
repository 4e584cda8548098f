package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"cardprint-backend/internal/retry"
)

// StripeClient creates and reads hosted checkout sessions through stripe-go.
// Network retries are disabled; callers wrap it in retry.Do.
type StripeClient struct {
	sessions session.Client
}

// NewStripeClient targets the API root at baseURL, e.g. https://api.stripe.com.
// stripe-go drops a trailing /v1.
func NewStripeClient(baseURL, secretKey string) *StripeClient {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(baseURL),
		HTTPClient:        &http.Client{Timeout: 30 * time.Second},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return &StripeClient{sessions: session.Client{B: backend, Key: secretKey}}
}

func (c *StripeClient) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	if err := ValidateMetadata(p.Metadata); err != nil {
		return nil, err
	}

	params := sessionParams(p)
	params.Context = ctx

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", mapError(err))
	}
	out, err := fromStripe(s)
	if err != nil {
		return nil, err
	}
	if out.ID == "" || out.URL == "" {
		return nil, fmt.Errorf("checkout session response is missing id or url")
	}
	return out, nil
}

func (c *StripeClient) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", mapError(err))
	}
	return fromStripe(s)
}

func sessionParams(p SessionParams) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	for _, item := range p.LineItems {
		currency := item.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if len(item.Images) > 0 {
			product.Images = stripe.StringSlice(item.Images)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmountCents),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	if len(p.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(p.AllowedCountries),
		}
	}
	if p.AutomaticTax {
		params.AutomaticTax = &stripe.CheckoutSessionAutomaticTaxParams{Enabled: stripe.Bool(true)}
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

// fromStripe reads the raw response body into Session, falling back to the
// typed fields when no body was recorded.
func fromStripe(s *stripe.CheckoutSession) (*Session, error) {
	if s.LastResponse != nil && len(s.LastResponse.RawJSON) > 0 {
		var out Session
		if err := json.Unmarshal(s.LastResponse.RawJSON, &out); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		return &out, nil
	}
	return &Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}, nil
}

// mapError turns API errors into the retry package's classification.
func mapError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}
	if stripeErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", retry.ErrRateLimited, stripeErr.Msg)
	}
	return &retry.StatusError{StatusCode: stripeErr.HTTPStatusCode, Body: stripeErr.Msg}
}
