package models

import "cardprint-backend/internal/deck"

// ShippingAddress is the checkout form payload.
type ShippingAddress struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type UploadImagesRequest struct {
	// Images are data URLs or already uploaded http(s) URLs, in
	// front/back/mask order per card. Empty strings keep their slot.
	Images          []string         `json:"images"`
	OrderID         string           `json:"orderId" example:"temp_3f1c9a2e"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	// StartIndex is the zero-based card number of the first triplet when a
	// deck is uploaded in chunks.
	StartIndex int `json:"startIndex,omitempty"`
}

type CheckoutRequest struct {
	Quantity        int              `json:"quantity" example:"144"`
	ShippingAddress *ShippingAddress `json:"shippingAddress"`
	CardImages      []string         `json:"cardImages,omitempty"`
	CardData        []deck.Card      `json:"cardData,omitempty"`
}

type QuoteRequest struct {
	Cards   []deck.Card `json:"cards"`
	Country string      `json:"country" example:"US"`
}

type BleedRequest struct {
	Image    string  `json:"image"`
	TrimMM   float64 `json:"trimMm" example:"2.5"`
	BleedMM  float64 `json:"bleedMm" example:"1.9"`
	HasBleed bool    `json:"hasBleed"`
}

type MaskRequest struct {
	Image     string   `json:"image"`
	Colors    []string `json:"colors"`
	Tolerance *float64 `json:"tolerance,omitempty" example:"15"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
