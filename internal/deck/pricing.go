package deck

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Price tiers by total card count.
const (
	StarterPrice  = 0.35
	PlaytestPrice = 0.30
	BulkPrice     = 0.26

	playtestMinCards = 145
	bulkMinCards     = 501
)

const (
	SilverSurcharge = 3.50
	FoilSurcharge   = 2.50

	DomesticShipping      = 6.95
	InternationalShipping = 24.95
)

type Quote struct {
	CardCount       int     `json:"cardCount"`
	PricePerCard    float64 `json:"pricePerCard"`
	CardsTotal      float64 `json:"cardsTotal"`
	FinishSurcharge float64 `json:"finishSurcharge"`
	ShippingCountry string  `json:"shippingCountry"`
	ShippingCost    float64 `json:"shippingCost"`
	Total           float64 `json:"total"`
}

func PricePerCard(count int) float64 {
	switch {
	case count < playtestMinCards:
		return StarterPrice
	case count < bulkMinCards:
		return PlaytestPrice
	default:
		return BulkPrice
	}
}

// FinishSurcharge is the per-card cost of a finish. Silver is 3.50, plus
// 2.50 when combined with rainbow or gloss; rainbow or gloss alone is 2.50.
func FinishSurcharge(f Finish) float64 {
	if f.IsStandard() {
		return 0
	}
	if f.HasSilver() {
		cost := SilverSurcharge
		if strings.Contains(string(f), "rainbow") || strings.Contains(string(f), "gloss") {
			cost += FoilSurcharge
		}
		return cost
	}
	return FoilSurcharge
}

func TotalFinishSurcharge(cards []Card) float64 {
	total := 0.0
	for _, c := range cards {
		total += FinishSurcharge(c.Finish) * float64(quantityOf(c))
	}
	return total
}

func ShippingCost(country string) float64 {
	if country == "US" {
		return DomesticShipping
	}
	return InternationalShipping
}

// CalculateQuote prices count cards with the finishes of cards shipped to
// country. Amounts stay in dollars; convert with ToCents at the gateway.
func CalculateQuote(count int, cards []Card, country string) Quote {
	price := PricePerCard(count)
	q := Quote{
		CardCount:       count,
		PricePerCard:    price,
		CardsTotal:      price * float64(count),
		FinishSurcharge: TotalFinishSurcharge(cards),
		ShippingCountry: country,
		ShippingCost:    ShippingCost(country),
	}
	q.Total = q.CardsTotal + q.FinishSurcharge + q.ShippingCost
	return q
}

// ToCents is the single dollars-to-cents rounding point.
func ToCents(dollars float64) int64 {
	return decimal.NewFromFloat(dollars).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
