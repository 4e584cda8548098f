package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cardprint-backend/internal/deck"
	"cardprint-backend/internal/models"
)

// Quote godoc
// @Summary     Price a deck
// @Description Returns the price tier, finish surcharge, shipping and total in
// @Description dollars for the cards and destination country.
// @Tags        checkout
// @Accept      json
// @Produce     json
// @Param       request body models.QuoteRequest true "Deck and country"
// @Success     200 {object} deck.Quote
// @Failure     400 {object} models.ErrorResponse
// @Router      /quote [post]
func QuoteHandler(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	for _, card := range req.Cards {
		if card.Quantity < 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid quantity"})
			return
		}
	}

	country := deck.NormalizeCountry(req.Country)
	if country == "" {
		country = deck.DefaultCountry
	}
	if !deck.IsAllowedCountry(country) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Shipping not available to this country"})
		return
	}

	c.JSON(http.StatusOK, deck.CalculateQuote(deck.TotalQuantity(req.Cards), req.Cards, country))
}
