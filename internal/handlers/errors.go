package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cardprint-backend/internal/models"
)

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func respondBodyTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
		Error:   "Request body too large",
		Message: "upload images first and send URLs in the checkout payload",
	})
}
