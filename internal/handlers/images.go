package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cardprint-backend/internal/cardimage"
	"cardprint-backend/internal/models"
)

// Bleed godoc
// @Summary     Synthesize a print-ready card image
// @Description Resamples the image to 750x1050 and adds or crops bleed.
// @Tags        images
// @Accept      json
// @Produce     json
// @Param       request body models.BleedRequest true "Source image and bleed settings"
// @Success     200 {object} models.ImageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     422 {object} models.ErrorResponse
// @Router      /images/bleed [post]
func BleedHandler(c *gin.Context) {
	var req models.BleedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}
	if !cardimage.IsDataURL(req.Image) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "image must be a data URL"})
		return
	}

	out := cardimage.SynthesizeDataURL(req.Image, cardimage.Params{
		TrimMM:   req.TrimMM,
		BleedMM:  req.BleedMM,
		HasBleed: req.HasBleed,
	})
	if out == "" {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Error: "image could not be processed"})
		return
	}
	c.JSON(http.StatusOK, models.ImageResponse{Image: out})
}

// Mask godoc
// @Summary     Generate a spot-finish mask
// @Description Marks pixels within tolerance of any of the colors as opaque
// @Description black and everything else as transparent. Returns a PNG.
// @Tags        images
// @Accept      json
// @Produce     json
// @Param       request body models.MaskRequest true "Source image, colors and tolerance"
// @Success     200 {object} models.ImageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     422 {object} models.ErrorResponse
// @Router      /images/mask [post]
func MaskHandler(c *gin.Context) {
	var req models.MaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}
	if !cardimage.IsDataURL(req.Image) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "image must be a data URL"})
		return
	}
	if len(req.Colors) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "at least one color is required"})
		return
	}

	tolerance := float64(cardimage.DefaultMaskTolerance)
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}
	if tolerance < 0 || tolerance > 100 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "tolerance must be between 0 and 100"})
		return
	}

	out := cardimage.GenerateMaskDataURL(req.Image, req.Colors, tolerance)
	if out == "" {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Error: "mask could not be generated"})
		return
	}
	c.JSON(http.StatusOK, models.ImageResponse{Image: out})
}
