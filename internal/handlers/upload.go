package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cardprint-backend/internal/models"
	"cardprint-backend/internal/services"
)

type UploadHandler struct {
	storageService *services.StorageService
}

func NewUploadHandler(storageService *services.StorageService) *UploadHandler {
	return &UploadHandler{
		storageService: storageService,
	}
}

// Upload godoc
// @Summary     Upload card images
// @Description Stores card rasters laid out as [front, back, mask] per card.
// @Description Returns one URL per input in the same order: "" for empty slots,
// @Description http(s) inputs unchanged. Masks are always stored as PNG.
// @Tags        upload
// @Accept      json
// @Produce     json
// @Param       request body models.UploadImagesRequest true "Images to upload"
// @Success     200 {object} models.UploadImagesResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /upload-images [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.storageService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "storage service not available"})
		return
	}

	var req models.UploadImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			respondBodyTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	urls, err := h.storageService.UploadImages(c.Request.Context(), req.Images, req.OrderID, req.ShippingAddress, req.StartIndex)
	switch {
	case errors.Is(err, services.ErrNoImages):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Images array is required"})
		return
	case errors.Is(err, services.ErrMissingOrderID):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Order ID is required"})
		return
	case errors.Is(err, services.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image", Message: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to upload images",
			Message: err.Error(),
		})
		return
	}

	uploaded := 0
	for _, u := range urls {
		if u != "" {
			uploaded++
		}
	}
	c.JSON(http.StatusOK, models.UploadImagesResponse{
		Success:       true,
		ImageURLs:     urls,
		UploadedCount: uploaded,
		TotalCount:    len(req.Images),
	})
}
