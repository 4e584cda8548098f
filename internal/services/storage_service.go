package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"cardprint-backend/internal/cardimage"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/pool"
)

// Slots of a per-card image triplet.
const (
	SlotFront = iota
	SlotBack
	SlotMask
	SlotsPerCard
)

var slotNames = [SlotsPerCard]string{"front", "back", "mask"}

var (
	ErrNoImages       = errors.New("images array is required")
	ErrMissingOrderID = errors.New("order id is required")
	ErrInvalidImage   = errors.New("image is neither a data URL nor an http(s) URL")
)

var whitespace = regexp.MustCompile(`\s+`)

// StorageService uploads card rasters to the blob store under the order's
// folder.
type StorageService struct {
	store       BlobStore
	concurrency int
	logger      zerolog.Logger
	now         func() time.Time
}

func NewStorageService(store BlobStore, concurrency int, logger zerolog.Logger) *StorageService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &StorageService{
		store:       store,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock replaces the timestamp source used in folder names.
func (s *StorageService) SetClock(now func() time.Time) {
	s.now = now
}

// UploadImages stores images laid out as [front, back, mask] per card and
// returns URLs aligned with the input. Empty inputs yield "", http(s) inputs
// are returned as is. Any failed upload fails the whole call.
func (s *StorageService) UploadImages(ctx context.Context, images []string, orderID string, address *models.ShippingAddress, startIndex int) ([]string, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	folder := OrderFolder(orderID, s.now(), address)
	urls, err := pool.Map(ctx, images, s.concurrency, func(ctx context.Context, i int, image string) (string, error) {
		card := startIndex + i/SlotsPerCard + 1
		return s.uploadSlot(ctx, folder, card, i%SlotsPerCard, image)
	})
	if err != nil {
		return nil, err
	}

	uploaded := 0
	for i, u := range urls {
		if u != "" && u != images[i] {
			uploaded++
		}
	}
	s.logger.Info().
		Str("order_id", orderID).
		Str("folder", folder).
		Int("images", len(images)).
		Int("uploaded", uploaded).
		Msg("Uploaded card images")
	return urls, nil
}

func (s *StorageService) uploadSlot(ctx context.Context, folder string, card, slot int, image string) (string, error) {
	if image == "" {
		return "", nil
	}
	if cardimage.IsRemoteURL(image) {
		return image, nil
	}
	if !cardimage.IsDataURL(image) {
		return "", fmt.Errorf("card %d %s: %w", card, slotNames[slot], ErrInvalidImage)
	}

	data, ext, contentType, err := slotPayload(image, slot)
	if err != nil {
		return "", fmt.Errorf("card %d %s: %w", card, slotNames[slot], err)
	}

	path := fmt.Sprintf("%s/card-%d/%s.%s", folder, card, slotNames[slot], ext)
	url, err := s.store.Upload(ctx, path, data, contentType)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to upload card image")
		return "", fmt.Errorf("failed to upload %s for card %d: %w", slotNames[slot], card, err)
	}
	return url, nil
}

// slotPayload decodes a data URL. Masks are always stored as PNG so their
// alpha channel survives.
func slotPayload(image string, slot int) ([]byte, string, string, error) {
	mimeType, data, err := cardimage.ParseDataURL(image)
	if err != nil {
		return nil, "", "", err
	}
	if slot != SlotMask {
		ext := cardimage.ImageExtension(image)
		return data, ext, "image/" + ext, nil
	}
	if mimeType != "image/png" {
		img, err := cardimage.DecodeImage(data)
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to decode mask: %w", err)
		}
		if data, err = cardimage.EncodePNG(img); err != nil {
			return nil, "", "", fmt.Errorf("failed to encode mask: %w", err)
		}
	}
	return data, "png", "image/png", nil
}

// OrderFolder is {orderId}/{unix millis}/{country}_{postal code}.
func OrderFolder(orderID string, at time.Time, address *models.ShippingAddress) string {
	addressHash := "unknown"
	if address != nil {
		postal := address.PostalCode
		if postal == "" {
			postal = "unknown"
		}
		addressHash = address.Country + "_" + whitespace.ReplaceAllString(postal, "_")
	}
	return fmt.Sprintf("%s/%d/%s", orderID, at.UnixMilli(), addressHash)
}
