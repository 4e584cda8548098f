package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"cardprint-backend/internal/cardimage"
	"cardprint-backend/internal/deck"
	"cardprint-backend/internal/retry"
)

type Side string

const (
	SideFronts Side = "fronts"
	SideBacks  Side = "backs"
	SideMasks  Side = "masks"
)

func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideFronts, SideBacks, SideMasks:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q (want fronts, backs or masks)", s)
}

// FileName is the default archive name for side.
func FileName(side Side) string {
	return "tcgplaytest_" + string(side) + ".zip"
}

// Fetcher downloads a remote raster.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{StatusCode: resp.StatusCode, Body: url}
	}
	return body, nil
}

// WriteZip writes one entry per unit card, named 001.png, 002.png and so on.
// Missing or unreadable sources are written as a blank card. It returns the
// number of entries.
func WriteZip(ctx context.Context, w io.Writer, side Side, cards []deck.Card, g deck.GlobalBack, fetcher Fetcher) (int, error) {
	blank, err := cardimage.EncodePNG(cardimage.BlankCard())
	if err != nil {
		return 0, fmt.Errorf("failed to encode blank card: %w", err)
	}

	zw := zip.NewWriter(w)
	count := 0
	for _, c := range deck.ExpandQuantities(cards) {
		count++
		data := resolve(ctx, source(side, c, g), fetcher)
		if data == nil {
			data = blank
		}

		entry, err := zw.Create(fmt.Sprintf("%03d.png", count))
		if err != nil {
			return count, fmt.Errorf("failed to add entry %d: %w", count, err)
		}
		if _, err := entry.Write(data); err != nil {
			return count, fmt.Errorf("failed to write entry %d: %w", count, err)
		}
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("failed to finish zip: %w", err)
	}
	return count, nil
}

func source(side Side, c deck.Card, g deck.GlobalBack) string {
	switch side {
	case SideFronts:
		return c.FrontImage()
	case SideBacks:
		return deck.BackFor(c, g)
	case SideMasks:
		return c.SilverMask
	}
	return ""
}

func resolve(ctx context.Context, src string, fetcher Fetcher) []byte {
	switch {
	case src == "":
		return nil
	case cardimage.IsDataURL(src):
		_, data, err := cardimage.ParseDataURL(src)
		if err != nil {
			return nil
		}
		return data
	case fetcher != nil:
		data, err := fetcher.Fetch(ctx, src)
		if err != nil {
			return nil
		}
		return data
	}
	return nil
}
