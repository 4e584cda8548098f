package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardprint-backend/internal/retry"
)

// MaxIdentifiersPerRequest is the collection endpoint's batch limit.
const MaxIdentifiersPerRequest = 75

const userAgent = "cardprint-backend/1.0"

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// Identifier selects a card by name or by set and collector number.
type Identifier struct {
	Name            string `json:"name,omitempty"`
	Set             string `json:"set,omitempty"`
	CollectorNumber string `json:"collector_number,omitempty"`
}

type ImageURIs struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
	Large  string `json:"large"`
	PNG    string `json:"png"`
}

type Face struct {
	Name      string     `json:"name"`
	ImageURIs *ImageURIs `json:"image_uris"`
}

type Card struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Set             string     `json:"set"`
	CollectorNumber string     `json:"collector_number"`
	PrintsSearchURI string     `json:"prints_search_uri"`
	ImageURIs       *ImageURIs `json:"image_uris"`
	CardFaces       []Face     `json:"card_faces"`
}

// Images returns the large front image and, for double-faced cards, the
// large back image.
func (c Card) Images() (front, back string) {
	if len(c.CardFaces) > 1 && c.CardFaces[0].ImageURIs != nil && c.CardFaces[1].ImageURIs != nil {
		return c.CardFaces[0].ImageURIs.Large, c.CardFaces[1].ImageURIs.Large
	}
	if c.ImageURIs != nil {
		return c.ImageURIs.Large, ""
	}
	return "", ""
}

type collectionRequest struct {
	Identifiers []Identifier `json:"identifiers"`
}

type collectionResponse struct {
	Data     []Card            `json:"data"`
	NotFound []json.RawMessage `json:"not_found"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// Collection looks up identifiers in batches and returns every card found.
func (c *Client) Collection(ctx context.Context, identifiers []Identifier) ([]Card, error) {
	var found []Card
	for start := 0; start < len(identifiers); start += MaxIdentifiersPerRequest {
		end := start + MaxIdentifiersPerRequest
		if end > len(identifiers) {
			end = len(identifiers)
		}

		var batch []Card
		err := retry.WithBackoff(func() error {
			var err error
			batch, err = c.collectionBatch(ctx, identifiers[start:end])
			return err
		}, c.maxRetries)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch cards %d-%d: %w", start+1, end, err)
		}
		found = append(found, batch...)
	}
	return found, nil
}

func (c *Client) collectionBatch(ctx context.Context, identifiers []Identifier) ([]Card, error) {
	jsonData, err := json.Marshal(collectionRequest{Identifiers: identifiers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cards/collection", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result collectionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data, nil
}
