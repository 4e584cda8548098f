package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardprint-backend/internal/models"
	"cardprint-backend/internal/retry"
)

// APIClient talks to the storefront's own upload and checkout endpoints.
type APIClient struct {
	baseURL    string
	origin     string
	httpClient *http.Client
}

func NewAPIClient(baseURL, origin string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		origin:  origin,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *APIClient) UploadImages(ctx context.Context, req models.UploadImagesRequest) ([]string, error) {
	var resp models.UploadImagesResponse
	if err := c.post(ctx, "/api/v1/upload-images", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to upload images: %w", err)
	}
	return resp.ImageURLs, nil
}

func (c *APIClient) CreateCheckout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	var resp models.CheckoutResponse
	if err := c.post(ctx, "/api/v1/checkout", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}
	if resp.SessionID == "" || resp.URL == "" {
		return nil, fmt.Errorf("checkout response is missing the session")
	}
	return &resp, nil
}

// OrderStatus reads the order created for a payment session.
func (c *APIClient) OrderStatus(ctx context.Context, sessionID string) (*models.OrderStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/orders/"+sessionID+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var resp models.OrderStatusResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get order status: %w", err)
	}
	return &resp, nil
}

func (c *APIClient) post(ctx context.Context, path string, in, out interface{}) error {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr models.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d): %w", apiErr.Error, resp.StatusCode, &retry.StatusError{StatusCode: resp.StatusCode, Body: apiErr.Message})
		}
		return &retry.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	return nil
}
