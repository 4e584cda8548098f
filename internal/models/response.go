package models

import "time"

type UploadImagesResponse struct {
	Success       bool     `json:"success"`
	ImageURLs     []string `json:"imageUrls"`
	UploadedCount int      `json:"uploadedCount"`
	TotalCount    int      `json:"totalCount"`
}

type CheckoutResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type WebhookResponse struct {
	Received       bool   `json:"received"`
	EventType      string `json:"eventType,omitempty"`
	EventID        string `json:"eventId,omitempty"`
	CorrelationID  string `json:"correlationId"`
	ProcessingTime int64  `json:"processingTime"`
	Status         string `json:"status,omitempty"`
	Error          string `json:"error,omitempty"`
}

type ImageResponse struct {
	Image string `json:"image"`
}

type OrderStatusResponse struct {
	SessionID     string    `json:"session_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Quantity      int       `json:"quantity"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}
