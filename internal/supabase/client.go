package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"cardprint-backend/internal/config"
)

// Client is the service-role Supabase client shared by the REST stores.
type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

// Ping reads a single order id through PostgREST.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := c.Supabase.From(ordersTable).
		Select("id", "", false).
		Limit(1, "").
		Execute()
	if err != nil {
		return fmt.Errorf("supabase rest unavailable: %w", err)
	}
	return nil
}
