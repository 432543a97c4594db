package api

import (
	"context"
	"fmt"
)

// HealthResponse is the /health endpoint body.
type HealthResponse struct {
	Status string `json:"status"`
}

// Healthy reports whether the dashboard answers its health check.
func (c *Client) Healthy(ctx context.Context) error {
	var resp HealthResponse
	if err := c.get(ctx, "/health", nil, &resp); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("health check: status %q", resp.Status)
	}
	return nil
}
