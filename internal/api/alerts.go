package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// AlertRecord is an alert row as returned by the REST API.
type AlertRecord struct {
	ID         int     `json:"id"`
	AlertType  string  `json:"alert_type"`
	Severity   string  `json:"severity"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	NodeID     *int    `json:"node_id"`
	VMID       *int    `json:"vm_id"`
	ServiceID  *int    `json:"service_id"`
	IsResolved bool    `json:"is_resolved"`
	ResolvedAt *string `json:"resolved_at"`
	CreatedAt  string  `json:"created_at"`
}

// AlertStats summarizes the alert table.
type AlertStats struct {
	Total      int `json:"total"`
	Unresolved int `json:"unresolved"`
	Critical   int `json:"critical"`
	Warning    int `json:"warning"`
}

// ListAlertsOptions filters ListAlerts.
type ListAlertsOptions struct {
	Resolved  *bool  // nil = both resolved and unresolved
	Severity  string // info, warning, critical
	AlertType string
	Limit     int
}

// ListAlerts fetches alerts, newest first.
func (c *Client) ListAlerts(ctx context.Context, opts ListAlertsOptions) ([]AlertRecord, error) {
	query := url.Values{}

	if opts.Resolved != nil {
		query.Set("resolved", strconv.FormatBool(*opts.Resolved))
	}
	if opts.Severity != "" {
		query.Set("severity", opts.Severity)
	}
	if opts.AlertType != "" {
		query.Set("alert_type", opts.AlertType)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var alerts []AlertRecord
	if err := c.get(ctx, "/api/alerts", query, &alerts); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	return alerts, nil
}

// GetAlertStats fetches alert counts.
func (c *Client) GetAlertStats(ctx context.Context) (*AlertStats, error) {
	var stats AlertStats
	if err := c.get(ctx, "/api/alerts/stats", nil, &stats); err != nil {
		return nil, fmt.Errorf("get alert stats: %w", err)
	}
	return &stats, nil
}

// ResolveAlert marks an alert as resolved and returns the updated record.
func (c *Client) ResolveAlert(ctx context.Context, alertID int) (*AlertRecord, error) {
	var alert AlertRecord
	path := fmt.Sprintf("/api/alerts/%d/resolve", alertID)
	if err := c.post(ctx, path, &alert); err != nil {
		return nil, fmt.Errorf("resolve alert %d: %w", alertID, err)
	}
	return &alert, nil
}
