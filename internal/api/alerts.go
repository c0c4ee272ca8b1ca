package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListAlerts returns every alert rule.
func (c *Client) ListAlerts(ctx context.Context) ([]AlertRule, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/alerts", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []AlertRule
	if err := decodePayload(data, &out, "alerts"); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAlert validates in and creates a rule.
func (c *Client) CreateAlert(ctx context.Context, in AlertRuleInput) (*AlertRule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.saveAlert(ctx, http.MethodPost, "/api/alerts", in)
}

// UpdateAlert validates in and replaces rule id.
func (c *Client) UpdateAlert(ctx context.Context, id string, in AlertRuleInput) (*AlertRule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.saveAlert(ctx, http.MethodPut, "/api/alerts/"+url.PathEscape(id), in)
}

// SetAlertEnabled flips a rule on or off, keeping the rest of it.
func (c *Client) SetAlertEnabled(ctx context.Context, rule AlertRule, enabled bool) (*AlertRule, error) {
	in := rule.Input()
	in.Enabled = enabled
	return c.UpdateAlert(ctx, rule.ID, in)
}

// DeleteAlert removes rule id.
func (c *Client) DeleteAlert(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/alerts/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) saveAlert(ctx context.Context, method, path string, in AlertRuleInput) (*AlertRule, error) {
	data, err := c.do(ctx, method, path, nil, in)
	if err != nil {
		return nil, err
	}
	var out AlertRule
	if err := decodePayload(data, &out, "alert"); err != nil {
		return nil, err
	}
	return &out, nil
}
