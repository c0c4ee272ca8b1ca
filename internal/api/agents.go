package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// ListAgents returns every agent known to the backend.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/agents", nil, nil)
	if err != nil {
		return nil, err
	}
	var agents []Agent
	if err := decodePayload(data, &agents, "agents"); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent returns one agent.
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/agents/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var agent Agent
	if err := decodePayload(data, &agent, "agent"); err != nil {
		return nil, err
	}
	return &agent, nil
}

// RestartAgent asks the agent to restart and returns the backend's message.
func (c *Client) RestartAgent(ctx context.Context, id string) (string, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/agents/"+url.PathEscape(id)+"/restart", nil, nil)
	if err != nil {
		return "", err
	}
	var env envelope
	_ = json.Unmarshal(data, &env)
	if env.Message == "" {
		return "restart requested", nil
	}
	return env.Message, nil
}

// ListProcesses returns the agent's current process table.
func (c *Client) ListProcesses(ctx context.Context, id string) ([]Process, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/agents/"+url.PathEscape(id)+"/processes", nil, nil)
	if err != nil {
		return nil, err
	}
	var procs []Process
	if err := decodePayload(data, &procs, "processes"); err != nil {
		return nil, err
	}
	return procs, nil
}
