package api

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// StreamMessage is one decoded message from an agent's metric stream.
// Exactly one of Sample and Processes is set.
type StreamMessage struct {
	Sample    *MetricSample
	Processes []Process
}

// StreamPath is the WebSocket path for an agent's live metrics.
func StreamPath(agentID string) string {
	return "/ws/agents/" + url.PathEscape(agentID) + "/metrics"
}

// DecodeStreamMessage parses an inbound stream frame. Frames are either a
// flat metric object, a metric object wrapped as {"type":"metrics","data":{...}},
// or {"type":"processes","processes":[...]}.
func DecodeStreamMessage(data []byte) (StreamMessage, error) {
	var head struct {
		Type      string          `json:"type"`
		Data      json.RawMessage `json:"data"`
		Processes json.RawMessage `json:"processes"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return StreamMessage{}, fmt.Errorf("malformed stream message: %w", err)
	}

	switch head.Type {
	case "processes":
		raw := head.Processes
		if len(raw) == 0 {
			raw = head.Data
		}
		var procs []Process
		if err := json.Unmarshal(raw, &procs); err != nil {
			return StreamMessage{}, fmt.Errorf("malformed processes message: %w", err)
		}
		return StreamMessage{Processes: procs}, nil

	case "", "metrics", "metric":
		body := data
		if len(head.Data) > 0 && string(head.Data) != "null" {
			body = head.Data
		}
		var sample MetricSample
		if err := json.Unmarshal(body, &sample); err != nil {
			return StreamMessage{}, fmt.Errorf("malformed metric message: %w", err)
		}
		return StreamMessage{Sample: &sample}, nil

	default:
		return StreamMessage{}, fmt.Errorf("unknown stream message type %q", head.Type)
	}
}
