package api

import (
	"testing"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestBookmarkInput_Validate(t *testing.T) {
	valid := BookmarkInput{Name: "site", URL: "https://example.com", Method: "GET", IntervalSeconds: 60}

	tests := []struct {
		name    string
		mutate  func(*BookmarkInput)
		wantErr string
	}{
		{"valid", func(*BookmarkInput) {}, ""},
		{"missing name", func(in *BookmarkInput) { in.Name = "" }, "name is required"},
		{"bad url", func(in *BookmarkInput) { in.URL = "example.com" }, "url must be a full URL"},
		{"bad method", func(in *BookmarkInput) { in.Method = "DELETE" }, "method must be one of"},
		{"interval too short", func(in *BookmarkInput) { in.IntervalSeconds = 5 }, "interval_seconds must be at least 10"},
		{"bad expected status", func(in *BookmarkInput) { in.ExpectedStatus = 99 }, "expected_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.True(t, errors.IsCode(err, errors.ErrValidation))
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestBookmarkInput_Normalize(t *testing.T) {
	in := BookmarkInput{Name: "  a ", URL: " https://x.io ", Method: "post"}
	in.Normalize()

	assert.Equal(t, "a", in.Name)
	assert.Equal(t, "https://x.io", in.URL)
	assert.Equal(t, "POST", in.Method)
	assert.Equal(t, 60, in.IntervalSeconds)
	assert.Equal(t, 200, in.ExpectedStatus)
	assert.NoError(t, in.Validate())
}

func TestAlertRuleInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      AlertRuleInput
		wantErr string
	}{
		{"valid", AlertRuleInput{Name: "hot", Metric: "cpu", Operator: ">", Threshold: 90}, ""},
		{"temp above 100 ok", AlertRuleInput{Name: "t", Metric: "gpu_temp", Operator: ">=", Threshold: 105}, ""},
		{"unknown metric", AlertRuleInput{Name: "x", Metric: "iops", Operator: ">"}, "metric must be one of"},
		{"bad operator", AlertRuleInput{Name: "x", Metric: "cpu", Operator: "=="}, "operator must be one of"},
		{"percent over 100", AlertRuleInput{Name: "x", Metric: "ram", Operator: ">", Threshold: 120}, "above 100%"},
		{"negative threshold", AlertRuleInput{Name: "x", Metric: "cpu", Operator: "<", Threshold: -1}, "threshold must be at least 0"},
		{"bad webhook", AlertRuleInput{Name: "x", Metric: "cpu", Operator: ">", WebhookURL: "nope"}, "webhook_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.True(t, errors.IsCode(err, errors.ErrValidation))
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAlertRule_Condition(t *testing.T) {
	assert.Equal(t, "cpu > 90 for 60s", AlertRule{Metric: "cpu", Operator: ">", Threshold: 90, DurationSeconds: 60}.Condition())
	assert.Equal(t, "gpu_temp >= 82.5", AlertRule{Metric: "gpu_temp", Operator: ">=", Threshold: 82.5}.Condition())
}
