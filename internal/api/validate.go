package api

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// BookmarkInput is the body of a monitor create or update.
type BookmarkInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	URL             string `json:"url" validate:"required,url"`
	Method          string `json:"method" validate:"omitempty,oneof=GET HEAD POST"`
	IntervalSeconds int    `json:"interval_seconds" validate:"gte=10,lte=86400"`
	TimeoutSeconds  int    `json:"timeout_seconds" validate:"omitempty,gte=1,lte=120"`
	ExpectedStatus  int    `json:"expected_status" validate:"omitempty,gte=100,lte=599"`
	Enabled         bool   `json:"enabled"`
}

// Normalize fills defaults the backend would otherwise reject.
func (in *BookmarkInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.URL = strings.TrimSpace(in.URL)
	in.Method = strings.ToUpper(strings.TrimSpace(in.Method))
	if in.Method == "" {
		in.Method = "GET"
	}
	if in.IntervalSeconds == 0 {
		in.IntervalSeconds = 60
	}
	if in.ExpectedStatus == 0 {
		in.ExpectedStatus = 200
	}
}

// Validate checks the input before it's sent.
func (in BookmarkInput) Validate() error {
	return validationError("monitor", validate.Struct(in))
}

// AlertMetrics lists the metrics the backend evaluates rules against.
var AlertMetrics = []string{"cpu", "ram", "gpu", "disk", "cpu_temp", "gpu_temp", "offline"}

// AlertRuleInput is the body of an alert rule create or update.
type AlertRuleInput struct {
	Name            string  `json:"name" validate:"required,max=100"`
	AgentID         string  `json:"agent_id,omitempty"`
	Metric          string  `json:"metric" validate:"required,oneof=cpu ram gpu disk cpu_temp gpu_temp offline"`
	Operator        string  `json:"operator" validate:"required,oneof=> >= < <="`
	Threshold       float64 `json:"threshold" validate:"gte=0"`
	DurationSeconds int     `json:"duration_seconds" validate:"gte=0,lte=86400"`
	Enabled         bool    `json:"enabled"`
	WebhookURL      string  `json:"webhook_url,omitempty" validate:"omitempty,url"`
}

// Validate checks the input before it's sent. Percentage metrics are capped
// at 100.
func (in AlertRuleInput) Validate() error {
	if err := validationError("alert rule", validate.Struct(in)); err != nil {
		return err
	}
	switch in.Metric {
	case "cpu", "ram", "gpu", "disk":
		if in.Threshold > 100 {
			return errors.New(errors.ErrValidation,
				fmt.Sprintf("Invalid alert rule: threshold %s is above 100%% for %s", trimFloat(in.Threshold), in.Metric),
				"Percentage thresholds must be between 0 and 100.")
		}
	}
	return nil
}

// validationError turns validator output into a structured error naming the
// first bad field.
func validationError(what string, err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.WrapWithCode(err, errors.ErrValidation, "Invalid "+what, "")
	}

	fe := verrs[0]
	return errors.WrapWithCode(err, errors.ErrValidation,
		fmt.Sprintf("Invalid %s: %s %s", what, fe.Field(), describeTag(fe)),
		"Fix the field and try again.")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a full URL (https://...)"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed the '" + fe.Tag() + "' check"
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
