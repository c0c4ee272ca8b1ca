package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/rileyhilliard/fleetwatch/internal/api"
	"github.com/rileyhilliard/fleetwatch/internal/demo"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]string{"key": "value"}))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]interface{}{"key": "value"}, env.Data)
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONError(&buf, ErrCodeInvalidInput, "bad", "try again", nil))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeInvalidInput, env.Error.Code)
	assert.Equal(t, "bad", env.Error.Message)
	assert.Equal(t, "try again", env.Error.Suggestion)
}

func TestErrorToJSON(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "config not found",
			err:      errors.New(errors.ErrConfig, "Config file not found: x.yaml", ""),
			wantCode: ErrCodeConfigNotFound,
		},
		{
			name:     "config invalid",
			err:      errors.New(errors.ErrConfig, "server.url is required", ""),
			wantCode: ErrCodeConfigInvalid,
		},
		{
			name:     "api timeout",
			err:      errors.New(errors.ErrAPI, "Listing agents timed out", ""),
			wantCode: ErrCodeTimeout,
		},
		{
			name:     "api failure",
			err:      errors.New(errors.ErrAPI, "Backend returned 500", ""),
			wantCode: ErrCodeAPIFailed,
		},
		{
			name:     "auth",
			err:      errors.New(errors.ErrAuth, "Token rejected", ""),
			wantCode: ErrCodeAuthFailed,
		},
		{
			name:     "stream",
			err:      streamGaveUp("web-01", 5, nil),
			wantCode: ErrCodeStreamFailed,
		},
		{
			name:     "validation",
			err:      errors.New(errors.ErrValidation, "bad flag", ""),
			wantCode: ErrCodeInvalidInput,
		},
		{
			name:     "prefs",
			err:      errors.New(errors.ErrPrefs, "bad tab", ""),
			wantCode: ErrCodePrefsInvalid,
		},
		{
			name:     "plain error",
			err:      stderrors.New("boom"),
			wantCode: ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorToJSON(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}

	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSONNotFound(t *testing.T) {
	b := startBackend(t, demo.Options{})
	_, err := b.client.GetAgent(context.Background(), "nope")
	require.Error(t, err)
	require.True(t, api.IsNotFound(err))

	got := ErrorToJSON(err)
	assert.Equal(t, ErrCodeNotFound, got.Code)
	details, ok := got.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 404, details["status"])
}

func TestPrintResult(t *testing.T) {
	t.Run("human", func(t *testing.T) {
		var buf bytes.Buffer
		called := false
		require.NoError(t, printResult(&buf, "data", func() error {
			called = true
			return nil
		}))
		assert.True(t, called)
		assert.Empty(t, buf.String())
	})

	t.Run("machine", func(t *testing.T) {
		withMachineMode(t)
		var buf bytes.Buffer
		require.NoError(t, printResult(&buf, []int{1, 2}, func() error {
			t.Fatal("human output in machine mode")
			return nil
		}))
		var got []int
		decodeEnvelope(t, &buf, &got)
		assert.Equal(t, []int{1, 2}, got)
	})
}
