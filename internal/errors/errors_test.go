package errors

import (
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromErr(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", NewError("bad").Mark(ErrValidation), http.StatusBadRequest, ErrCodeValidation},
		{"not found", NewError("missing").Mark(ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"conflict", NewError("taken").Mark(ErrConflict), http.StatusConflict, ErrCodeConflict},
		{"invalid state", NewError("wrong state").Mark(ErrInvalidState), http.StatusUnprocessableEntity, ErrCodeInvalidState},
		{"version conflict", NewError("stale").Mark(ErrVersionConflict), http.StatusConflict, ErrCodeVersionConflict},
		{"database", WithError(errors.New("conn reset")).Mark(ErrDatabase), http.StatusInternalServerError, ErrCodeDatabase},
		{"unmarked", errors.New("boom"), http.StatusInternalServerError, ErrCodeSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatusFromErr(tt.err))
			assert.Equal(t, tt.code, CodeFromErr(tt.err))
		})
	}
}

func TestMarkSurvivesWrapping(t *testing.T) {
	err := NewError("invoice is not proforma").Mark(ErrInvalidState)
	wrapped := errors.Wrap(err, "convert invoice")

	assert.True(t, IsInvalidState(wrapped))
	assert.True(t, IsBusinessRule(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestIsBusinessRule(t *testing.T) {
	assert.True(t, IsBusinessRule(NewError("x").Mark(ErrValidation)))
	assert.True(t, IsBusinessRule(NewError("x").Mark(ErrNotFound)))
	assert.True(t, IsBusinessRule(NewError("x").Mark(ErrConflict)))
	assert.False(t, IsBusinessRule(NewError("x").Mark(ErrDatabase)))
	assert.False(t, IsBusinessRule(NewError("x").Mark(ErrVersionConflict)))
}

func TestDisplayMessage(t *testing.T) {
	err := NewError("amount exceeds remaining").
		WithHint("Discount exceeds the remaining amount").
		Mark(ErrConflict)
	assert.Equal(t, "Discount exceeds the remaining amount", DisplayMessage(err))
	assert.Equal(t, "An unexpected error occurred", DisplayMessage(errors.New("raw")))
}

func TestReportableDetails(t *testing.T) {
	err := NewError("amount exceeds remaining").
		WithReportableDetails(map[string]any{"billing_id": "b-1"}).
		Mark(ErrConflict)

	details := ReportableDetails(err)
	assert.Equal(t, "b-1", details["billing_id"])
	assert.Empty(t, ReportableDetails(errors.New("raw")))
}
