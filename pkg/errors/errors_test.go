package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreUnavailableKeepsCause(t *testing.T) {
	err := StoreUnavailable("fetching postings", context.Canceled)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "fetching postings")
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("parse: %w", ErrInvalidInput), http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"store", StoreUnavailable("count", errors.New("conn refused")), http.StatusServiceUnavailable},
		{"app error", New(ErrInternal, http.StatusTeapot, "odd"), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "page %q", "x")
	assert.Equal(t, `invalid input: page "x"`, err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
}
