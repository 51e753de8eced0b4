package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrInvalidWeights, http.StatusBadRequest},
		{ErrNoRankVector, http.StatusBadRequest},
		{ErrArtifactMissing, http.StatusNotFound},
		{ErrTimeout, http.StatusServiceUnavailable},
		{ErrInternal, http.StatusInternalServerError},
		{fmt.Errorf("anything else"), http.StatusInternalServerError},
		// Wrapped sentinels keep their mapping.
		{fmt.Errorf("search: %w", ErrInvalidWeights), http.StatusBadRequest},
		{fmt.Errorf("load: %w", ErrArtifactMissing), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), tt.err.Error())
	}
}

func TestAppErrorOverridesStatus(t *testing.T) {
	err := New(ErrInvalidInput, http.StatusUnprocessableEntity, "k out of range")
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusCode(err))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "k out of range")

	wrapped := fmt.Errorf("handler: %w", Newf(ErrTimeout, http.StatusGatewayTimeout, "after %dms", 1500))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatusCode(wrapped))
}
