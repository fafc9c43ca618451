package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindInternal, http.StatusInternalServerError},
		{KindBadRequest, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{Kind(99), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Status())
		})
	}
}

func TestFromKeepsKind(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NotFound("user not found"))

	got := From(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, KindNotFound, got.Kind)
	assert.Equal(t, "user not found", got.Message)
	assert.Equal(t, http.StatusNotFound, got.Status())
}

func TestFromPlainErrorIsInternal(t *testing.T) {
	cause := errors.New("connection refused")

	got := From(cause)
	require.NotNil(t, got)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, "internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
}

func TestFromNil(t *testing.T) {
	assert.Nil(t, From(nil))
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(BadRequest("bad"), KindBadRequest))
	assert.False(t, IsKind(BadRequest("bad"), KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindInternal))
}
