package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("verify: %w", ErrExpired), http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{Wrap(ErrInvalidOrExpired, "refresh"), http.StatusUnauthorized},
		{ErrConflict, http.StatusConflict},
		{ErrForbidden, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusCode(tc.err), "%v", tc.err)
	}
}

func TestPublic_HidesCause(t *testing.T) {
	err := fmt.Errorf("failed to find user: %w", fmt.Errorf("pq: connection reset: %w", ErrNotFound))
	assert.Equal(t, ErrNotFound, Public(err))
	assert.Equal(t, ErrInternal, Public(errors.New("pq: syntax error")))
	assert.Equal(t, ErrUnauthenticated, Public(fmt.Errorf("verify: %w", ErrExpired)))
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ctx"))
	assert.True(t, Is(Wrap(ErrConflict, "register"), ErrConflict))
}
