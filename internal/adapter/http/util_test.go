package adapthttp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"tourbook/internal/app"
	"tourbook/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Invalid("page", "bad"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.Invalid("x", "y")), http.StatusBadRequest},
		{app.ErrUnknownUser, http.StatusUnauthorized},
		{app.ErrWrongPassword, http.StatusUnauthorized},
		{app.ErrSessionExpired, http.StatusUnauthorized},
		{app.ErrUserExists, http.StatusConflict},
		{app.ErrTourNotFound, http.StatusNotFound},
		{app.ErrGuideNotFound, http.StatusBadRequest},
		{fmt.Errorf("store a.jpg: %w", app.ErrNameCollision), http.StatusInternalServerError},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
