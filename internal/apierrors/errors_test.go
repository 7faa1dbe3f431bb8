package apierrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAs(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantOK     bool
		wantStatus int
	}{
		{
			name:       "direct",
			err:        NewErrChannelNotFound(),
			wantOK:     true,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "wrapped",
			err:        fmt.Errorf("join: %w", NewErrGuestForbidden()),
			wantOK:     true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "plain error",
			err:    assert.AnError,
			wantOK: false,
		},
		{
			name:   "nil",
			err:    nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr, ok := As(tt.err)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantStatus, apiErr.Status)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "invalid credentials", NewErrInvalidCredentials().Error())
	assert.Equal(t, "bad thing", NewErrBadRequest("bad thing").Error())
	assert.Equal(t, http.StatusUnauthorized, NewErrMissingAuthorizationToken().Status)
	assert.Equal(t, http.StatusInternalServerError, NewErrInternalServerError().Status)
}
