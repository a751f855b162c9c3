package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sophia-ai/capability-router/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "validation",
			err:      &domain.ErrValidation{Field: "capability", Message: "is required"},
			wantCode: http.StatusBadRequest,
			wantMsg:  "validation error on 'capability': is required",
		},
		{
			name:     "wrapped validation",
			err:      fmt.Errorf("decode: %w", &domain.ErrValidation{Field: "body", Message: "invalid request body"}),
			wantCode: http.StatusBadRequest,
			wantMsg:  "decode: validation error on 'body': invalid request body",
		},
		{
			name:     "unauthorized",
			err:      &domain.ErrUnauthorized{Message: "missing admin token"},
			wantCode: http.StatusUnauthorized,
			wantMsg:  "missing admin token",
		},
		{
			name:     "anything else is hidden",
			err:      errors.New("redis: connection pool exhausted"),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tt.err, zap.NewNop())

			assert.Equal(t, tt.wantCode, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}
