package database

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"kycgate/pkg/platform/sentinel"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pq.Error{Code: "23505", Constraint: "users_email_key"}, sentinel.ErrConflict},
		{"foreign key violation", &pq.Error{Code: "23503", Constraint: "kyc_sessions_user_id_fkey"}, sentinel.ErrNotFound},
		{"check violation", &pq.Error{Code: "23514", Constraint: "kyc_sessions_status_check"}, sentinel.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err)
			assert.True(t, errors.Is(got, tt.want))
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		other := errors.New("connection reset")
		assert.Equal(t, other, TranslateError(other))

		syntax := &pq.Error{Code: "42601"}
		assert.Equal(t, error(syntax), TranslateError(syntax))
	})
}
