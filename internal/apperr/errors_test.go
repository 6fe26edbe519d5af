package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSentinelsMatchByKind(t *testing.T) {
	err := fmt.Errorf("lookup: %w", New(KindNotFound, "product not found"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestLoggedOutIsNotAuthenticated(t *testing.T) {
	assert.ErrorIs(t, ErrLoggedOut, ErrNotAuthenticated)
	assert.ErrorIs(t, ErrLoggedOut, ErrLoggedOut)
	assert.NotErrorIs(t, New(KindNotAuthenticated, "user not logged in"), ErrLoggedOut)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified", New(KindConflict, "email taken"), KindConflict},
		{"deadline", context.DeadlineExceeded, KindTransport},
		{"canceled wrapped", fmt.Errorf("get: %w", context.Canceled), KindTransport},
		{"foreign", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, Classify(nil))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "not_found", ErrNotFound.Error())
	assert.Equal(t, "user data not found", New(KindNotFound, "user data not found").Error())
	assert.Equal(t, "request failed: boom", Wrap(KindTransport, errors.New("boom"), "request failed").Error())
}
