package auctionerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"auction", fmt.Errorf("service: %w", ErrAuctionNotFound), true},
		{"user", fmt.Errorf("repo: %w", ErrUserNotFound), true},
		{"category", ErrCategoryNotFound, true},
		{"no_bids", ErrNoBids, false},
		{"validation", ErrValidation, false},
		{"other", errors.New("not found"), false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.notFound, IsNotFound(tc.err))
		})
	}
}

func TestIsRejection(t *testing.T) {
	t.Parallel()

	require.True(t, IsRejection(fmt.Errorf("service: %w - current highest bid is 10.00", ErrNotHigherThanCurrentBid)))
	require.True(t, IsRejection(ErrBelowStartingPrice))
	require.True(t, IsRejection(ErrAuctionClosed))
	require.False(t, IsRejection(ErrForbidden))
}
