package funds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCustody(t *testing.T) {
	ctx := context.Background()

	t.Run("hold then split release", func(t *testing.T) {
		c := NewMemoryCustody()

		holdID, err := c.Hold(ctx, "traveler", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(-1000), c.Balance("traveler"))
		assert.Equal(t, int64(1000), c.Remaining(holdID))

		require.NoError(t, c.Refund(ctx, holdID, "traveler", 750))
		require.NoError(t, c.Release(ctx, holdID, "vendor", 250))

		assert.Equal(t, int64(-250), c.Balance("traveler"))
		assert.Equal(t, int64(250), c.Balance("vendor"))
		assert.Equal(t, int64(0), c.Remaining(holdID))
	})

	t.Run("cannot over-drain a hold", func(t *testing.T) {
		c := NewMemoryCustody()

		holdID, err := c.Hold(ctx, "traveler", 1000)
		require.NoError(t, err)

		require.NoError(t, c.Release(ctx, holdID, "vendor", 1000))
		err = c.Release(ctx, holdID, "vendor", 1)
		assert.ErrorIs(t, err, ErrInsufficientHold)
	})

	t.Run("rejects bad amounts and unknown holds", func(t *testing.T) {
		c := NewMemoryCustody()

		_, err := c.Hold(ctx, "traveler", 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		err = c.Refund(ctx, "nope", "traveler", 10)
		assert.ErrorIs(t, err, ErrHoldNotFound)
	})
}
