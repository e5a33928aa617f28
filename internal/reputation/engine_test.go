package reputation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderstay/escrow-backend/internal/vendors"
)

func newVendor(t *testing.T, repo vendor.Repository) *vendor.Vendor {
	t.Helper()
	v := &vendor.Vendor{
		OwnerID:         "owner-1",
		Name:            "Seaside Cottage",
		ReputationScore: vendor.InitialReputation,
		IsActive:        true,
	}
	require.NoError(t, repo.Create(context.Background(), v))
	return v
}

func TestApplyDelta(t *testing.T) {
	ctx := context.Background()

	t.Run("adds and subtracts", func(t *testing.T) {
		repo := vendor.NewMemoryRepository()
		v := newVendor(t, repo)
		eng := NewEngine(repo)

		score, err := eng.ApplyDelta(ctx, v.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, vendor.InitialReputation+7, score)

		score, err = eng.ApplyDelta(ctx, v.ID, -10)
		require.NoError(t, err)
		assert.Equal(t, vendor.InitialReputation-3, score)
	})

	t.Run("clamps at the bounds", func(t *testing.T) {
		repo := vendor.NewMemoryRepository()
		v := newVendor(t, repo)
		eng := NewEngine(repo)

		score, err := eng.ApplyDelta(ctx, v.ID, 1000)
		require.NoError(t, err)
		assert.Equal(t, vendor.MaxReputation, score)

		score, err = eng.ApplyDelta(ctx, v.ID, -1000)
		require.NoError(t, err)
		assert.Equal(t, vendor.MinReputation, score)

		// Climbing back from the floor works normally.
		score, err = eng.ApplyDelta(ctx, v.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, vendor.MinReputation+5, score)
	})

	t.Run("zero delta reads without writing", func(t *testing.T) {
		repo := vendor.NewMemoryRepository()
		v := newVendor(t, repo)
		eng := NewEngine(repo)

		score, err := eng.ApplyDelta(ctx, v.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, vendor.InitialReputation, score)
	})

	t.Run("unknown vendor", func(t *testing.T) {
		eng := NewEngine(vendor.NewMemoryRepository())

		_, err := eng.ApplyDelta(ctx, "00000000-0000-0000-0000-000000000000", 1)
		assert.ErrorIs(t, err, vendor.ErrNotFound)
	})
}
