package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderstay/escrow-backend/internal/clock"
	"github.com/wanderstay/escrow-backend/internal/escrow"
	"github.com/wanderstay/escrow-backend/internal/events"
	"github.com/wanderstay/escrow-backend/internal/funds"
	"github.com/wanderstay/escrow-backend/internal/vendors"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newLedger(t *testing.T, clk clock.Clock) (escrow.Service, string) {
	t.Helper()

	vendors := vendor.NewService(vendor.NewMemoryRepository())
	v, err := vendors.Register(context.Background(), "owner-1", "Seaside Cottage", "")
	require.NoError(t, err)

	svc := escrow.NewService(escrow.NewMemoryRepository(), funds.NewMemoryCustody(), vendors,
		clk, events.NewMemoryBus(),
		escrow.Policy{CancelWindow: time.Hour, DefaultBuffer: 2 * time.Hour})
	return svc, v.ID
}

func createBooking(t *testing.T, ledger escrow.Service, vendorID string, checkIn time.Time) *escrow.Booking {
	t.Helper()
	b, err := ledger.Create(context.Background(), escrow.CreateRequest{
		TravelerID: "traveler-1",
		VendorID:   vendorID,
		Amount:     1000,
		CheckIn:    checkIn,
		CheckOut:   checkIn.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return b
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("transitions only due bookings", func(t *testing.T) {
		clk := clock.NewFake(testBase)
		ledger, vendorID := newLedger(t, clk)

		due := createBooking(t, ledger, vendorID, testBase.Add(1*time.Hour))
		notDue := createBooking(t, ledger, vendorID, testBase.Add(48*time.Hour))

		// Past the first booking's deadline (check-in + 2h buffer), well
		// before the second's.
		clk.Set(testBase.Add(4 * time.Hour))

		s := New(ledger, clk, time.Minute)
		fired, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, fired)

		got, err := ledger.GetByID(ctx, due.ID)
		require.NoError(t, err)
		assert.Equal(t, escrow.StatusSLAFailed, got.Status)

		got, err = ledger.GetByID(ctx, notDue.ID)
		require.NoError(t, err)
		assert.Equal(t, escrow.StatusPending, got.Status)
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		clk := clock.NewFake(testBase)
		ledger, vendorID := newLedger(t, clk)
		createBooking(t, ledger, vendorID, testBase.Add(1*time.Hour))

		clk.Set(testBase.Add(4 * time.Hour))
		s := New(ledger, clk, time.Minute)

		fired, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, fired)

		fired, err = s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, fired)
	})

	t.Run("run stops on context cancel", func(t *testing.T) {
		clk := clock.NewFake(testBase)
		ledger, _ := newLedger(t, clk)

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		s := New(ledger, clk, 10*time.Millisecond)
		go func() {
			s.Run(runCtx)
			close(done)
		}()

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop after cancel")
		}
	})
}
