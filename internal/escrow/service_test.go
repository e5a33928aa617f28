package escrow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderstay/escrow-backend/internal/auth"
	"github.com/wanderstay/escrow-backend/internal/clock"
	"github.com/wanderstay/escrow-backend/internal/events"
	"github.com/wanderstay/escrow-backend/internal/funds"
	"github.com/wanderstay/escrow-backend/internal/vendors"
)

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	service  Service
	repo     *MemoryRepository
	custody  *funds.MemoryCustody
	clk      *clock.Fake
	bus      *events.MemoryBus
	vendorID string
	ownerID  string
}

func newTestEnv(t *testing.T, policy Policy) *testEnv {
	t.Helper()

	repo := NewMemoryRepository()
	custody := funds.NewMemoryCustody()
	clk := clock.NewFake(testBase)
	bus := events.NewMemoryBus()

	vendors := vendor.NewService(vendor.NewMemoryRepository())
	v, err := vendors.Register(context.Background(), "owner-1", "Seaside Cottage", "")
	require.NoError(t, err)

	return &testEnv{
		service:  NewService(repo, custody, vendors, clk, bus, policy),
		repo:     repo,
		custody:  custody,
		clk:      clk,
		bus:      bus,
		vendorID: v.ID,
		ownerID:  "owner-1",
	}
}

func defaultPolicy() Policy {
	return Policy{CancelWindow: time.Hour, DefaultBuffer: 2 * time.Hour}
}

func (e *testEnv) createBooking(t *testing.T, amount int64) *Booking {
	t.Helper()
	b, err := e.service.Create(context.Background(), CreateRequest{
		TravelerID: "traveler-1",
		VendorID:   e.vendorID,
		Amount:     amount,
		CheckIn:    testBase.Add(24 * time.Hour),
		CheckOut:   testBase.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) eventTypes() []string {
	evs := e.bus.Events()
	types := make([]string, len(evs))
	for i, ev := range evs {
		types[i] = ev.Type
	}
	return types
}

func traveler() auth.Actor { return auth.Actor{AccountID: "traveler-1"} }
func admin() auth.Actor    { return auth.Actor{AccountID: "admin-1", IsAdmin: true} }

func (e *testEnv) vendorActor() auth.Actor {
	return auth.Actor{AccountID: e.ownerID, VendorID: e.vendorID}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("holds the deposit and starts pending", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())

		b := env.createBooking(t, 10_000)

		assert.Equal(t, StatusPending, b.Status)
		assert.NotEmpty(t, b.ID)
		assert.NotEmpty(t, b.HoldID)
		assert.Equal(t, 2*time.Hour, b.Buffer) // default buffer applied

		assert.Equal(t, int64(-10_000), env.custody.Balance("traveler-1"))
		assert.Equal(t, int64(10_000), env.custody.Remaining(b.HoldID))

		assert.Equal(t, []string{events.TypeBookingCreated}, env.eventTypes())
	})

	t.Run("rejects check-out before check-in", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())

		_, err := env.service.Create(ctx, CreateRequest{
			TravelerID: "traveler-1",
			VendorID:   env.vendorID,
			Amount:     100,
			CheckIn:    testBase.Add(48 * time.Hour),
			CheckOut:   testBase.Add(24 * time.Hour),
		})
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())

		_, err := env.service.Create(ctx, CreateRequest{
			TravelerID: "traveler-1",
			VendorID:   env.vendorID,
			Amount:     0,
			CheckIn:    testBase.Add(24 * time.Hour),
			CheckOut:   testBase.Add(48 * time.Hour),
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)

		// Nothing held on a rejected create.
		assert.Equal(t, int64(0), env.custody.Balance("traveler-1"))
	})

	t.Run("rejects inactive vendor", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())

		vendors := vendor.NewService(vendor.NewMemoryRepository())
		v, err := vendors.Register(ctx, "owner-2", "Closed Inn", "")
		require.NoError(t, err)
		inactive := false
		_, err = vendors.SetStatus(ctx, v.ID, vendor.StatusUpdate{IsActive: &inactive})
		require.NoError(t, err)

		svc := NewService(env.repo, env.custody, vendors, env.clk, env.bus, defaultPolicy())
		_, err = svc.Create(ctx, CreateRequest{
			TravelerID: "traveler-1",
			VendorID:   v.ID,
			Amount:     100,
			CheckIn:    testBase.Add(24 * time.Hour),
			CheckOut:   testBase.Add(48 * time.Hour),
		})
		assert.ErrorIs(t, err, ErrVendorUnavailable)
	})
}

func TestConfirmCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects before check-in time", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		_, err := env.service.ConfirmCheckIn(ctx, b.ID, traveler())
		assert.ErrorIs(t, err, ErrTooEarly)
	})

	t.Run("either party can confirm once check-in arrives", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		env.clk.Advance(24 * time.Hour)
		got, err := env.service.ConfirmCheckIn(ctx, b.ID, env.vendorActor())
		require.NoError(t, err)
		assert.Equal(t, StatusCheckedIn, got.Status)
	})

	t.Run("rejects a stranger", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		env.clk.Advance(24 * time.Hour)
		_, err := env.service.ConfirmCheckIn(ctx, b.ID, auth.Actor{AccountID: "stranger"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects double confirmation", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		env.clk.Advance(24 * time.Hour)
		_, err := env.service.ConfirmCheckIn(ctx, b.ID, traveler())
		require.NoError(t, err)

		_, err = env.service.ConfirmCheckIn(ctx, b.ID, traveler())
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestHappyPathRelease(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultPolicy())

	b := env.createBooking(t, 10_000)

	env.clk.Advance(24 * time.Hour)
	_, err := env.service.ConfirmCheckIn(ctx, b.ID, env.vendorActor())
	require.NoError(t, err)

	got, err := env.service.ReleasePayment(ctx, b.ID, traveler())
	require.NoError(t, err)

	assert.Equal(t, StatusPaid, got.Status)
	assert.Equal(t, int64(10_000), got.PaidAmount)
	assert.Equal(t, int64(0), got.RefundedAmount)

	// Full amount ends up with the vendor, nothing left in the hold.
	assert.Equal(t, int64(10_000), env.custody.Balance(env.vendorID))
	assert.Equal(t, int64(0), env.custody.Remaining(b.HoldID))

	assert.Equal(t, []string{
		events.TypeBookingCreated,
		events.TypeCheckedIn,
		events.TypePaid,
	}, env.eventTypes())

	// Terminal: no further release or refund.
	_, err = env.service.ReleasePayment(ctx, b.ID, traveler())
	assert.ErrorIs(t, err, ErrAlreadySettled)
	_, err = env.service.RefundToTraveler(ctx, b.ID, admin())
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestSLAFailureAndRefund(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultPolicy())

	b := env.createBooking(t, 10_000)

	// Deadline is check-in + buffer; one minute past it the booking times
	// out into SLA failure.
	env.clk.Set(testBase.Add(26*time.Hour + time.Minute))
	fired, err := env.service.HandleTimeout(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, fired)

	got, err := env.service.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSLAFailed, got.Status)

	// Funds stay in custody until the traveler claims the refund.
	assert.Equal(t, int64(10_000), env.custody.Remaining(b.HoldID))

	got, err = env.service.RefundToTraveler(ctx, b.ID, traveler())
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, got.Status)
	assert.Equal(t, int64(10_000), got.RefundedAmount)

	// Traveler made whole.
	assert.Equal(t, int64(0), env.custody.Balance("traveler-1"))
	assert.Equal(t, int64(0), env.custody.Balance(env.vendorID))

	_, err = env.service.RefundToTraveler(ctx, b.ID, traveler())
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestRefundWithPenalty(t *testing.T) {
	ctx := context.Background()

	timeoutToSLAFailed := func(t *testing.T, env *testEnv, b *Booking) {
		t.Helper()
		env.clk.Set(testBase.Add(27 * time.Hour))
		fired, err := env.service.HandleTimeout(ctx, b.ID)
		require.NoError(t, err)
		require.True(t, fired)
	}

	t.Run("splits the amount exactly", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 10_001) // odd amount exercises rounding
		timeoutToSLAFailed(t, env, b)

		got, err := env.service.RefundWithPenalty(ctx, b.ID, admin(), 2500)
		require.NoError(t, err)

		assert.Equal(t, StatusRefunded, got.Status)
		assert.Equal(t, got.Amount, got.RefundedAmount+got.PaidAmount)
		assert.Equal(t, int64(7500), got.RefundedAmount)
		assert.Equal(t, int64(2501), got.PaidAmount) // remainder goes to the vendor

		assert.Equal(t, int64(-2501), env.custody.Balance("traveler-1"))
		assert.Equal(t, int64(2501), env.custody.Balance(env.vendorID))
		assert.Equal(t, int64(0), env.custody.Remaining(b.HoldID))
	})

	t.Run("admin only", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)
		timeoutToSLAFailed(t, env, b)

		_, err := env.service.RefundWithPenalty(ctx, b.ID, traveler(), 100)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects basis points out of range", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)
		timeoutToSLAFailed(t, env, b)

		_, err := env.service.RefundWithPenalty(ctx, b.ID, admin(), 10_001)
		assert.ErrorIs(t, err, ErrOutOfRange)
		_, err = env.service.RefundWithPenalty(ctx, b.ID, admin(), -1)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds in full inside the window", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 5000)

		got, err := env.service.Cancel(ctx, b.ID, traveler(), "change of plans")
		require.NoError(t, err)

		assert.Equal(t, StatusCancelled, got.Status)
		assert.Equal(t, "change of plans", got.CancelReason)
		assert.Equal(t, int64(5000), got.RefundedAmount)
		assert.Equal(t, int64(0), env.custody.Balance("traveler-1"))
	})

	t.Run("rejects once the window has closed", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 5000)

		// CancelWindow is 1h, check-in at +24h: 23h in is too late.
		env.clk.Advance(23 * time.Hour)
		_, err := env.service.Cancel(ctx, b.ID, traveler(), "")
		assert.ErrorIs(t, err, ErrTooLate)
	})

	t.Run("vendor cannot cancel", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 5000)

		_, err := env.service.Cancel(ctx, b.ID, env.vendorActor(), "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestDisputeTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("party can dispute a pending booking", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		got, err := env.service.BeginDispute(ctx, b.ID, traveler())
		require.NoError(t, err)
		assert.Equal(t, StatusDisputed, got.Status)
	})

	t.Run("non-party admin cannot raise it", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		_, err := env.service.BeginDispute(ctx, b.ID, admin())
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("disputed booking ignores timeouts until settled", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		_, err := env.service.BeginDispute(ctx, b.ID, traveler())
		require.NoError(t, err)

		env.clk.Advance(100 * time.Hour)
		fired, err := env.service.HandleTimeout(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, fired)

		got, err := env.service.SettleDispute(ctx, b.ID, true)
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, got.Status)
		assert.Equal(t, int64(0), env.custody.Balance("traveler-1"))
	})

	t.Run("settling against the traveler pays the vendor", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		env.clk.Advance(24 * time.Hour)
		_, err := env.service.ConfirmCheckIn(ctx, b.ID, traveler())
		require.NoError(t, err)
		_, err = env.service.BeginDispute(ctx, b.ID, env.vendorActor())
		require.NoError(t, err)

		got, err := env.service.SettleDispute(ctx, b.ID, false)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, got.Status)
		assert.Equal(t, int64(1000), env.custody.Balance(env.vendorID))
	})
}

func TestHandleTimeout(t *testing.T) {
	ctx := context.Background()

	t.Run("no-op before the deadline", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		fired, err := env.service.HandleTimeout(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, fired)
	})

	t.Run("idempotent after firing", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		env.clk.Set(testBase.Add(27 * time.Hour))
		fired, err := env.service.HandleTimeout(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, fired)

		fired, err = env.service.HandleTimeout(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, fired)
	})

	t.Run("checked-in booking auto-settles at checkout", func(t *testing.T) {
		env := newTestEnv(t, defaultPolicy())
		b := env.createBooking(t, 1000)

		env.clk.Advance(24 * time.Hour)
		_, err := env.service.ConfirmCheckIn(ctx, b.ID, traveler())
		require.NoError(t, err)

		env.clk.Set(testBase.Add(48 * time.Hour))
		fired, err := env.service.HandleTimeout(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, fired)

		got, err := env.service.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, got.Status)
		assert.Equal(t, int64(1000), env.custody.Balance(env.vendorID))
	})
}

func TestTimeRemaining(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultPolicy())
	b := env.createBooking(t, 1000)

	rem, err := env.service.TimeRemaining(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 26*time.Hour, rem) // check-in + buffer

	timedOut, err := env.service.IsTimedOut(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, timedOut)

	env.clk.Set(testBase.Add(30 * time.Hour))
	rem, err = env.service.TimeRemaining(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), rem)

	timedOut, err = env.service.IsTimedOut(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, timedOut)
}

func TestConcurrentRelease(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultPolicy())
	b := env.createBooking(t, 10_000)

	env.clk.Advance(24 * time.Hour)
	_, err := env.service.ConfirmCheckIn(ctx, b.ID, traveler())
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.service.ReleasePayment(ctx, b.ID, traveler())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadySettled)
		}
	}
	assert.Equal(t, 1, succeeded)

	// The vendor received the amount exactly once.
	assert.Equal(t, int64(10_000), env.custody.Balance(env.vendorID))
}

func TestCancelRacesTimeout(t *testing.T) {
	ctx := context.Background()

	// A lenient cancellation policy keeps cancellation open past the SLA
	// deadline, so a user cancel and the sweep can race on the same record.
	env := newTestEnv(t, Policy{CancelWindow: -4 * time.Hour, DefaultBuffer: 2 * time.Hour})
	b := env.createBooking(t, 10_000)

	env.clk.Set(testBase.Add(26*time.Hour + 30*time.Minute))

	var cancelErr error
	var fired bool
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = env.service.Cancel(ctx, b.ID, traveler(), "late cancel")
	}()
	go func() {
		defer wg.Done()
		fired, _ = env.service.HandleTimeout(ctx, b.ID)
	}()
	wg.Wait()

	got, err := env.service.GetByID(ctx, b.ID)
	require.NoError(t, err)

	if cancelErr == nil {
		// Cancel won; the timeout must have been a no-op.
		assert.Equal(t, StatusCancelled, got.Status)
		assert.False(t, fired)
		assert.Equal(t, int64(0), env.custody.Balance("traveler-1"))
	} else {
		// Timeout won; funds remain claimable via the SLA refund path.
		assert.True(t, fired)
		assert.Equal(t, StatusSLAFailed, got.Status)
		assert.Equal(t, int64(10_000), env.custody.Remaining(b.HoldID))
	}
}
