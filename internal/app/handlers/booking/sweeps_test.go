package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "renthub/internal/domain/booking"
	"renthub/internal/infra/storage/memory"
)

func newSweepFixture(t *testing.T) (*SweepHandler, *transitionFixture) {
	t.Helper()
	f := newTransitionFixture(t)
	sweeper := &SweepHandler{
		UoWFactory:  f.handler.UoWFactory,
		Transitions: f.handler,
		Logger:      f.handler.Logger,
	}
	return sweeper, f
}

func (f *transitionFixture) age(t *testing.T, id string, age time.Duration) {
	t.Helper()
	b, err := f.bookings.ByID(context.Background(), domainbooking.BookingID(id))
	require.NoError(t, err)
	b.UpdatedAt = time.Now().UTC().Add(-age)
	require.NoError(t, f.bookings.Save(context.Background(), b))
}

func TestSweepExpiresStalePendingPayments(t *testing.T) {
	sweeper, f := newSweepFixture(t)
	f.seed(t, "bk-stale-1", domainbooking.StatusPendingPayment)
	f.seed(t, "bk-stale-2", domainbooking.StatusPendingPayment)
	f.seed(t, "bk-fresh", domainbooking.StatusPendingPayment)
	f.age(t, "bk-stale-1", 30*time.Hour)
	f.age(t, "bk-stale-2", 25*time.Hour)

	res, err := sweeper.HandleExpirePayments(context.Background(), ExpirePendingPaymentsCommand{Timeout: 24 * time.Hour})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 2, res.Transitioned)
	assert.Empty(t, res.Failed)

	for _, id := range []string{"bk-stale-1", "bk-stale-2"} {
		b, err := f.bookings.ByID(context.Background(), domainbooking.BookingID(id))
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusCancelled, b.Status)
		last := b.History[len(b.History)-1]
		assert.Equal(t, domainbooking.RoleSystem, last.Role)
	}

	fresh, err := f.bookings.ByID(context.Background(), "bk-fresh")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPendingPayment, fresh.Status)
}

func TestSweepRerunIsNoOp(t *testing.T) {
	sweeper, f := newSweepFixture(t)
	f.seed(t, "bk-stale", domainbooking.StatusPendingPayment)
	f.age(t, "bk-stale", 48*time.Hour)

	first, err := sweeper.HandleExpirePayments(context.Background(), ExpirePendingPaymentsCommand{Timeout: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Transitioned)

	second, err := sweeper.HandleExpirePayments(context.Background(), ExpirePendingPaymentsCommand{Timeout: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Candidates)
	assert.Equal(t, 0, second.Transitioned)
}

func TestSweepAutoCompletesStaleReturnInspections(t *testing.T) {
	sweeper, f := newSweepFixture(t)
	f.seed(t, "bk-return", domainbooking.StatusAwaitingReturn)
	f.age(t, "bk-return", 72*time.Hour)

	res, err := sweeper.HandleApproveReturns(context.Background(), AutoApproveReturnsCommand{Window: 48 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Transitioned)

	b, err := f.bookings.ByID(context.Background(), "bk-return")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCompleted, b.Status)
}

// failingSaveRepo lets one candidate fail its conditional update mid-sweep.
type failingSaveRepo struct {
	domainbooking.Repository
	failID domainbooking.BookingID
}

func (r failingSaveRepo) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b.ID == r.failID {
		return domainbooking.ErrConflict
	}
	return r.Repository.Save(ctx, b)
}

func TestSweepContinuesPastFailedCandidate(t *testing.T) {
	sweeper, f := newSweepFixture(t)
	f.seed(t, "bk-bad", domainbooking.StatusPendingPayment)
	f.seed(t, "bk-good", domainbooking.StatusPendingPayment)
	f.age(t, "bk-bad", 30*time.Hour)
	f.age(t, "bk-good", 30*time.Hour)

	wrapped := failingSaveRepo{Repository: f.bookings, failID: "bk-bad"}
	factory := memory.Factory{
		ListingsRepo: memory.NewListingRepository(),
		BookingRepo:  wrapped,
	}
	sweeper.UoWFactory = factory
	sweeper.Transitions = &TransitionHandler{
		UoWFactory: factory,
		Outbox:     f.outbox,
		Hooks:      f.hooks.Hooks(),
		Logger:     f.handler.Logger,
	}

	res, err := sweeper.HandleExpirePayments(context.Background(), ExpirePendingPaymentsCommand{Timeout: 24 * time.Hour})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 1, res.Transitioned)
	assert.Equal(t, []string{"bk-bad"}, res.Failed)

	good, err := f.bookings.ByID(context.Background(), "bk-good")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, good.Status)

	bad, err := f.bookings.ByID(context.Background(), "bk-bad")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPendingPayment, bad.Status)
}
