package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "renthub/internal/domain/booking"
	"renthub/internal/domain/pricing"
	"renthub/internal/domain/shared/daterange"
	"renthub/internal/domain/shared/money"
	"renthub/internal/infra/storage/memory"
)

const (
	fixtureRenter = "renter-1"
	fixtureOwner  = "owner-1"
)

type transitionFixture struct {
	handler  *TransitionHandler
	bookings *memory.BookingRepository
	outbox   *memory.Outbox
	hooks    *memory.HookRecorder
}

func newTransitionFixture(t *testing.T) *transitionFixture {
	t.Helper()
	bookings := memory.NewBookingRepository()
	box := memory.NewOutbox()
	hooks := memory.NewHookRecorder()
	handler := &TransitionHandler{
		UoWFactory: memory.Factory{
			ListingsRepo: memory.NewListingRepository(),
			BookingRepo:  bookings,
		},
		Outbox: box,
		Hooks:  hooks.Hooks(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return &transitionFixture{handler: handler, bookings: bookings, outbox: box, hooks: hooks}
}

func (f *transitionFixture) seed(t *testing.T, id string, status domainbooking.Status) {
	t.Helper()
	start := time.Now().UTC().Add(72 * time.Hour)
	dr, err := daterange.New(start, start.Add(48*time.Hour))
	require.NoError(t, err)
	usd := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: "USD"} }
	b := &domainbooking.Booking{
		ID:        domainbooking.BookingID(id),
		ListingID: "lst-1",
		RenterID:  fixtureRenter,
		OwnerID:   fixtureOwner,
		Range:     dr,
		Status:    status,
		Price: pricing.Breakdown{
			Currency:      "USD",
			Unit:          pricing.UnitDay,
			Units:         2,
			Subtotal:      usd(20000),
			PlatformFee:   usd(3000),
			ServiceFee:    usd(1000),
			Deposit:       usd(5000),
			Total:         usd(26000),
			OwnerEarnings: usd(17000),
		},
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.bookings.Save(context.Background(), b))
}

func TestTransitionHandlerCancelRunsRefundHook(t *testing.T) {
	f := newTransitionFixture(t)
	f.seed(t, "bk-1", domainbooking.StatusConfirmed)

	res, err := f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "bk-1",
		Name:      domainbooking.TransitionCancel,
		ActorID:   fixtureRenter,
		Role:      domainbooking.RoleRenter,
	})
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, res.Status)

	stored, err := f.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, stored.Status)
	assert.Equal(t, domainbooking.StatusCancelled, stored.History[len(stored.History)-1].Status)

	records := f.outbox.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "booking.transitioned", records[0].Name)

	calls := f.hooks.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, memory.HookRefund, calls[0].Name)
	require.NotNil(t, calls[0].Refund)
	// 72h out means the free cancellation window applies: full subtotal and
	// service fee plus the deposit.
	assert.Equal(t, int64(20000+1000+5000), calls[0].Refund.RefundAmount.Amount)
}

func TestTransitionHandlerHookFailureDoesNotFailTransition(t *testing.T) {
	f := newTransitionFixture(t)
	f.seed(t, "bk-1", domainbooking.StatusConfirmed)
	f.hooks.Fail = map[string]error{memory.HookRefund: errors.New("payments down")}

	res, err := f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "bk-1",
		Name:      domainbooking.TransitionCancel,
		ActorID:   fixtureOwner,
		Role:      domainbooking.RoleOwner,
	})
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, res.Status)

	stored, err := f.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, stored.Status)
}

func TestTransitionHandlerHooksPerStatus(t *testing.T) {
	f := newTransitionFixture(t)
	f.seed(t, "bk-pay", domainbooking.StatusPendingPayment)
	_, err := f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "bk-pay",
		Name:      domainbooking.TransitionCompletePayment,
		ActorID:   fixtureRenter,
		Role:      domainbooking.RoleRenter,
	})
	require.NoError(t, err)

	f.seed(t, "bk-dispute", domainbooking.StatusInProgress)
	_, err = f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "bk-dispute",
		Name:      domainbooking.TransitionInitiateDispute,
		ActorID:   fixtureOwner,
		Role:      domainbooking.RoleOwner,
	})
	require.NoError(t, err)

	names := make([]string, 0)
	for _, call := range f.hooks.Calls() {
		names = append(names, call.Name)
	}
	assert.Equal(t, []string{memory.HookReminder, memory.HookAdmins}, names)
}

func TestTransitionHandlerUnknownBooking(t *testing.T) {
	f := newTransitionFixture(t)

	_, err := f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "missing",
		Name:      domainbooking.TransitionCancel,
		ActorID:   fixtureRenter,
		Role:      domainbooking.RoleRenter,
	})
	assert.ErrorIs(t, err, domainbooking.ErrNotFound)
}

func TestTransitionHandlerUnknownRole(t *testing.T) {
	f := newTransitionFixture(t)
	f.seed(t, "bk-1", domainbooking.StatusConfirmed)

	_, err := f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "bk-1",
		Name:      domainbooking.TransitionCancel,
		ActorID:   fixtureRenter,
		Role:      "SUPERUSER",
	})
	assert.ErrorIs(t, err, domainbooking.ErrForbidden)
}

func TestTransitionHandlerRejectionLeavesBookingUntouched(t *testing.T) {
	f := newTransitionFixture(t)
	f.seed(t, "bk-1", domainbooking.StatusPendingApproval)

	before, err := f.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)

	_, err = f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "bk-1",
		Name:      domainbooking.TransitionOwnerApprove,
		ActorID:   fixtureRenter,
		Role:      domainbooking.RoleRenter,
	})
	assert.ErrorIs(t, err, domainbooking.ErrForbidden)

	after, err := f.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, len(before.History), len(after.History))
	assert.Empty(t, f.outbox.Records())
	assert.Empty(t, f.hooks.Calls())
}

func TestTransitionHandlerConcurrentApprovesSingleWinner(t *testing.T) {
	f := newTransitionFixture(t)
	f.seed(t, "bk-race", domainbooking.StatusPendingApproval)

	const attempts = 2
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.handler.Handle(context.Background(), TransitionCommand{
				BookingID: "bk-race",
				Name:      domainbooking.TransitionOwnerApprove,
				ActorID:   fixtureOwner,
				Role:      domainbooking.RoleOwner,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// The loser either lost the conditional write or observed the
		// post-transition state and found no matching edge.
		assert.True(t,
			errors.Is(err, domainbooking.ErrConflict) || errors.Is(err, domainbooking.ErrInvalidTransition),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := f.bookings.ByID(context.Background(), "bk-race")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPendingPayment, stored.Status)
}
