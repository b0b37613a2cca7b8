package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "renthub/internal/domain/booking"
)

func TestStateHistoryQueryReturnsAscendingOrder(t *testing.T) {
	f := newTransitionFixture(t)
	f.seed(t, "bk-1", domainbooking.StatusPendingApproval)

	_, err := f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "bk-1",
		Name:      domainbooking.TransitionOwnerApprove,
		ActorID:   fixtureOwner,
		Role:      domainbooking.RoleOwner,
	})
	require.NoError(t, err)
	_, err = f.handler.Handle(context.Background(), TransitionCommand{
		BookingID: "bk-1",
		Name:      domainbooking.TransitionCompletePayment,
		ActorID:   fixtureRenter,
		Role:      domainbooking.RoleRenter,
	})
	require.NoError(t, err)

	q := &StateHistoryHandler{UoWFactory: f.handler.UoWFactory}
	history, err := q.Handle(context.Background(), StateHistoryQuery{BookingID: "bk-1"})
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, domainbooking.StatusPendingPayment, history[0].Status)
	assert.Equal(t, domainbooking.StatusConfirmed, history[1].Status)
	assert.False(t, history[0].At.After(history[1].At))
}

func TestStateHistoryQueryUnknownBooking(t *testing.T) {
	f := newTransitionFixture(t)
	q := &StateHistoryHandler{UoWFactory: f.handler.UoWFactory}

	_, err := q.Handle(context.Background(), StateHistoryQuery{BookingID: "missing"})
	assert.ErrorIs(t, err, domainbooking.ErrNotFound)
}

func TestAvailableActionsQuery(t *testing.T) {
	f := newTransitionFixture(t)
	f.seed(t, "bk-1", domainbooking.StatusPendingPayment)

	q := &AvailableActionsHandler{UoWFactory: f.handler.UoWFactory}

	res, err := q.Handle(context.Background(), AvailableActionsQuery{BookingID: "bk-1", Role: domainbooking.RoleSystem})
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPendingPayment, res.Status)
	assert.False(t, res.Terminal)
	assert.Equal(t, []domainbooking.TransitionName{
		domainbooking.TransitionCompletePayment,
		domainbooking.TransitionExpire,
	}, res.Transitions)

	f.seed(t, "bk-done", domainbooking.StatusSettled)
	res, err = q.Handle(context.Background(), AvailableActionsQuery{BookingID: "bk-done", Role: domainbooking.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	assert.Empty(t, res.Transitions)
}
