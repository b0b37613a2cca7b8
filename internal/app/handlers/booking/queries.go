package booking

import (
	"context"

	handlersupport "renthub/internal/app/handlers/support"
	"renthub/internal/app/queries"
	"renthub/internal/app/uow"
	domainbooking "renthub/internal/domain/booking"
)

const (
	stateHistoryKey     = "booking.history"
	availableActionsKey = "booking.actions"
)

type StateHistoryQuery struct {
	BookingID string
}

func (q StateHistoryQuery) Key() string { return stateHistoryKey }

type StateHistoryHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns the append-only history in ascending order, the order in
// which entries were recorded.
func (h *StateHistoryHandler) Handle(ctx context.Context, q StateHistoryQuery) ([]domainbooking.HistoryEntry, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return nil, err
	}
	out := make([]domainbooking.HistoryEntry, len(b.History))
	copy(out, b.History)
	return out, nil
}

type AvailableActionsQuery struct {
	BookingID string
	Role      domainbooking.Role
}

func (q AvailableActionsQuery) Key() string { return availableActionsKey }

type AvailableActionsResult struct {
	Status      domainbooking.Status           `json:"status"`
	Terminal    bool                           `json:"terminal"`
	Transitions []domainbooking.TransitionName `json:"transitions"`
}

type AvailableActionsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *AvailableActionsHandler) Handle(ctx context.Context, q AvailableActionsQuery) (AvailableActionsResult, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return AvailableActionsResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return AvailableActionsResult{}, err
	}
	return AvailableActionsResult{
		Status:      b.Status,
		Terminal:    domainbooking.IsTerminal(b.Status),
		Transitions: domainbooking.AvailableTransitions(b.Status, q.Role),
	}, nil
}

var _ queries.Handler[StateHistoryQuery, []domainbooking.HistoryEntry] = (*StateHistoryHandler)(nil)
var _ queries.Handler[AvailableActionsQuery, AvailableActionsResult] = (*AvailableActionsHandler)(nil)
