package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"renthub/internal/app/commands"
	"renthub/internal/app/outbox"
	"renthub/internal/app/policies"
	"renthub/internal/app/uow"
	domainbooking "renthub/internal/domain/booking"
)

const transitionKey = "booking.transition"

type TransitionCommand struct {
	BookingID string
	Name      domainbooking.TransitionName
	ActorID   string
	Role      domainbooking.Role
	Metadata  map[string]string
}

func (c TransitionCommand) Key() string { return transitionKey }

type TransitionResult struct {
	BookingID string               `json:"booking_id"`
	Status    domainbooking.Status `json:"status"`
}

// TransitionHandler drives the booking state machine. Load, guard checks,
// status mutation, history append and outbox recording happen inside one
// short-lived transaction; domain-event publishing rides the outbox worker
// and side-effect hooks run after commit, each isolated and best-effort.
type TransitionHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Hooks      policies.LifecycleHooks
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *TransitionHandler) Handle(ctx context.Context, cmd TransitionCommand) (*TransitionResult, error) {
	if !cmd.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domainbooking.ErrForbidden, cmd.Role)
	}

	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}

	now := h.now()
	if err := b.Apply(cmd.Name, cmd.ActorID, cmd.Role, cmd.Metadata, now); err != nil {
		return nil, err
	}

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	h.runHooks(ctx, b, cmd.Metadata, now)

	if h.Logger != nil {
		h.Logger.Info("booking transitioned",
			"booking_id", b.ID, "transition", cmd.Name, "status", b.Status,
			"actor_id", cmd.ActorID, "role", cmd.Role)
	}
	return &TransitionResult{BookingID: string(b.ID), Status: b.Status}, nil
}

// runHooks fires the per-status side effects. Hook failures are logged and
// swallowed; one failing hook never blocks the others or the transition.
func (h *TransitionHandler) runHooks(ctx context.Context, b *domainbooking.Booking, metadata map[string]string, now time.Time) {
	hc := policies.HookContext{
		BookingID: string(b.ID),
		ListingID: string(b.ListingID),
		RenterID:  b.RenterID,
		OwnerID:   b.OwnerID,
		Status:    b.Status,
		Metadata:  metadata,
	}

	switch b.Status {
	case domainbooking.StatusConfirmed:
		if h.Hooks.Reminders != nil {
			h.hookErr("reminder", h.Hooks.Reminders.SchedulePreRentalReminder(ctx, hc))
		}
	case domainbooking.StatusInProgress:
		if h.Hooks.Condition != nil {
			h.hookErr("condition_report", h.Hooks.Condition.OpenConditionReport(ctx, hc))
		}
	case domainbooking.StatusCompleted:
		if h.Hooks.Settlements != nil {
			h.hookErr("settlement", h.Hooks.Settlements.TriggerSettlement(ctx, hc))
		}
	case domainbooking.StatusCancelled:
		if h.Hooks.Refunds != nil {
			refund, err := domainbooking.ComputeRefund(b, now)
			if err != nil {
				h.hookErr("refund", err)
				return
			}
			h.hookErr("refund", h.Hooks.Refunds.TriggerRefund(ctx, hc, refund))
		}
	case domainbooking.StatusDisputed:
		if h.Hooks.Admins != nil {
			h.hookErr("admin_notify", h.Hooks.Admins.NotifyAdmins(ctx, hc))
		}
	}
}

func (h *TransitionHandler) hookErr(name string, err error) {
	if err == nil || h.Logger == nil {
		return
	}
	h.Logger.Warn("side-effect hook failed", "hook", name, "error", err)
}

func (h *TransitionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *TransitionHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[TransitionCommand, *TransitionResult] = (*TransitionHandler)(nil)
