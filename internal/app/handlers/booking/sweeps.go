package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"renthub/internal/app/commands"
	handlersupport "renthub/internal/app/handlers/support"
	"renthub/internal/app/uow"
	domainbooking "renthub/internal/domain/booking"
)

const (
	expirePendingPaymentsKey = "booking.sweep.expire_payments"
	autoApproveReturnsKey    = "booking.sweep.approve_returns"

	systemActorID = "system"
)

var ErrSweepNotConfigured = errors.New("booking: sweep handler misconfigured")

// ExpirePendingPaymentsCommand cancels bookings stuck in PENDING_PAYMENT
// longer than the configured timeout.
type ExpirePendingPaymentsCommand struct {
	Timeout time.Duration
}

func (c ExpirePendingPaymentsCommand) Key() string { return expirePendingPaymentsKey }

// AutoApproveReturnsCommand completes bookings whose return inspection window
// lapsed without the owner acting.
type AutoApproveReturnsCommand struct {
	Window time.Duration
}

func (c AutoApproveReturnsCommand) Key() string { return autoApproveReturnsKey }

type SweepResult struct {
	Candidates   int      `json:"candidates"`
	Transitioned int      `json:"transitioned"`
	Failed       []string `json:"failed,omitempty"`
}

// SweepHandler applies the EXPIRE transition with the SYSTEM role to every
// matching candidate. Candidates are processed independently: one booking's
// failure is recorded and the sweep moves on. Re-running is a no-op for
// already-transitioned bookings because the candidate query excludes them.
type SweepHandler struct {
	UoWFactory  uow.UoWFactory
	Transitions *TransitionHandler
	Logger      *slog.Logger
	Now         func() time.Time
}

func (h *SweepHandler) HandleExpirePayments(ctx context.Context, cmd ExpirePendingPaymentsCommand) (SweepResult, error) {
	return h.sweep(ctx, domainbooking.StatusPendingPayment, cmd.Timeout)
}

func (h *SweepHandler) HandleApproveReturns(ctx context.Context, cmd AutoApproveReturnsCommand) (SweepResult, error) {
	return h.sweep(ctx, domainbooking.StatusAwaitingReturn, cmd.Window)
}

func (h *SweepHandler) sweep(ctx context.Context, status domainbooking.Status, age time.Duration) (SweepResult, error) {
	if h.Transitions == nil {
		return SweepResult{}, ErrSweepNotConfigured
	}
	cutoff := h.now().Add(-age)

	candidates, err := h.findCandidates(ctx, status, cutoff)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Candidates: len(candidates)}
	for _, id := range candidates {
		_, err := h.Transitions.Handle(ctx, TransitionCommand{
			BookingID: id,
			Name:      domainbooking.TransitionExpire,
			ActorID:   systemActorID,
			Role:      domainbooking.RoleSystem,
		})
		if err != nil {
			result.Failed = append(result.Failed, id)
			if h.Logger != nil {
				h.Logger.Warn("sweep transition failed", "booking_id", id, "status", status, "error", err)
			}
			continue
		}
		result.Transitioned++
	}
	if h.Logger != nil {
		h.Logger.Info("sweep finished", "status", status,
			"candidates", result.Candidates, "transitioned", result.Transitioned, "failed", len(result.Failed))
	}
	return result, nil
}

// findCandidates snapshots matching ids in its own read-only transaction so
// each subsequent transition runs in an independent one.
func (h *SweepHandler) findCandidates(ctx context.Context, status domainbooking.Status, cutoff time.Time) ([]string, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	stale, err := unit.Bookings().FindByStatusUpdatedBefore(execCtx, status, cutoff)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stale))
	for _, b := range stale {
		ids = append(ids, string(b.ID))
	}
	return ids, nil
}

func (h *SweepHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

type expirePaymentsAdapter struct{ *SweepHandler }

func (a expirePaymentsAdapter) Handle(ctx context.Context, cmd ExpirePendingPaymentsCommand) (SweepResult, error) {
	return a.HandleExpirePayments(ctx, cmd)
}

type approveReturnsAdapter struct{ *SweepHandler }

func (a approveReturnsAdapter) Handle(ctx context.Context, cmd AutoApproveReturnsCommand) (SweepResult, error) {
	return a.HandleApproveReturns(ctx, cmd)
}

// ExpirePaymentsHandler exposes the sweep as a command-bus handler.
func ExpirePaymentsHandler(h *SweepHandler) commands.Handler[ExpirePendingPaymentsCommand, SweepResult] {
	return expirePaymentsAdapter{h}
}

// ApproveReturnsHandler exposes the sweep as a command-bus handler.
func ApproveReturnsHandler(h *SweepHandler) commands.Handler[AutoApproveReturnsCommand, SweepResult] {
	return approveReturnsAdapter{h}
}
