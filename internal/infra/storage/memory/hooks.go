package memory

import (
	"context"
	"sync"

	"renthub/internal/app/policies"
	domainbooking "renthub/internal/domain/booking"
)

// HookCall records a single hook invocation.
type HookCall struct {
	Name      string
	BookingID string
	Refund    *domainbooking.RefundResult
}

// HookRecorder implements every lifecycle hook by recording the call. An
// entry in Fail makes the named hook return that error, which lets tests
// exercise hook failure isolation. It also serves as the dev wiring for the
// memory storage mode, where downstream services do not exist.
type HookRecorder struct {
	mu    sync.Mutex
	calls []HookCall

	Fail map[string]error
}

const (
	HookReminder   = "reminder"
	HookCondition  = "condition_report"
	HookSettlement = "settlement"
	HookRefund     = "refund"
	HookAdmins     = "notify_admins"
)

func NewHookRecorder() *HookRecorder {
	return &HookRecorder{}
}

// Hooks returns a LifecycleHooks bundle with every capability backed by the
// recorder.
func (h *HookRecorder) Hooks() policies.LifecycleHooks {
	return policies.LifecycleHooks{
		Reminders:   h,
		Condition:   h,
		Settlements: h,
		Refunds:     h,
		Admins:      h,
	}
}

func (h *HookRecorder) SchedulePreRentalReminder(ctx context.Context, hc policies.HookContext) error {
	return h.record(HookReminder, hc, nil)
}

func (h *HookRecorder) OpenConditionReport(ctx context.Context, hc policies.HookContext) error {
	return h.record(HookCondition, hc, nil)
}

func (h *HookRecorder) TriggerSettlement(ctx context.Context, hc policies.HookContext) error {
	return h.record(HookSettlement, hc, nil)
}

func (h *HookRecorder) TriggerRefund(ctx context.Context, hc policies.HookContext, refund domainbooking.RefundResult) error {
	return h.record(HookRefund, hc, &refund)
}

func (h *HookRecorder) NotifyAdmins(ctx context.Context, hc policies.HookContext) error {
	return h.record(HookAdmins, hc, nil)
}

// Calls returns a snapshot of the recorded hook invocations.
func (h *HookRecorder) Calls() []HookCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HookCall, len(h.calls))
	copy(out, h.calls)
	return out
}

func (h *HookRecorder) record(name string, hc policies.HookContext, refund *domainbooking.RefundResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.Fail[name]; ok && err != nil {
		return err
	}
	h.calls = append(h.calls, HookCall{Name: name, BookingID: hc.BookingID, Refund: refund})
	return nil
}
