package policies

import (
	"context"

	domainbooking "renthub/internal/domain/booking"
)

// HookContext is the plain-data snapshot handed to side-effect hooks after a
// transition committed. Hooks are best-effort: failures are logged by the
// caller and never fail the transition.
type HookContext struct {
	BookingID string
	ListingID string
	RenterID  string
	OwnerID   string
	Status    domainbooking.Status
	Metadata  map[string]string
}

// ReminderScheduler schedules the pre-rental reminder once a booking is
// confirmed.
type ReminderScheduler interface {
	SchedulePreRentalReminder(ctx context.Context, hc HookContext) error
}

// ConditionReporter opens the initial condition report when a rental starts.
type ConditionReporter interface {
	OpenConditionReport(ctx context.Context, hc HookContext) error
}

// SettlementTrigger kicks off owner settlement for completed bookings.
type SettlementTrigger interface {
	TriggerSettlement(ctx context.Context, hc HookContext) error
}

// RefundTrigger receives the computed refund for a cancelled booking and
// initiates the money movement downstream.
type RefundTrigger interface {
	TriggerRefund(ctx context.Context, hc HookContext, refund domainbooking.RefundResult) error
}

// AdminNotifier alerts back-office staff about disputes.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, hc HookContext) error
}

// LifecycleHooks bundles the capability interfaces the state machine invokes
// per target status. Any nil field disables that hook.
type LifecycleHooks struct {
	Reminders   ReminderScheduler
	Condition   ConditionReporter
	Settlements SettlementTrigger
	Refunds     RefundTrigger
	Admins      AdminNotifier
}
