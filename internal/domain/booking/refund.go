package booking

import (
	"time"

	"renthub/internal/domain/shared/money"
)

// Default time-banded refund policy, applied when the listing carries no
// cancellation policy of its own.
const (
	fullRefundWindow    = 48 * time.Hour
	partialRefundWindow = 24 * time.Hour
	partialRefundPct    = 50
)

// PolicySnapshot is the cancellation policy captured from the listing at
// booking creation. When PolicyID is set the snapshot's refund percentage is
// authoritative; the rich policy evaluation lives in an external
// collaborator.
type PolicySnapshot struct {
	PolicyID      string
	RefundPercent int
}

func (p PolicySnapshot) Configured() bool {
	return p.PolicyID != ""
}

// RefundResult reconciles as:
// RefundAmount = subtotal*pct + serviceFee*pct + DepositRefunded,
// Penalty = subtotal*(1-pct).
type RefundResult struct {
	RefundAmount       money.Money
	PlatformFeeKept    money.Money
	ServiceFeeRefunded money.Money
	DepositRefunded    money.Money
	Penalty            money.Money
	Reason             string
}

// ComputeRefund determines money movement for cancelling the booking at the
// given instant. The deposit is always returned in full; damage claims
// against it are handled by the dispute collaborator and pass through here
// untouched.
func ComputeRefund(b *Booking, cancelAt time.Time) (RefundResult, error) {
	if cancelAt.IsZero() {
		cancelAt = time.Now()
	}
	cancelAt = cancelAt.UTC()

	pct, reason := refundPercent(b, cancelAt)

	subtotalRefund := b.Price.Subtotal.Percent(pct)
	serviceRefund := b.Price.ServiceFee.Percent(pct)
	deposit := b.Price.Deposit

	refund := subtotalRefund
	refund, err := refund.Add(serviceRefund)
	if err != nil {
		return RefundResult{}, err
	}
	refund, err = refund.Add(deposit)
	if err != nil {
		return RefundResult{}, err
	}
	penalty, err := b.Price.Subtotal.Sub(subtotalRefund)
	if err != nil {
		return RefundResult{}, err
	}

	return RefundResult{
		RefundAmount:       refund,
		PlatformFeeKept:    b.Price.PlatformFee,
		ServiceFeeRefunded: serviceRefund,
		DepositRefunded:    deposit,
		Penalty:            penalty,
		Reason:             reason,
	}, nil
}

func refundPercent(b *Booking, cancelAt time.Time) (int, string) {
	if b.Policy.Configured() {
		return money.ClampPercent(b.Policy.RefundPercent), "listing_policy:" + b.Policy.PolicyID
	}
	until := b.Range.Start.Sub(cancelAt)
	switch {
	case until >= fullRefundWindow:
		return 100, "free_cancellation_window"
	case until >= partialRefundWindow:
		return partialRefundPct, "partial_refund_window"
	default:
		return 0, "late_cancellation"
	}
}
