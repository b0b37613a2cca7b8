package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renthub/internal/domain/pricing"
	"renthub/internal/domain/shared/daterange"
	"renthub/internal/domain/shared/money"
)

func refundFixture(t *testing.T, startsIn time.Duration, deposit int64) *Booking {
	t.Helper()
	start := time.Now().UTC().Add(startsIn)
	dr, err := daterange.New(start, start.Add(5*24*time.Hour))
	require.NoError(t, err)
	return &Booking{
		ID:       "bk-refund",
		RenterID: "renter",
		OwnerID:  "owner",
		Range:    dr,
		Status:   StatusConfirmed,
		Price: pricing.Breakdown{
			Currency:    "USD",
			Subtotal:    money.Money{Amount: 10000, Currency: "USD"},
			PlatformFee: money.Money{Amount: 1500, Currency: "USD"},
			ServiceFee:  money.Money{Amount: 1000, Currency: "USD"},
			Deposit:     money.Money{Amount: deposit, Currency: "USD"},
		},
	}
}

func TestComputeRefundFreeCancellationWindow(t *testing.T) {
	b := refundFixture(t, 10*24*time.Hour, 0)

	r, err := ComputeRefund(b, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, int64(11000), r.RefundAmount.Amount)
	assert.Equal(t, int64(0), r.Penalty.Amount)
	assert.Equal(t, int64(1000), r.ServiceFeeRefunded.Amount)
	assert.Equal(t, int64(1500), r.PlatformFeeKept.Amount)
	assert.Equal(t, "free_cancellation_window", r.Reason)
}

func TestComputeRefundPartialWindow(t *testing.T) {
	b := refundFixture(t, 36*time.Hour, 0)

	r, err := ComputeRefund(b, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, int64(5500), r.RefundAmount.Amount)
	assert.Equal(t, int64(5000), r.Penalty.Amount)
	assert.Equal(t, "partial_refund_window", r.Reason)
}

func TestComputeRefundLateCancellation(t *testing.T) {
	b := refundFixture(t, 24*time.Hour-time.Minute, 0)

	r, err := ComputeRefund(b, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, int64(0), r.RefundAmount.Amount)
	assert.Equal(t, int64(10000), r.Penalty.Amount)
	assert.Equal(t, "late_cancellation", r.Reason)
}

func TestComputeRefundAfterStart(t *testing.T) {
	b := refundFixture(t, -2*time.Hour, 0)

	r, err := ComputeRefund(b, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.RefundAmount.Amount)
	assert.Equal(t, int64(10000), r.Penalty.Amount)
}

func TestComputeRefundDepositAlwaysReturned(t *testing.T) {
	b := refundFixture(t, time.Hour, 2500)

	r, err := ComputeRefund(b, time.Now().UTC())
	require.NoError(t, err)

	// Zero percent refund on subtotal and fees, the deposit still comes back.
	assert.Equal(t, int64(2500), r.RefundAmount.Amount)
	assert.Equal(t, int64(2500), r.DepositRefunded.Amount)
	assert.Equal(t, int64(10000), r.Penalty.Amount)
}

func TestComputeRefundListingPolicyWins(t *testing.T) {
	b := refundFixture(t, time.Hour, 1000)
	b.Policy = PolicySnapshot{PolicyID: "flex-75", RefundPercent: 75}

	r, err := ComputeRefund(b, time.Now().UTC())
	require.NoError(t, err)

	// 75% of subtotal and service fee plus the full deposit, regardless of how
	// close to the start the cancellation lands.
	assert.Equal(t, int64(7500+750+1000), r.RefundAmount.Amount)
	assert.Equal(t, int64(2500), r.Penalty.Amount)
	assert.Equal(t, "listing_policy:flex-75", r.Reason)
}

func TestComputeRefundReconciles(t *testing.T) {
	for _, startsIn := range []time.Duration{10 * 24 * time.Hour, 36 * time.Hour, time.Hour} {
		b := refundFixture(t, startsIn, 3000)
		r, err := ComputeRefund(b, time.Now().UTC())
		require.NoError(t, err)

		refunded := r.RefundAmount.Amount - r.ServiceFeeRefunded.Amount - r.DepositRefunded.Amount
		assert.Equal(t, b.Price.Subtotal.Amount, refunded+r.Penalty.Amount, "starts in %s", startsIn)
	}
}
