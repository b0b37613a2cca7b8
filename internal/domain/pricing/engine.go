package pricing

import (
	"context"
	"fmt"

	"renthub/internal/domain/shared/daterange"
	"renthub/internal/domain/shared/money"
)

// Platform and service fee rates are fixed platform-wide.
const (
	PlatformFeePercent = 15
	ServiceFeePercent  = 5
)

// PromoSource resolves promo codes to a percentage reduction. Unknown codes
// resolve to ok=false and produce no discount line.
type PromoSource interface {
	Percent(ctx context.Context, code string) (percent int, ok bool, err error)
}

type QuoteInput struct {
	Config        Config
	Range         daterange.DateRange
	PromoCode     string
	WithInsurance bool
}

// Calculator is the pricing port consumed by the booking application layer.
type Calculator interface {
	Quote(ctx context.Context, input QuoteInput) (Breakdown, error)
}

// Engine computes deterministic price breakdowns from listing configuration.
// It has no side effects beyond the optional promo lookup.
type Engine struct {
	Promos PromoSource
}

func (e Engine) Quote(ctx context.Context, input QuoteInput) (Breakdown, error) {
	cfg := input.Config
	if err := cfg.Validate(); err != nil {
		return Breakdown{}, err
	}

	elapsed := input.Range.Elapsed()
	unit, units, rate, err := cfg.ResolveRate(elapsed)
	if err != nil {
		return Breakdown{}, err
	}

	base := rate.Multiply(units)
	subtotal := base
	var discounts []DiscountLine

	// A single volume discount at most: monthly supersedes weekly, never both.
	days := DaysCeil(elapsed)
	switch {
	case days >= 30 && cfg.MonthlyDiscountPercent > 0:
		amount := subtotal.Percent(cfg.MonthlyDiscountPercent)
		discounts = append(discounts, DiscountLine{
			Type:    DiscountMonthly,
			Percent: money.ClampPercent(cfg.MonthlyDiscountPercent),
			Amount:  amount,
			Reason:  "monthly rental discount",
		})
		subtotal, _ = subtotal.Sub(amount)
	case days >= 7 && cfg.WeeklyDiscountPercent > 0:
		amount := subtotal.Percent(cfg.WeeklyDiscountPercent)
		discounts = append(discounts, DiscountLine{
			Type:    DiscountWeekly,
			Percent: money.ClampPercent(cfg.WeeklyDiscountPercent),
			Amount:  amount,
			Reason:  "weekly rental discount",
		})
		subtotal, _ = subtotal.Sub(amount)
	}

	// Promo applies multiplicatively on the post-volume-discount subtotal so
	// combined reductions can never exceed 100%.
	if input.PromoCode != "" && e.Promos != nil {
		percent, ok, err := e.Promos.Percent(ctx, input.PromoCode)
		if err != nil {
			return Breakdown{}, fmt.Errorf("pricing: promo lookup: %w", err)
		}
		if ok && percent > 0 {
			amount := subtotal.Percent(percent)
			discounts = append(discounts, DiscountLine{
				Type:    DiscountPromo,
				Percent: money.ClampPercent(percent),
				Amount:  amount,
				Reason:  "promo code " + input.PromoCode,
			})
			subtotal, _ = subtotal.Sub(amount)
		}
	}

	platformFee := subtotal.Percent(PlatformFeePercent)
	serviceFee := subtotal.Percent(ServiceFeePercent)
	deposit := computeDeposit(cfg.Deposit, subtotal)
	insurance := money.Zero(cfg.Currency)
	if input.WithInsurance && cfg.Insurance.Offered {
		insurance = insuranceFee(cfg.Insurance, subtotal, cfg.Currency)
	}

	total := subtotal
	total, _ = total.Add(serviceFee)
	total, _ = total.Add(deposit)
	total, _ = total.Add(insurance)
	earnings, _ := subtotal.Sub(platformFee)

	b := Breakdown{
		Currency:      cfg.Currency,
		Unit:          unit,
		Units:         units,
		UnitPrice:     rate,
		BasePrice:     base,
		Discounts:     discounts,
		Subtotal:      subtotal,
		PlatformFee:   platformFee,
		ServiceFee:    serviceFee,
		Deposit:       deposit,
		InsuranceFee:  insurance,
		Total:         total,
		OwnerEarnings: earnings,
	}
	if err := b.Validate(); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}

func computeDeposit(cfg DepositConfig, subtotal money.Money) money.Money {
	switch cfg.Kind {
	case DepositFixed:
		d := cfg.Amount
		if d.Currency == "" {
			d.Currency = subtotal.Currency
		}
		return d
	case DepositPercentage:
		return subtotal.Percent(cfg.Percent)
	default:
		return money.Zero(subtotal.Currency)
	}
}

func insuranceFee(cfg InsuranceConfig, subtotal money.Money, currency string) money.Money {
	if cfg.Fee.Amount > 0 {
		fee := cfg.Fee
		if fee.Currency == "" {
			fee.Currency = currency
		}
		return fee
	}
	return subtotal.Percent(cfg.Percent)
}

var _ Calculator = Engine{}
