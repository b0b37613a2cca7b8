package pricing

import (
	"errors"
	"time"

	"renthub/internal/domain/shared/money"
)

var (
	ErrCurrencyUnset = errors.New("pricing: currency must be defined")
	ErrUnknownMode   = errors.New("pricing: unknown pricing mode")
	ErrNoRate        = errors.New("pricing: no rate configured for duration")
)

// Mode declares how a listing owner chose to price the listing.
type Mode string

const (
	ModePerHour  Mode = "PER_HOUR"
	ModePerDay   Mode = "PER_DAY"
	ModePerWeek  Mode = "PER_WEEK"
	ModePerMonth Mode = "PER_MONTH"
	ModeCustom   Mode = "CUSTOM"
)

func (m Mode) Valid() bool {
	switch m {
	case ModePerHour, ModePerDay, ModePerWeek, ModePerMonth, ModeCustom:
		return true
	}
	return false
}

// BillingUnit reports the unit a mode bills in. CUSTOM listings carry no
// fixed unit and follow the classified duration.
func (m Mode) BillingUnit() (Unit, bool) {
	switch m {
	case ModePerHour:
		return UnitHour, true
	case ModePerDay:
		return UnitDay, true
	case ModePerWeek:
		return UnitWeek, true
	case ModePerMonth:
		return UnitMonth, true
	}
	return "", false
}

// DepositKind selects how the security deposit is derived.
type DepositKind string

const (
	DepositNone       DepositKind = "NONE"
	DepositFixed      DepositKind = "FIXED"
	DepositPercentage DepositKind = "PERCENTAGE"
)

type DepositConfig struct {
	Kind    DepositKind
	Amount  money.Money
	Percent int
}

type InsuranceConfig struct {
	Offered bool
	Fee     money.Money
	Percent int
}

// Config is the read-only pricing configuration snapshot of a listing.
// A zero per-unit rate means "unset" and falls back to BasePrice.
type Config struct {
	Currency               string
	Mode                   Mode
	BasePrice              money.Money
	HourlyRate             money.Money
	DailyRate              money.Money
	WeeklyRate             money.Money
	MonthlyRate            money.Money
	WeeklyDiscountPercent  int
	MonthlyDiscountPercent int
	Deposit                DepositConfig
	Insurance              InsuranceConfig
}

func (c Config) Validate() error {
	if len(c.Currency) != 3 {
		return ErrCurrencyUnset
	}
	if !c.Mode.Valid() {
		return ErrUnknownMode
	}
	return nil
}

// RateFor returns the configured price for a unit; a zero amount means the
// rate is unset.
func (c Config) RateFor(unit Unit) money.Money {
	switch unit {
	case UnitHour:
		return c.HourlyRate
	case UnitDay:
		return c.DailyRate
	case UnitWeek:
		return c.WeeklyRate
	case UnitMonth:
		return c.MonthlyRate
	}
	return money.Money{}
}

// ResolveRate picks the billing unit, unit count and per-unit price for an
// elapsed duration. The classified unit's rate applies when configured. When
// it is unset and the listing's mode bills in a finer unit, the range is
// re-priced in the mode's unit, so a PER_DAY listing booked for a week pays
// days times the daily rate rather than hitting an unconfigured weekly rate.
// The generic base price is the last fallback, in whichever unit was settled
// on.
func (c Config) ResolveRate(elapsed time.Duration) (Unit, int64, money.Money, error) {
	unit, units := Classify(elapsed)
	rate := c.RateFor(unit)
	if rate.Amount == 0 {
		if modeUnit, ok := c.Mode.BillingUnit(); ok && modeUnit.finerThan(unit) {
			unit = modeUnit
			units = ceilUnits(elapsed, modeUnit.span())
			rate = c.RateFor(unit)
		}
	}
	if rate.Amount == 0 {
		rate = c.BasePrice
	}
	if rate.Amount <= 0 {
		return "", 0, money.Money{}, ErrNoRate
	}
	if rate.Currency == "" {
		rate.Currency = c.Currency
	}
	return unit, units, rate, nil
}

// DiscountType tags lines in the discount ledger.
type DiscountType string

const (
	DiscountWeekly  DiscountType = "WEEKLY"
	DiscountMonthly DiscountType = "MONTHLY"
	DiscountPromo   DiscountType = "PROMO"
)

// DiscountLine is a display/audit entry; the subtotal already accounts for it.
type DiscountLine struct {
	Type    DiscountType
	Percent int
	Amount  money.Money
	Reason  string
}

// Breakdown is the priced quote for a date range, snapshotted onto the
// booking at creation time and never recomputed afterwards.
type Breakdown struct {
	Currency      string
	Unit          Unit
	Units         int64
	UnitPrice     money.Money
	BasePrice     money.Money
	Discounts     []DiscountLine
	Subtotal      money.Money
	PlatformFee   money.Money
	ServiceFee    money.Money
	Deposit       money.Money
	InsuranceFee  money.Money
	Total         money.Money
	OwnerEarnings money.Money
}

// Validate checks the breakdown invariants:
// total = subtotal + service fee + deposit + insurance, and
// owner earnings = subtotal - platform fee.
func (b Breakdown) Validate() error {
	if b.Currency == "" {
		return ErrCurrencyUnset
	}
	want := b.Subtotal.Amount + b.ServiceFee.Amount + b.Deposit.Amount + b.InsuranceFee.Amount
	if b.Total.Amount != want {
		return errors.New("pricing: total does not reconcile with components")
	}
	if b.OwnerEarnings.Amount != b.Subtotal.Amount-b.PlatformFee.Amount {
		return errors.New("pricing: owner earnings do not reconcile with platform fee")
	}
	return nil
}

func (b Breakdown) Copy() Breakdown {
	clone := b
	clone.Discounts = append([]DiscountLine(nil), b.Discounts...)
	return clone
}
