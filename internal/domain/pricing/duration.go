package pricing

import "time"

// Unit is the billing unit a duration was classified into.
type Unit string

const (
	UnitHour  Unit = "HOUR"
	UnitDay   Unit = "DAY"
	UnitWeek  Unit = "WEEK"
	UnitMonth Unit = "MONTH"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
)

// span is the wall-clock length of one billing unit.
func (u Unit) span() time.Duration {
	switch u {
	case UnitHour:
		return time.Hour
	case UnitDay:
		return day
	case UnitWeek:
		return week
	default:
		return month
	}
}

// finerThan reports whether u bills in smaller increments than other.
func (u Unit) finerThan(other Unit) bool {
	return u.span() < other.span()
}

// Classify buckets an elapsed duration into the finest meaningful unit and
// returns the unit count, rounded up. Any non-positive duration still counts
// as a single hour; rejecting such ranges is the caller's concern.
func Classify(elapsed time.Duration) (Unit, int64) {
	if elapsed <= 0 {
		return UnitHour, 1
	}
	switch {
	case elapsed < day:
		return UnitHour, ceilUnits(elapsed, time.Hour)
	case elapsed < week:
		return UnitDay, ceilUnits(elapsed, day)
	case elapsed < month:
		return UnitWeek, ceilUnits(elapsed, week)
	default:
		return UnitMonth, ceilUnits(elapsed, month)
	}
}

// DaysCeil reports the elapsed time in whole days, rounded up, with a
// minimum of one. Volume discount thresholds are expressed in days.
func DaysCeil(elapsed time.Duration) int64 {
	if elapsed <= 0 {
		return 1
	}
	return ceilUnits(elapsed, day)
}

func ceilUnits(elapsed, unit time.Duration) int64 {
	n := int64(elapsed / unit)
	if elapsed%unit != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
