package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRoundsUp(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		unit    Unit
		units   int64
	}{
		{"half hour charges one hour", 30 * time.Minute, UnitHour, 1},
		{"exactly one hour", time.Hour, UnitHour, 1},
		{"hour and a minute charges two", time.Hour + time.Minute, UnitHour, 2},
		{"just under a day stays hourly", 23*time.Hour + 59*time.Minute, UnitHour, 24},
		{"exactly one day", 24 * time.Hour, UnitDay, 1},
		{"a day plus a millisecond charges two days", 24*time.Hour + time.Millisecond, UnitDay, 2},
		{"six days stays daily", 6 * 24 * time.Hour, UnitDay, 6},
		{"exactly a week", 7 * 24 * time.Hour, UnitWeek, 1},
		{"ten days charges two weeks", 10 * 24 * time.Hour, UnitWeek, 2},
		{"exactly thirty days", 30 * 24 * time.Hour, UnitMonth, 1},
		{"forty days charges two months", 40 * 24 * time.Hour, UnitMonth, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, units := Classify(tt.elapsed)
			assert.Equal(t, tt.unit, unit)
			assert.Equal(t, tt.units, units)
		})
	}
}

func TestClassifyNonPositiveDuration(t *testing.T) {
	unit, units := Classify(0)
	assert.Equal(t, UnitHour, unit)
	assert.Equal(t, int64(1), units)

	unit, units = Classify(-time.Hour)
	assert.Equal(t, UnitHour, unit)
	assert.Equal(t, int64(1), units)
}

func TestDaysCeil(t *testing.T) {
	assert.Equal(t, int64(1), DaysCeil(0))
	assert.Equal(t, int64(1), DaysCeil(time.Hour))
	assert.Equal(t, int64(1), DaysCeil(24*time.Hour))
	assert.Equal(t, int64(2), DaysCeil(24*time.Hour+time.Second))
	assert.Equal(t, int64(30), DaysCeil(30*24*time.Hour))
}
