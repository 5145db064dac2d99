package service

import (
	"testing"
	"time"

	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOrderDate(t *testing.T) {
	cases := []struct {
		name      string
		from      time.Time
		frequency string
		want      time.Time
	}{
		{"daily", date(2026, 3, 15), entity.FrequencyDaily, date(2026, 3, 16)},
		{"weekly", date(2026, 3, 15), entity.FrequencyWeekly, date(2026, 3, 22)},
		{"biweekly", date(2026, 3, 15), entity.FrequencyBiweekly, date(2026, 3, 29)},
		{"monthly", date(2026, 3, 15), entity.FrequencyMonthly, date(2026, 4, 15)},
		{"quarterly", date(2026, 1, 10), entity.FrequencyQuarterly, date(2026, 4, 10)},
		{"semiannual", date(2026, 1, 10), entity.FrequencySemiannual, date(2026, 7, 10)},
		{"annual", date(2026, 2, 28), entity.FrequencyAnnual, date(2027, 2, 28)},

		// Month-end clamping: Jan 31 + 1 month must land on the last day
		// of February, not overflow into March.
		{"monthly clamps to feb 28", date(2026, 1, 31), entity.FrequencyMonthly, date(2026, 2, 28)},
		{"monthly clamps to feb 29 in leap year", date(2028, 1, 31), entity.FrequencyMonthly, date(2028, 2, 29)},
		{"monthly clamps 31st to 30-day month", date(2026, 3, 31), entity.FrequencyMonthly, date(2026, 4, 30)},
		{"quarterly clamps nov 30", date(2026, 8, 31), entity.FrequencyQuarterly, date(2026, 11, 30)},

		// Unknown frequency falls back to monthly
		{"unknown falls back to monthly", date(2026, 3, 15), "fortnightly", date(2026, 4, 15)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextOrderDate(tc.from, tc.frequency)
			if !got.Equal(tc.want) {
				t.Errorf("NextOrderDate(%s, %s) = %s, want %s",
					tc.from.Format("2006-01-02"), tc.frequency,
					got.Format("2006-01-02"), tc.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNextOrderDateAlwaysAdvances(t *testing.T) {
	frequencies := []string{
		entity.FrequencyDaily, entity.FrequencyWeekly, entity.FrequencyBiweekly,
		entity.FrequencyMonthly, entity.FrequencyQuarterly,
		entity.FrequencySemiannual, entity.FrequencyAnnual,
	}
	from := date(2026, 1, 31)
	for _, f := range frequencies {
		if next := NextOrderDate(from, f); !next.After(from) {
			t.Errorf("NextOrderDate(%s, %s) = %s does not advance", from, f, next)
		}
	}
}
