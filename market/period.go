package market

import (
	"fmt"
	"strings"
	"time"
)

// Period identifies a candle timeframe. Minute periods use the bare minute
// count ("1", "5", "15", "30", "60") the way the candle store keys them.
type Period string

const (
	M1    Period = "1"
	M5    Period = "5"
	M15   Period = "15"
	M30   Period = "30"
	M60   Period = "60"
	Daily Period = "D"
)

var minutePeriods = []Period{M1, M5, M15, M30, M60}

// MinutePeriods returns the supported intraday periods.
func MinutePeriods() []Period {
	out := make([]Period, len(minutePeriods))
	copy(out, minutePeriods)
	return out
}

// ParsePeriod accepts "15", "M15", "15m" and "D"/"D1"/"daily".
func ParsePeriod(s string) (Period, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "D", "D1", "DAILY":
		return Daily, nil
	}
	v = strings.TrimPrefix(v, "M")
	v = strings.TrimSuffix(v, "M")
	p := Period(v)
	if !p.IsMinute() {
		return "", fmt.Errorf("unsupported period %q (supported: 1, 5, 15, 30, 60, D)", s)
	}
	return p, nil
}

// IsMinute reports whether p is one of the intraday periods.
func (p Period) IsMinute() bool {
	for _, m := range minutePeriods {
		if p == m {
			return true
		}
	}
	return false
}

// Duration returns the length of one candle. Daily returns 24h.
func (p Period) Duration() time.Duration {
	switch p {
	case M1:
		return time.Minute
	case M5:
		return 5 * time.Minute
	case M15:
		return 15 * time.Minute
	case M30:
		return 30 * time.Minute
	case M60:
		return time.Hour
	case Daily:
		return 24 * time.Hour
	}
	return 0
}

func (p Period) String() string {
	if p == Daily {
		return "D1"
	}
	return "M" + string(p)
}
