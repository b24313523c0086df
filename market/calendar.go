package market

import (
	"fmt"
	"strings"
	"time"
)

// Location is the exchange wall clock (China Standard Time, no DST). All
// candle and decision timestamps are expressed in it.
var Location = time.FixedZone("CST", 8*60*60)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// maxLookback bounds PreviousTradingDay so a misconfigured holiday list
// cannot loop forever.
const maxLookback = 30

// Calendar decides which dates are trading days: Monday to Friday, minus
// exchange holidays. Weekend make-up workdays are not trading days.
type Calendar struct {
	holidays map[string]struct{}
}

// NewCalendar builds a calendar from YYYY-MM-DD holiday strings.
func NewCalendar(holidays []string) (*Calendar, error) {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, err := time.ParseInLocation(DateLayout, h, Location); err != nil {
			return nil, fmt.Errorf("bad holiday %q: %w", h, err)
		}
		c.holidays[h] = struct{}{}
	}
	return c, nil
}

// IsTradingDay reports whether the date part of t is a trading day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(Location)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if c == nil {
		return true
	}
	_, closed := c.holidays[t.Format(DateLayout)]
	return !closed
}

// TradingDays lists every trading day in [from, to] (dates, inclusive) at
// midnight market time.
func (c *Calendar) TradingDays(from, to time.Time) []time.Time {
	var out []time.Time
	day := StartOfDay(from)
	end := StartOfDay(to)
	for !day.After(end) {
		if c.IsTradingDay(day) {
			out = append(out, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// PreviousTradingDay returns the latest trading day on or before t.
func (c *Calendar) PreviousTradingDay(t time.Time) (time.Time, bool) {
	day := StartOfDay(t)
	for i := 0; i < maxLookback; i++ {
		if c.IsTradingDay(day) {
			return day, true
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, false
}

// StartOfDay truncates t to midnight in market time.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// ParseDate parses YYYY-MM-DD in market time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), Location)
}

// ParseDateTime parses "YYYY-MM-DD HH:MM:SS" in market time.
func ParseDateTime(s string) (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, strings.TrimSpace(s), Location)
}
