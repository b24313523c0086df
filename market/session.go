package market

import "time"

// Session is one continuous trading window, expressed as minutes after
// midnight.
type Session struct {
	Open  int
	Close int
}

// Sessions are the two A-share continuous auction windows.
var Sessions = []Session{
	{Open: 9*60 + 30, Close: 11*60 + 30},
	{Open: 13 * 60, Close: 15 * 60},
}

// DecisionStep is the spacing of intraday decision points.
const DecisionStep = 15 * time.Minute

// DecisionTimes returns the sixteen intraday decision timestamps for day:
// 09:30 to 11:15 and 13:00 to 14:45 every 15 minutes. The last slot of each
// session is left out so every decision still has a candle to fill in.
func DecisionTimes(day time.Time) []time.Time {
	d := StartOfDay(day)
	step := int(DecisionStep / time.Minute)

	out := make([]time.Time, 0, 16)
	for _, s := range Sessions {
		for m := s.Open; m+step <= s.Close; m += step {
			out = append(out, d.Add(time.Duration(m)*time.Minute))
		}
	}
	return out
}

// InSession reports whether t falls inside a continuous trading window.
func InSession(t time.Time) bool {
	t = t.In(Location)
	m := t.Hour()*60 + t.Minute()
	for _, s := range Sessions {
		if m >= s.Open && m <= s.Close {
			return true
		}
	}
	return false
}
