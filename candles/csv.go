package candles

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/ashare/market"
)

// CSVFeed reads candle rows:
//
//	time,open,high,low,close[,volume[,amount]]
//
// where time is "2006-01-02", "2006-01-02 15:04" or "2006-01-02 15:04:05"
// in market time. A header row ("time,..." or "date,...") is allowed.
// Empty or short rows are skipped. Rows outside [from, to) are filtered when
// the bounds are set.
type CSVFeed struct {
	c    io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
	line     int
}

// OpenCSV opens a candle CSV file.
func OpenCSV(path string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := NewCSVFeed(f, from, to)
	feed.c = f
	return feed, nil
}

// NewCSVFeed reads candles from r. The caller owns r.
func NewCSVFeed(r io.Reader, from, to time.Time) *CSVFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVFeed{r: cr, from: from, to: to}
}

func (f *CSVFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// Next returns the next candle. ok is false at end of input.
func (f *CSVFeed) Next() (market.Candle, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Candle{}, false, nil
		}
		if err != nil {
			return market.Candle{}, false, err
		}
		f.line++
		if len(row) == 0 {
			continue
		}

		if !f.sawFirst {
			f.sawFirst = true
			h := strings.ToLower(strings.TrimSpace(row[0]))
			if h == "time" || h == "date" || h == "datetime" {
				continue
			}
		}

		c, ok, err := parseCandleRow(row)
		if err != nil {
			return market.Candle{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !ok {
			continue
		}
		if !inRange(c.Time, f.from, f.to) {
			continue
		}
		return c, true, nil
	}
}

// ReadAll drains the feed.
func (f *CSVFeed) ReadAll() ([]market.Candle, error) {
	var out []market.Candle
	for {
		c, ok, err := f.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, c)
	}
}

var timeLayouts = []string{market.DateTimeLayout, "2006-01-02 15:04", market.DateLayout}

func parseCandleRow(row []string) (market.Candle, bool, error) {
	if len(row) < 5 {
		return market.Candle{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Candle{}, false, nil
	}
	var (
		t   time.Time
		err error
	)
	for _, layout := range timeLayouts {
		t, err = time.ParseInLocation(layout, ts, market.Location)
		if err == nil {
			break
		}
	}
	if err != nil {
		return market.Candle{}, false, fmt.Errorf("bad time %q", ts)
	}

	var ohlc [4]float64
	names := [4]string{"open", "high", "low", "close"}
	for i := range ohlc {
		ohlc[i], err = strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Candle{}, false, fmt.Errorf("bad %s %q: %w", names[i], row[i+1], err)
		}
	}

	c := market.Candle{Time: t, Open: ohlc[0], High: ohlc[1], Low: ohlc[2], Close: ohlc[3]}
	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		if err != nil {
			return market.Candle{}, false, fmt.Errorf("bad volume %q: %w", row[5], err)
		}
		c.Volume = int64(v)
	}
	if len(row) > 6 && strings.TrimSpace(row[6]) != "" {
		c.Amount, err = strconv.ParseFloat(strings.TrimSpace(row[6]), 64)
		if err != nil {
			return market.Candle{}, false, fmt.Errorf("bad amount %q: %w", row[6], err)
		}
	}
	if !c.Valid() {
		return market.Candle{}, false, fmt.Errorf("inconsistent candle at %s", ts)
	}
	return c, true, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
