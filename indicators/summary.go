package indicators

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/ashare/market"
)

// DailySet is what the advisor prompt shows next to the daily candles.
func DailySet() []Indicator {
	return []Indicator{NewMA(5), NewMA(10), NewMA(20), NewEMA(12), NewATR(14)}
}

// Summarize runs every indicator over candles and renders one
// "NAME value" pair per indicator, "n/a" for those still warming up.
func Summarize(candles []market.Candle, set []Indicator) string {
	parts := make([]string, 0, len(set))
	for _, ind := range set {
		v, ok := Run(ind, candles)
		if !ok {
			parts = append(parts, ind.Name()+" n/a")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %.2f", ind.Name(), v))
	}
	return strings.Join(parts, ", ")
}
