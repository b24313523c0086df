// Package metrics holds the Prometheus series a backtest updates while it
// runs:
//
//	ashare_runs_total{status}               runs finished by final status
//	ashare_decisions_total{strategy,action} decisions returned by strategies
//	ashare_trades_total{action}             trades applied to the ledger
//	ashare_rejected_trades_total{reason}    trades refused by the ledger or oracle
//	ashare_skipped_points_total{reason}     decision times skipped before deciding
//	ashare_oracle_errors_total{status}      execution price lookups that failed
//	ashare_llm_tokens_total                 tokens billed by the advisor backend
//	ashare_equity_cny{run}                  last daily mark of each run
//
// They are registered with the default registry in init() and served at
// /metrics by the web server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_runs_total",
			Help: "Backtest runs finished, by status",
		},
		[]string{"status"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_decisions_total",
			Help: "Decisions returned by strategies",
		},
		[]string{"strategy", "action"},
	)

	trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_trades_total",
			Help: "Trades applied to the ledger",
		},
		[]string{"action"},
	)

	rejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_rejected_trades_total",
			Help: "Trades refused at execution",
		},
		[]string{"reason"}, // not_fillable|ledger
	)

	skipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_skipped_points_total",
			Help: "Decision times skipped before the strategy was asked",
		},
		[]string{"reason"}, // no_price|idle
	)

	oracleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashare_oracle_errors_total",
			Help: "Execution price lookups that returned no usable price",
		},
		[]string{"status"},
	)

	llmTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ashare_llm_tokens_total",
			Help: "Tokens reported by the advisor backend",
		},
	)

	equity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ashare_equity_cny",
			Help: "Account value at the last daily close",
		},
		[]string{"run"},
	)
)

func init() {
	prometheus.MustRegister(runs, decisions, trades, rejected, skipped, oracleErrors, llmTokens, equity)
}

func RunFinished(status string) { runs.WithLabelValues(status).Inc() }

func Decision(strategy, action string) { decisions.WithLabelValues(strategy, action).Inc() }

func Trade(action string) { trades.WithLabelValues(action).Inc() }

func Rejected(reason string) { rejected.WithLabelValues(reason).Inc() }

func Skipped(reason string) { skipped.WithLabelValues(reason).Inc() }

func OracleError(status string) { oracleErrors.WithLabelValues(status).Inc() }

// LLMTokens adds n billed tokens. Non-positive values are ignored.
func LLMTokens(n int64) {
	if n > 0 {
		llmTokens.Add(float64(n))
	}
}

// Equity records a run's latest daily mark.
func Equity(runID string, value float64) { equity.WithLabelValues(runID).Set(value) }
