package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(trades.WithLabelValues("buy"))
	Trade("buy")
	Trade("buy")
	assert.Equal(t, before+2, testutil.ToFloat64(trades.WithLabelValues("buy")))

	before = testutil.ToFloat64(decisions.WithLabelValues("grid-v1", "none"))
	Decision("grid-v1", "none")
	assert.Equal(t, before+1, testutil.ToFloat64(decisions.WithLabelValues("grid-v1", "none")))
}

func TestLLMTokensIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(llmTokens)
	LLMTokens(0)
	LLMTokens(-5)
	assert.Equal(t, before, testutil.ToFloat64(llmTokens))
	LLMTokens(120)
	assert.Equal(t, before+120, testutil.ToFloat64(llmTokens))
}

func TestEquityGauge(t *testing.T) {
	Equity("run-x", 101234.5)
	assert.Equal(t, 101234.5, testutil.ToFloat64(equity.WithLabelValues("run-x")))
}
