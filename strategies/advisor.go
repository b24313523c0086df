package strategies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/market"
)

// Asker sends a prompt to an external decision oracle and returns its
// reply. *llm.Client implements it.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Advisor delegates each decision to an external oracle such as a chat
// model. Whatever goes wrong on the way (history lookup, transport, an
// unparseable reply) becomes a none decision carrying the error.
type Advisor struct {
	asker   Asker
	history CandleHistory
	opts    PromptOptions
	log     logrus.FieldLogger
}

func NewAdvisor(d Deps) (*Advisor, error) {
	if d.Asker == nil {
		return nil, errors.New("advisor: Asker is required")
	}
	if d.Candles == nil {
		return nil, errors.New("advisor: Candles is required")
	}
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Advisor{asker: d.Asker, history: d.Candles, opts: d.Prompt, log: log}, nil
}

func (a *Advisor) Name() string { return "advisor" }

func (a *Advisor) Decide(ctx context.Context, stockName, code string, acct Account, at time.Time) decision.Decision {
	prompt, err := BuildPrompt(ctx, a.history, a.opts, stockName, code, acct, at)
	if err != nil {
		return decision.NewNone(at, code, fmt.Sprintf("advisor: build prompt: %v", err))
	}

	reply, err := a.asker.Ask(ctx, prompt)
	if err != nil {
		a.log.WithError(err).WithField("at", at.Format(market.DateTimeLayout)).Warn("advisor request failed")
		return decision.NewNone(at, code, fmt.Sprintf("advisor: request failed: %v", err))
	}

	d, err := decision.Parse(reply, market.Location)
	if err != nil {
		a.log.WithError(err).WithField("reply", reply).Warn("advisor reply unusable")
		return decision.NewNone(at, code, fmt.Sprintf("advisor: unusable reply: %v", err))
	}
	if d.StockCode == "" {
		d.StockCode = code
	}
	if d.StockCode != code {
		return decision.NewNone(at, code, fmt.Sprintf("advisor: reply is for %s, not %s", d.StockCode, code))
	}
	if d.Time.IsZero() {
		d.Time = at
	}
	return d
}
