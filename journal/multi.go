package journal

import (
	"context"
	"errors"
)

// Multi fans every record out to several journals. All journals are
// attempted; errors are joined.
type Multi []Journal

func (m Multi) RecordRun(ctx context.Context, r RunRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordRun(ctx, r))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordDecision(ctx context.Context, d DecisionRecord) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordDecision(ctx, d))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordEquity(ctx context.Context, e EquitySnapshot) error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.RecordEquity(ctx, e))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}
