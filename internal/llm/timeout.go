package llm

import (
	"context"
	"errors"
)

// TimeoutProvider bounds each call by the deadline configured for its
// purpose. It sits outermost so the budget covers retries too.
type TimeoutProvider struct {
	inner    Provider
	timeouts TimeoutConfig
}

// WithTimeout wraps p with per-purpose deadlines.
func WithTimeout(p Provider, cfg TimeoutConfig) Provider {
	return &TimeoutProvider{inner: p, timeouts: cfg}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)
	d := t.timeouts.For(purpose)
	if d <= 0 {
		return t.inner.Generate(ctx, req)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := t.inner.Generate(ctx, req)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &ErrTimeout{Purpose: purpose, After: d}
		}
		return r.resp, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &ErrTimeout{Purpose: purpose, After: d}
		}
		return nil, ctx.Err()
	}
}

func (t *TimeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
