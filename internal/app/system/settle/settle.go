// internal/app/system/settle/settle.go
package settle

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Failure is one item that did not complete.
type Failure struct {
	Key string `json:"path"`
	Err error  `json:"-"`
}

// Message is the failure as reported in JSON bodies.
func (f Failure) Message() string {
	return fmt.Sprintf("%s: %v", f.Key, f.Err)
}

// Results is the outcome of a settle-all fan-out. Every item runs to
// completion whether or not its siblings fail.
type Results struct {
	Attempted int
	Succeeded []string
	Failed    []Failure
}

// OK reports whether every item succeeded.
func (r Results) OK() bool { return len(r.Failed) == 0 }

// Err joins the failures, or returns nil when there are none.
func (r Results) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Key, f.Err))
	}
	return errors.Join(errs...)
}

// Messages returns one line per failure, in input order.
func (r Results) Messages() []string {
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Message())
	}
	return out
}

// Each runs fn for every item with at most limit running at once
// (limit <= 0 means unbounded). key names an item in the results.
// Unlike errgroup.WithContext, one failure does not cancel the others.
func Each[T any](ctx context.Context, items []T, limit int, key func(T) string, fn func(context.Context, T) error) Results {
	errs := make([]error, len(items))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	res := Results{Attempted: len(items)}
	for i, item := range items {
		if errs[i] != nil {
			res.Failed = append(res.Failed, Failure{Key: key(item), Err: errs[i]})
		} else {
			res.Succeeded = append(res.Succeeded, key(item))
		}
	}
	return res
}

// Strings is Each over plain string keys.
func Strings(ctx context.Context, keys []string, limit int, fn func(context.Context, string) error) Results {
	return Each(ctx, keys, limit, func(s string) string { return s }, fn)
}
