// Package fanout runs one function per key on a bounded worker pool and
// gathers the results keyed by input.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every key with at most limit calls in flight and returns
// the results once every call has finished. fn reports failures through V;
// Map itself never fails. limit <= 0 means one worker per key.
//
// Each worker writes only its own slot, so no locking is needed before the
// barrier. Keys not yet started when ctx is canceled are still passed to fn,
// which is expected to observe ctx and return promptly.
func Map[K comparable, V any](ctx context.Context, limit int, keys []K, fn func(context.Context, K) V) map[K]V {
	out := make(map[K]V, len(keys))
	if len(keys) == 0 {
		return out
	}
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}

	slots := make([]V, len(keys))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, k := range keys {
		g.Go(func() error {
			slots[i] = fn(ctx, k)
			return nil
		})
	}
	_ = g.Wait()

	for i, k := range keys {
		out[k] = slots[i]
	}
	return out
}
