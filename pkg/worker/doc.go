// Package worker provides a generic, bounded worker pool.
//
// Submit never blocks: when the queue is full the item is dropped and
// ErrQueueFull is returned, so a producer on a latency-sensitive path (such
// as a store notifying listeners) can hand work off without waiting on a
// slow consumer. A pool with one worker processes items in submission order.
//
//	pool := worker.NewPool[uint64](1, 16, func(ctx context.Context, version uint64) error {
//	    return publish(ctx, version)
//	}, worker.WithMetricsRegistry[uint64](registry, "broadcast"))
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// Stats are always tracked. Prometheus metrics are registered under the
// given prefix when a registry is supplied.
package worker
