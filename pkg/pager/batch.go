package pager

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ProcessBatch runs worker over items in sequential batches of batchSize.
//
// Items within a batch run concurrently (bounded parallelism = batch size);
// batches run one after another with interBatchDelay between them, yielding
// the scheduler so a UI caller stays responsive. Results preserve the input
// order regardless of per-item completion order. Per-item failures do not
// stop the run; they are joined into the returned error.
func ProcessBatch[T, R any](
	ctx context.Context,
	items []T,
	worker func(ctx context.Context, item T) (R, error),
	batchSize int,
	interBatchDelay time.Duration,
) ([]R, error) {
	if batchSize <= 0 {
		batchSize = 1
	}

	results := make([]R, len(items))
	itemErrs := make([]error, len(items))

	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], itemErrs[i] = worker(ctx, items[i])
			}(i)
		}
		wg.Wait()

		if interBatchDelay > 0 && end < len(items) {
			select {
			case <-time.After(interBatchDelay):
			case <-ctx.Done():
				return results, ctx.Err()
			}
		}
	}

	return results, errors.Join(itemErrs...)
}
