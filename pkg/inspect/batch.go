package inspect

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/cache-inspector/pkg/run"
)

// BatchConfig holds batch inspector configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel inspections.
	MaxConcurrency int
	// Timeout per URL, retries included.
	Timeout time.Duration
}

// DefaultBatchConfig returns the default batch configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// URLInspector inspects a single URL. *Inspector implements it.
type URLInspector interface {
	Inspect(ctx context.Context, rawURL string) (*run.Run, error)
}

var _ URLInspector = (*Inspector)(nil)

// Result is the outcome of inspecting one URL of a batch.
type Result struct {
	Index int
	URL   string
	Run   *run.Run
	Err   error
}

// BatchInspector inspects many URLs in parallel using a worker pool.
type BatchInspector struct {
	inspector URLInspector
	config    BatchConfig
}

// NewBatchInspector creates a new batch inspector.
func NewBatchInspector(inspector URLInspector, config BatchConfig) *BatchInspector {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &BatchInspector{
		inspector: inspector,
		config:    config,
	}
}

// InspectAll inspects every URL and returns one result per input, in input
// order. A failed URL does not stop the others; URLs not yet started when ctx
// is cancelled carry ctx's error.
func (b *BatchInspector) InspectAll(ctx context.Context, urls []string) []Result {
	start := time.Now()
	results := make([]Result, len(urls))
	if len(urls) == 0 {
		return results
	}

	queue := make(chan int, len(urls))
	for i := range urls {
		queue <- i
	}
	close(queue)

	workers := b.config.MaxConcurrency
	if workers > len(urls) {
		workers = len(urls)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go b.worker(ctx, urls, queue, results, &wg, w)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	log.Info().
		Int("urls", len(urls)).
		Int("failed", failed).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Batch inspection complete")

	return results
}

// worker processes URL indices from the queue. Each index is written by
// exactly one worker, so results needs no lock.
func (b *BatchInspector) worker(ctx context.Context, urls []string, queue <-chan int, results []Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for i := range queue {
		results[i] = Result{Index: i, URL: urls[i]}

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		urlCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
		r, err := b.inspector.Inspect(urlCtx, urls[i])
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("url", urls[i]).
				Msg("URL inspection failed")
		}
		results[i].Run = r
		results[i].Err = err
		processed++
	}

	if processed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("urls_processed", processed).
			Msg("Worker completed")
	}
}
