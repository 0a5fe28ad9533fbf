// Package pipeline fetches message files from the blob store in
// parallel, parses them, and shapes the successful results for the
// overview table.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/shkkonda/eml-viewer/internal/blobstore"
	"github.com/shkkonda/eml-viewer/internal/parser"
)

// Message is one successfully parsed message together with the blob key
// it came from.
type Message struct {
	Key string
	*parser.ParsedMessage
}

// Result aggregates the outcome of one pipeline run.
type Result struct {
	Messages       []*Message
	MaxAttachments int
}

// ProgressFunc receives a "completed of total" notification each time a
// fetch+parse task finishes, in completion order.
type ProgressFunc func(completed, total int)

// Pipeline coordinates the parallel fetch-parse run.
type Pipeline struct {
	store       blobstore.Store
	bucket      string
	concurrency int
	logger      *zap.Logger
}

// New creates a pipeline with a bounded worker count.
func New(store blobstore.Store, bucket string, concurrency int, logger *zap.Logger) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		store:       store,
		bucket:      bucket,
		concurrency: concurrency,
		logger:      logger,
	}
}

type taskResult struct {
	key string
	msg *parser.ParsedMessage
	err error
}

// Run fetches and parses every key using the worker pool. A fetch or
// parse failure drops that key and never affects sibling tasks; the
// worst case is an empty result set. onProgress, if non-nil, is called
// once per finished task with a monotonically increasing completed
// count, ending at (total, total). Runs are idempotent against a stable
// backing store.
func (p *Pipeline) Run(ctx context.Context, keys []string, onProgress ProgressFunc) *Result {
	result := &Result{}
	total := len(keys)
	if total == 0 {
		return result
	}

	keyChan := make(chan string, total)
	resultChan := make(chan taskResult, total)

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, keyChan, resultChan)
	}

	for _, key := range keys {
		keyChan <- key
	}
	close(keyChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results as tasks complete. Only this goroutine touches
	// the accumulator and the completed count.
	completed := 0
	for res := range resultChan {
		completed++
		if onProgress != nil {
			onProgress(completed, total)
		}

		if res.err != nil {
			p.logger.Warn("dropping message",
				zap.String("key", res.key),
				zap.Error(res.err))
			continue
		}

		result.Messages = append(result.Messages, &Message{
			Key:           res.key,
			ParsedMessage: res.msg,
		})
		if n := len(res.msg.Attachments); n > result.MaxAttachments {
			result.MaxAttachments = n
		}
	}

	return result
}

// worker fetches and parses keys until the key channel is drained.
func (p *Pipeline) worker(ctx context.Context, wg *sync.WaitGroup, keyChan <-chan string, resultChan chan<- taskResult) {
	defer wg.Done()

	for key := range keyChan {
		msg, err := p.processKey(ctx, key)
		resultChan <- taskResult{key: key, msg: msg, err: err}
	}
}

// processKey performs the fetch+parse for one key. Fetch failures and
// parse failures are treated identically.
func (p *Pipeline) processKey(ctx context.Context, key string) (*parser.ParsedMessage, error) {
	raw, err := p.store.Get(ctx, p.bucket, key)
	if err != nil {
		return nil, err
	}
	return parser.Parse(raw)
}
