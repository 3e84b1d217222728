// Package ingest loads pre-chunked documents into the vector store.
// Reader → channel(batch) → N workers → BatchEmbed → Upsert.
package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/chunk"
	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	"github.com/kailas-cloud/paralegal/internal/logger"
	"github.com/kailas-cloud/paralegal/internal/metrics"
)

// Pipeline defaults.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 64
)

// Options tune the ingestion pipeline.
type Options struct {
	Workers   int
	BatchSize int
}

// Result summarizes one ingestion run.
type Result struct {
	Namespace string
	Processed int64
	Failed    int64 // chunks in batches that failed to embed or upsert
	Skipped   int64 // invalid records
	Duration  time.Duration
	// EmbeddingTokens is reported by the provider; cache hits cost nothing.
	EmbeddingTokens int
}

// Service embeds chunks and writes them to the store.
type Service struct {
	embed domain.Embedder
	store Store
	opts  Options
}

// New creates an ingestion service. Zero options take defaults.
func New(embed domain.Embedder, store Store, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Service{embed: embed, store: store, opts: opts}
}

type batchItem struct {
	chunks []chunk.Chunk
	first  int // line of the first record
}

// Ingest reads JSONL records from r into namespace ns.
// A failed batch does not stop the run; its chunks are counted as failed.
// The run stops early only when ctx is done or r cannot be read.
func (s *Service) Ingest(ctx context.Context, ns string, r io.Reader) (Result, error) {
	if err := namespace.Validate(ns); err != nil {
		return Result{}, fmt.Errorf("ingest: %w", err)
	}

	ctx = logger.With(ctx, zap.String("namespace", ns))
	ctx, usage := domain.NewContextWithUsage(ctx)
	res := Result{Namespace: ns}
	batches := make(chan batchItem, s.opts.Workers*2)
	var (
		wg                sync.WaitGroup
		processed, failed atomic.Int64
	)

	start := time.Now()
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for b := range batches {
				s.processBatch(ctx, workerID, ns, b, &processed, &failed)
			}
		}(i)
	}

	skipped, readerErr := s.produce(ctx, ns, r, batches)
	close(batches)
	wg.Wait()

	res.Processed = processed.Load()
	res.Failed = failed.Load()
	res.Skipped = skipped
	res.Duration = time.Since(start)
	res.EmbeddingTokens, _ = usage.Tokens()

	if readerErr != nil {
		return res, readerErr
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("ingest %s: %w", ns, err)
	}
	return res, nil
}

// produce reads records and groups them into batches.
func (s *Service) produce(ctx context.Context, ns string, r io.Reader, out chan<- batchItem) (int64, error) {
	log := logger.FromContext(ctx)
	var (
		batch   []chunk.Chunk
		first   int
		skipped int64
	)

	send := func() bool {
		select {
		case out <- batchItem{chunks: batch, first: first}:
			batch = make([]chunk.Chunk, 0, s.opts.BatchSize)
			return true
		case <-ctx.Done():
			return false
		}
	}

	err := readRecords(r, func(rec Record, line int, err error) bool {
		if ctx.Err() != nil {
			return false
		}
		var c chunk.Chunk
		if err == nil {
			c, err = rec.toChunk(ns)
		}
		if err != nil {
			skipped++
			metrics.IngestChunksTotal.WithLabelValues("skipped").Inc()
			log.Warn("Skipping record", zap.Int("line", line), zap.Error(err))
			return true
		}

		if len(batch) == 0 {
			first = line
		}
		batch = append(batch, c)
		if len(batch) >= s.opts.BatchSize {
			return send()
		}
		return true
	})

	if len(batch) > 0 && ctx.Err() == nil {
		send()
	}
	return skipped, err
}

func (s *Service) processBatch(
	ctx context.Context,
	workerID int,
	ns string,
	b batchItem,
	processed, failed *atomic.Int64,
) {
	start := time.Now()
	err := s.writeBatch(ctx, ns, b.chunks)
	metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())

	n := int64(len(b.chunks))
	if err != nil {
		failed.Add(n)
		metrics.IngestChunksTotal.WithLabelValues("failed").Add(float64(n))
		logger.FromContext(ctx).Error("Ingest batch failed",
			zap.Int("worker", workerID),
			zap.Int("first_line", b.first),
			zap.Int("chunks", len(b.chunks)),
			zap.Error(err),
		)
		return
	}
	processed.Add(n)
	metrics.IngestChunksTotal.WithLabelValues("ok").Add(float64(n))
}

func (s *Service) writeBatch(ctx context.Context, ns string, chunks []chunk.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	res, err := domain.BatchEmbed(ctx, s.embed, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(res.Embeddings) != len(chunks) {
		return fmt.Errorf("embed batch: got %d embeddings for %d chunks: %w",
			len(res.Embeddings), len(chunks), domain.ErrEmbeddingProviderError)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	if err := s.store.Upsert(ctx, ns, chunks, res.Embeddings); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}
