// Package sink implements the durable columnar store: an in-memory
// append buffer bounded in bytes and item count, flushed to partitioned,
// compressed files on size, count, or interval triggers, tuned for
// sequential writes to spinning disks.
package sink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketcore/ingestcore/internal/observability/metrics"
	"github.com/marketcore/ingestcore/internal/schema"
)

// Config tunes the buffer and flush policy, per §4.5 / §6 Sink options.
type Config struct {
	BufferSizeBytes  int64
	MaxBufferItems   int
	FlushInterval    time.Duration
	Compression      Compression
	RowGroupSize     int
	DataRoot         string
}

func DefaultConfig() Config {
	return Config{
		BufferSizeBytes: 512 * 1024 * 1024,
		MaxBufferItems:  50_000,
		FlushInterval:   5 * time.Minute,
		Compression:     CompressionLZ4,
		RowGroupSize:    10_000,
		DataRoot:        "./data",
	}
}

type bufferedItem struct {
	record     schema.UnifiedRecord
	approxSize int64
}

// Sink buffers records per data type and flushes them through a Writer.
type Sink struct {
	cfg     Config
	writer  Writer
	metrics *metrics.Registry

	mu          sync.Mutex
	buffers     map[schema.DataType][]bufferedItem
	bufferBytes map[schema.DataType]int64

	flushTimer *time.Timer
}

func New(cfg Config, writer Writer, reg *metrics.Registry) *Sink {
	s := &Sink{
		cfg:         cfg,
		writer:      writer,
		metrics:     reg,
		buffers:     make(map[schema.DataType][]bufferedItem),
		bufferBytes: make(map[schema.DataType]int64),
	}
	return s
}

// Run starts the periodic flush loop; it returns when ctx is canceled,
// performing one last flush of everything still buffered.
func (s *Sink) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flushAll(ctx)
		case <-ctx.Done():
			s.flushAll(context.Background())
			return
		}
	}
}

// Publish appends records to their data-type buffer, flushing immediately
// if the size or item-count trigger is crossed.
func (s *Sink) Publish(ctx context.Context, records []schema.UnifiedRecord) error {
	s.mu.Lock()
	var toFlush []schema.DataType
	for _, rec := range records {
		size := approxSize(rec)
		s.buffers[rec.DataType] = append(s.buffers[rec.DataType], bufferedItem{record: rec, approxSize: size})
		s.bufferBytes[rec.DataType] += size

		if s.metrics != nil {
			s.metrics.SinkBufferedItems.WithLabelValues(string(rec.DataType)).Set(float64(len(s.buffers[rec.DataType])))
		}

		if len(s.buffers[rec.DataType]) >= s.cfg.MaxBufferItems || s.bufferBytes[rec.DataType] >= s.cfg.BufferSizeBytes {
			toFlush = append(toFlush, rec.DataType)
		}
	}
	s.mu.Unlock()

	for _, dt := range toFlush {
		s.flushDataType(ctx, dt)
	}
	return nil
}

func (s *Sink) flushAll(ctx context.Context) {
	s.mu.Lock()
	var types []schema.DataType
	for dt := range s.buffers {
		types = append(types, dt)
	}
	s.mu.Unlock()
	for _, dt := range types {
		s.flushDataType(ctx, dt)
	}
}

// flushDataType groups the data type's buffered items by UTC partition
// date and writes one batch per partition. The buffer is taken up front;
// the records of a partition whose write fails are appended back to it.
func (s *Sink) flushDataType(ctx context.Context, dt schema.DataType) {
	s.mu.Lock()
	items := s.buffers[dt]
	s.buffers[dt] = nil
	s.bufferBytes[dt] = 0
	s.mu.Unlock()

	if len(items) == 0 {
		return
	}

	start := time.Now()
	byPartition := make(map[Partition][]schema.UnifiedRecord)
	for _, it := range items {
		p := PartitionOf(it.record.Timestamp)
		byPartition[p] = append(byPartition[p], it.record)
	}

	for partition, recs := range byPartition {
		if err := s.writer.WriteBatch(ctx, dt, partition, recs, s.cfg); err != nil {
			log.Error().Err(err).Str("data_type", string(dt)).Msg("sink flush failed; re-buffering batch")
			s.mu.Lock()
			for _, r := range recs {
				s.buffers[dt] = append(s.buffers[dt], bufferedItem{record: r, approxSize: approxSize(r)})
			}
			s.mu.Unlock()
		}
	}

	if s.metrics != nil {
		s.metrics.SinkFlushDuration.WithLabelValues(string(dt)).Observe(time.Since(start).Seconds())
		s.metrics.SinkBufferedItems.WithLabelValues(string(dt)).Set(0)
	}
}

func approxSize(rec schema.UnifiedRecord) int64 {
	b, err := json.Marshal(rec)
	if err != nil {
		return 256
	}
	return int64(len(b))
}
