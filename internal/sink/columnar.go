package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/marketcore/ingestcore/internal/schema"
)

// Compression selects the row-group codec.
type Compression string

const (
	CompressionLZ4    Compression = "LZ4"
	CompressionSnappy Compression = "SNAPPY" // accepted for config compatibility; LZ4 is used (see DESIGN.md)
)

// Partition is the (year, month, day) the sink groups records into,
// derived from each record's own UTC timestamp.
type Partition struct {
	Year  int
	Month int
	Day   int
}

func PartitionOf(ts time.Time) Partition {
	u := ts.UTC()
	return Partition{Year: u.Year(), Month: int(u.Month()), Day: u.Day()}
}

func (p Partition) dir(root string, dt schema.DataType) string {
	return filepath.Join(root, string(dt),
		fmt.Sprintf("year=%04d", p.Year),
		fmt.Sprintf("month=%02d", p.Month),
		fmt.Sprintf("day=%02d", p.Day))
}

// Writer persists a batch of records for one (data_type, partition) as a
// sequential, compressed file — one fsync per flush, not per record.
type Writer interface {
	WriteBatch(ctx context.Context, dt schema.DataType, partition Partition, records []schema.UnifiedRecord, cfg Config) error
}

// FileWriter writes row groups as newline-delimited JSON compressed with
// LZ4, partitioned into directories — the same CSV-bridge-to-columnar
// strategy the teacher used ahead of adopting a true columnar library,
// generalized here to the market-intelligence record shape.
type FileWriter struct {
	mu sync.Mutex
}

func NewFileWriter() *FileWriter { return &FileWriter{} }

func (w *FileWriter) WriteBatch(ctx context.Context, dt schema.DataType, partition Partition, records []schema.UnifiedRecord, cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := partition.dir(cfg.DataRoot, dt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sink: mkdir %s: %w", dir, err)
	}

	for start := 0; start < len(records); start += cfg.RowGroupSize {
		end := start + cfg.RowGroupSize
		if end > len(records) {
			end = len(records)
		}
		if err := w.writeRowGroup(dir, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *FileWriter) writeRowGroup(dir string, records []schema.UnifiedRecord) error {
	name := fmt.Sprintf("part-%d.col.lz4", time.Now().UnixNano())
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", path, err)
	}
	defer f.Close()

	lz := lz4.NewWriter(f)
	bw := bufio.NewWriter(lz)
	enc := json.NewEncoder(bw)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("sink: encode record: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("sink: flush: %w", err)
	}
	if err := lz.Close(); err != nil {
		return fmt.Errorf("sink: lz4 close: %w", err)
	}
	// Sequential write complete: fsync once at the flush boundary, not
	// per record.
	return f.Sync()
}

// ReadPartition reads every row group under a (data_type, partition)
// directory back into records, for query() and for tests asserting
// round-trip equality after flush.
func ReadPartition(root string, dt schema.DataType, partition Partition) ([]schema.UnifiedRecord, error) {
	dir := partition.dir(root, dt)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []schema.UnifiedRecord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		recs, err := decodeRowGroup(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func decodeRowGroup(f *os.File) ([]schema.UnifiedRecord, error) {
	reader := lz4.NewReader(f)
	dec := json.NewDecoder(reader)
	var out []schema.UnifiedRecord
	for {
		var rec schema.UnifiedRecord
		if err := dec.Decode(&rec); err != nil {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}
