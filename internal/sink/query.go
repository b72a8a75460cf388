package sink

import (
	"sort"
	"time"

	"github.com/marketcore/ingestcore/internal/schema"
)

// QueryOptions narrows a Query call, all fields optional except DataType.
type QueryOptions struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Limit  int
}

// Query reads matching records from the durable sink's partitioned
// files, per the subscriber-facing query() external interface (§6).
// Results are returned newest-first.
func Query(root string, dt schema.DataType, opts QueryOptions) ([]schema.UnifiedRecord, error) {
	start, end := opts.Start, opts.End
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	var out []schema.UnifiedRecord
	for d := start.UTC().Truncate(24 * time.Hour); !d.After(end); d = d.AddDate(0, 0, 1) {
		partition := PartitionOf(d)
		records, err := ReadPartition(root, dt, partition)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if opts.Symbol != "" && r.Symbol != opts.Symbol {
				continue
			}
			if r.Timestamp.Before(start) || r.Timestamp.After(end) {
				continue
			}
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}
