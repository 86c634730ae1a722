// Package scan implements Component F: the scan range computation and the
// scan executor that drives a Store.Scanner and routes rows into a
// span.Map.
package scan

import (
	"context"

	"github.com/SStar1314/opentsdb/rowdata"
)

// Store is the wide-column key-value store the query core scans against
// (spec §6, "Store contract (consumed)"). store/bigtable provides a
// concrete implementation; tests use a fake.
type Store interface {
	// Scan opens a range scanner over [startRow, endRow) restricted to the
	// points column family and the given server-side row-key filter
	// pattern (built by package filter). An empty filterPattern means no
	// row-key filter; Query.Run always passes filter.Build's pattern, which
	// is non-empty even when no tag requirements apply.
	Scan(ctx context.Context, startRow, endRow []byte, filterPattern string) (Scanner, error)
}

// Scanner yields rows in row-key order. Next blocks until a row is
// available or the scan is complete; it returns (rowdata.Row{}, false,
// nil) at end of scan. Close is idempotent and must be called on every
// exit path (spec §5 "Cancellation").
type Scanner interface {
	Next(ctx context.Context) (row rowdata.Row, ok bool, err error)
	Close() error
}
