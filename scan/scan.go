package scan

import (
	"context"
	"fmt"
	"math"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/SStar1314/opentsdb/qerr"
	"github.com/SStar1314/opentsdb/rowkey"
	"github.com/SStar1314/opentsdb/span"
)

// Range computes the store scan boundaries for spec §4.F: the overlap pads
// for a point whose timestamp lies near a window boundary but whose row's
// base_time falls just outside it. u32 arithmetic saturates at the
// boundaries instead of wrapping.
func Range(schema rowkey.Schema, metricID []byte, startTime, endTime, maxTimespan uint32) (startRow, endRow []byte) {
	lo := uint32(0)
	if startTime > maxTimespan {
		lo = startTime - maxTimespan
	}

	hi := uint32(math.MaxUint32)
	if endTime != 0 {
		if endTime <= math.MaxUint32-maxTimespan {
			hi = endTime + maxTimespan
		}
	}

	startRow = rowkey.WithBaseTime(schema, paddedKey(schema, metricID), lo)
	endRow = rowkey.WithBaseTime(schema, paddedKey(schema, metricID), hi)
	return startRow, endRow
}

// paddedKey builds a bare header-only key (metric id + zeroed base_time,
// no tags) so rowkey.WithBaseTime has a key of the right shape to patch.
func paddedKey(schema rowkey.Schema, metricID []byte) []byte {
	key := make([]byte, schema.WidthMetric+rowkey.TimestampBytes)
	copy(key, metricID)
	return key
}

// Run drives store over [startRow, endRow) with the given row filter
// pattern, routing every returned row into a span.Map after checking its
// metric prefix matches metricID (spec §4.F step 1). It returns the
// number of rows scanned, the populated Map and the first fatal error, if
// any; the scanner is always closed before Run returns.
func Run(ctx context.Context, logger log.Logger, store Store, schema rowkey.Schema, flagBits uint, metricID []byte, startRow, endRow []byte, filterPattern string) (*span.Map, int, error) {
	scanner, err := store.Scan(ctx, startRow, endRow, filterPattern)
	if err != nil {
		return nil, 0, fmt.Errorf("scan: opening scanner: %w: %w", qerr.ErrStorageError, err)
	}
	defer scanner.Close()

	m := span.NewMap(schema, flagBits)
	rows := 0

	for {
		row, ok, err := scanner.Next(ctx)
		if err != nil {
			return nil, rows, fmt.Errorf("scan: reading row: %w: %w", qerr.ErrStorageError, err)
		}
		if !ok {
			break
		}
		rows++

		rowMetricID, err := rowkey.MetricBytes(schema, row.Key)
		if err != nil {
			return nil, rows, err
		}
		if !bytesEqual(rowMetricID, metricID) {
			return nil, rows, fmt.Errorf("scan: row metric id %x outside requested range %x: %w", rowMetricID, metricID, qerr.ErrScannerInvariant)
		}

		if err := m.AddRow(row); err != nil {
			if qerr.Fatal(err) {
				return nil, rows, err
			}
			level.Warn(logger).Log("msg", "dropping row that failed to add to span", "err", err)
			continue
		}
	}

	return m, rows, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
