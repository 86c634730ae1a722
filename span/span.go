// Package span implements Component C: an ordered, growable-during-scan,
// frozen-after-scan list of RowSeqs that share one series identity.
package span

import (
	"bytes"
	"fmt"

	"github.com/SStar1314/opentsdb/qerr"
	"github.com/SStar1314/opentsdb/rowdata"
	"github.com/SStar1314/opentsdb/rowkey"
	"github.com/SStar1314/opentsdb/rowseq"
)

// Span is a non-empty, ordered list of RowSeqs all sharing identical
// metric_id and tag bytes, with strictly increasing timestamps across row
// boundaries (I3, I4). It is built incrementally via AddRow during a scan
// and is read-only once the scan completes.
type Span struct {
	schema   rowkey.Schema
	flagBits uint

	rows []*rowseq.RowSeq

	metricID []byte
	tagBytes []byte
}

// New returns an empty Span bound to a schema and FLAG_BITS.
func New(schema rowkey.Schema, flagBits uint) *Span {
	return &Span{schema: schema, flagBits: flagBits}
}

// MetricID returns the series' metric id, valid once the first row has
// been added.
func (s *Span) MetricID() []byte { return s.metricID }

// TagBytes returns the series' tag section bytes, valid once the first row
// has been added.
func (s *Span) TagBytes() []byte { return s.tagBytes }

// NumRows returns the number of RowSeqs backing this Span.
func (s *Span) NumRows() int { return len(s.rows) }

// AddRow implements spec §4.C. The first call establishes the Span's
// series identity; subsequent calls must match it exactly or fail with a
// SeriesMismatch-class error.
func (s *Span) AddRow(row rowdata.Row) error {
	metricID, _, tags, err := rowkey.Split(s.schema, row.Key)
	if err != nil {
		return err
	}
	tagBytes, err := rowkey.TagBytes(s.schema, row.Key)
	if err != nil {
		return err
	}
	_ = tags

	if len(s.rows) == 0 {
		rs := rowseq.New(s.schema, s.flagBits)
		if err := rs.SetRow(row); err != nil {
			return err
		}
		s.metricID = metricID
		s.tagBytes = tagBytes
		s.rows = append(s.rows, rs)
		return nil
	}

	if !bytes.Equal(metricID, s.metricID) || !bytes.Equal(tagBytes, s.tagBytes) {
		return fmt.Errorf("span: row key prefix does not match series identity: %w", qerr.ErrSeriesMismatch)
	}

	last := s.rows[len(s.rows)-1]
	otherBaseTime, err := rowkey.BaseTime(s.schema, row.Key)
	if err != nil {
		return err
	}
	otherLastDelta := lastQualifierDelta(row, s.flagBits)

	if last.CanMerge(otherBaseTime, otherLastDelta) {
		return last.AddRow(row)
	}

	rNew := rowseq.New(s.schema, s.flagBits)
	if err := rNew.SetRow(row); err != nil {
		return err
	}

	lastTsExisting := last.Timestamp(last.Size() - 1)
	if !(lastTsExisting < rNew.Timestamp(0)) {
		return fmt.Errorf("span: new row starts at %d, at or before existing last timestamp %d: %w", rNew.Timestamp(0), lastTsExisting, qerr.ErrOutOfOrderRow)
	}

	s.rows = append(s.rows, rNew)
	return nil
}

// lastQualifierDelta decodes the delta of the last (highest-qualifier)
// cell in row without constructing a RowSeq, so Span can decide whether to
// merge before committing to either path.
func lastQualifierDelta(row rowdata.Row, flagBits uint) uint32 {
	if len(row.Cells) == 0 {
		return 0
	}
	shift := flagBits
	return uint32(row.Cells[len(row.Cells)-1].Qualifier >> shift)
}

// Size returns the total number of points across all RowSeqs.
func (s *Span) Size() int {
	total := 0
	for _, r := range s.rows {
		total += r.Size()
	}
	return total
}

// locate finds the (rowIndex, offset) pair for the ith point, scanning
// RowSeqs in order and accumulating sizes. Row count per Span is small
// (bounded by (end-start)/MAX_TIMESPAN + 2), so a linear scan is
// acceptable (spec §4.C).
func (s *Span) locate(i int) (rowIndex, offset int) {
	for ri, r := range s.rows {
		if i < r.Size() {
			return ri, i
		}
		i -= r.Size()
	}
	panic("span: index out of range")
}

// Timestamp returns the timestamp of the ith point across the whole Span.
func (s *Span) Timestamp(i int) uint32 {
	ri, off := s.locate(i)
	return s.rows[ri].Timestamp(off)
}

// IsInteger reports whether the ith point is an integer value.
func (s *Span) IsInteger(i int) bool {
	ri, off := s.locate(i)
	return s.rows[ri].IsInteger(off)
}

// LongValue returns the ith point as a signed integer.
func (s *Span) LongValue(i int) (int64, error) {
	ri, off := s.locate(i)
	return s.rows[ri].LongValue(off)
}

// DoubleValue returns the ith point as a float.
func (s *Span) DoubleValue(i int) (float64, error) {
	ri, off := s.locate(i)
	return s.rows[ri].DoubleValue(off)
}

// SeekRow returns the index of the first RowSeq whose last timestamp is
// >= target. If every RowSeq ends before target, it returns the last
// RowSeq's index (spec §4.C).
func (s *Span) SeekRow(target uint32) int {
	for i, r := range s.rows {
		if r.Timestamp(r.Size()-1) >= target {
			return i
		}
	}
	return len(s.rows) - 1
}

// RowAt returns the RowSeq at the given index.
func (s *Span) RowAt(i int) *rowseq.RowSeq { return s.rows[i] }
