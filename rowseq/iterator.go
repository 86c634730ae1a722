package rowseq

import "github.com/SStar1314/opentsdb/qerr"

// DataPoint is one point read back out of a RowSeq (or, via span.Iterator,
// a Span): a timestamp and either an integer or a float value.
type DataPoint struct {
	Timestamp uint32
	IsInteger bool
	Long      int64
	Double    float64
}

// Iterator is RowSeq's internal forward + seekable iterator (spec §4.B
// "internal_iterator()"). It borrows its RowSeq rather than owning a copy
// of its points.
type Iterator struct {
	rs  *RowSeq
	pos int
}

// Iterator returns a fresh forward iterator over rs's points.
func (r *RowSeq) Iterator() *Iterator {
	return &Iterator{rs: r}
}

// HasNext reports whether there is at least one more point to read.
func (it *Iterator) HasNext() bool {
	return it.pos < it.rs.Size()
}

// Next returns the next point and advances the iterator.
func (it *Iterator) Next() (DataPoint, error) {
	if !it.HasNext() {
		return DataPoint{}, qerr.ErrExhausted
	}
	i := it.pos
	it.pos++

	dp := DataPoint{Timestamp: it.rs.Timestamp(i), IsInteger: it.rs.IsInteger(i)}
	if dp.IsInteger {
		dp.Long, _ = it.rs.LongValue(i)
	} else {
		dp.Double, _ = it.rs.DoubleValue(i)
	}
	return dp, nil
}

// Seek advances the iterator to the first point with timestamp >= ts.
// RowSeq points are strictly increasing, so a forward linear scan from the
// current position is sufficient and never needs to move backward across a
// single RowSeq's small point count.
func (it *Iterator) Seek(ts uint32) {
	for it.pos < it.rs.Size() && it.rs.Timestamp(it.pos) < ts {
		it.pos++
	}
}
