package span

import (
	"github.com/SStar1314/opentsdb/qerr"
	"github.com/SStar1314/opentsdb/rowseq"
)

// Iterator is Span's SeekableView (spec §4.H): a forward-only + seekable
// iterator that holds (rowIndex, innerIterator) and borrows its Span
// rather than owning a circular reference back into it.
type Iterator struct {
	sp       *Span
	rowIndex int
	inner    *rowseq.Iterator
}

// Iterator returns a fresh iterator positioned at the first point.
func (s *Span) Iterator() *Iterator {
	it := &Iterator{sp: s}
	if s.NumRows() > 0 {
		it.inner = s.RowAt(0).Iterator()
	}
	return it
}

// HasNext is true iff the current inner iterator has another point or any
// later RowSeq exists.
func (it *Iterator) HasNext() bool {
	if it.inner != nil && it.inner.HasNext() {
		return true
	}
	return it.rowIndex+1 < it.sp.NumRows()
}

// Next drains the current inner iterator first; on exhaustion it advances
// to the next RowSeq and yields its first point. It fails with
// qerr.ErrExhausted if neither holds.
func (it *Iterator) Next() (rowseq.DataPoint, error) {
	if it.inner != nil && it.inner.HasNext() {
		return it.inner.Next()
	}
	if it.rowIndex+1 < it.sp.NumRows() {
		it.rowIndex++
		it.inner = it.sp.RowAt(it.rowIndex).Iterator()
		return it.inner.Next()
	}
	return rowseq.DataPoint{}, qerr.ErrExhausted
}

// Seek resets the iterator to the first point with timestamp >= ts, per
// Span.SeekRow (spec §4.C) followed by seeking the inner iterator within
// that RowSeq.
func (it *Iterator) Seek(ts uint32) {
	if it.sp.NumRows() == 0 {
		return
	}
	it.rowIndex = it.sp.SeekRow(ts)
	it.inner = it.sp.RowAt(it.rowIndex).Iterator()
	it.inner.Seek(ts)
}
