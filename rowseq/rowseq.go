// Package rowseq implements Component B: the parsed, time-ordered point
// sequence of one scanned store row (and its compatible merges), per
// spec §3 and §4.B.
package rowseq

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/SStar1314/opentsdb/rowdata"
	"github.com/SStar1314/opentsdb/rowkey"
)

// MaxTimespan returns 2^(16-flagBits): the widest span of seconds a single
// row's deltas can represent.
func MaxTimespan(flagBits uint) uint32 {
	return 1 << (16 - flagBits)
}

type point struct {
	delta uint32
	flags uint16
	value []byte
}

// RowSeq is the parsed contents of one scanned row (or several merged
// rows): a retained row-key, a decoded base_time, and a packed, strictly
// time-ordered array of points.
type RowSeq struct {
	schema   rowkey.Schema
	flagBits uint

	key      []byte
	baseTime uint32
	points   []point
}

// New returns an empty RowSeq bound to a schema and FLAG_BITS. Callers must
// call SetRow before reading from it.
func New(schema rowkey.Schema, flagBits uint) *RowSeq {
	return &RowSeq{schema: schema, flagBits: flagBits}
}

func (r *RowSeq) floatFlag() uint16   { return 1 << (r.flagBits - 1) }
func (r *RowSeq) lengthMask() uint16  { return r.floatFlag() - 1 }
func (r *RowSeq) deltaShift() uint    { return r.flagBits }

func (r *RowSeq) decodeQualifier(q uint16) (delta uint32, flags uint16) {
	delta = uint32(q >> r.deltaShift())
	flags = q & (uint16(1)<<r.flagBits - 1)
	return
}

// Key returns the retained row-key bytes of the first row folded into this
// RowSeq, for series-identity comparisons.
func (r *RowSeq) Key() []byte { return r.key }

// BaseTime returns the decoded base_time of this RowSeq.
func (r *RowSeq) BaseTime() uint32 { return r.baseTime }

// Size returns the number of points in this RowSeq.
func (r *RowSeq) Size() int { return len(r.points) }

// Timestamp returns base_time + delta_i.
func (r *RowSeq) Timestamp(i int) uint32 { return r.baseTime + r.points[i].delta }

// IsInteger reports whether point i is an integer value.
func (r *RowSeq) IsInteger(i int) bool {
	return r.points[i].flags&r.floatFlag() == 0
}

// LongValue interprets point i as a big-endian signed integer.
func (r *RowSeq) LongValue(i int) (int64, error) {
	p := r.points[i]
	if p.flags&r.floatFlag() != 0 {
		return 0, fmt.Errorf("rowseq: point %d is a float value", i)
	}
	return decodeSignedInt(p.value), nil
}

// DoubleValue interprets point i as an IEEE-754 float (4 or 8 bytes).
func (r *RowSeq) DoubleValue(i int) (float64, error) {
	p := r.points[i]
	if p.flags&r.floatFlag() == 0 {
		return 0, fmt.Errorf("rowseq: point %d is an integer value", i)
	}
	switch len(p.value) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(p.value))), nil
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(p.value)), nil
	default:
		return 0, fmt.Errorf("rowseq: float value has unexpected width %d", len(p.value))
	}
}

// SetRow initialises this RowSeq from a freshly scanned row. The row must
// contain at least one cell, sorted by qualifier ascending.
func (r *RowSeq) SetRow(row rowdata.Row) error {
	if len(r.points) != 0 || r.key != nil {
		return fmt.Errorf("rowseq: SetRow called on a non-empty RowSeq")
	}
	if len(row.Cells) == 0 {
		return fmt.Errorf("rowseq: row has no cells")
	}

	baseTime, err := rowkey.BaseTime(r.schema, row.Key)
	if err != nil {
		return err
	}

	r.key = row.Key
	r.baseTime = baseTime
	r.points = make([]point, 0, len(row.Cells))

	var lastDelta int64 = -1
	for _, c := range row.Cells {
		delta, flags := r.decodeQualifier(c.Qualifier)
		if int64(delta) <= lastDelta {
			return fmt.Errorf("rowseq: cells are not strictly increasing by delta")
		}
		lastDelta = int64(delta)
		r.points = append(r.points, point{delta: delta, flags: flags, value: c.Value})
	}

	return nil
}

// CanMerge reports whether other's cells can be rebased onto this RowSeq's
// base_time without overflowing the representable delta range: every
// merged delta must be strictly less than MaxTimespan(flagBits). other's
// base_time must be strictly greater than this RowSeq's base_time.
func (r *RowSeq) CanMerge(otherBaseTime uint32, otherMaxDelta uint32) bool {
	if otherBaseTime <= r.baseTime {
		return false
	}
	merged := uint64(otherBaseTime-r.baseTime) + uint64(otherMaxDelta)
	return merged < uint64(MaxTimespan(r.flagBits))
}

// AddRow appends cells from another row whose base_time is strictly
// greater than this RowSeq's base_time and whose rebased deltas all fit.
// Callers must check CanMerge first; AddRow re-validates and fails rather
// than silently truncating.
func (r *RowSeq) AddRow(row rowdata.Row) error {
	if len(row.Cells) == 0 {
		return fmt.Errorf("rowseq: row has no cells")
	}

	otherBaseTime, err := rowkey.BaseTime(r.schema, row.Key)
	if err != nil {
		return err
	}

	lastQ := row.Cells[len(row.Cells)-1].Qualifier
	lastDelta, _ := r.decodeQualifier(lastQ)
	if !r.CanMerge(otherBaseTime, lastDelta) {
		return fmt.Errorf("rowseq: row cannot be merged: base_time %d does not fit with existing base_time %d", otherBaseTime, r.baseTime)
	}

	rebase := otherBaseTime - r.baseTime
	lastExisting := int64(-1)
	if len(r.points) > 0 {
		lastExisting = int64(r.points[len(r.points)-1].delta)
	}

	var prevDelta int64 = -1
	for _, c := range row.Cells {
		delta, flags := r.decodeQualifier(c.Qualifier)
		rebased := uint32(rebase) + delta
		if int64(rebased) <= prevDelta {
			return fmt.Errorf("rowseq: merged cells are not strictly increasing by delta")
		}
		prevDelta = int64(rebased)
		if int64(rebased) <= lastExisting {
			return fmt.Errorf("rowseq: merged delta %d does not exceed existing last delta %d", rebased, lastExisting)
		}
		r.points = append(r.points, point{delta: rebased, flags: flags, value: c.Value})
	}

	return nil
}

func decodeSignedInt(b []byte) int64 {
	var v int64
	if len(b) > 0 && b[0]&0x80 != 0 {
		v = -1 // sign-extend
	}
	for _, by := range b {
		v = (v << 8) | int64(by)
	}
	return v
}
