// Package rowkey encodes and decodes the fixed binary row-key layout:
//
//	[ metric_id : W_m ][ base_time : 4, big-endian u32 ][ (name_id : W_n, value_id : W_v) x k ]
//
// Tag pairs are stored in ascending name_id order with no duplicate name_id.
package rowkey

import (
	"encoding/binary"
	"fmt"

	"github.com/SStar1314/opentsdb/qerr"
)

// TimestampBytes is T: the width of the big-endian base_time field.
const TimestampBytes = 4

// Schema carries the intern service's fixed identifier widths. These are
// constant for the life of a process (spec §6) and are looked up once at
// startup.
type Schema struct {
	WidthMetric int
	WidthName   int
	WidthValue  int
}

// TagWidth returns W_n + W_v, the width of one (name_id, value_id) pair.
func (s Schema) TagWidth() int {
	return s.WidthName + s.WidthValue
}

// TagPair is one (name_id, value_id) pair within a row key's tag section.
type TagPair struct {
	NameID  []byte
	ValueID []byte
}

// Encode builds a row key from its parts. tags must already be sorted by
// NameID; Encode does not sort or validate ordering, callers that build
// tags from a Query must uphold (I2) themselves.
func Encode(s Schema, metricID []byte, baseTime uint32, tags []TagPair) ([]byte, error) {
	if len(metricID) != s.WidthMetric {
		return nil, fmt.Errorf("rowkey: metric id is %d bytes, want %d", len(metricID), s.WidthMetric)
	}

	key := make([]byte, s.WidthMetric+TimestampBytes+len(tags)*s.TagWidth())
	off := copy(key, metricID)
	binary.BigEndian.PutUint32(key[off:], baseTime)
	off += TimestampBytes

	for _, t := range tags {
		if len(t.NameID) != s.WidthName || len(t.ValueID) != s.WidthValue {
			return nil, fmt.Errorf("rowkey: tag pair has wrong width")
		}
		off += copy(key[off:], t.NameID)
		off += copy(key[off:], t.ValueID)
	}

	return key, nil
}

// Split decodes a row key into its metric id, base time and tag pairs. It
// fails with a wrapped ErrMalformedKey-class error if the key length is not
// W_m + T + k*(W_n+W_v) for some k >= 0.
func Split(s Schema, key []byte) (metricID []byte, baseTime uint32, tags []TagPair, err error) {
	head := s.WidthMetric + TimestampBytes
	if len(key) < head {
		return nil, 0, nil, fmt.Errorf("rowkey: key of %d bytes shorter than header of %d bytes: %w", len(key), head, qerr.ErrMalformedKey)
	}

	rest := len(key) - head
	tw := s.TagWidth()
	if tw == 0 || rest%tw != 0 {
		return nil, 0, nil, fmt.Errorf("rowkey: tag section of %d bytes is not a multiple of %d: %w", rest, tw, qerr.ErrMalformedKey)
	}

	metricID = key[:s.WidthMetric]
	baseTime = binary.BigEndian.Uint32(key[s.WidthMetric:head])

	k := rest / tw
	tags = make([]TagPair, k)
	off := head
	for i := 0; i < k; i++ {
		tags[i] = TagPair{
			NameID:  key[off : off+s.WidthName],
			ValueID: key[off+s.WidthName : off+tw],
		}
		off += tw
	}

	return metricID, baseTime, tags, nil
}

// BaseTime decodes only the base_time field, without validating or
// decoding the tag section.
func BaseTime(s Schema, key []byte) (uint32, error) {
	head := s.WidthMetric + TimestampBytes
	if len(key) < head {
		return 0, fmt.Errorf("rowkey: key of %d bytes shorter than header of %d bytes: %w", len(key), head, qerr.ErrMalformedKey)
	}
	return binary.BigEndian.Uint32(key[s.WidthMetric:head]), nil
}

// TagBytes returns the raw tag section of a row key: everything after
// metric_id and base_time.
func TagBytes(s Schema, key []byte) ([]byte, error) {
	head := s.WidthMetric + TimestampBytes
	if len(key) < head {
		return nil, fmt.Errorf("rowkey: key of %d bytes shorter than header of %d bytes: %w", len(key), head, qerr.ErrMalformedKey)
	}
	return key[head:], nil
}

// MetricBytes returns the metric_id prefix of a row key.
func MetricBytes(s Schema, key []byte) ([]byte, error) {
	if len(key) < s.WidthMetric {
		return nil, fmt.Errorf("rowkey: key of %d bytes shorter than metric id of %d bytes: %w", len(key), s.WidthMetric, qerr.ErrMalformedKey)
	}
	return key[:s.WidthMetric], nil
}

// WithBaseTime returns a copy of key with its base_time field replaced,
// leaving metric_id and the tag section untouched. Used by the scan
// executor to build scan-range boundary keys from a query's metric id.
func WithBaseTime(s Schema, key []byte, baseTime uint32) []byte {
	out := make([]byte, len(key))
	copy(out, key)
	binary.BigEndian.PutUint32(out[s.WidthMetric:s.WidthMetric+TimestampBytes], baseTime)
	return out
}
