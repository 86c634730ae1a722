package span

import (
	"sort"

	"github.com/SStar1314/opentsdb/rowdata"
	"github.com/SStar1314/opentsdb/rowkey"
)

// Map routes scanned rows to the Span for their series, keyed by a
// time-agnostic comparator: metric_id then tag_bytes, skipping the 4
// base_time bytes. Per the design note in spec §9, this is implemented as
// a lookup key built by omitting the timestamp field, not by physically
// zeroing it in the stored keys (those bytes are still needed later to
// extract group-by tag values).
type Map struct {
	schema   rowkey.Schema
	flagBits uint

	spans map[string]*Span
	order []string
}

// NewMap returns an empty Span map bound to a schema and FLAG_BITS.
func NewMap(schema rowkey.Schema, flagBits uint) *Map {
	return &Map{
		schema:   schema,
		flagBits: flagBits,
		spans:    make(map[string]*Span),
	}
}

// AddRow looks up or creates the Span for row's series identity and adds
// row to it.
func (m *Map) AddRow(row rowdata.Row) error {
	metricID, err := rowkey.MetricBytes(m.schema, row.Key)
	if err != nil {
		return err
	}
	tagBytes, err := rowkey.TagBytes(m.schema, row.Key)
	if err != nil {
		return err
	}

	key := string(metricID) + string(tagBytes)
	sp, ok := m.spans[key]
	if !ok {
		sp = New(m.schema, m.flagBits)
		m.spans[key] = sp
		m.order = append(m.order, key)
	}

	return sp.AddRow(row)
}

// Len returns the number of distinct series (Spans) seen so far.
func (m *Map) Len() int { return len(m.spans) }

// Sorted returns the Spans in ascending time-agnostic-key byte order. Go's
// string comparison is byte-wise, and each key is built by concatenating
// metric_id and tag_bytes with no separator and no timestamp, so sorting
// the map's string keys is exactly the comparator spec §9 describes.
func (m *Map) Sorted() []*Span {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	sort.Strings(keys)

	out := make([]*Span, len(keys))
	for i, k := range keys {
		out[i] = m.spans[k]
	}
	return out
}
