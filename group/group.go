// Package group implements Component G: partitioning Spans into
// SpanGroups by the concatenated tag-value-ids of a query's group-by tag
// names, per spec §4.G.
package group

import (
	"bytes"
	"sort"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/SStar1314/opentsdb/rowkey"
	"github.com/SStar1314/opentsdb/span"
)

// SpanGroup is a set of Spans that share one group key: the concatenation
// of the value_ids corresponding to the query's group-by name_ids, in
// sorted-name order.
type SpanGroup struct {
	Key   []byte
	Spans []*span.Span
}

// Assemble partitions spans (already sorted by the Span map's time-agnostic
// comparator) into SpanGroups. groupBys must be sorted ascending by
// name_id (I2); it may be empty. spansDropped, if non-nil, is incremented
// once per Span dropped because it lacks one of the required group-by
// names.
func Assemble(logger log.Logger, schema rowkey.Schema, spans []*span.Span, groupBys [][]byte, spansDropped prometheus.Counter) []SpanGroup {
	if len(spans) == 0 {
		return nil
	}

	if len(groupBys) == 0 {
		return []SpanGroup{{Spans: spans}}
	}

	byKey := make(map[string]*SpanGroup)
	var order []string

	for _, sp := range spans {
		key, ok := extractGroupKey(schema, sp.TagBytes(), groupBys)
		if !ok {
			level.Info(logger).Log("msg", "dropping span missing a group-by tag", "metric_id", sp.MetricID())
			if spansDropped != nil {
				spansDropped.Inc()
			}
			continue
		}

		g, exists := byKey[string(key)]
		if !exists {
			g = &SpanGroup{Key: key}
			byKey[string(key)] = g
			order = append(order, string(key))
		}
		g.Spans = append(g.Spans, sp)
	}

	sort.Strings(order)

	out := make([]SpanGroup, len(order))
	for i, k := range order {
		out[i] = *byKey[k]
	}
	return out
}

// extractGroupKey performs the two-pointer merge noted in spec §9
// ("Quadratic group extraction"): tagBytes is a sequence of sorted
// (name_id, value_id) pairs and groupBys is a sorted list of required
// name_ids, so both can be walked once in lockstep instead of doing a
// linear scan of tagBytes per group-by name.
func extractGroupKey(schema rowkey.Schema, tagBytes []byte, groupBys [][]byte) ([]byte, bool) {
	w := schema.TagWidth()
	if w == 0 || len(tagBytes)%w != 0 {
		return nil, false
	}
	numTags := len(tagBytes) / w

	key := make([]byte, 0, len(groupBys)*schema.WidthValue)

	gi, ti := 0, 0
	for gi < len(groupBys) {
		if ti >= numTags {
			return nil, false
		}

		off := ti * w
		tagName := tagBytes[off : off+schema.WidthName]

		switch bytes.Compare(tagName, groupBys[gi]) {
		case 0:
			valueOff := off + schema.WidthName
			key = append(key, tagBytes[valueOff:valueOff+schema.WidthValue]...)
			gi++
			ti++
		case -1:
			ti++
		default: // tagName > groupBys[gi]: this group-by name never appears
			return nil, false
		}
	}

	return key, true
}
