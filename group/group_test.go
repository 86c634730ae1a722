package group

import (
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SStar1314/opentsdb/rowdata"
	"github.com/SStar1314/opentsdb/rowkey"
	"github.com/SStar1314/opentsdb/span"
)

func testSchema() rowkey.Schema {
	return rowkey.Schema{WidthMetric: 3, WidthName: 3, WidthValue: 3}
}

func testCounter() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: "test_dropped_total"})
}

func makeSpan(t *testing.T, schema rowkey.Schema, metricID byte, tags []rowkey.TagPair) *span.Span {
	key, err := rowkey.Encode(schema, []byte{0, 0, metricID}, 1000, tags)
	require.NoError(t, err)

	sp := span.New(schema, 4)
	require.NoError(t, sp.AddRow(rowdata.Row{
		Key:   key,
		Cells: []rowdata.Cell{{Qualifier: 0, Value: []byte{0, 0, 0, 0, 0, 0, 0, 1}}},
	}))
	return sp
}

func TestAssembleNoGroupBysReturnsOneGroup(t *testing.T) {
	schema := testSchema()
	tags := []rowkey.TagPair{{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 5}}}
	spans := []*span.Span{makeSpan(t, schema, 1, tags)}

	groups := Assemble(log.NewNopLogger(), schema, spans, nil, nil)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Spans, 1)
}

func TestAssembleGroupsByValue(t *testing.T) {
	schema := testSchema()
	spanA := makeSpan(t, schema, 1, []rowkey.TagPair{
		{NameID: []byte{0, 0, 1}, ValueID: []byte{0, 0, 9}}, // dc=ny (literal, ignored here)
		{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 5}}, // host=web01
	})
	spanB := makeSpan(t, schema, 1, []rowkey.TagPair{
		{NameID: []byte{0, 0, 1}, ValueID: []byte{0, 0, 9}},
		{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 6}}, // host=web02
	})

	groupBys := [][]byte{{0, 0, 2}}
	groups := Assemble(log.NewNopLogger(), schema, []*span.Span{spanA, spanB}, groupBys, nil)

	require.Len(t, groups, 2)
	assert.Equal(t, []byte{0, 0, 5}, groups[0].Key)
	assert.Equal(t, []byte{0, 0, 6}, groups[1].Key)
}

func TestAssembleDropsSpanMissingGroupByTag(t *testing.T) {
	schema := testSchema()
	spanMissing := makeSpan(t, schema, 1, []rowkey.TagPair{
		{NameID: []byte{0, 0, 1}, ValueID: []byte{0, 0, 9}},
	})

	counter := testCounter()
	groups := Assemble(log.NewNopLogger(), schema, []*span.Span{spanMissing}, [][]byte{{0, 0, 2}}, counter)

	assert.Empty(t, groups)
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))
}
