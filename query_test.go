package opentsdb

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SStar1314/opentsdb/intern"
	"github.com/SStar1314/opentsdb/intern/memory"
	"github.com/SStar1314/opentsdb/rowdata"
	"github.com/SStar1314/opentsdb/rowkey"
	"github.com/SStar1314/opentsdb/scan"
)

func qualifier(delta uint32, flagBits uint) uint16 {
	return uint16(delta << flagBits)
}

func intValue(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// fakeScanner and fakeStore replay a fixed row set without touching any
// real store, letting query_test.go exercise Run() end-to-end.
type fakeScanner struct {
	rows []rowdata.Row
	pos  int
}

func (f *fakeScanner) Next(ctx context.Context) (rowdata.Row, bool, error) {
	if f.pos >= len(f.rows) {
		return rowdata.Row{}, false, nil
	}
	r := f.rows[f.pos]
	f.pos++
	return r, true, nil
}

func (f *fakeScanner) Close() error { return nil }

type fakeStore struct {
	rows []rowdata.Row
}

func (f *fakeStore) Scan(ctx context.Context, startRow, endRow []byte, filterPattern string) (scan.Scanner, error) {
	return &fakeScanner{rows: f.rows}, nil
}

func setup(t *testing.T) (*memory.Service, rowkey.Schema) {
	schema := rowkey.Schema{WidthMetric: 3, WidthName: 3, WidthValue: 3}
	svc := memory.New(schema.WidthMetric, schema.WidthName, schema.WidthValue)
	svc.Put(intern.KindMetric, "sys.cpu.user", []byte{0, 0, 1})
	svc.Put(intern.KindTagName, "host", []byte{0, 0, 2})
	svc.Put(intern.KindTagValue, "web01", []byte{0, 0, 5})
	svc.Put(intern.KindTagValue, "web02", []byte{0, 0, 6})
	svc.Put(intern.KindTagName, "dc", []byte{0, 0, 1})
	svc.Put(intern.KindTagValue, "ny", []byte{0, 0, 9})
	return svc, schema
}

// TestRunLiteralOnlyQuery reproduces scenario 1 from spec §8: a single
// literal tag, one scanned row, a Span of size 3.
func TestRunLiteralOnlyQuery(t *testing.T) {
	svc, schema := setup(t)

	key, err := rowkey.Encode(schema, []byte{0, 0, 1}, 1024, []rowkey.TagPair{
		{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 5}},
	})
	require.NoError(t, err)
	row := rowdata.Row{Key: key, Cells: []rowdata.Cell{
		{Qualifier: qualifier(16, 4), Value: intValue(16)},
		{Qualifier: qualifier(32, 4), Value: intValue(32)},
		{Qualifier: qualifier(48, 4), Value: intValue(48)},
	}}
	store := &fakeStore{rows: []rowdata.Row{row}}

	cfg := &Config{FlagBits: 4, Schema: schema, ScanChunkRows: 1000}
	q := New(cfg, svc, store, log.NewNopLogger())

	require.NoError(t, q.SetStartTime(1000))
	require.NoError(t, q.SetEndTime(2000))
	require.NoError(t, q.SetTimeSeries(context.Background(), "sys.cpu.user", map[string]string{"host": "web01"}, "sum", false))

	results, err := q.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Spans, 1)
	assert.Equal(t, 3, results[0].Spans[0].Size())
	assert.Equal(t, uint32(1072), results[0].Spans[0].Timestamp(2))
}

// TestRunGroupByWithWhitelist reproduces scenario 2 from spec §8: a
// literal "dc" tag plus a whitelisted "host" group-by, two rows each
// landing in their own SpanGroup, keys sorted ascending.
func TestRunGroupByWithWhitelist(t *testing.T) {
	svc, schema := setup(t)

	rowFor := func(hostValueID byte) rowdata.Row {
		key, err := rowkey.Encode(schema, []byte{0, 0, 1}, 1024, []rowkey.TagPair{
			{NameID: []byte{0, 0, 1}, ValueID: []byte{0, 0, 9}},
			{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, hostValueID}},
		})
		require.NoError(t, err)
		return rowdata.Row{Key: key, Cells: []rowdata.Cell{{Qualifier: qualifier(1, 4), Value: intValue(1)}}}
	}
	store := &fakeStore{rows: []rowdata.Row{rowFor(5), rowFor(6)}}

	cfg := &Config{FlagBits: 4, Schema: schema, ScanChunkRows: 1000}
	q := New(cfg, svc, store, log.NewNopLogger())

	require.NoError(t, q.SetStartTime(1000))
	require.NoError(t, q.SetEndTime(2000))
	require.NoError(t, q.SetTimeSeries(context.Background(), "sys.cpu.user", map[string]string{
		"dc":   "ny",
		"host": "web01|web02",
	}, "sum", false))

	results, err := q.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []byte{0, 0, 5}, results[0].Key)
	assert.Equal(t, []byte{0, 0, 6}, results[1].Key)
}

func TestRunEmptyQueryReturnsEmptyResults(t *testing.T) {
	svc, schema := setup(t)
	store := &fakeStore{}

	cfg := &Config{FlagBits: 4, Schema: schema, ScanChunkRows: 1000}
	q := New(cfg, svc, store, log.NewNopLogger())

	require.NoError(t, q.SetStartTime(1000))
	require.NoError(t, q.SetEndTime(2000))
	require.NoError(t, q.SetTimeSeries(context.Background(), "sys.cpu.user", map[string]string{"host": "*"}, "sum", false))

	results, err := q.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSetStartTimeRejectsZero(t *testing.T) {
	svc, schema := setup(t)
	cfg := &Config{FlagBits: 4, Schema: schema}
	q := New(cfg, svc, &fakeStore{}, log.NewNopLogger())

	err := q.SetStartTime(0)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestSetStartTimeRejectsInversion(t *testing.T) {
	svc, schema := setup(t)
	cfg := &Config{FlagBits: 4, Schema: schema}
	q := New(cfg, svc, &fakeStore{}, log.NewNopLogger())

	require.NoError(t, q.SetEndTime(1000))
	err := q.SetStartTime(2000)
	assert.ErrorIs(t, err, ErrTimeRangeInvalid)
}

func TestSetTimeSeriesNoSuchMetric(t *testing.T) {
	svc, schema := setup(t)
	cfg := &Config{FlagBits: 4, Schema: schema}
	q := New(cfg, svc, &fakeStore{}, log.NewNopLogger())

	err := q.SetTimeSeries(context.Background(), "no.such.metric", nil, "sum", false)
	require.Error(t, err)
	var nse *NoSuchNameError
	require.ErrorAs(t, err, &nse)
	assert.ErrorIs(t, err, ErrNoSuchName)
}
