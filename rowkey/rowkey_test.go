package rowkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{WidthMetric: 3, WidthName: 3, WidthValue: 3}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := testSchema()
	tags := []TagPair{
		{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 5}},
		{NameID: []byte{0, 0, 9}, ValueID: []byte{0, 1, 0}},
	}

	key, err := Encode(s, []byte{0, 0, 1}, 1024, tags)
	require.NoError(t, err)

	metricID, baseTime, gotTags, err := Split(s, key)
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 1}, metricID)
	assert.Equal(t, uint32(1024), baseTime)
	assert.Equal(t, tags, gotTags)

	reencoded, err := Encode(s, metricID, baseTime, gotTags)
	require.NoError(t, err)
	assert.Equal(t, key, reencoded)
}

func TestSplitMalformedKey(t *testing.T) {
	s := testSchema()

	_, _, _, err := Split(s, []byte{0, 0, 1, 0, 0, 0}) // too short for header
	assert.Error(t, err)

	_, _, _, err = Split(s, []byte{0, 0, 1, 0, 0, 0, 0, 1, 2}) // tag section not a multiple of 6
	assert.Error(t, err)
}

func TestBaseTimeAndTagBytes(t *testing.T) {
	s := testSchema()
	tags := []TagPair{{NameID: []byte{0, 0, 2}, ValueID: []byte{0, 0, 5}}}
	key, err := Encode(s, []byte{0, 0, 1}, 42, tags)
	require.NoError(t, err)

	bt, err := BaseTime(s, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), bt)

	tb, err := TagBytes(s, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 2, 0, 0, 5}, tb)

	mb, err := MetricBytes(s, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 1}, mb)
}

func TestWithBaseTime(t *testing.T) {
	s := testSchema()
	key, err := Encode(s, []byte{0, 0, 1}, 100, nil)
	require.NoError(t, err)

	rekeyed := WithBaseTime(s, key, 200)
	bt, err := BaseTime(s, rekeyed)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), bt)

	// original untouched
	bt0, err := BaseTime(s, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), bt0)
}
