package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SStar1314/opentsdb/intern"
	"github.com/SStar1314/opentsdb/qerr"
)

func TestIDRoundTrip(t *testing.T) {
	s := New(3, 3, 3)
	s.Put(intern.KindMetric, "sys.cpu.user", []byte{0, 0, 1})

	id, err := s.ID(context.Background(), intern.KindMetric, "sys.cpu.user")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 1}, id)

	name, err := s.Name(context.Background(), intern.KindMetric, []byte{0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, "sys.cpu.user", name)
}

func TestIDMissIsNoSuchName(t *testing.T) {
	s := New(3, 3, 3)

	_, err := s.ID(context.Background(), intern.KindTagName, "host")
	assert.ErrorIs(t, err, qerr.ErrNoSuchName)
}

func TestNameMissIsNoSuchID(t *testing.T) {
	s := New(3, 3, 3)

	_, err := s.Name(context.Background(), intern.KindTagValue, []byte{0, 0, 9})
	assert.ErrorIs(t, err, qerr.ErrNoSuchID)
}

func TestWidth(t *testing.T) {
	s := New(3, 4, 5)
	assert.Equal(t, 3, s.Width(intern.KindMetric))
	assert.Equal(t, 4, s.Width(intern.KindTagName))
	assert.Equal(t, 5, s.Width(intern.KindTagValue))
}
