// Package memory provides an in-process intern.Service backed by plain
// Go maps, for use in tests and local development. A production
// deployment would back intern.Service with the same store the points
// data lives in (see store/bigtable), giving names and ids durability and
// cross-process consistency that this package does not provide.
package memory

import (
	"context"
	"sync"

	"github.com/SStar1314/opentsdb/intern"
	"github.com/SStar1314/opentsdb/qerr"
)

// Service is a read-only lookup table over pre-registered name<->id
// pairs. Unlike a production intern service it never allocates an id on a
// miss: queries resolve existing names only (spec §4.D step 2), so a
// lookup miss is always a caller-facing NoSuchName, never an implicit
// write.
type Service struct {
	widths [3]int

	mu   sync.RWMutex
	toID [3]map[string]string // name -> string(id bytes)
	name [3]map[string]string // string(id bytes) -> name
}

// New returns a Service with the given fixed widths for metric, tag name
// and tag value ids respectively.
func New(widthMetric, widthName, widthValue int) *Service {
	s := &Service{widths: [3]int{widthMetric, widthName, widthValue}}
	for i := range s.toID {
		s.toID[i] = make(map[string]string)
		s.name[i] = make(map[string]string)
	}
	return s
}

func (s *Service) Width(kind intern.Kind) int {
	return s.widths[kind]
}

// Put registers a name<->id pair, as a production intern service's write
// path would have done at point-ingest time. Tests use this to seed the
// fixtures a query resolves against.
func (s *Service) Put(kind intern.Kind, name string, id []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.toID[kind][name] = string(id)
	s.name[kind][string(id)] = name
}

// ID resolves name to its previously-registered id.
func (s *Service) ID(ctx context.Context, kind intern.Kind, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.toID[kind][name]
	if !ok {
		return nil, qerr.ErrNoSuchName
	}
	return []byte(id), nil
}

// Name resolves id back to its registered name.
func (s *Service) Name(ctx context.Context, kind intern.Kind, id []byte) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.name[kind][string(id)]
	if !ok {
		return "", qerr.ErrNoSuchID
	}
	return name, nil
}
