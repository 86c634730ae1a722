// Package bigtable adapts Google Cloud Bigtable to the scan.Store
// contract, grounded on the row-scanning and server-side regex-filter
// pattern in the broader example corpus's BigTable-backed trace store
// (ReadRows + RowFilter(ChainFilters(...RowKeyFilter(regex)...))).
package bigtable

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigtable"

	"github.com/SStar1314/opentsdb/qerr"
	"github.com/SStar1314/opentsdb/rowdata"
	"github.com/SStar1314/opentsdb/scan"
)

// PointsFamily is the column family holding encoded data points. Column
// qualifiers within it are the raw 2-byte packed qualifiers from spec §3;
// ReadRows returns a family's columns already sorted by qualifier, which
// satisfies the Store contract's "cells sorted by qualifier ascending"
// requirement without any client-side sort.
const PointsFamily = "t"

// Store is a scan.Store backed by a single Bigtable table.
type Store struct {
	table *bigtable.Table
}

// New wraps an already-opened Bigtable table.
func New(table *bigtable.Table) *Store {
	return &Store{table: table}
}

// Scan opens a range scan over [startRow, endRow), restricted to
// PointsFamily and, when non-empty, filterPattern applied as a
// byte-for-byte row-key regex (spec §4.E, §4.F). Bigtable row keys are
// opaque byte strings, so the binary row-key bytes are used directly as
// Go strings with no transcoding.
func (s *Store) Scan(ctx context.Context, startRow, endRow []byte, filterPattern string) (scan.Scanner, error) {
	filters := []bigtable.Filter{bigtable.FamilyFilter(PointsFamily)}
	if filterPattern != "" {
		filters = append(filters, bigtable.RowKeyFilter(filterPattern))
	}

	rows := make(chan rowOrErr, 64)
	sc := &scanner{rows: rows}

	rr := bigtable.NewRange(string(startRow), string(endRow))

	go func() {
		defer close(rows)
		err := s.table.ReadRows(ctx, rr, func(r bigtable.Row) bool {
			row, convErr := rowFromBigtable(r)
			select {
			case rows <- rowOrErr{row: row, err: convErr}:
			case <-ctx.Done():
				return false
			}
			return convErr == nil
		}, bigtable.RowFilter(bigtable.ChainFilters(filters...)))
		if err != nil {
			select {
			case rows <- rowOrErr{err: fmt.Errorf("bigtable: ReadRows: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return sc, nil
}

type rowOrErr struct {
	row rowdata.Row
	err error
}

type scanner struct {
	rows <-chan rowOrErr
	done bool
}

func (s *scanner) Next(ctx context.Context) (rowdata.Row, bool, error) {
	if s.done {
		return rowdata.Row{}, false, nil
	}
	select {
	case re, ok := <-s.rows:
		if !ok {
			s.done = true
			return rowdata.Row{}, false, nil
		}
		if re.err != nil {
			s.done = true
			return rowdata.Row{}, false, re.err
		}
		return re.row, true, nil
	case <-ctx.Done():
		s.done = true
		return rowdata.Row{}, false, ctx.Err()
	}
}

func (s *scanner) Close() error {
	s.done = true
	return nil
}

// rowFromBigtable converts one Bigtable row into the Store contract's
// rowdata.Row, extracting the raw 2-byte qualifier from each column's name
// (everything after "family:"). A column whose qualifier is not exactly 2
// bytes indicates the table holds data this schema didn't write; surfaced
// as a malformed-key-class error so the scan executor aborts the query
// rather than silently misinterpreting bytes.
func rowFromBigtable(r bigtable.Row) (rowdata.Row, error) {
	items, ok := r[PointsFamily]
	if !ok || len(items) == 0 {
		return rowdata.Row{}, fmt.Errorf("bigtable: row %q has no %s family cells: %w", r.Key(), PointsFamily, qerr.ErrMalformedKey)
	}

	cells := make([]rowdata.Cell, 0, len(items))
	for _, item := range items {
		qualBytes := qualifierBytes(item.Column)
		if len(qualBytes) != 2 {
			return rowdata.Row{}, fmt.Errorf("bigtable: column %q has a %d-byte qualifier, want 2: %w", item.Column, len(qualBytes), qerr.ErrMalformedKey)
		}
		cells = append(cells, rowdata.Cell{
			Qualifier: uint16(qualBytes[0])<<8 | uint16(qualBytes[1]),
			Value:     item.Value,
		})
	}

	return rowdata.Row{Key: []byte(r.Key()), Cells: cells}, nil
}

func qualifierBytes(column string) []byte {
	i := strings.IndexByte(column, ':')
	if i < 0 {
		return []byte(column)
	}
	return []byte(column[i+1:])
}
