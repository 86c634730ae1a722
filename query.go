// Package opentsdb implements the time-series query core described in
// spec §1-§9: translating a descriptive tag-predicate query into a
// server-side scan over a compact binary row-key schema, materialising
// scanned rows into time-ordered Spans, and grouping those Spans by
// tag value for downstream aggregation.
//
// Everything the core itself does not own — the store client, the
// identifier-interning service, the aggregator function catalogue, rate
// derivation arithmetic, and the HTTP/CLI surfaces — is an external
// collaborator consumed through the intern and scan packages.
package opentsdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/SStar1314/opentsdb/filter"
	"github.com/SStar1314/opentsdb/group"
	"github.com/SStar1314/opentsdb/intern"
	"github.com/SStar1314/opentsdb/qerr"
	"github.com/SStar1314/opentsdb/rowkey"
	"github.com/SStar1314/opentsdb/scan"
	"github.com/SStar1314/opentsdb/span"
)

// tagRequirement is one parsed tag predicate from set_time_series, before
// name/value resolution.
type tagRequirement struct {
	name      string
	literal   string   // set iff this is a literal tag
	whitelist []string // set iff this is a group-by with an explicit value set
	groupBy   bool     // true for "*" or a whitelist; false for a literal
}

// Result is one SpanGroup returned by run(): a group key (empty when the
// query had no group_bys) plus the aggregator identity and rate flag the
// planner attached to it. Invoking the referenced aggregator function is
// outside the query core's scope (spec §1, §6); callers drive Spans'
// iterators themselves.
type Result struct {
	Key        []byte
	Aggregator string
	Rate       bool
	Spans      []*span.Span
}

// Query is a single-shot, single-threaded value (spec §5): mutated only
// by its constructor and setters, logically frozen once run() begins.
type Query struct {
	cfg    *Config
	intern intern.Service
	store  scan.Store
	logger log.Logger

	startTime uint32
	haveStart bool
	endTime   uint32
	haveEnd   bool

	metricID    []byte
	literalTags []rowkey.TagPair
	groupBys    []rowkey.TagPair
	whitelist   map[string][][]byte // keyed by string(name_id)

	aggregator string
	rate       bool
	planned    bool
}

// New returns a Query bound to a configuration, the intern service used
// to resolve names, the store scanned against, and a logger for the
// info-level drop notices spec §4.G calls for.
func New(cfg *Config, svc intern.Service, store scan.Store, logger log.Logger) *Query {
	return &Query{cfg: cfg, intern: svc, store: store, logger: logger}
}

// SetStartTime implements spec §4.D's set_start_time: s must be in
// [1, 2^32) and, if end_time is already set, strictly less than it.
func (q *Query) SetStartTime(s uint32) error {
	if s == 0 {
		return fmt.Errorf("opentsdb: start_time %d: %w", s, qerr.ErrInvalidTimestamp)
	}
	if q.haveEnd && s >= q.endTime {
		return fmt.Errorf("opentsdb: start_time %d >= end_time %d: %w", s, q.endTime, qerr.ErrTimeRangeInvalid)
	}
	q.startTime = s
	q.haveStart = true
	return nil
}

// SetEndTime implements spec §4.D's set_end_time: s must be in
// [1, 2^32) and, if start_time is already set, strictly greater than it.
// Leaving end_time unset defers to run()'s "now" snapshot (see Run).
func (q *Query) SetEndTime(s uint32) error {
	if s == 0 {
		return fmt.Errorf("opentsdb: end_time %d: %w", s, qerr.ErrInvalidTimestamp)
	}
	if q.haveStart && s <= q.startTime {
		return fmt.Errorf("opentsdb: end_time %d <= start_time %d: %w", s, q.startTime, qerr.ErrTimeRangeInvalid)
	}
	q.endTime = s
	q.haveEnd = true
	return nil
}

// SetTimeSeries implements spec §4.D's set_time_series: it separates tags
// into literal-match tags and group-by tags (with an optional value
// whitelist), resolves every name and value to its fixed-width id via the
// intern service, sorts both lists by name_id and asserts (I1).
//
// tags maps a tag name to a value syntax: "*" is an unconstrained
// group-by; a value containing '|' at position >= 1 is a group-by with an
// explicit whitelist (split on '|', at least two entries); anything else
// is a literal tag.
func (q *Query) SetTimeSeries(ctx context.Context, metric string, tags map[string]string, aggregator string, rate bool) error {
	metricID, err := q.intern.ID(ctx, intern.KindMetric, metric)
	if err != nil {
		return &NoSuchNameError{Kind: "metric", Name: metric}
	}

	reqs := make([]tagRequirement, 0, len(tags))
	for name, value := range tags {
		switch {
		case value == "*":
			reqs = append(reqs, tagRequirement{name: name, groupBy: true})
		case strings.IndexByte(value, '|') >= 1:
			// IndexByte >= 1 guarantees at least one '|' with a non-empty
			// prefix, so Split always yields >= 2 entries here.
			parts := strings.Split(value, "|")
			reqs = append(reqs, tagRequirement{name: name, groupBy: true, whitelist: parts})
		default:
			reqs = append(reqs, tagRequirement{name: name, literal: value})
		}
	}

	var literalTags, groupBys []rowkey.TagPair
	whitelist := make(map[string][][]byte)
	seenName := make(map[string]bool)

	for _, r := range reqs {
		nameID, err := q.intern.ID(ctx, intern.KindTagName, r.name)
		if err != nil {
			return &NoSuchNameError{Kind: "tag name", Name: r.name}
		}
		if seenName[string(nameID)] {
			return fmt.Errorf("opentsdb: tag name %q appears more than once: invariant (I1) violated", r.name)
		}
		seenName[string(nameID)] = true

		if r.groupBy {
			groupBys = append(groupBys, rowkey.TagPair{NameID: nameID})
			if len(r.whitelist) > 0 {
				values := make([][]byte, len(r.whitelist))
				for i, v := range r.whitelist {
					valueID, err := q.intern.ID(ctx, intern.KindTagValue, v)
					if err != nil {
						return &NoSuchNameError{Kind: "tag value", Name: v}
					}
					values[i] = valueID
				}
				whitelist[string(nameID)] = values
			}
			continue
		}

		valueID, err := q.intern.ID(ctx, intern.KindTagValue, r.literal)
		if err != nil {
			return &NoSuchNameError{Kind: "tag value", Name: r.literal}
		}
		literalTags = append(literalTags, rowkey.TagPair{NameID: nameID, ValueID: valueID})
	}

	sort.Slice(literalTags, func(i, j int) bool { return string(literalTags[i].NameID) < string(literalTags[j].NameID) })
	sort.Slice(groupBys, func(i, j int) bool { return string(groupBys[i].NameID) < string(groupBys[j].NameID) })

	q.metricID = metricID
	q.literalTags = literalTags
	q.groupBys = groupBys
	q.whitelist = whitelist
	q.aggregator = aggregator
	q.rate = rate
	q.planned = true
	return nil
}

// Run executes the plan (spec §6's run()): builds the filter and scan
// range, drives the scan executor, and assembles the resulting Spans into
// Results. It implements the open question in spec §9 by snapshotting
// end_time fresh as "now" on every call where it was left unset, matching
// the source's lazy-on-read behaviour rather than caching a value set at
// construction time; see DESIGN.md.
func (q *Query) Run(ctx context.Context) ([]Result, error) {
	if !q.planned {
		return nil, fmt.Errorf("opentsdb: run() called before set_time_series")
	}

	start := q.timer()
	defer start()

	queryID := uuid.New()
	logger := log.With(q.logger, "query_id", queryID)

	endTime := q.endTime
	if !q.haveEnd {
		endTime = uint32(time.Now().Unix())
	}
	if q.haveStart && q.startTime >= endTime {
		return nil, fmt.Errorf("opentsdb: start_time %d >= end_time %d: %w", q.startTime, endTime, qerr.ErrTimeRangeInvalid)
	}

	reqs, err := filter.MergeRequirements(q.literalTags, q.groupBys, q.whitelist)
	if err != nil {
		return nil, errors.Wrap(err, "opentsdb: merging filter requirements")
	}

	pattern, err := filter.Build(q.cfg.Schema, reqs)
	if err != nil {
		return nil, errors.Wrap(err, "opentsdb: building filter")
	}

	maxTimespan := uint32(1) << (16 - q.cfg.FlagBits)
	startRow, endRow := scan.Range(q.cfg.Schema, q.metricID, q.startTime, endTime, maxTimespan)

	m, rows, err := scan.Run(ctx, logger, q.store, q.cfg.Schema, q.cfg.FlagBits, q.metricID, startRow, endRow, pattern)
	if err != nil {
		return nil, err
	}
	metricRowsScanned.Add(float64(rows))
	metricQueriesTotal.Inc()

	groupByNames := make([][]byte, len(q.groupBys))
	for i, g := range q.groupBys {
		groupByNames[i] = g.NameID
	}

	groups := group.Assemble(logger, q.cfg.Schema, m.Sorted(), groupByNames, metricSpansDropped)
	if len(groups) == 0 {
		level.Debug(logger).Log("msg", "query returned no groups", "rows_scanned", rows)
	}

	out := make([]Result, len(groups))
	for i, g := range groups {
		out[i] = Result{Key: g.Key, Aggregator: q.aggregator, Rate: q.rate, Spans: g.Spans}
	}
	return out, nil
}

// timer starts the scan-duration histogram observation and returns a
// function that records the elapsed time when deferred.
func (q *Query) timer() func() {
	begin := time.Now()
	return func() { metricScanDuration.Observe(time.Since(begin).Seconds()) }
}
