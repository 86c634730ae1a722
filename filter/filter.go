// Package filter implements Component E: the server-side regular
// expression that selects only rows whose tag section is a superset of a
// query's required (literal and group-by) tag requirements, per spec §4.E.
package filter

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/SStar1314/opentsdb/rowkey"
)

// Requirement is one merged requirement emitted into the filter, built by
// interleaving a query's literal_tags and group_bys in ascending name_id
// order (spec §4.E merge walk). Exactly one of Value or Whitelist is set
// for a group-by requirement with a value constraint; neither is set for
// an unconstrained group-by.
type Requirement struct {
	NameID []byte

	// Literal requirement: Value is the single required value id.
	Value []byte

	// Group-by requirement without a whitelist: both Value and Whitelist
	// are empty; any value id is accepted, but the name must be present.
	Whitelist [][]byte

	// Literal reports whether this requirement came from literal_tags
	// (Value set, exact match) as opposed to group_bys.
	Literal bool
}

// Build produces the regex pattern string matching rows whose tag section
// contains every requirement, regardless of position or interleaving with
// unrequired tags, per the merge walk and pattern template in spec §4.E.
// requirements must already be in ascending name_id order (the two-pointer
// merge of literal_tags and group_bys happens before Build is called, see
// query.go); Build does not re-sort.
func Build(s rowkey.Schema, requirements []Requirement) (string, error) {
	w := s.TagWidth()
	if w <= 0 {
		return "", fmt.Errorf("filter: tag width must be positive")
	}

	// Reserve up front, proportional to (13 + W) * (literals + 3*group_bys),
	// matching the sizing note in spec §4.E. The literal/group-by split is
	// not counted here: every requirement is sized with the 3x factor, an
	// upper bound on that formula; a few reallocations beyond that are harmless.
	var buf bytes.Buffer
	buf.Grow((13 + w) * len(requirements) * 3)

	buf.WriteString(`(?s)^.{`)
	fmt.Fprintf(&buf, "%d", s.WidthMetric+rowkey.TimestampBytes)
	buf.WriteString(`}`)

	prevNameID := []byte(nil)
	for _, r := range requirements {
		if prevNameID != nil && bytes.Equal(prevNameID, r.NameID) {
			return "", fmt.Errorf("filter: duplicate name_id in requirement set, invariant (I1) violated")
		}
		prevNameID = r.NameID

		buf.WriteString(`(?:.{`)
		fmt.Fprintf(&buf, "%d", w)
		buf.WriteString(`})*`)

		switch {
		case r.Value != nil:
			buf.WriteString(`\Q`)
			writeQuoted(&buf, r.NameID)
			writeQuoted(&buf, r.Value)
			buf.WriteString(`\E`)
		case len(r.Whitelist) > 0:
			buf.WriteString(`\Q`)
			writeQuoted(&buf, r.NameID)
			buf.WriteString(`\E(?:`)
			for i, v := range r.Whitelist {
				if i > 0 {
					buf.WriteString(`|`)
				}
				buf.WriteString(`\Q`)
				writeQuoted(&buf, v)
				buf.WriteString(`\E`)
			}
			buf.WriteString(`)`)
		default:
			buf.WriteString(`\Q`)
			writeQuoted(&buf, r.NameID)
			buf.WriteString(`\E.{`)
			fmt.Fprintf(&buf, "%d", w-len(r.NameID))
			buf.WriteString(`}`)
		}
	}

	buf.WriteString(`(?:.{`)
	fmt.Fprintf(&buf, "%d", w)
	buf.WriteString(`})*$`)

	return buf.String(), nil
}

// writeQuoted writes b's bytes into a \Q...\E literal, doubling any
// backslash byte so the quote isn't prematurely terminated.
func writeQuoted(buf *bytes.Buffer, b []byte) {
	for _, c := range b {
		buf.WriteByte(c)
		if c == '\\' {
			buf.WriteByte(c)
		}
	}
}

// MergeRequirements performs the two-pointer merge walk of spec §4.E:
// literalTags and groupBys must each already be sorted by name_id (I2).
// Equal name_id across the two lists is a programming-error-class
// invariant violation (I1) and returns an error rather than silently
// picking one.
func MergeRequirements(literalTags []rowkey.TagPair, groupBys []rowkey.TagPair, whitelists map[string][][]byte) ([]Requirement, error) {
	out := make([]Requirement, 0, len(literalTags)+len(groupBys))

	i, j := 0, 0
	for i < len(literalTags) && j < len(groupBys) {
		cmp := bytes.Compare(literalTags[i].NameID, groupBys[j].NameID)
		switch {
		case cmp < 0:
			out = append(out, Requirement{NameID: literalTags[i].NameID, Value: literalTags[i].ValueID, Literal: true})
			i++
		case cmp > 0:
			out = append(out, groupByRequirement(groupBys[j], whitelists))
			j++
		default:
			return nil, fmt.Errorf("filter: name_id appears in both literal_tags and group_bys, invariant (I1) violated")
		}
	}
	for ; i < len(literalTags); i++ {
		out = append(out, Requirement{NameID: literalTags[i].NameID, Value: literalTags[i].ValueID, Literal: true})
	}
	for ; j < len(groupBys); j++ {
		out = append(out, groupByRequirement(groupBys[j], whitelists))
	}

	return out, nil
}

func groupByRequirement(t rowkey.TagPair, whitelists map[string][][]byte) Requirement {
	if wl, ok := whitelists[string(t.NameID)]; ok {
		sorted := make([][]byte, len(wl))
		copy(sorted, wl)
		sort.Slice(sorted, func(a, b int) bool { return bytes.Compare(sorted[a], sorted[b]) < 0 })
		return Requirement{NameID: t.NameID, Whitelist: sorted}
	}
	return Requirement{NameID: t.NameID}
}
