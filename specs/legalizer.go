package specs

import "github.com/csvcolumns/ingest/internal/infer"

// LegalizeHeaders applies spec's HeaderLegalizer (if any) to the original
// header names read from the input, expanding each original name into zero
// or more legal output names. original and the returned legal slice are the
// same length only when every legalizer call returns exactly one name,
// which is the common case; a legalizer that returns zero names for an
// input effectively drops that column, and one that returns more than one
// fans a single source column out into several retained columns.
//
// error messages always quote the pre-legalizer name (§6 "User-visible
// messages"), so callers must keep the original alongside the legalized
// one rather than discarding it.
func LegalizeHeaders(original []string, legalizer func(string) []string) (legal []string, sourceOf []int) {
	if legalizer == nil {
		legal = append(legal, original...)
		sourceOf = make([]int, len(original))
		for i := range sourceOf {
			sourceOf[i] = i
		}
		return legal, sourceOf
	}
	for i, name := range original {
		for _, out := range legalizer(name) {
			legal = append(legal, out)
			sourceOf = append(sourceOf, i)
		}
	}
	return legal, sourceOf
}

// NullLiteralsForColumn resolves every literal rule in s that applies to
// the column at idx with the given (pre-legalizer) name: global rules
// (ColumnName == "" and !ByIndex), name-scoped rules, and index-scoped
// rules, returned in the order they appear in NullValueLiterals;
// isNullLiteral in internal/infer checks every entry regardless of order,
// so the ordering here only matters for callers that inspect the slice
// directly.
func (s CsvSpecs) NullLiteralsForColumn(idx int, name string) [][]byte {
	var out [][]byte
	for _, rule := range s.NullValueLiterals {
		switch {
		case rule.ColumnName == "" && !rule.ByIndex:
			out = append(out, []byte(rule.Literal))
		case rule.ByIndex && rule.ColumnIndex == idx:
			out = append(out, []byte(rule.Literal))
		case !rule.ByIndex && rule.ColumnName == name:
			out = append(out, []byte(rule.Literal))
		}
	}
	return out
}

// HierarchyForColumn resolves the parser hierarchy for one column: an
// explicit per-column override wins outright, the first ParserOverrides
// entry matching the column by index or by name taking effect;
// otherwise the global Parsers list (or infer.DefaultHierarchy, with
// CustomParsers spliced in) applies to every column uniformly.
func (s CsvSpecs) HierarchyForColumn(idx int, name string) ([]infer.ParserKind, map[int]infer.CustomParser) {
	for _, o := range s.ParserOverrides {
		if o.ByIndex && o.ColumnIndex == idx {
			return o.Hierarchy, map[int]infer.CustomParser{}
		}
		if !o.ByIndex && o.ColumnName == name {
			return o.Hierarchy, map[int]infer.CustomParser{}
		}
	}
	return infer.BuildHierarchy(s.Parsers, s.CustomParsers, nil)
}
