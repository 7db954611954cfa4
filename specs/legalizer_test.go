package specs

import (
	"testing"

	"github.com/csvcolumns/ingest/internal/infer"
)

func TestLegalizeHeadersNilLegalizerIsIdentity(t *testing.T) {
	legal, sourceOf := LegalizeHeaders([]string{"a", "b", "c"}, nil)
	if len(legal) != 3 || legal[0] != "a" || legal[1] != "b" || legal[2] != "c" {
		t.Fatalf("legal = %v, want [a b c]", legal)
	}
	if len(sourceOf) != 3 || sourceOf[0] != 0 || sourceOf[1] != 1 || sourceOf[2] != 2 {
		t.Fatalf("sourceOf = %v, want [0 1 2]", sourceOf)
	}
}

func TestLegalizeHeadersOneToOne(t *testing.T) {
	legalizer := func(s string) []string { return []string{s + "_ok"} }
	legal, sourceOf := LegalizeHeaders([]string{"a", "b"}, legalizer)
	want := []string{"a_ok", "b_ok"}
	for i, w := range want {
		if legal[i] != w {
			t.Fatalf("legal = %v, want %v", legal, want)
		}
	}
	if sourceOf[0] != 0 || sourceOf[1] != 1 {
		t.Fatalf("sourceOf = %v, want [0 1]", sourceOf)
	}
}

func TestLegalizeHeadersDropsColumnOnEmptyExpansion(t *testing.T) {
	legalizer := func(s string) []string {
		if s == "drop_me" {
			return nil
		}
		return []string{s}
	}
	legal, sourceOf := LegalizeHeaders([]string{"a", "drop_me", "b"}, legalizer)
	if len(legal) != 2 || legal[0] != "a" || legal[1] != "b" {
		t.Fatalf("legal = %v, want [a b]", legal)
	}
	if len(sourceOf) != 2 || sourceOf[0] != 0 || sourceOf[1] != 2 {
		t.Fatalf("sourceOf = %v, want [0 2]", sourceOf)
	}
}

func TestLegalizeHeadersFansOutOneToMany(t *testing.T) {
	legalizer := func(s string) []string {
		if s == "combo" {
			return []string{"combo_x", "combo_y"}
		}
		return []string{s}
	}
	legal, sourceOf := LegalizeHeaders([]string{"a", "combo"}, legalizer)
	want := []string{"a", "combo_x", "combo_y"}
	for i, w := range want {
		if legal[i] != w {
			t.Fatalf("legal = %v, want %v", legal, want)
		}
	}
	wantSrc := []int{0, 1, 1}
	for i, w := range wantSrc {
		if sourceOf[i] != w {
			t.Fatalf("sourceOf = %v, want %v", sourceOf, wantSrc)
		}
	}
}

func TestNullLiteralsForColumnGlobalRuleAppliesEverywhere(t *testing.T) {
	s := CsvSpecs{NullValueLiterals: []NullLiteralRule{{Literal: "NULL"}}}
	for idx, name := range []string{"id", "label"} {
		got := s.NullLiteralsForColumn(idx, name)
		if len(got) != 1 || string(got[0]) != "NULL" {
			t.Fatalf("column %q: got %v, want [NULL]", name, got)
		}
	}
}

func TestNullLiteralsForColumnByNameScopesToThatColumn(t *testing.T) {
	s := CsvSpecs{NullValueLiterals: []NullLiteralRule{{ColumnName: "id", Literal: "NA"}}}
	if got := s.NullLiteralsForColumn(0, "id"); len(got) != 1 || string(got[0]) != "NA" {
		t.Fatalf("column id: got %v, want [NA]", got)
	}
	if got := s.NullLiteralsForColumn(1, "label"); len(got) != 0 {
		t.Fatalf("column label: got %v, want none", got)
	}
}

func TestNullLiteralsForColumnByIndexScopesToThatIndex(t *testing.T) {
	s := CsvSpecs{NullValueLiterals: []NullLiteralRule{{ByIndex: true, ColumnIndex: 1, Literal: "-"}}}
	if got := s.NullLiteralsForColumn(1, "label"); len(got) != 1 || string(got[0]) != "-" {
		t.Fatalf("column index 1: got %v, want [-]", got)
	}
	if got := s.NullLiteralsForColumn(0, "id"); len(got) != 0 {
		t.Fatalf("column index 0: got %v, want none", got)
	}
}

func TestNullLiteralsForColumnCombinesGlobalAndScoped(t *testing.T) {
	s := CsvSpecs{NullValueLiterals: []NullLiteralRule{
		{Literal: "NULL"},
		{ColumnName: "id", Literal: "NA"},
	}}
	got := s.NullLiteralsForColumn(0, "id")
	if len(got) != 2 {
		t.Fatalf("got %v, want both NULL and NA", got)
	}
}

func TestHierarchyForColumnOverrideByNameWins(t *testing.T) {
	s := CsvSpecs{ParserOverrides: []ParserOverride{
		{ColumnName: "id", Hierarchy: []infer.ParserKind{infer.KindLong}},
	}}
	kinds, customAt := s.HierarchyForColumn(0, "id")
	if len(kinds) != 1 || kinds[0] != infer.KindLong {
		t.Fatalf("kinds = %v, want [KindLong]", kinds)
	}
	if len(customAt) != 0 {
		t.Fatalf("customAt = %v, want empty", customAt)
	}
}

func TestHierarchyForColumnOverrideByIndexWins(t *testing.T) {
	s := CsvSpecs{ParserOverrides: []ParserOverride{
		{ByIndex: true, ColumnIndex: 2, Hierarchy: []infer.ParserKind{infer.KindString}},
	}}
	kinds, _ := s.HierarchyForColumn(2, "anything")
	if len(kinds) != 1 || kinds[0] != infer.KindString {
		t.Fatalf("kinds = %v, want [KindString]", kinds)
	}
}

func TestHierarchyForColumnFallsBackToGlobalDefault(t *testing.T) {
	s := CsvSpecs{}
	kinds, _ := s.HierarchyForColumn(0, "id")
	if len(kinds) == 0 {
		t.Fatal("expected non-empty default hierarchy")
	}
	if kinds[0] != infer.KindByte {
		t.Fatalf("kinds[0] = %v, want KindByte (default hierarchy starts narrow)", kinds[0])
	}
}

func TestHierarchyForColumnFallsBackToGlobalPinnedParsers(t *testing.T) {
	s := CsvSpecs{Parsers: []infer.ParserKind{infer.KindInt}}
	kinds, _ := s.HierarchyForColumn(0, "id")
	if len(kinds) != 1 || kinds[0] != infer.KindInt {
		t.Fatalf("kinds = %v, want [KindInt]", kinds)
	}
}
