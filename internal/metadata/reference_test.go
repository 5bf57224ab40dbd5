package metadata

import (
	"testing"

	"github.com/meridiandb/meridian/pkg/types"
)

func testRef(fqn string, position int) *Reference {
	ident := ReferenceIdent{
		Relation: NewRelationName("doc", "events"),
		Column:   FromPath(fqn),
	}
	return NewReference(ident, GranularityDoc, types.String, IndexNotAnalyzed, true, true, position)
}

func TestCompareReferences(t *testing.T) {
	tests := []struct {
		a, b     *Reference
		expected int
	}{
		{testRef("a", 1), testRef("b", 2), -1},
		{testRef("z", 1), testRef("a", 2), -1},
		{testRef("a", 0), testRef("b", 0), -1},
		{testRef("b", 0), testRef("a", 0), 1},
		{testRef("a", 3), testRef("a", 3), 0},
		// Unpositioned columns sort as position zero, ahead of any
		// explicitly positioned column.
		{testRef("z", 0), testRef("a", 1), -1},
	}

	for _, tt := range tests {
		if got := CompareReferences(tt.a, tt.b); got != tt.expected {
			t.Errorf("CompareReferences(%s@%d, %s@%d): expected %d, got %d",
				tt.a.Column().FQN(), tt.a.Position, tt.b.Column().FQN(), tt.b.Position,
				tt.expected, got)
		}
	}
}

func TestSortRefs(t *testing.T) {
	refs := []Ref{
		testRef("mm", 2),
		testRef("zz", 0),
		testRef("aa", 1),
	}
	SortRefs(refs)

	expected := []string{"zz", "aa", "mm"}
	for i, e := range expected {
		if got := refs[i].Base().Column().FQN(); got != e {
			t.Errorf("position %d: expected %s, got %s", i, e, got)
		}
	}
}

func TestGeneratedReferenceResolveOnce(t *testing.T) {
	gen := &GeneratedReference{
		Reference:           *testRef("total", 0),
		FormattedExpression: "price * quantity",
	}

	if _, err := gen.Expression(); err == nil {
		t.Error("expected error before resolution")
	}
	if _, err := gen.ReferencedReferences(); err == nil {
		t.Error("expected error before resolution")
	}

	deps := []*Reference{testRef("price", 0), testRef("quantity", 0)}
	if err := gen.ResolveExpression(nil, deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolved, err := gen.ReferencedReferences()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 2 || resolved[0] != deps[0] {
		t.Errorf("unexpected referenced set: %v", resolved)
	}

	// A second resolution is an error.
	if err := gen.ResolveExpression(nil, nil); err == nil {
		t.Error("expected error on second resolution")
	}
}

func TestIndexReferenceBuilder(t *testing.T) {
	ident := ReferenceIdent{
		Relation: NewRelationName("doc", "events"),
		Column:   NewColumnIdent("fulltext"),
	}
	title := testRef("title", 1)
	body := testRef("body", 2)

	index := NewIndexReferenceBuilder(ident).
		AddColumn(body).
		AddColumn(title).
		Analyzer("english").
		Position(5).
		Build()

	if index.Kind() != RefIndex {
		t.Errorf("expected RefIndex, got %v", index.Kind())
	}
	if index.Type.ID() != types.StringID {
		t.Errorf("expected string type, got %s", index.Type.Name())
	}
	if index.IndexMode != IndexAnalyzed {
		t.Errorf("expected analyzed default, got %v", index.IndexMode)
	}
	if index.Analyzer != "english" || index.Position != 5 {
		t.Errorf("unexpected index: analyzer=%q position=%d", index.Analyzer, index.Position)
	}
	// Build sorts sources into catalog order regardless of insertion
	// order.
	if len(index.Columns) != 2 || index.Columns[0] != title || index.Columns[1] != body {
		t.Errorf("unexpected source columns: %v", index.Columns)
	}

	// A dangling copy_to target freezes into a sourceless index.
	empty := NewIndexReferenceBuilder(ident).Build()
	if len(empty.Columns) != 0 {
		t.Errorf("expected no source columns, got %d", len(empty.Columns))
	}
}

func TestIndexReferenceBuilderSortsSources(t *testing.T) {
	ident := ReferenceIdent{
		Relation: NewRelationName("doc", "events"),
		Column:   NewColumnIdent("fulltext"),
	}

	index := NewIndexReferenceBuilder(ident).
		AddColumn(testRef("e", 0)).
		AddColumn(testRef("c", 2)).
		AddColumn(testRef("a", 0)).
		AddColumn(testRef("d", 1)).
		Build()

	expected := []string{"a", "e", "d", "c"}
	for i, e := range expected {
		if got := index.Columns[i].Column().FQN(); got != e {
			t.Errorf("source %d: expected %s, got %s", i, e, got)
		}
	}
}
