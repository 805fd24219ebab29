package mmsource

import (
	"strings"
	"testing"

	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/pipeline"
)

func mustParse(t *testing.T, src string) (*database.Header, *Metadata) {
	t.Helper()
	root, meta, err := Parse([]byte(src), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return root, meta
}

func TestParseMinimalTheorem(t *testing.T) {
	src := `
		$c wff |- ( -> ) $.
		$v p q $.
		wp $f wff p $.
		wq $f wff q $.
		wi $a wff ( p -> q ) $.
		id $p wff ( p -> p ) $=
			wp wi
		$.
	`
	root, _ := mustParse(t, src)
	elems := database.Theorems(root)
	if len(elems) != 2 {
		t.Fatalf("expected 2 theorems (wi, id), got %d", len(elems))
	}
	th := elems[1].Statement.Theorem
	if th.Label != "id" {
		t.Errorf("label = %q, want id", th.Label)
	}
	if th.Proof == nil {
		t.Fatalf("expected a proof")
	}
}

func TestParseRejectsUnclosedScope(t *testing.T) {
	src := `
		$c wff $.
		${
		$v p $.
	`
	_, _, err := Parse([]byte(src), Options{})
	if err == nil {
		t.Fatal("expected an unclosed-scope error")
	}
}

func TestParseRejectsUnexpectedScopeClose(t *testing.T) {
	src := `$c wff $. $}`
	_, _, err := Parse([]byte(src), Options{})
	if err == nil {
		t.Fatal("expected an unexpected-scope-close error")
	}
}

func TestParseRejectsNonASCII(t *testing.T) {
	_, _, err := Parse([]byte("$c wff é $."), Options{})
	if err == nil {
		t.Fatal("expected a non-ASCII error")
	}
}

func TestParseRejectsConstantOutsideTopLevel(t *testing.T) {
	src := `
		${
		$c wff $.
		$}
	`
	_, _, err := Parse([]byte(src), Options{})
	if err == nil {
		t.Fatal("expected a constant-outside-top-level error")
	}
}

func TestParseRejectsDuplicateVariableInScope(t *testing.T) {
	src := `
		$c wff $.
		$v p $.
		$v p $.
	`
	_, _, err := Parse([]byte(src), Options{})
	if err == nil {
		t.Fatal("expected a variable-already-active error")
	}
}

func TestParseScopedVariableDropsAtClose(t *testing.T) {
	src := `
		$c wff $.
		${
			$v p $.
		$}
		$v p $.
	`
	if _, _, err := Parse([]byte(src), Options{}); err != nil {
		t.Fatalf("expected reuse of p after scope close to succeed: %v", err)
	}
}

func TestParseFloatHypTypecodeConflict(t *testing.T) {
	src := `
		$c wff class $.
		$v p $.
		${
			wp $f wff p $.
		$}
		xp $f class p $.
	`
	_, _, err := Parse([]byte(src), Options{})
	if err == nil {
		t.Fatal("expected a typecode-conflict error for reusing p under a different typecode")
	}
}

func TestParseHeaderNesting(t *testing.T) {
	src := `
		$( #### Top #### $)
		$( =-=- Inner =-=- $)
		$c wff $.
	`
	root, _ := mustParse(t, src)
	if len(root.Subheaders) != 1 || root.Subheaders[0].Title != "Top" {
		t.Fatalf("expected a single top-level header titled Top, got %+v", root.Subheaders)
	}
	top := root.Subheaders[0]
	if len(top.Subheaders) != 1 || top.Subheaders[0].Title != "Inner" {
		t.Fatalf("expected Inner nested under Top, got %+v", top.Subheaders)
	}
	if len(top.Subheaders[0].Content) != 1 {
		t.Fatalf("expected the $c statement under Inner, got %+v", top.Subheaders[0].Content)
	}
}

func TestParseUnclosedHeaderMarker(t *testing.T) {
	_, _, err := Parse([]byte("$( #### Title $)"), Options{})
	if err == nil {
		t.Fatal("expected an unclosed-header error")
	}
}

func TestParseTypesettingDirective(t *testing.T) {
	src := `$( $t htmldef "wff" as "<b>wff</b>" ; $)`
	_, meta := mustParse(t, src)
	if len(meta.HTML) != 1 || meta.HTML[0].Symbol != "wff" || meta.HTML[0].HTML != "<b>wff</b>" {
		t.Fatalf("unexpected html metadata: %+v", meta.HTML)
	}
}

func TestParseTypesettingContinuation(t *testing.T) {
	src := `$( $t htmldef "wff" as "<b>" + "wff</b>" ; $)`
	_, meta := mustParse(t, src)
	if len(meta.HTML) != 1 || meta.HTML[0].HTML != "<b>wff</b>" {
		t.Fatalf("unexpected html metadata: %+v", meta.HTML)
	}
}

func TestParseMetadataVarColor(t *testing.T) {
	src := `$( $j varcolorcode "wff" as "00FF00"; $)`
	_, meta := mustParse(t, src)
	if len(meta.VariableColors) != 1 || meta.VariableColors[0].Color != "00FF00" {
		t.Fatalf("unexpected variable colors: %+v", meta.VariableColors)
	}
}

func TestParseMetadataRejectsBadColor(t *testing.T) {
	_, _, err := Parse([]byte(`$( $j varcolorcode "wff" as "not-a-color"; $)`), Options{})
	if err == nil {
		t.Fatal("expected a typesetting-format error for a non-hex color")
	}
}

func TestParseDisjointRequiresTwoVariables(t *testing.T) {
	src := `
		$c wff $.
		$v p $.
		$d p $.
	`
	_, _, err := Parse([]byte(src), Options{})
	if err == nil {
		t.Fatal("expected a zero-or-one-symbol disjoint error")
	}
}

func TestParseCommentBecomesTheoremDescription(t *testing.T) {
	src := `
		$c wff $.
		$v p $.
		wp $f wff p $.
		$( Reflexivity of implication. $)
		id $a wff p $.
	`
	root, _ := mustParse(t, src)
	elems := database.Theorems(root)
	if len(elems) != 1 {
		t.Fatalf("expected 1 theorem, got %d", len(elems))
	}
	if !strings.Contains(elems[0].Statement.Theorem.Description, "Reflexivity") {
		t.Errorf("description = %q, want it to carry the preceding comment", elems[0].Statement.Theorem.Description)
	}
	// The comment must not also survive as its own top-level statement.
	for _, s := range root.Content {
		if s.Kind == database.KindComment {
			t.Errorf("comment should have been consumed as the theorem's description, found standalone: %q", s.Comment)
		}
	}
}

func TestParseCancelStopsEarly(t *testing.T) {
	cancel := pipeline.NewCancelFlag()
	cancel.Cancel()
	_, _, err := Parse([]byte("$c wff $."), Options{Cancel: cancel})
	if err == nil {
		t.Fatal("expected an open-database-stopped-early error")
	}
}
