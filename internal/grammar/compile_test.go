package grammar

import (
	"testing"

	"github.com/mmverify/mmcore/internal/mmsource"
	"github.com/mmverify/mmcore/internal/symtab"
)

func parseAndBuild(t *testing.T, src string, syntactic map[string]bool) (*symtab.Table, *Grammar) {
	t.Helper()
	root, _, derr := mmsource.Parse([]byte(src), mmsource.Options{})
	if derr != nil {
		t.Fatalf("parse: %v", derr)
	}
	syms, err := symtab.FromDatabase(root)
	if err != nil {
		t.Fatalf("symtab.FromDatabase: %v", err)
	}
	g, err := FromDatabase(syms, root, syntactic)
	if err != nil {
		t.Fatalf("FromDatabase: %v", err)
	}
	return syms, g
}

const wiSource = `$c wff ( -> $.
$v ph ps $.
wph $f wff ph $.
wps $f wff ps $.
wi $a wff ( ph -> ps ) $.
`

func TestFromDatabaseAddsOneWorkVariableRulePerTypecode(t *testing.T) {
	syms, g := parseAndBuild(t, wiSource, map[string]bool{"wff": true})
	count := 0
	for _, r := range g.Rules {
		if r.Label == WorkVariableLabel {
			count++
		}
	}
	if count != syms.TypecodeCount() {
		t.Fatalf("expected %d work-variable rules, got %d", syms.TypecodeCount(), count)
	}
}

func TestFromDatabaseAddsFloatingHypothesisRules(t *testing.T) {
	_, g := parseAndBuild(t, wiSource, map[string]bool{"wff": true})
	var floats []Rule
	for _, r := range g.Rules {
		if r.IsFloatingHypothesis {
			floats = append(floats, r)
		}
	}
	if len(floats) != 2 {
		t.Fatalf("expected 2 floating-hypothesis rules (wph, wps), got %d", len(floats))
	}
}

func TestFromDatabaseAddsSyntaxAxiomRuleForSyntacticTypecode(t *testing.T) {
	_, g := parseAndBuild(t, wiSource, map[string]bool{"wff": true})
	found := false
	for _, r := range g.Rules {
		if r.Label == "wi" {
			found = true
			if len(r.Rhs) != 5 {
				t.Fatalf("expected wi's rule to carry 5 rhs symbols (the assertion's tokens after its leading typecode: ( ph -> ps )), got %d", len(r.Rhs))
			}
		}
	}
	if !found {
		t.Fatal("expected a grammar rule labeled wi")
	}
}

func TestFromDatabaseVarOrderIndexesByDeclarationOrderValuesByRhsPosition(t *testing.T) {
	// ps is declared (floating hypothesis wps) before ph, but wi's rhs uses
	// ph before ps: var_order must hold, for each variable in declaration
	// order (ps, then ph), that variable's position among wi's rhs variable
	// slots (ph is slot 0, ps is slot 1) — i.e. [1, 0], not the rhs-scan
	// order itself.
	const src = `$c wff ( -> $.
$v ps ph $.
wps $f wff ps $.
wph $f wff ph $.
wi $a wff ( ph -> ps ) $.
`
	_, g := parseAndBuild(t, src, map[string]bool{"wff": true})
	for _, r := range g.Rules {
		if r.Label != "wi" {
			continue
		}
		if len(r.VarOrder) != 2 || r.VarOrder[0] != 1 || r.VarOrder[1] != 0 {
			t.Fatalf("expected var_order [1 0], got %v", r.VarOrder)
		}
		return
	}
	t.Fatal("expected a grammar rule labeled wi")
}

func TestFromDatabaseSkipsTheoremsHeadedByALogicalTypecode(t *testing.T) {
	const src = `$( $j syntaxtypecode "wff" ; logicaltypecode "|-" as "wff" ; $)
$c wff ( -> |- $.
$v ph $.
wph $f wff ph $.
ax-id $a |- ph $.
`
	_, g := parseAndBuild(t, src, map[string]bool{"wff": true})
	for _, r := range g.Rules {
		if r.Label == "ax-id" {
			t.Fatal("expected no grammar rule for a theorem headed by a logical typecode")
		}
	}
}

func TestFromDatabaseSkipsTheoremsWithHypotheses(t *testing.T) {
	const src = `$c wff ( -> $.
$v ph ps $.
wph $f wff ph $.
wps $f wff ps $.
wi $a wff ( ph -> ps ) $.
${
	ax-id.1 $e wff ph $.
	ax-mp $a wff ps $.
$}
`
	_, g := parseAndBuild(t, src, map[string]bool{"wff": true})
	for _, r := range g.Rules {
		if r.Label == "ax-mp" {
			t.Fatal("expected no grammar rule for a theorem carrying essential hypotheses")
		}
	}
}
