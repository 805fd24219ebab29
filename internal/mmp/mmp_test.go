package mmp

import (
	"testing"

	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/grammar"
	"github.com/mmverify/mmcore/internal/pipeline"
	"github.com/mmverify/mmcore/internal/symtab"
)

// buildFixture builds a minimal wff/ph/ps/-> grammar plus a single theorem
// record "thm" whose sole mandatory hypothesis is the floating hypothesis
// on ph and whose assertion is "wff ( ph -> ph )", enough to exercise
// Stage 4/5's hypothesis-matching and unification end to end.
func buildFixture(t *testing.T) *State {
	t.Helper()
	b := symtab.NewBuilder()
	wff := b.DeclareTypecode("wff")
	ph := b.DeclareVariable("ph", wff)
	ps := b.DeclareVariable("ps", wff)
	lp := b.DeclareConstant("(")
	arrow := b.DeclareConstant("->")
	rp := b.DeclareConstant(")")
	table := b.Build()

	g := grammar.New(table)
	g.AddWorkVariableRule(wff)
	g.AddFloatingHypothesisRule(wff, ph, "wph")
	g.AddFloatingHypothesisRule(wff, ps, "wps")
	g.AddSyntaxAxiomRule(wff, []symtab.ID{lp, wff, arrow, wff, rp}, "wi", []uint32{0, 1})

	records := map[string]*database.TheoremRecord{
		"thm": {
			Label:          "thm",
			Classification: database.ClassAxiom,
			Hypotheses:     []database.Hypothesis{{Label: "wph", Expression: "wff ph"}},
			Assertion:      "wff ( ph -> ph )",
		},
	}

	return &State{
		Symbols: table,
		Grammar: g,
		Records: records,
	}
}

func runPipeline(t *testing.T, source string) *State {
	t.Helper()
	st := buildFixture(t)
	st.Source = source
	ctx := Parse(st, pipeline.NewCancelFlag())
	if ctx.Diagnostics.HasErrors() {
		for _, e := range ctx.Diagnostics.Errors {
			t.Logf("diagnostic: %v", e)
		}
	}
	return st
}

func TestPipelineUnifiesSimpleTheorem(t *testing.T) {
	src := "$theorem mythm\nh1:: wff ps\nqed:1:thm wff ( ps -> ps )\n"
	st := runPipeline(t, src)

	if st.Kind != FileTheorem || st.TheoremLabel != "mythm" {
		t.Fatalf("expected a theorem file for mythm, got kind=%v label=%q", st.Kind, st.TheoremLabel)
	}
	if len(st.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(st.Steps))
	}
	qed := st.Steps[1]
	if qed.Status.Kind != StatusCorrect {
		t.Fatalf("expected qed step to unify as Correct, got %+v", qed.Status)
	}
	if st.Uncompressed == "" {
		t.Fatal("expected a non-empty uncompressed proof string")
	}
	if st.ProofTree == nil || st.ProofTree.Label != "thm" {
		t.Fatalf("expected a proof tree rooted at thm, got %+v", st.ProofTree)
	}
}

func TestPipelineFlagsUnresolvedRef(t *testing.T) {
	src := "$theorem mythm\nh1:: wff ps\nqed:1:nosuchlabel wff ps\n"
	st := runPipeline(t, src)

	if len(st.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(st.Steps))
	}
	qed := st.Steps[1]
	if qed.Status.Kind != StatusErr || !qed.Status.Flags.Ref {
		t.Fatalf("expected qed to carry a Ref error, got %+v", qed.Status)
	}
}

func TestPipelineFlagsDuplicateStepName(t *testing.T) {
	src := "$theorem mythm\nh1:: wff ps\nh1:: wff ph\nqed:1:thm wff ( ps -> ps )\n"
	st := runPipeline(t, src)

	dupFound := false
	for i, s := range st.Steps {
		if i > 0 && s.Status.Kind == StatusErr && s.Status.Flags.StepName {
			dupFound = true
		}
	}
	if !dupFound {
		t.Fatal("expected a duplicate step-name error on the second 'h1' step")
	}
}

func TestPipelineLocateAfterStart(t *testing.T) {
	st := buildFixture(t)
	st.Source = "$v newvar\n$locateafter $start\n"
	ctx := Parse(st, pipeline.NewCancelFlag())

	if st.LocateAfter == nil || st.LocateAfter.Kind != database.AnchorStart {
		t.Fatalf("expected LocateAfter to resolve to AnchorStart, got %+v", st.LocateAfter)
	}
	foundAtStart := false
	for _, e := range ctx.Diagnostics.Errors {
		if string(e.Code) == "MmpLocateAfterAtStart" {
			foundAtStart = true
		}
	}
	if !foundAtStart {
		t.Fatal("expected the MmpLocateAfterAtStart informational diagnostic")
	}
}
