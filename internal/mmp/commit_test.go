package mmp

import (
	"testing"

	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/pipeline"
)

// buildReeditFixture extends buildFixture with a record for "mythm" itself,
// carrying one essential hypothesis labeled "mythm.1" — the shape a
// re-edit of an already-committed theorem with an essential hypothesis
// takes: the proof-step line "h1::" parses to IsHyp=true, Raw.Name="1" (the
// leading 'h' is consumed into IsHyp, not kept in Name), so a ref-less hyp
// step's synthesized label is "mythm.1", the Metamath convention this
// fixture's existing record is keyed under.
func buildReeditFixture(t *testing.T) *State {
	t.Helper()
	st := buildFixture(t)
	st.Records["mythm"] = &database.TheoremRecord{
		Label:      "mythm",
		Hypotheses: []database.Hypothesis{{Label: "mythm.1", Expression: "wff ph"}},
		Assertion:  "wff ( ph -> ph )",
	}
	return st
}

func TestBuildTheoremRendersAssertionAndHypotheses(t *testing.T) {
	st := buildReeditFixture(t)
	st.Source = "$theorem mythm\nh1:: wff ph\nqed:1:thm wff ( ph -> ph )\n"
	ctx := Parse(st, pipeline.NewCancelFlag())
	if ctx.Diagnostics.HasErrors() {
		for _, e := range ctx.Diagnostics.Errors {
			t.Logf("diagnostic: %v", e)
		}
	}
	if st.Kind != FileTheorem {
		t.Fatalf("expected a theorem file, got kind=%v", st.Kind)
	}

	th, err := BuildTheorem(st)
	if err != nil {
		t.Fatalf("BuildTheorem: %v", err)
	}
	if th.Label != "mythm" {
		t.Fatalf("expected label mythm, got %q", th.Label)
	}
	if th.Assertion != "wff ( ph -> ph )" {
		t.Fatalf("expected assertion %q, got %q", "wff ( ph -> ph )", th.Assertion)
	}
	if th.Proof == nil || *th.Proof != st.Compressed {
		t.Fatalf("expected the committed proof to equal the pipeline's compressed proof, got %v", th.Proof)
	}
	if len(th.Hypotheses) != 1 || th.Hypotheses[0].Label != "mythm.1" {
		t.Fatalf("expected a single essential hypothesis mythm.1, got %+v", th.Hypotheses)
	}
}

func TestBuildTheoremOmitsFloatingHypothesesFromHypotheses(t *testing.T) {
	// "h1" declares a brand-new in-file hypothesis with no matching
	// essential-hypothesis label anywhere in the database (mythm itself
	// is not a pre-existing record here, unlike buildReeditFixture), so
	// per buildHypotheses it must read as floating and be omitted
	// entirely, never surfacing under its synthetic "mythm.1" label.
	src := "$theorem mythm\nh1:: wff ph\nqed:1:thm wff ( ph -> ph )\n"
	st := runPipeline(t, src)

	th, err := BuildTheorem(st)
	if err != nil {
		t.Fatalf("BuildTheorem: %v", err)
	}
	for _, h := range th.Hypotheses {
		if h.Label == "mythm.1" {
			t.Fatalf("expected the undeclared-elsewhere hypothesis to be omitted, got %+v", th.Hypotheses)
		}
	}
}

func TestBuildTheoremRejectsNonTheoremFileKind(t *testing.T) {
	st := buildFixture(t)
	st.Source = "$v newvar\n$locateafter $start\n"
	_ = Parse(st, pipeline.NewCancelFlag())

	if _, err := BuildTheorem(st); err == nil {
		t.Fatal("expected an error building a theorem from a non-theorem/axiom file")
	}
}

func TestBuildTheoremRejectsMissingQedStep(t *testing.T) {
	src := "$theorem mythm\nh1:: wff ph\n"
	st := runPipeline(t, src)

	if _, err := BuildTheorem(st); err == nil {
		t.Fatal("expected an error building a theorem with no qed step")
	}
}
