package database

import "testing"

func buildSample() *Header {
	root := NewRoot()
	root.Content = append(root.Content, Statement{Kind: KindComment, Comment: "top comment"})
	root.Content = append(root.Content, Statement{Kind: KindConstantGroup, Constants: []string{"(", ")"}})

	sub := Header{Title: "Section 1"}
	sub.Content = append(sub.Content, Statement{Kind: KindVariableGroup, Variables: []string{"x", "y"}})
	sub.Content = append(sub.Content, Statement{
		Kind: KindTheorem,
		Theorem: Theorem{
			Label:     "ax-1",
			Assertion: "wff x",
			Distincts: [][]string{{"x", "y"}},
		},
	})
	root.Subheaders = append(root.Subheaders, sub)
	return root
}

func TestElementsOrder(t *testing.T) {
	root := buildSample()
	els := Elements(root)

	wantKinds := []ElementKind{ElementStatement, ElementStatement, ElementHeader, ElementStatement, ElementStatement}
	if len(els) != len(wantKinds) {
		t.Fatalf("got %d elements, want %d", len(els), len(wantKinds))
	}
	for i, k := range wantKinds {
		if els[i].Kind != k {
			t.Errorf("element %d: kind = %v, want %v", i, els[i].Kind, k)
		}
	}
	if els[2].Depth != 1 {
		t.Errorf("subheader depth = %d, want 1", els[2].Depth)
	}
}

func TestLocateAfterHeader(t *testing.T) {
	root := buildSample()
	rest, err := LocateAfter(root, Anchor{Kind: AnchorHeader, HeaderPath: HeaderPath{Path: []int{0}}})
	if err != nil {
		t.Fatalf("LocateAfter: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("got %d remaining elements, want 2", len(rest))
	}
	if rest[0].Kind != ElementStatement || rest[0].Statement.Kind != KindVariableGroup {
		t.Errorf("first remaining element = %+v, want the variable group", rest[0])
	}
}

func TestLocateAfterNotFound(t *testing.T) {
	root := buildSample()
	_, err := LocateAfter(root, Anchor{Kind: AnchorConstant, Symbol: "nope"})
	if err != ErrAnchorNotFound {
		t.Fatalf("err = %v, want ErrAnchorNotFound", err)
	}
}

func TestDistinctPairsOf(t *testing.T) {
	pairs := DistinctPairsOf([][]string{{"x", "y", "z"}})
	want := []VarPair{{A: "x", B: "y"}, {A: "x", B: "z"}, {A: "y", B: "z"}}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for _, p := range want {
		if _, ok := pairs[p]; !ok {
			t.Errorf("missing pair %+v", p)
		}
	}
}

func TestProofLabelsCompressed(t *testing.T) {
	got := ProofLabels("( wa wb wc ) ABCD")
	want := []string{"wa", "wb", "wc"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProofLabelsUncompressedDedup(t *testing.T) {
	got := ProofLabels("wa wb wa wc wb")
	want := []string{"wa", "wb", "wc"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRecordsDependencyClosure(t *testing.T) {
	root := NewRoot()
	root.Content = []Statement{
		{Kind: KindTheorem, Theorem: Theorem{Label: "ax-1", Assertion: "wff x"}},
		{Kind: KindTheorem, Theorem: Theorem{Label: "thm-1", Assertion: "wff y", Proof: strPtr("ax-1")}},
		{Kind: KindTheorem, Theorem: Theorem{Label: "thm-2", Assertion: "wff z", Proof: strPtr("thm-1")}},
	}

	classify := func(th Theorem) Classification {
		if th.Label == "ax-1" {
			return ClassAxiom
		}
		return ClassTheorem
	}
	recs := Records(root, classify, ProofLabels)

	thm2 := recs["thm-2"]
	if _, ok := thm2.AxiomDependencies["ax-1"]; !ok {
		t.Errorf("thm-2 should transitively depend on ax-1, got %+v", thm2.AxiomDependencies)
	}
	ax1 := recs["ax-1"]
	if len(ax1.ReferencedBy) != 1 || ax1.ReferencedBy[0] != "thm-1" {
		t.Errorf("ax-1.ReferencedBy = %v, want [thm-1]", ax1.ReferencedBy)
	}
}

func strPtr(s string) *string { return &s }
