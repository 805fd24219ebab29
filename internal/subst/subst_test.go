package subst

import (
	"testing"

	"github.com/mmverify/mmcore/internal/grammar"
	"github.com/mmverify/mmcore/internal/parsetree"
	"github.com/mmverify/mmcore/internal/symtab"
)

// buildGrammar builds: wff typecode, variables p q r s (wff), a binary
// connective rule wff -> ( VAR -> VAR ), and floating-hypothesis rules for
// each variable.
func buildGrammar(t *testing.T) (*grammar.Grammar, map[string]symtab.ID, int) {
	t.Helper()
	b := symtab.NewBuilder()
	wff := b.DeclareTypecode("wff")
	p := b.DeclareVariable("p", wff)
	q := b.DeclareVariable("q", wff)
	r := b.DeclareVariable("r", wff)
	s := b.DeclareVariable("s", wff)
	arrow := b.DeclareConstant("->")
	lp := b.DeclareConstant("(")
	rp := b.DeclareConstant(")")
	table := b.Build()
	_ = table

	g := grammar.New(table)
	g.AddWorkVariableRule(wff)
	fp := g.AddFloatingHypothesisRule(wff, p, "wp")
	fq := g.AddFloatingHypothesisRule(wff, q, "wq")
	_ = g.AddFloatingHypothesisRule(wff, r, "wr")
	_ = g.AddFloatingHypothesisRule(wff, s, "ws")
	implRule := g.AddSyntaxAxiomRule(wff, []symtab.ID{lp, wff, arrow, wff, rp}, "wi", []uint32{0, 1})

	vars := map[string]symtab.ID{"p": p, "q": q, "r": r, "s": s}
	_ = fp
	_ = fq
	return g, vars, implRule
}

func floatNode(ruleIdx int) *parsetree.Node { return parsetree.NewNode(ruleIdx, nil) }

func TestAreSubstitutionsIdenticalTrees(t *testing.T) {
	g, vars, _ := buildGrammar(t)
	fp, _ := g.RuleByLabel("wp")
	tree := floatNode(fp)
	if !AreSubstitutions([]*parsetree.Node{tree}, []*parsetree.Node{tree}, nil, nil, g) {
		t.Error("identical trees should always be substitutions of each other")
	}
	_ = vars
}

func TestAreSubstitutionsInconsistentMappingFails(t *testing.T) {
	g, _, implRule := buildGrammar(t)
	fp, _ := g.RuleByLabel("wp")
	fq, _ := g.RuleByLabel("wq")

	// ( p -> p )
	left := parsetree.NewNode(implRule, []*parsetree.Node{floatNode(fp), floatNode(fp)})
	// ( p -> q ): different rule-structure shape is fine (floating hyp vs
	// floating hyp still substitutes), but the SAME rule_i (fp) used twice
	// on the left must map to equal sub-trees on the right.
	right := parsetree.NewNode(implRule, []*parsetree.Node{floatNode(fp), floatNode(fq)})

	if AreSubstitutions([]*parsetree.Node{left}, []*parsetree.Node{right}, nil, nil, g) {
		t.Error("inconsistent substitution for the same floating-hypothesis rule should fail")
	}
}

func TestAreSubstitutionsConsistentMapping(t *testing.T) {
	g, _, implRule := buildGrammar(t)
	fp, _ := g.RuleByLabel("wp")
	fr, _ := g.RuleByLabel("wr")

	// ( p -> p ) substituted uniformly by r: ( r -> r )
	left := parsetree.NewNode(implRule, []*parsetree.Node{floatNode(fp), floatNode(fp)})
	right := parsetree.NewNode(implRule, []*parsetree.Node{floatNode(fr), floatNode(fr)})

	if !AreSubstitutions([]*parsetree.Node{left}, []*parsetree.Node{right}, nil, nil, g) {
		t.Error("uniform substitution of p -> r should succeed")
	}
}

func TestAreSubstitutionsRespectsDistinctVariables(t *testing.T) {
	g, vars, implRule := buildGrammar(t)
	fp, _ := g.RuleByLabel("wp")
	fq, _ := g.RuleByLabel("wq")
	fr, _ := g.RuleByLabel("wr")

	// Original theorem requires $d p q. Substitute p->r, q->r (collapsing
	// the two distinct variables to the same one): must fail regardless of
	// what the call site declares disjoint.
	left := parsetree.NewNode(implRule, []*parsetree.Node{floatNode(fp), floatNode(fq)})
	right := parsetree.NewNode(implRule, []*parsetree.Node{floatNode(fr), floatNode(fr)})

	distinct := DistinctPairsOf([][]symtab.ID{{vars["p"], vars["q"]}})

	if AreSubstitutions([]*parsetree.Node{left}, []*parsetree.Node{right}, distinct, distinct, g) {
		t.Error("collapsing two $d-disjoint variables to the same substituted variable must fail")
	}

	// Substituting p->r, q->s where r,s are declared disjoint at the call
	// site must succeed.
	fs, _ := g.RuleByLabel("ws")
	right2 := parsetree.NewNode(implRule, []*parsetree.Node{floatNode(fr), floatNode(fs)})
	otherDistinct := DistinctPairsOf([][]symtab.ID{{vars["r"], vars["s"]}})
	if !AreSubstitutions([]*parsetree.Node{left}, []*parsetree.Node{right2}, distinct, otherDistinct, g) {
		t.Error("substituting to two variables the call site also declares disjoint should succeed")
	}
	_ = fs
}

func TestAreSubstitutionsWorkVariableAlwaysFails(t *testing.T) {
	g, _, _ := buildGrammar(t)
	wv := parsetree.NewWorkVariable(parsetree.WorkVariable{Typecode: 1, Base: 2, Number: 1})
	if AreSubstitutions([]*parsetree.Node{wv}, []*parsetree.Node{wv}, nil, nil, g) {
		t.Error("a work variable present in either tree must never be a substitution match")
	}
}

func TestDistinctPairsOfExpandsGroup(t *testing.T) {
	pairs := DistinctPairsOf([][]symtab.ID{{1, 2, 3}})
	want := []VarPair{{1, 2}, {1, 3}, {2, 3}}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for _, w := range want {
		if _, ok := pairs[w]; !ok {
			t.Errorf("missing expected pair %+v", w)
		}
	}
}
