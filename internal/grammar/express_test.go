package grammar

import (
	"testing"

	"github.com/mmverify/mmcore/internal/earley"
	"github.com/mmverify/mmcore/internal/parsetree"
)

func TestToExpressionRoundTripsThroughParse(t *testing.T) {
	syms, g := parseAndBuild(t, wiSource, map[string]bool{"wff": true})

	toks, err := syms.ParseExpression("( ph -> ps )")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	inputs := make([]earley.Input, len(toks))
	for i, tok := range toks {
		inputs[i] = earley.Symbol(tok.ID)
	}

	target, ok := syms.NumberOfTypecode("wff")
	if !ok {
		t.Fatal("expected wff to be a known typecode")
	}
	eng := earley.New(g, syms)
	trees, perr := eng.Parse(inputs, target)
	if perr != nil {
		t.Fatalf("Parse: %v", perr)
	}
	if len(trees) == 0 {
		t.Fatal("expected at least one parse tree")
	}

	ids, err := ToExpression(g, syms, trees[0])
	if err != nil {
		t.Fatalf("ToExpression: %v", err)
	}
	if len(ids) != len(toks) {
		t.Fatalf("expected %d tokens back, got %d", len(toks), len(ids))
	}
	for i, id := range ids {
		if id != toks[i].ID {
			t.Fatalf("token %d: expected %v, got %v", i, toks[i].ID, id)
		}
	}

	text, err := ToExpressionText(g, syms, trees[0], "wff")
	if err != nil {
		t.Fatalf("ToExpressionText: %v", err)
	}
	if text != "wff ( ph -> ps )" {
		t.Fatalf("expected %q, got %q", "wff ( ph -> ps )", text)
	}
}

func TestToExpressionRejectsUnresolvedWorkVariable(t *testing.T) {
	syms, g := parseAndBuild(t, wiSource, map[string]bool{"wff": true})
	wff, _ := syms.NumberOfTypecode("wff")
	ph, _ := syms.NumberOf("ph")
	n := parsetree.NewWorkVariable(parsetree.WorkVariable{Typecode: wff, Base: ph, Number: 0})
	if _, err := ToExpression(g, syms, n); err == nil {
		t.Fatal("expected an error rendering an unresolved work variable")
	}
}
