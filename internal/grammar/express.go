package grammar

import (
	"fmt"
	"strings"

	"github.com/mmverify/mmcore/internal/parsetree"
	"github.com/mmverify/mmcore/internal/symtab"
)

// ToExpression renders a resolved parse tree back to the flat token
// sequence its grammar rule's rhs encodes: a constant position in rhs
// contributes its own literal symbol, a variable-slot position (the rhs
// entries that hold that slot's typecode id rather than a literal symbol,
// per FromDatabase's rhs construction) contributes, in order, the next
// child's own rendering. Every constant/variable-slot distinction this
// walks is exactly the one internal/grammar's own rule-building loop
// creates, so no separate encoding needs grounding of its own; the overall
// shape mirrors original_source/src-tauri/src/model.rs's
// expression_to_number_vec family of "walk tokens, substitute typecodes for
// variables" conversions, run in reverse. n must carry no unresolved work
// variables — spec §4.7's "proof editing" work-variable mechanism exists to
// be resolved away (Stage 5) before a proof is ever committed.
func ToExpression(g *Grammar, syms *symtab.Table, n *parsetree.Node) ([]symtab.ID, error) {
	if n == nil {
		return nil, fmt.Errorf("grammar: nil parse-tree node")
	}
	if n.IsWorkVariable {
		return nil, fmt.Errorf("grammar: cannot render an unresolved work variable to an expression")
	}
	if n.Rule < 0 || n.Rule >= len(g.Rules) {
		return nil, fmt.Errorf("grammar: parse-tree node references unknown rule %d", n.Rule)
	}
	rule := g.Rules[n.Rule]

	var out []symtab.ID
	childIdx := 0
	for _, sym := range rule.Rhs {
		if !syms.IsTypecode(sym) {
			out = append(out, sym)
			continue
		}
		if childIdx >= len(n.Children) {
			return nil, fmt.Errorf("grammar: parse-tree node for rule %q is missing a child for its %dth variable slot", rule.Label, childIdx)
		}
		sub, err := ToExpression(g, syms, n.Children[childIdx])
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
		childIdx++
	}
	return out, nil
}

// ToExpressionText renders n the same way ToExpression does, joined into
// the whitespace-separated surface form a database statement's Assertion
// or Hypothesis.Expression carries, prefixed with leadingTypecode (the
// token the MMP source actually wrote before the body — a syntactic
// typecode's own name, or a logical typecode's name such as "|-" — which
// the parse tree itself never carries since Stage 4 strips it before
// parsing the body against the resolved typecode).
func ToExpressionText(g *Grammar, syms *symtab.Table, n *parsetree.Node, leadingTypecode string) (string, error) {
	ids, err := ToExpression(g, syms, n)
	if err != nil {
		return "", err
	}
	toks := make([]string, 0, len(ids)+1)
	toks = append(toks, leadingTypecode)
	for _, id := range ids {
		toks = append(toks, syms.DisplayName(id))
	}
	return strings.Join(toks, " "), nil
}
