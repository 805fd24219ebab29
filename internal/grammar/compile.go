package grammar

import (
	"fmt"

	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/symtab"
)

// FromDatabase builds a Grammar deterministically from a fully loaded
// database and its already-built symbol table, appending rules in the
// exact order spec §4.2 names: one synthetic work-variable rule per
// typecode, one floating-hypothesis rule per top-level floating
// hypothesis, then one syntax-axiom rule per proof-free,
// hypothesis-free theorem whose assertion's typecode is syntactic.
// syntacticTypecodes is the environment-supplied classification named in
// spec §4.2's closing line ("syntactic vs. logical typecodes are supplied
// by the environment") — internal/mmsource surfaces it from `$j
// syntaxtypecode` metadata.
func FromDatabase(syms *symtab.Table, root *database.Header, syntacticTypecodes map[string]bool) (*Grammar, error) {
	g := New(syms)

	for tc := symtab.ID(1); int(tc) <= syms.TypecodeCount(); tc++ {
		g.AddWorkVariableRule(tc)
	}

	var declOrder []symtab.ID
	seen := make(map[symtab.ID]struct{})
	for _, el := range database.FloatingHypotheses(root) {
		fh := el.Statement.FloatHyp
		tc, ok := syms.NumberOfTypecode(fh.Typecode)
		if !ok {
			return nil, fmt.Errorf("grammar: floating hypothesis %q names unknown typecode %q", fh.Label, fh.Typecode)
		}
		v, ok := syms.NumberOf(fh.Variable)
		if !ok {
			return nil, fmt.Errorf("grammar: floating hypothesis %q names unknown variable %q", fh.Label, fh.Variable)
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			declOrder = append(declOrder, v)
		}
		g.AddFloatingHypothesisRule(tc, v, fh.Label)
	}

	for _, el := range database.Theorems(root) {
		th := el.Statement.Theorem
		if th.Proof != nil || len(th.Hypotheses) != 0 {
			continue
		}
		toks, err := syms.ParseExpression(th.Assertion)
		if err != nil {
			return nil, fmt.Errorf("grammar: theorem %q: %w", th.Label, err)
		}
		if len(toks) == 0 {
			continue
		}
		head := toks[0]
		if head.IsWorkVariable || !syms.IsTypecode(head.ID) {
			continue
		}
		tcName := syms.DisplayName(head.ID)
		if !syntacticTypecodes[tcName] {
			continue
		}

		rhs := make([]symtab.ID, 0, len(toks)-1)
		var vars []symtab.ID
		for _, s := range toks[1:] {
			if s.IsWorkVariable {
				return nil, fmt.Errorf("grammar: theorem %q: work variable in a syntax-axiom assertion", th.Label)
			}
			if syms.IsVariable(s.ID) {
				tc, _ := syms.TypecodeOf(s.ID)
				rhs = append(rhs, tc)
				vars = append(vars, s.ID)
				continue
			}
			rhs = append(rhs, s.ID)
		}

		// var_order holds, for each floating hypothesis in its own declaration
		// order, the position within vars (i.e. among this rule's variable
		// slots, in the order they occur in rhs) of that hypothesis's
		// variable — the order ParseTree.calc_proof's stack-building walk
		// needs, not the rhs-scan order itself. A floating hypothesis whose
		// variable never occurs in this rule's rhs contributes no entry.
		var varOrder []uint32
		for _, v := range declOrder {
			for i, rv := range vars {
				if rv == v {
					varOrder = append(varOrder, uint32(i))
					break
				}
			}
		}
		g.AddSyntaxAxiomRule(head.ID, rhs, th.Label, varOrder)
	}

	return g, nil
}
