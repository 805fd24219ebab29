// Package subst implements the substitution-matching engine of spec §4.6:
// deciding whether one list of parse trees is obtainable from another by a
// single consistent variable substitution, honoring any disjoint-variable
// constraints declared on either side. Grounded on
// model.rs::are_substitutions (src-tauri/src/model.rs) — a near-literal
// port from ParseTreeNode matching over HashMap<u32, &ParseTreeNode> to
// the same walk over *parsetree.Node keyed by grammar rule index.
package subst

import (
	"github.com/mmverify/mmcore/internal/grammar"
	"github.com/mmverify/mmcore/internal/parsetree"
	"github.com/mmverify/mmcore/internal/symtab"
)

// VarPair is an unordered pair of variable symbols, normalized so A <= B,
// matching database.VarPair's normalization but keyed by symtab.ID since
// this package works below the source-text layer.
type VarPair struct {
	A, B symtab.ID
}

// Normalize returns p with its components ordered so A <= B.
func (p VarPair) Normalize() VarPair {
	if p.A > p.B {
		return VarPair{A: p.B, B: p.A}
	}
	return p
}

type pending struct {
	subtree      *parsetree.Node
	otherSubtree *parsetree.Node
}

// AreSubstitutions reports whether otherTrees is obtainable from trees by a
// single substitution of floating-hypothesis variables for sub-trees,
// honoring distinctVars (trees' own $d constraints) against
// otherDistinctVars (the constraints declared at the call site otherTrees
// came from). Work variables anywhere in either side always make this
// false: a work variable stands for an unknown sub-tree, and is never
// itself a valid substitution target or result.
func AreSubstitutions(
	trees, otherTrees []*parsetree.Node,
	distinctVars, otherDistinctVars map[VarPair]struct{},
	g *grammar.Grammar,
) bool {
	if len(trees) != len(otherTrees) {
		return false
	}
	for _, t := range trees {
		if t.HasWorkVariables() {
			return false
		}
	}
	for _, t := range otherTrees {
		if t.HasWorkVariables() {
			return false
		}
	}

	substitutions := make(map[int]*parsetree.Node)

	check := make([]pending, 0, len(trees))
	for i := range trees {
		check = append(check, pending{subtree: trees[i], otherSubtree: otherTrees[i]})
	}

	for len(check) > 0 {
		last := len(check) - 1
		cur := check[last]
		check = check[:last]

		subtree, otherSubtree := cur.subtree, cur.otherSubtree
		if subtree.IsWorkVariable || otherSubtree.IsWorkVariable {
			return false
		}

		ruleI := subtree.Rule
		otherRuleI := otherSubtree.Rule
		if ruleI < 0 || ruleI >= len(g.Rules) || otherRuleI < 0 || otherRuleI >= len(g.Rules) {
			return false
		}
		rule := g.Rules[ruleI]
		otherRule := g.Rules[otherRuleI]

		if rule.IsFloatingHypothesis {
			if existing, ok := substitutions[ruleI]; ok {
				if !existing.Equal(otherSubtree) {
					return false
				}
			} else if rule.Lhs == otherRule.Lhs {
				substitutions[ruleI] = otherSubtree
			} else {
				return false
			}
			continue
		}

		if ruleI != otherRuleI || len(subtree.Children) != len(otherSubtree.Children) {
			return false
		}
		for i := range subtree.Children {
			check = append(check, pending{subtree: subtree.Children[i], otherSubtree: otherSubtree.Children[i]})
		}
	}

	if len(distinctVars) == 0 {
		return true
	}

	// substitutionVars[variable] is the set of floating-hypothesis rule
	// indices occurring within whatever sub-tree got substituted for
	// variable, i.e. the variables actually used in its replacement.
	substitutionVars := make(map[symtab.ID]map[int]struct{})
	for ruleI, subbed := range substitutions {
		rule := g.Rules[ruleI]
		if len(rule.Rhs) == 0 {
			continue
		}
		variable := rule.Rhs[0]
		substitutionVars[variable] = subbed.FloatingHypothesisRules(g)
	}

	for pair := range distinctVars {
		var1Vars, ok1 := substitutionVars[pair.A]
		var2Vars, ok2 := substitutionVars[pair.B]
		if !ok1 || !ok2 {
			continue
		}
		for v1 := range var1Vars {
			for v2 := range var2Vars {
				if v1 == v2 {
					return false
				}
				resultPair := VarPair{A: ruleVariable(g, v1), B: ruleVariable(g, v2)}.Normalize()
				if _, ok := otherDistinctVars[resultPair]; !ok {
					return false
				}
			}
		}
	}

	return true
}

// ruleVariable returns the floating-hypothesis rule's declared variable.
func ruleVariable(g *grammar.Grammar, ruleI int) symtab.ID {
	if ruleI < 0 || ruleI >= len(g.Rules) || len(g.Rules[ruleI].Rhs) == 0 {
		return 0
	}
	return g.Rules[ruleI].Rhs[0]
}

// DistinctPairsOf expands a list of $d clauses (each a list of >= 2
// variable ids forming a mutually-disjoint group) into the set of
// unordered pairs it implies, mirroring util::calc_distinct_variable_pairs.
func DistinctPairsOf(clauses [][]symtab.ID) map[VarPair]struct{} {
	out := make(map[VarPair]struct{})
	for _, clause := range clauses {
		for _, a := range clause {
			for _, b := range clause {
				if a == b {
					continue
				}
				out[VarPair{A: a, B: b}.Normalize()] = struct{}{}
			}
		}
	}
	return out
}
