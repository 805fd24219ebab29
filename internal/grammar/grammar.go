// Package grammar builds and maintains the ordered list of production
// rules described in spec §4.2, plus the precomputed Earley dispatch
// tables consumed by internal/earley.
package grammar

import "github.com/mmverify/mmcore/internal/symtab"

// WorkVariableSentinel is the sentinel right-hand-side symbol (0) of a
// synthetic work-variable rule: "used by the recognizer to accept a work
// variable in place of any sub-tree of the matching typecode" (spec §3).
const WorkVariableSentinel symtab.ID = 0

// WorkVariableLabel is the shared label every synthetic work-variable rule
// carries; these are the one case where rule labels are not unique (spec
// §8 invariant).
const WorkVariableLabel = "WorkVariable"

// Rule is a single grammar production (spec §3): lhs typecode, rhs symbol
// sequence, originating label, the variable-order permutation (positions
// within Rhs of the variable slots, in floating-hypothesis order), and
// whether this is itself a floating-hypothesis rule.
type Rule struct {
	Lhs                 symtab.ID
	Rhs                 []symtab.ID
	Label               string
	VarOrder            []uint32
	IsFloatingHypothesis bool
}

// Grammar owns the rule list plus the dispatch tables the Earley engine
// rebuilds after every insertion.
type Grammar struct {
	Rules []Rule

	// CompleterRules[lhsTc-1][firstRhsTc-1] -> rule indices whose first
	// right-hand symbol is a typecode, grouped by (lhs typecode, first-rhs
	// typecode).
	CompleterRules [][][]int

	// CombinedStatesToAdd[lhsTc-1] -> distinct first-rhs typecodes for
	// that lhs typecode.
	CombinedStatesToAdd [][]symtab.ID

	// SingleStatesToAdd[lhsTc-1][terminalID-T-1] -> rule indices whose
	// first rhs symbol is that terminal (variable or constant).
	SingleStatesToAdd [][][]int

	symbols *symtab.Table
}

func New(symbols *symtab.Table) *Grammar {
	return &Grammar{symbols: symbols}
}

// IsFloatingHypothesis implements parsetree.RuleLookup.
func (g *Grammar) IsFloatingHypothesis(rule int) bool {
	return g.Rules[rule].IsFloatingHypothesis
}

// AddWorkVariableRule appends the synthetic work-variable rule for
// typecode tc (spec §4.2 step 1). Must be called once per typecode before
// any floating-hypothesis or syntax-axiom rule is added, since rule
// indices are positional and the Earley engine's work-variable unwrap
// special case identifies a work-variable rule by Rhs == [sentinel].
func (g *Grammar) AddWorkVariableRule(tc symtab.ID) int {
	idx := len(g.Rules)
	g.Rules = append(g.Rules, Rule{
		Lhs:   tc,
		Rhs:   []symtab.ID{WorkVariableSentinel},
		Label: WorkVariableLabel,
	})
	g.rebuildTables()
	return idx
}

// AddFloatingHypothesisRule appends a floating-hypothesis rule (spec §4.2
// step 2): lhs is the typecode's "$TC" form id, rhs is the single declared
// variable.
func (g *Grammar) AddFloatingHypothesisRule(tc, variable symtab.ID, label string) int {
	idx := len(g.Rules)
	g.Rules = append(g.Rules, Rule{
		Lhs:                 tc,
		Rhs:                 []symtab.ID{variable},
		Label:               label,
		VarOrder:            []uint32{0},
		IsFloatingHypothesis: true,
	})
	g.rebuildTables()
	return idx
}

// AddSyntaxAxiomRule appends a rule derived from a $a-statement theorem
// whose assertion typecode is syntactic and which has no hypotheses and no
// proof (spec §4.2 step 3). varOrder holds, for each variable in
// floating-hypothesis declaration order, that variable's position among
// rhs's variable slots.
func (g *Grammar) AddSyntaxAxiomRule(lhs symtab.ID, rhs []symtab.ID, label string, varOrder []uint32) int {
	idx := len(g.Rules)
	g.Rules = append(g.Rules, Rule{Lhs: lhs, Rhs: rhs, Label: label, VarOrder: varOrder})
	g.rebuildTables()
	return idx
}

// RuleByLabel returns the index of the (unique, except for work-variable
// rules) rule with the given label.
func (g *Grammar) RuleByLabel(label string) (int, bool) {
	for i, r := range g.Rules {
		if r.Label == label && r.Label != WorkVariableLabel {
			return i, true
		}
	}
	return 0, false
}

// rebuildTables rebuilds the three dispatch tables from scratch. Spec §4.2
// requires the tables be rebuilt after every rule insertion and never
// mutated mid-parse (design note §9); for the data sizes Metamath grammars
// reach this is cheap enough to simply redo in full rather than maintain
// incrementally.
func (g *Grammar) rebuildTables() {
	tcCount := g.symbols.TypecodeCount()
	termCount := g.symbols.VariableCount() + g.symbols.ConstantCount()

	completer := make([][][]int, tcCount)
	combined := make([][]symtab.ID, tcCount)
	single := make([][][]int, tcCount)
	combinedSeen := make([]map[symtab.ID]bool, tcCount)
	for i := 0; i < tcCount; i++ {
		completer[i] = make([][]int, tcCount)
		single[i] = make([][]int, termCount)
		combinedSeen[i] = make(map[symtab.ID]bool)
	}

	for ruleIdx, r := range g.Rules {
		if len(r.Rhs) == 0 {
			continue
		}
		first := r.Rhs[0]
		lhsIdx := int(r.Lhs) - 1
		if lhsIdx < 0 || lhsIdx >= tcCount {
			continue
		}
		if g.symbols.IsTypecode(first) {
			firstIdx := int(first) - 1
			if firstIdx < 0 || firstIdx >= tcCount {
				continue
			}
			completer[lhsIdx][firstIdx] = append(completer[lhsIdx][firstIdx], ruleIdx)
			if !combinedSeen[lhsIdx][first] {
				combinedSeen[lhsIdx][first] = true
				combined[lhsIdx] = append(combined[lhsIdx], first)
			}
		} else {
			termIdx := int(first) - tcCount - 1
			if termIdx < 0 || termIdx >= termCount {
				continue
			}
			single[lhsIdx][termIdx] = append(single[lhsIdx][termIdx], ruleIdx)
		}
	}

	g.CompleterRules = completer
	g.CombinedStatesToAdd = combined
	g.SingleStatesToAdd = single
}
