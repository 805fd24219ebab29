package proof

import (
	"fmt"

	"github.com/mmverify/mmcore/internal/symtab"
)

// Hyp is one mandatory hypothesis of an Assertion, in database declaration
// order. A floating hypothesis binds Variable to whatever expression
// occupies its stack slot; an essential hypothesis requires the
// substituted Expression to equal the popped stack entry exactly.
type Hyp struct {
	Label      string
	IsFloating bool
	Variable   symtab.ID // valid when IsFloating
	Expression []symtab.ID
}

// Assertion is everything the verifier needs about one referenced label:
// its mandatory hypotheses, its own (unsubstituted) conclusion body, and
// the mandatory disjoint-variable pairs a substitution applying it must
// respect (spec §4.8).
type Assertion struct {
	Label      string
	Hyps       []Hyp
	Conclusion []symtab.ID
	Distinct   [][2]symtab.ID
}

// Lookup resolves a label to the Assertion it names; ok is false for an
// unknown label.
type Lookup func(label string) (Assertion, bool)

// VerifyUncompressed replays the flat label sequence of an uncompressed (or
// already-decompressed) proof against lookup's assertions, returning the
// final conclusion body on success. ambientDistinct is the proof's own
// complete disjoint-variable closure (spec §4.6), checked against every
// assertion invoked along the way. Grounded on verify.rs's forward
// stack-machine reverse-engineered from Metamath's canonical verification
// algorithm.
func VerifyUncompressed(labels []string, lookup Lookup, syms *symtab.Table, ambientDistinct map[[2]symtab.ID]struct{}) ([]symtab.ID, error) {
	var stack [][]symtab.ID
	for _, lbl := range labels {
		if lbl == "?" {
			return nil, fmt.Errorf("proof: incomplete step ('?') present")
		}
		asn, ok := lookup(lbl)
		if !ok {
			return nil, fmt.Errorf("proof: unknown label %q", lbl)
		}
		if len(stack) < len(asn.Hyps) {
			return nil, fmt.Errorf("proof: stack underflow applying %q", lbl)
		}
		args := stack[len(stack)-len(asn.Hyps):]
		stack = stack[:len(stack)-len(asn.Hyps)]

		subst := make(map[symtab.ID][]symtab.ID)
		for i, h := range asn.Hyps {
			if h.IsFloating {
				subst[h.Variable] = args[i]
				continue
			}
			want := substitute(h.Expression, subst)
			if !equalSeq(want, args[i]) {
				return nil, fmt.Errorf("proof: hypothesis mismatch applying %q", lbl)
			}
		}
		for _, pair := range asn.Distinct {
			if !respectsDistinct(pair, subst, syms, ambientDistinct) {
				return nil, fmt.Errorf("proof: disjoint-variable violation applying %q", lbl)
			}
		}
		stack = append(stack, substitute(asn.Conclusion, subst))
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("proof: does not reduce to a single conclusion")
	}
	return stack[0], nil
}

func substitute(expr []symtab.ID, subst map[symtab.ID][]symtab.ID) []symtab.ID {
	out := make([]symtab.ID, 0, len(expr))
	for _, s := range expr {
		if rep, ok := subst[s]; ok {
			out = append(out, rep...)
			continue
		}
		out = append(out, s)
	}
	return out
}

func equalSeq(a, b []symtab.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func normalizedPair(a, b symtab.ID) [2]symtab.ID {
	if a > b {
		return [2]symtab.ID{b, a}
	}
	return [2]symtab.ID{a, b}
}

// respectsDistinct checks that every distinct pair of variables occurring,
// respectively, in the substituted expressions of pair's two mandatory
// variables is present in ambient (spec §4.6's cross-product disjointness
// requirement), including the case where the two substituted expressions
// share a variable (always a violation).
func respectsDistinct(pair [2]symtab.ID, subst map[symtab.ID][]symtab.ID, syms *symtab.Table, ambient map[[2]symtab.ID]struct{}) bool {
	v1 := variablesIn(subst[pair[0]], syms)
	v2 := variablesIn(subst[pair[1]], syms)
	for _, a := range v1 {
		for _, b := range v2 {
			if a == b {
				return false
			}
			if _, ok := ambient[normalizedPair(a, b)]; !ok {
				return false
			}
		}
	}
	return true
}

// variablesIn extracts the distinct variable ids occurring in expr,
// filtering out constants via the symbol table's own classification.
func variablesIn(expr []symtab.ID, syms *symtab.Table) []symtab.ID {
	seen := make(map[symtab.ID]bool)
	var out []symtab.ID
	for _, id := range expr {
		if !syms.IsVariable(id) || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
