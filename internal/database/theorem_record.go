package database

import "strings"

// Classification is the kind an optimised theorem record falls into (spec
// §3), derived from whether it carries a proof and whether it was folded
// into the grammar as a syntax rule.
type Classification int

const (
	ClassTheorem Classification = iota
	ClassAxiom
	ClassDefinition
	ClassSyntaxAxiom
)

// VarPair is an unordered pair of distinct-variable names; Normalize
// orders it so (a, b) and (b, a) hash identically.
type VarPair struct {
	A, B string
}

func (p VarPair) Normalize() VarPair {
	if p.A > p.B {
		return VarPair{A: p.B, B: p.A}
	}
	return p
}

// TheoremRecord is the "optimised per-theorem record" of spec §3,
// populated once per theorem in source order so that each record only
// consults predecessors' already-closed dependency sets.
type TheoremRecord struct {
	Label          string
	Classification Classification

	// Hypotheses/Assertion are the theorem's own essential hypotheses and
	// assertion text, copied for every record, syntax axioms included; no
	// parsed form is stored here.
	Hypotheses []Hypothesis
	Assertion  string

	DistinctPairs map[VarPair]struct{}

	// AxiomDependencies/DefinitionDependencies are the transitive closure,
	// over the proof's label references, of axioms/definitions the
	// theorem rests on.
	AxiomDependencies      map[string]struct{}
	DefinitionDependencies map[string]struct{}

	// ReferencedBy lists, in the order discovered, every later theorem's
	// label that cites this one in its proof.
	ReferencedBy []string

	RenderedDescription string
}

// DistinctPairsOf mirrors util::calc_distinct_variable_pairs: the closed
// set of unordered variable pairs named by any of a theorem's
// disjoint-variable clauses.
func DistinctPairsOf(clauses [][]string) map[VarPair]struct{} {
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

// Records builds the full, source-ordered set of optimised theorem
// records for root. classify decides, for a theorem with no proof,
// whether it is an Axiom or a Definition (spec leaves this to the
// database's typecode policy rather than the tree itself); proofLabels
// extracts the ordered, de-duplicated label references of a proof's text,
// in either compressed or uncompressed form.
func Records(root *Header, classify func(Theorem) Classification, proofLabels func(proof string) []string) map[string]*TheoremRecord {
	out := make(map[string]*TheoremRecord)
	order := make([]string, 0)

	for _, el := range Theorems(root) {
		th := el.Statement.Theorem
		rec := &TheoremRecord{
			Label:                  th.Label,
			Hypotheses:             th.Hypotheses,
			Assertion:              th.Assertion,
			DistinctPairs:          DistinctPairsOf(th.Distincts),
			AxiomDependencies:      make(map[string]struct{}),
			DefinitionDependencies: make(map[string]struct{}),
			RenderedDescription:    renderDescription(th.Description),
		}

		if th.Proof == nil {
			rec.Classification = classify(th)
			switch rec.Classification {
			case ClassAxiom:
				rec.AxiomDependencies[th.Label] = struct{}{}
			case ClassDefinition:
				rec.DefinitionDependencies[th.Label] = struct{}{}
			}
			out[th.Label] = rec
			order = append(order, th.Label)
			continue
		}

		rec.Classification = ClassTheorem
		labels := proofLabels(*th.Proof)
		for _, dep := range labels {
			depRec, ok := out[dep]
			if !ok {
				continue
			}
			depRec.ReferencedBy = append(depRec.ReferencedBy, th.Label)
			for ax := range depRec.AxiomDependencies {
				rec.AxiomDependencies[ax] = struct{}{}
			}
			for df := range depRec.DefinitionDependencies {
				rec.DefinitionDependencies[df] = struct{}{}
			}
		}

		out[th.Label] = rec
		order = append(order, th.Label)
	}

	_ = order
	return out
}

// ProofLabels extracts the ordered label references from a proof's text:
// for a compressed proof "( lbl1 lbl2 ... )  PROOFLETTERS", the labels
// between the parentheses, each once in declaration order; for an
// uncompressed proof, every whitespace-separated token with duplicates
// removed after the first occurrence (spec §4.7 / model.rs
// calc_dependencies_and_add_references).
func ProofLabels(proof string) []string {
	trimmed := strings.TrimSpace(proof)
	if strings.HasPrefix(trimmed, "(") {
		fields := strings.Fields(trimmed)
		var out []string
		for _, tok := range fields[1:] {
			if tok == ")" {
				break
			}
			out = append(out, tok)
		}
		return out
	}

	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.Fields(trimmed) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// renderDescription produces a record's rendered description (spec §3's
// "rendered description") by collapsing runs of whitespace to single
// spaces; no markup in the description is interpreted.
func renderDescription(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
