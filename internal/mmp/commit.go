package mmp

import (
	"fmt"
	"strings"

	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/grammar"
)

// BuildTheorem converts a fully resolved theorem/axiom MMP state into the
// database.Theorem its qed step's parse tree and proof encoding describe —
// the piece spec.md's PURPOSE section names as "committing an edit" but
// that the staged parser itself stops short of, leaving at
// State.ProofTree/Uncompressed/Compressed. Grounded on
// original_source/src-tauri/src/editor/add_to_database.rs and on_edit.rs,
// which perform this same State-to-Statement conversion right before
// calling add_statement.
func BuildTheorem(st *State) (database.Theorem, error) {
	if st.Kind != FileTheorem && st.Kind != FileAxiom {
		return database.Theorem{}, fmt.Errorf("mmp: cannot commit a %v file as a theorem", st.Kind)
	}
	if st.TheoremLabel == "" {
		return database.Theorem{}, fmt.Errorf("mmp: no theorem label to commit")
	}

	qedIdx := -1
	for i, s := range st.Steps {
		if s.Raw.Name == qedStepName {
			qedIdx = i
		}
	}
	if qedIdx < 0 {
		return database.Theorem{}, fmt.Errorf("mmp: no qed step to commit")
	}
	qed := st.Steps[qedIdx]
	if qed.Tree == nil {
		return database.Theorem{}, fmt.Errorf("mmp: qed step never resolved to a parse tree")
	}

	leading := leadingTypecodeText(qed.Raw.Expression)
	assertion, err := grammar.ToExpressionText(st.Grammar, st.Symbols, qed.Tree, leading)
	if err != nil {
		return database.Theorem{}, fmt.Errorf("mmp: render qed expression: %w", err)
	}

	var proofText *string
	if st.Kind == FileTheorem {
		if st.Compressed == "" {
			return database.Theorem{}, fmt.Errorf("mmp: theorem has no compressed proof to commit")
		}
		p := st.Compressed
		proofText = &p
	}

	hyps, err := buildHypotheses(st)
	if err != nil {
		return database.Theorem{}, err
	}

	return database.Theorem{
		Label:       st.TheoremLabel,
		Description: st.Description,
		Distincts:   st.Distincts,
		Hypotheses:  hyps,
		Assertion:   assertion,
		Proof:       proofText,
	}, nil
}

// leadingTypecodeText returns the first whitespace-separated field of a
// proof-step expression: the typecode name the MMP source actually wrote
// before the body, which Stage 4's parseStepExpression strips before
// parsing and which the resulting parse tree therefore never carries.
func leadingTypecodeText(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// buildHypotheses collects the committed theorem's essential hypotheses,
// in proof-step order. The MMP format has no way to declare a brand-new
// essential hypothesis inline (FloatDirective is the only kind of
// in-file hypothesis declaration, and it is unambiguously floating), so
// an IsHyp step is essential exactly when its label already names an
// existing essential hypothesis somewhere in the database; every other
// IsHyp step is floating and is omitted here (floating hypotheses are
// never nested inside a Theorem's own Hypotheses, matching
// database.Theorem's own doc comment).
func buildHypotheses(st *State) ([]database.Hypothesis, error) {
	essentials := make(map[string]string)
	for _, rec := range st.Records {
		for _, h := range rec.Hypotheses {
			essentials[h.Label] = h.Expression
		}
	}

	var hyps []database.Hypothesis
	for _, s := range st.Steps {
		if !s.IsHyp {
			continue
		}
		label := hypLabel(st, s)
		if expr, ok := essentials[label]; ok {
			hyps = append(hyps, database.Hypothesis{Label: label, Expression: expr})
		}
	}
	return hyps, nil
}
