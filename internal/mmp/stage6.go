package mmp

import (
	"fmt"

	"github.com/mmverify/mmcore/internal/pipeline"
	"github.com/mmverify/mmcore/internal/proof"
)

// qedStepName is the distinguished step name a proof file's final,
// whole-theorem-concluding step always carries (spec §4.7).
const qedStepName = "qed"

// Stage6 implements Proof encoding (spec §4.7 Stage 6): build the proof
// tree rooted at the "qed" step by following each step's resolved
// hypothesis indices back to its predecessors, then emit both the
// uncompressed and compressed proof text. Left a no-op (state's proof
// fields stay empty) for a file with no resolvable qed step, matching the
// staged parser's "accumulate diagnostics, never abort" discipline — a
// missing or unresolved qed step is visible in State.Steps' own statuses,
// not re-reported here. Grounded on mmp_parser/stage_6.rs.
type Stage6 struct{}

func (Stage6) Run(ctx *pipeline.Context) *pipeline.Context {
	st := ctx.Value.(*State)
	if len(st.Steps) == 0 {
		return ctx
	}

	qedIdx := -1
	for i, s := range st.Steps {
		if s.Raw.Name == qedStepName {
			qedIdx = i
		}
	}
	if qedIdx < 0 {
		return ctx
	}

	var mandatory []string
	for _, s := range st.Steps {
		if s.IsHyp {
			mandatory = append(mandatory, hypLabel(st, s))
		}
	}

	visiting := make(map[int]bool)
	root, ok := buildProofNode(st, qedIdx, visiting)
	if !ok {
		return ctx
	}

	st.ProofTree = root
	st.Uncompressed = proof.EncodeUncompressed(root)
	labels, code := proof.EncodeCompressed(root, mandatory)
	st.Compressed = fmt.Sprintf("( %s ) %s", joinLabels(labels), code)
	return ctx
}

// hypLabel names a proof-step hypothesis line: an existing database label
// when the line cites one, or a theorem-scoped synthetic label for a
// hypothesis newly declared in this MMP file.
func hypLabel(st *State, s Step) string {
	if s.RefLabel != "" {
		return s.RefLabel
	}
	return st.TheoremLabel + "." + s.Raw.Name
}

// buildProofNode recursively reconstructs the proof tree rooted at
// st.Steps[idx], failing (false) if the step's ref never resolved or a
// cycle is detected in the hypothesis graph.
func buildProofNode(st *State, idx int, visiting map[int]bool) (*proof.Node, bool) {
	if idx < 0 || idx >= len(st.Steps) {
		return nil, false
	}
	step := st.Steps[idx]
	if step.IsHyp {
		return proof.NewLeaf(hypLabel(st, step)), true
	}
	if step.RefLabel == "" || step.Status.Kind == StatusErr {
		return nil, false
	}
	if visiting[idx] {
		return nil, false
	}
	visiting[idx] = true
	defer delete(visiting, idx)

	children := make([]*proof.Node, len(step.HypIdx))
	for i, hi := range step.HypIdx {
		child, ok := buildProofNode(st, hi, visiting)
		if !ok {
			return nil, false
		}
		children[i] = child
	}
	return proof.NewNode(step.RefLabel, children), true
}

func joinLabels(labels []string) string {
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += " "
		}
		out += l
	}
	return out
}
