package mmp

import (
	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/diagnostics"
	"github.com/mmverify/mmcore/internal/grammar"
	"github.com/mmverify/mmcore/internal/parsetree"
	"github.com/mmverify/mmcore/internal/pipeline"
)

// UnificationResult is Stage 5's output (spec §4.7 Stage 5): the solved
// work-variable substitution accumulated across every step that unified
// cleanly, plus the set of step indices it touched.
type UnificationResult struct {
	Subst   map[parsetree.WorkVariable]*parsetree.Node
	Unified map[int]struct{}
	// WorkVars is seeded from every work-variable number already present in
	// the proof, so a subsequent edit that mints new work variables (spec
	// §4.7's "advanced unification" step-insertion) never collides with one
	// already bound here.
	WorkVars *WorkVariableManager
}

// Stage5 implements Unification (spec §4.7): for every step whose ref
// resolved in Stage 4, match the ref's hypothesis templates against the
// predecessor steps named in HypIdx to derive the substitution the ref was
// invoked with, apply that substitution to the ref's own assertion to get
// the conclusion the step is required to prove, and unify that expected
// conclusion against the step's claimed tree with a Martelli–Montanari-style
// walk that lets work variables on either side settle to a concrete
// subtree. Grounded on mmp_parser/stage_5.rs and the "substitutions" walk
// of model.rs::are_substitutions, generalised here to also produce a
// binding rather than only check consistency.
type Stage5 struct{}

func (Stage5) Run(ctx *pipeline.Context) *pipeline.Context {
	st := ctx.Value.(*State)
	if st.Grammar == nil || st.Records == nil {
		return ctx
	}

	result := &UnificationResult{
		Subst:    make(map[parsetree.WorkVariable]*parsetree.Node),
		Unified:  make(map[int]struct{}),
		WorkVars: newWorkVariableManager(st),
	}

	for i := range st.Steps {
		step := &st.Steps[i]
		if step.IsHyp || step.Tree == nil || step.RefLabel == "" {
			continue
		}
		if step.Status.Kind == StatusErr {
			continue
		}

		rec := st.Records[step.RefLabel]
		if rec == nil {
			continue
		}

		binding := make(map[int]*parsetree.Node)
		if !matchHypotheses(st, rec, step, binding) {
			step.Status = ProofLineStatus{Kind: StatusErr, Flags: ErrFlags{Hyps: true}}
			continue
		}

		expected, _, err := parseStepExpression(st, rec.Assertion)
		if err != nil {
			step.Status = ProofLineStatus{Kind: StatusErr, Flags: ErrFlags{Ref: true}}
			continue
		}

		trial := cloneWorkSubst(result.Subst)
		if !unify(st.Grammar, expected, step.Tree, binding, trial) {
			ctx.AddDiag(diagnostics.CodeUnificationFailed, diagnostics.SpanAt(step.Line, 1, 0), "step %q does not unify with %q", step.Raw.Name, step.RefLabel)
			step.Status = ProofLineStatus{Kind: StatusErr, Flags: ErrFlags{Expression: true}}
			continue
		}

		for k, v := range trial {
			if prev, ok := result.Subst[k]; !ok || !prev.Equal(v) {
				result.Subst[k] = v
				result.Unified[i] = struct{}{}
			}
		}
		step.Status = ProofLineStatus{Kind: StatusCorrect}
	}

	for i := range st.Steps {
		step := &st.Steps[i]
		if step.Tree == nil || len(result.Subst) == 0 {
			continue
		}
		step.Tree = resolveWorkVariables(step.Tree, result.Subst)
	}

	st.Unification = result
	return ctx
}

// matchHypotheses matches each of rec's hypothesis templates, in order,
// against the predecessor step the proof line cites for that slot,
// accumulating bindings for the floating-hypothesis rules the templates
// mention (via unify). A floating-hypothesis template is a single rule
// application (its own $f declaration, folded into the grammar); an
// essential-hypothesis template is a full parsed expression walked
// structurally.
func matchHypotheses(st *State, rec *database.TheoremRecord, step *Step, binding map[int]*parsetree.Node) bool {
	for hi, hyp := range rec.Hypotheses {
		if hi >= len(step.HypIdx) {
			return false
		}
		predIdx := step.HypIdx[hi]
		if predIdx < 0 || predIdx >= len(st.Steps) {
			return false
		}
		pred := st.Steps[predIdx]
		if pred.Tree == nil {
			return false
		}
		template, _, err := parseStepExpression(st, hyp.Expression)
		if err != nil {
			return false
		}
		if !unify(st.Grammar, template, pred.Tree, binding, make(map[parsetree.WorkVariable]*parsetree.Node)) {
			return false
		}
	}
	return true
}

// unify walks template (a ref's hypothesis or assertion, as parsed against
// the grammar it was declared in) and actual (a proof step's own claimed
// tree) in lockstep. template's floating-hypothesis rule occurrences are
// metavariables: a first occurrence binds fBinding[rule] := actual; a later
// occurrence requires actual to equal what's already bound — the same
// discipline internal/subst.AreSubstitutions uses for two trees drawn from
// the source database, generalised here to also handle actual containing
// work variables (a step whose expression text cites a work-variable
// literal directly, or one a prior Stage 5 pass partially solved): a work
// variable on actual's side binds into wSubst, resolving through it first
// if it's already bound. Grounded on mmp_parser/stage_5.rs's description
// of unification plus model.rs::are_substitutions' walk.
func unify(g *grammar.Grammar, template, actual *parsetree.Node, fBinding map[int]*parsetree.Node, wSubst map[parsetree.WorkVariable]*parsetree.Node) bool {
	if actual.IsWorkVariable {
		if bound, ok := wSubst[actual.WorkVar]; ok {
			return unify(g, template, bound, fBinding, wSubst)
		}
		if template.IsWorkVariable {
			wSubst[actual.WorkVar] = template.Clone()
			return true
		}
		if g.IsFloatingHypothesis(template.Rule) {
			if bound, ok := fBinding[template.Rule]; ok {
				wSubst[actual.WorkVar] = bound.Clone()
				return true
			}
			return false
		}
		wSubst[actual.WorkVar] = template.Clone()
		return true
	}
	if template.IsWorkVariable {
		return false
	}
	if g.IsFloatingHypothesis(template.Rule) {
		if bound, ok := fBinding[template.Rule]; ok {
			return bound.Equal(actual)
		}
		fBinding[template.Rule] = actual.Clone()
		return true
	}
	if template.Rule != actual.Rule || len(template.Children) != len(actual.Children) {
		return false
	}
	for i := range template.Children {
		if !unify(g, template.Children[i], actual.Children[i], fBinding, wSubst) {
			return false
		}
	}
	return true
}

// resolveWorkVariables rewrites every work-variable occurrence in tree that
// subst has a binding for, leaving unresolved ones (still awaiting a later
// step's unification) untouched.
func resolveWorkVariables(tree *parsetree.Node, subst map[parsetree.WorkVariable]*parsetree.Node) *parsetree.Node {
	if tree.IsWorkVariable {
		if bound, ok := subst[tree.WorkVar]; ok {
			return bound.Clone()
		}
		return tree
	}
	children := make([]*parsetree.Node, len(tree.Children))
	changed := false
	for i, c := range tree.Children {
		nc := resolveWorkVariables(c, subst)
		children[i] = nc
		if nc != c {
			changed = true
		}
	}
	if !changed {
		return tree
	}
	return parsetree.NewNode(tree.Rule, children)
}

func cloneWorkSubst(in map[parsetree.WorkVariable]*parsetree.Node) map[parsetree.WorkVariable]*parsetree.Node {
	out := make(map[parsetree.WorkVariable]*parsetree.Node, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
