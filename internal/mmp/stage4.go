package mmp

import (
	"strings"

	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/diagnostics"
	"github.com/mmverify/mmcore/internal/earley"
	"github.com/mmverify/mmcore/internal/parsetree"
	"github.com/mmverify/mmcore/internal/pipeline"
	"github.com/mmverify/mmcore/internal/symtab"
)

// Stage4 implements Per-step parsing and local checks (spec §4.7):
// duplicate-name detection, hypothesis-reference resolution, ref
// resolution against the database's theorem records (rejecting syntax
// axioms, discouraged/incomplete refs without the matching `$allow`
// directive), expression parsing via the Earley engine, and the
// Correct/CorrectRecursively/Err/None status computation. Grounded on
// mmp_parser/stage_4.rs.
type Stage4 struct{}

func (Stage4) Run(ctx *pipeline.Context) *pipeline.Context {
	st := ctx.Value.(*State)
	if st.Grammar == nil || st.Symbols == nil {
		// Grammar-calculation phase has not completed: short-circuit with
		// empty-but-well-typed status arrays (spec §4.7 Stage 4).
		return ctx
	}

	names := make(map[string]int)
	var steps []Step

	for _, cs := range st.Classified {
		if cs.Kind != StmtProofStep {
			continue
		}
		ps := cs.ProofStep
		step := Step{Raw: ps, Line: cs.Raw.Line, RefIdx: -1}

		if _, dup := names[ps.Name]; dup {
			ctx.AddDiag(diagnostics.CodeMmpDuplicateStepName, spanOf(cs.Raw), "duplicate step name %q", ps.Name)
			step.Status = ProofLineStatus{Kind: StatusErr, Flags: ErrFlags{StepName: true}}
			steps = append(steps, step)
			continue
		}
		names[ps.Name] = len(steps)

		var flags ErrFlags
		step.HypIdx = make([]int, len(ps.Hyps))
		for i, h := range ps.Hyps {
			if h == "?" || h == "" {
				step.HypIdx[i] = -1
				continue
			}
			idx, ok := names[h]
			if !ok {
				ctx.AddDiag(diagnostics.CodeMmpHypNameDoesntExist, spanOf(cs.Raw), "hypothesis name %q does not exist", h)
				flags.Hyps = true
				step.HypIdx[i] = -1
				continue
			}
			step.HypIdx[i] = idx
		}

		step.IsHyp = ps.IsHyp
		if step.IsHyp && len(ps.Hyps) > 0 {
			ctx.AddDiag(diagnostics.CodeMmpHypLineHasHyps, spanOf(cs.Raw), "hypothesis line %q must carry no hyps", ps.Name)
			flags.Hyps = true
		}

		if ps.Ref != "" && ps.Ref != "?" {
			rec, ok := st.Records[ps.Ref]
			if !ok {
				ctx.AddDiag(diagnostics.CodeMmpStepRefNotALabel, spanOf(cs.Raw), "%q does not resolve to an active theorem label", ps.Ref)
				flags.Ref = true
			} else {
				step.RefLabel = ps.Ref
				if rec.Classification == database.ClassSyntaxAxiom {
					ctx.AddDiag(diagnostics.CodeMmpSyntaxTheoremUsed, spanOf(cs.Raw), "%q is a syntax axiom and cannot be used as a proof-step ref", ps.Ref)
					flags.Ref = true
				}
				if _, discouraged := st.DiscouragedLabels[ps.Ref]; discouraged && !st.AllowDiscouraged {
					ctx.AddDiag(diagnostics.CodeMmpDiscouragedRefUsed, spanOf(cs.Raw), "%q is discouraged; add $allowdiscouraged to use it", ps.Ref)
					flags.Ref = true
				}
				if _, incomplete := st.IncompleteLabels[ps.Ref]; incomplete && !st.AllowIncomplete {
					ctx.AddDiag(diagnostics.CodeMmpIncompleteRefUsed, spanOf(cs.Raw), "%q is incomplete; add $allowincomplete to use it", ps.Ref)
					flags.Ref = true
				}
			}
		}

		tree, tc, err := parseStepExpression(st, ps.Expression)
		if err != nil {
			ctx.AddDiag(diagnostics.CodeExpressionParseError, spanOf(cs.Raw), "%v", err)
			flags.Expression = true
		} else {
			step.Tree = tree
			step.Typecode = tc
		}

		if flags != (ErrFlags{}) {
			step.Status = ProofLineStatus{Kind: StatusErr, Flags: flags}
		}
		steps = append(steps, step)
	}

	computeStatuses(st, steps)
	st.Steps = steps
	return ctx
}

// parseStepExpression tokenises text against the symbol table (classifying
// work-variable literals per §4.3) and parses it with the Earley engine
// against the expression's own leading typecode. A leading token that is
// itself a declared typecode (the common case: every syntactic typecode
// used in practice carries at least one floating hypothesis) parses
// directly against it. A leading token that instead names a logical
// typecode (spec §4.2: "syntactic vs. logical typecodes are supplied by
// the environment" — e.g. "|-", which is declared as a plain constant and
// never gets a floating hypothesis of its own) parses against that logical
// typecode's mapped syntactic typecode instead, with the leading token
// itself consumed as a marker rather than fed to the grammar.
func parseStepExpression(st *State, text string) (*parsetree.Node, symtab.ID, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, 0, earley.ErrMissingExpression
	}
	body, err := st.Symbols.ParseExpression(strings.Join(fields[1:], " "))
	if err != nil {
		return nil, 0, err
	}

	var tc symtab.ID
	if id, ok := st.Symbols.NumberOfTypecode(fields[0]); ok {
		tc = id
	} else if syntaxName, ok := st.LogicalTypecodes[fields[0]]; ok {
		resolved, ok := st.Symbols.NumberOfTypecode(syntaxName)
		if !ok {
			return nil, 0, earley.ErrExpressionParse
		}
		tc = resolved
	} else {
		return nil, 0, earley.ErrExpressionParse
	}

	inputs := make([]earley.Input, len(body))
	for i, s := range body {
		if s.IsWorkVariable {
			inputs[i] = earley.WorkVariable(parsetree.WorkVariable{Typecode: s.WorkTypecode, Base: s.WorkBase, Number: s.WorkNumber})
		} else {
			inputs[i] = earley.Symbol(s.ID)
		}
	}

	eng := earley.New(st.Grammar, st.Symbols)
	nodes, err := eng.Parse(inputs, tc)
	if err != nil {
		return nil, 0, err
	}
	if len(nodes) != 1 {
		return nil, 0, earley.ErrExpressionParse
	}
	return nodes[0], tc, nil
}

// computeStatuses marks every error-free hypothesis step whose ref
// resolved as CorrectRecursively (spec §4.7 Stage 4); full
// substitution/unification-driven correctness is Stage 5's job, so every
// other error-free step is left StatusNone here for Stage 5 to promote or
// demote.
func computeStatuses(st *State, steps []Step) {
	for i := range steps {
		s := &steps[i]
		if s.Status.Kind == StatusErr {
			continue
		}
		if s.IsHyp && s.RefLabel != "" {
			s.Status = ProofLineStatus{Kind: StatusCorrectRecursively}
		}
	}
}
