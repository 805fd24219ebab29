package mmp

import (
	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/diagnostics"
	"github.com/mmverify/mmcore/internal/pipeline"
)

// Stage3 implements Global coherence against the database (spec §4.7):
// routes on the file's label-defining statement, validates header/comment
// paths resolve, collects temp $f hypotheses, and computes the theorem's
// axiom/definition dependency label set. Grounded on
// mmp_parser/stage_3.rs.
type Stage3 struct{}

func (Stage3) Run(ctx *pipeline.Context) *pipeline.Context {
	st := ctx.Value.(*State)

	var labelStmt *ClassifiedStatement
	for i := range st.Classified {
		switch st.Classified[i].Kind {
		case StmtHeader, StmtComment, StmtAxiom, StmtTheorem:
			labelStmt = &st.Classified[i]
		}
	}

	if labelStmt == nil {
		classifyStandalone(ctx, st)
	} else {
		switch labelStmt.Kind {
		case StmtHeader:
			st.Kind = FileHeaderInsertion
			validateHeaderPath(ctx, st, labelStmt.Header, spanOf(labelStmt.Raw))
		case StmtComment:
			st.Kind = FileCommentInsertion
			validateCommentPath(ctx, st, labelStmt.Comment, spanOf(labelStmt.Raw))
		case StmtAxiom, StmtTheorem:
			if labelStmt.Kind == StmtAxiom {
				st.Kind = FileAxiom
			} else {
				st.Kind = FileTheorem
			}
			st.TheoremLabel = labelStmt.Label
			gatherTheoremDirectives(ctx, st)
		}
	}

	resolveLocateAfter(ctx, st)
	return ctx
}

func classifyStandalone(ctx *pipeline.Context, st *State) {
	var kind FileKind = FileUnknown
	var primary StatementKind = -1
	for _, cs := range st.Classified {
		switch cs.Kind {
		case StmtConst:
			if primary < 0 {
				primary = StmtConst
				kind = FileStandaloneConst
			}
		case StmtVar:
			if primary < 0 {
				primary = StmtVar
				kind = FileStandaloneVar
			}
		case StmtFloat:
			if primary < 0 {
				primary = StmtFloat
				kind = FileStandaloneFloat
			}
		}
	}
	st.Kind = kind
	if primary < 0 {
		return
	}
	for _, cs := range st.Classified {
		switch cs.Kind {
		case StmtConst, StmtVar, StmtFloat, StmtCommentLine, StmtLocateAfter, StmtLocateAfterConst, StmtLocateAfterVar:
			continue
		default:
			if cs.Kind != primary {
				ctx.AddDiag(diagnostics.CodeMmpOutOfPlaceDirective, spanOf(cs.Raw), "directive out of place in a standalone %v insertion", kind)
			}
		}
	}
}

func validateHeaderPath(ctx *pipeline.Context, st *State, h HeaderDirective, span diagnostics.Span) {
	if st.DB == nil {
		return
	}
	parent := st.DB
	for i, idx := range h.Path {
		if i == len(h.Path)-1 {
			if idx < 0 || idx > len(parent.Subheaders) {
				ctx.AddDiag(diagnostics.CodeMmpHeaderIndexOutOfRange, span, "header index %d out of range (parent has %d subheaders)", idx, len(parent.Subheaders))
			}
			return
		}
		if idx < 0 || idx >= len(parent.Subheaders) {
			ctx.AddDiag(diagnostics.CodeMmpHeaderPathUnresolved, span, "header path does not resolve at index %d", idx)
			return
		}
		parent = &parent.Subheaders[idx]
	}
}

func validateCommentPath(ctx *pipeline.Context, st *State, c CommentDirective, span diagnostics.Span) {
	if st.DB == nil {
		return
	}
	hp := database.HeaderPath{}
	for _, idx := range c.Path {
		hp = hp.Child(idx)
	}
	h, ok := hp.At(st.DB)
	if !ok {
		ctx.AddDiag(diagnostics.CodeMmpCommentPathUnresolved, span, "comment parent path does not resolve")
		return
	}
	count := 0
	for _, s := range h.Content {
		if s.Kind == database.KindComment {
			count++
		}
	}
	if c.Index > count+1 || c.Index < 1 {
		ctx.AddDiag(diagnostics.CodeMmpCommentIndexOutOfRange, span, "comment index %d out of range (%d comments present)", c.Index, count)
	}
}

func gatherTheoremDirectives(ctx *pipeline.Context, st *State) {
	for _, cs := range st.Classified {
		switch cs.Kind {
		case StmtCommentLine:
			if st.Description == "" {
				st.Description = cs.CommentTxt
			}
		case StmtDistinct:
			st.Distincts = append(st.Distincts, cs.Distinct)
		case StmtFloat:
			if labelTaken(st, cs.Float.Label) {
				ctx.AddDiag(diagnostics.CodeMmpFloatHypLabelTaken, spanOf(cs.Raw), "floating-hypothesis label %q is already in use", cs.Float.Label)
				continue
			}
			st.TempFloats = append(st.TempFloats, cs.Float)
		case StmtAllowDiscouraged:
			st.AllowDiscouraged = true
		case StmtAllowIncomplete:
			st.AllowIncomplete = true
		case StmtConst, StmtVar:
			ctx.AddDiag(diagnostics.CodeMmpOutOfPlaceDirective, spanOf(cs.Raw), "%v directive out of place in a theorem/axiom statement", cs.Kind)
		}
	}

	if st.Records == nil {
		return
	}
	deps := make(map[string]struct{})
	for _, cs := range st.Classified {
		if cs.Kind != StmtProofStep || cs.ProofStep.Ref == "" || cs.ProofStep.Ref == "?" {
			continue
		}
		rec, ok := st.Records[cs.ProofStep.Ref]
		if !ok {
			continue
		}
		for ax := range rec.AxiomDependencies {
			deps[ax] = struct{}{}
		}
		for df := range rec.DefinitionDependencies {
			deps[df] = struct{}{}
		}
	}
	st.DependencyLabels = deps
}

func labelTaken(st *State, label string) bool {
	for _, f := range st.TempFloats {
		if f.Label == label {
			return true
		}
	}
	if st.Records != nil {
		if _, ok := st.Records[label]; ok {
			return true
		}
	}
	return false
}

func resolveLocateAfter(ctx *pipeline.Context, st *State) {
	for _, cs := range st.Classified {
		var kind database.AnchorKind
		switch cs.Kind {
		case StmtLocateAfter:
			kind = database.AnchorTheoremOrFloatingHypothesis
		case StmtLocateAfterConst:
			kind = database.AnchorConstant
		case StmtLocateAfterVar:
			kind = database.AnchorVariable
		default:
			continue
		}
		if cs.Label == "$start" {
			ctx.AddDiag(diagnostics.CodeMmpLocateAfterAtStart, spanOf(cs.Raw), "$locateafter resolves to the very start of the database")
			a := database.Anchor{Kind: database.AnchorStart}
			st.LocateAfter = &a
			continue
		}
		if st.DB == nil {
			continue
		}
		anchor := database.Anchor{Kind: kind, Symbol: cs.Label, Label: cs.Label}
		if _, err := database.LocateAfter(st.DB, anchor); err != nil {
			ctx.AddDiag(diagnostics.CodeMmpLocateAfterUnresolved, spanOf(cs.Raw), "$locateafter target %q not found in the active database prefix", cs.Label)
			continue
		}
		a := anchor
		st.LocateAfter = &a
	}
}
