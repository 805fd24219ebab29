package mmp

import (
	"strconv"
	"strings"

	"github.com/mmverify/mmcore/internal/diagnostics"
	"github.com/mmverify/mmcore/internal/pipeline"
)

// Stage2 implements Statement classification (spec §4.7): recognise each
// Stage-1 statement as one of the directive kinds, a comment line, or a
// proof-step line, reporting syntactic problems without yet consulting
// the database. Grounded on mmp_parser/stage_2.rs.
type Stage2 struct{}

func (Stage2) Run(ctx *pipeline.Context) *pipeline.Context {
	st := ctx.Value.(*State)

	seenTop := make(map[string]bool)
	for _, raw := range st.Statements {
		trimmed := strings.TrimLeft(raw.Text, " \t")
		if strings.HasPrefix(trimmed, "*") {
			st.Classified = append(st.Classified, ClassifiedStatement{Kind: StmtCommentLine, Raw: raw, CommentTxt: trimmed})
			continue
		}

		fields := strings.Fields(raw.Text)
		if len(fields) == 0 {
			continue
		}
		keyword := fields[0]
		args := fields[1:]

		cs, ok := classifyKeyword(ctx, raw, keyword, args)
		if !ok {
			continue
		}

		switch cs.Kind {
		case StmtHeader, StmtComment, StmtAxiom, StmtTheorem, StmtAllowDiscouraged, StmtAllowIncomplete, StmtLocateAfter, StmtLocateAfterConst, StmtLocateAfterVar:
			if seenTop[keyword] {
				ctx.AddDiag(diagnostics.CodeMmpDuplicateDirective, spanOf(raw), "duplicate top-level directive %q", keyword)
				continue
			}
			seenTop[keyword] = true
		}

		st.Classified = append(st.Classified, cs)
	}
	return ctx
}

func spanOf(raw RawStatement) diagnostics.Span {
	return diagnostics.SpanAt(raw.Line, raw.Col, len(raw.Text))
}

func classifyKeyword(ctx *pipeline.Context, raw RawStatement, keyword string, args []string) (ClassifiedStatement, bool) {
	switch keyword {
	case "$header":
		if len(args) < 2 {
			ctx.AddDiag(diagnostics.CodeMmpTooFewTokens, spanOf(raw), "$header requires a path and a title")
			return ClassifiedStatement{}, false
		}
		path, ok := parsePath(args[0])
		if !ok {
			ctx.AddDiag(diagnostics.CodeMmpHeaderPathUnresolved, spanOf(raw), "malformed header path %q", args[0])
			return ClassifiedStatement{}, false
		}
		return ClassifiedStatement{Kind: StmtHeader, Raw: raw, Header: HeaderDirective{Path: path, Title: strings.Join(args[1:], " ")}}, true

	case "$comment":
		if len(args) != 1 {
			ctx.AddDiag(diagnostics.CodeMmpTooFewTokens, spanOf(raw), "$comment requires exactly PATH#N")
			return ClassifiedStatement{}, false
		}
		idx := strings.LastIndexByte(args[0], '#')
		if idx < 0 {
			ctx.AddDiag(diagnostics.CodeMmpCommentPathUnresolved, spanOf(raw), "malformed $comment reference %q", args[0])
			return ClassifiedStatement{}, false
		}
		path, ok := parsePath(args[0][:idx])
		n, err := strconv.Atoi(args[0][idx+1:])
		if !ok || err != nil {
			ctx.AddDiag(diagnostics.CodeMmpCommentPathUnresolved, spanOf(raw), "malformed $comment reference %q", args[0])
			return ClassifiedStatement{}, false
		}
		return ClassifiedStatement{Kind: StmtComment, Raw: raw, Comment: CommentDirective{Path: path, Index: n}}, true

	case "$axiom", "$theorem":
		if len(args) != 1 {
			ctx.AddDiag(diagnostics.CodeMmpTooFewTokens, spanOf(raw), "%s requires exactly one label", keyword)
			return ClassifiedStatement{}, false
		}
		if !isValidMmpLabel(args[0]) {
			ctx.AddDiag(diagnostics.CodeMmpIllegalLabelChars, spanOf(raw), "%q is not a valid label", args[0])
			return ClassifiedStatement{}, false
		}
		kind := StmtAxiom
		if keyword == "$theorem" {
			kind = StmtTheorem
		}
		return ClassifiedStatement{Kind: kind, Raw: raw, Label: args[0]}, true

	case "$c", "$v":
		if len(args) == 0 {
			ctx.AddDiag(diagnostics.CodeMmpTooFewTokens, spanOf(raw), "%s requires at least one symbol", keyword)
			return ClassifiedStatement{}, false
		}
		kind := StmtConst
		if keyword == "$v" {
			kind = StmtVar
		}
		return ClassifiedStatement{Kind: kind, Raw: raw, Symbols: args}, true

	case "$f":
		if len(args) != 3 {
			ctx.AddDiag(diagnostics.CodeMmpTooFewTokens, spanOf(raw), "$f requires exactly LABEL TC VAR")
			return ClassifiedStatement{}, false
		}
		if !isValidMmpLabel(args[0]) {
			ctx.AddDiag(diagnostics.CodeMmpIllegalLabelChars, spanOf(raw), "%q is not a valid label", args[0])
			return ClassifiedStatement{}, false
		}
		return ClassifiedStatement{Kind: StmtFloat, Raw: raw, Float: FloatDirective{Label: args[0], Typecode: args[1], Variable: args[2]}}, true

	case "$d":
		if len(args) < 2 {
			ctx.AddDiag(diagnostics.CodeZeroOrOneSymbolDisj, spanOf(raw), "$d requires at least two variables")
			return ClassifiedStatement{}, false
		}
		return ClassifiedStatement{Kind: StmtDistinct, Raw: raw, Distinct: args}, true

	case "$allowdiscouraged":
		if len(args) != 0 {
			ctx.AddDiag(diagnostics.CodeMmpTooManyTokens, spanOf(raw), "$allowdiscouraged takes no arguments")
			return ClassifiedStatement{}, false
		}
		return ClassifiedStatement{Kind: StmtAllowDiscouraged, Raw: raw}, true

	case "$allowincomplete":
		if len(args) != 0 {
			ctx.AddDiag(diagnostics.CodeMmpTooManyTokens, spanOf(raw), "$allowincomplete takes no arguments")
			return ClassifiedStatement{}, false
		}
		return ClassifiedStatement{Kind: StmtAllowIncomplete, Raw: raw}, true

	case "$locateafter", "$locateafterconst", "$locateaftervar":
		if len(args) != 1 {
			ctx.AddDiag(diagnostics.CodeMmpTooFewTokens, spanOf(raw), "%s requires exactly one reference", keyword)
			return ClassifiedStatement{}, false
		}
		kind := StmtLocateAfter
		if keyword == "$locateafterconst" {
			kind = StmtLocateAfterConst
		} else if keyword == "$locateaftervar" {
			kind = StmtLocateAfterVar
		}
		return ClassifiedStatement{Kind: kind, Raw: raw, Label: args[0]}, true

	default:
		return classifyProofStep(ctx, raw, keyword, args)
	}
}

func classifyProofStep(ctx *pipeline.Context, raw RawStatement, token0 string, rest []string) (ClassifiedStatement, bool) {
	if !strings.Contains(token0, ":") {
		ctx.AddDiag(diagnostics.CodeMmpInvalidMmpStepPrefixFormat, spanOf(raw), "proof-step prefix %q has no ':'", token0)
		return ClassifiedStatement{}, false
	}
	parts := strings.SplitN(token0, ":", 3)
	if len(parts) != 3 {
		ctx.AddDiag(diagnostics.CodeMmpInvalidMmpStepPrefixFormat, spanOf(raw), "proof-step prefix %q must have exactly two ':'", token0)
		return ClassifiedStatement{}, false
	}
	namePart, hypsPart, refPart := parts[0], parts[1], parts[2]

	advanced := false
	if strings.HasPrefix(namePart, "!") {
		advanced = true
		namePart = namePart[1:]
	}
	isHyp := false
	if strings.HasPrefix(namePart, "h") {
		isHyp = true
		namePart = namePart[1:]
	}
	if namePart == "" || !isValidMmpStepName(namePart) {
		ctx.AddDiag(diagnostics.CodeMmpInvalidMmpStepPrefixFormat, spanOf(raw), "%q is not a valid step name", namePart)
		return ClassifiedStatement{}, false
	}

	var hyps []string
	if hypsPart != "" {
		hyps = strings.Split(hypsPart, ",")
	}

	step := ProofStepPrefix{
		Advanced:   advanced,
		IsHyp:      isHyp,
		Name:       namePart,
		Hyps:       hyps,
		Ref:        refPart,
		Expression: strings.Join(rest, " "),
	}
	return ClassifiedStatement{Kind: StmtProofStep, Raw: raw, ProofStep: step}, true
}

func parsePath(s string) ([]int, bool) {
	if s == "" {
		return nil, true
	}
	parts := strings.Split(s, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func isValidMmpLabel(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func isValidMmpStepName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
