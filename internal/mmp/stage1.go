package mmp

import (
	"strings"

	"github.com/mmverify/mmcore/internal/diagnostics"
	"github.com/mmverify/mmcore/internal/pipeline"
)

// Stage1 implements Framing (spec §4.7): validate ASCII, split the source
// into statement strings anchored at column 0, and verify no whitespace
// precedes the first non-blank character of the first statement.
// Grounded on mmp_parser/stage_1.rs::frame.
type Stage1 struct{}

func (Stage1) Run(ctx *pipeline.Context) *pipeline.Context {
	st := ctx.Value.(*State)

	for i := 0; i < len(st.Source); i++ {
		if st.Source[i] > 127 {
			ctx.AddDiag(diagnostics.CodeNonASCIIInput, diagnostics.SpanAt(1, 1, 0), "MMP source is not ASCII")
			return ctx
		}
	}

	lines := strings.Split(st.Source, "\n")

	firstContentLine := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		firstContentLine = i
		break
	}
	if firstContentLine >= 0 {
		line := lines[firstContentLine]
		trimmed := strings.TrimLeft(line, " \t")
		if len(trimmed) != len(line) {
			ctx.AddDiag(diagnostics.CodeMmpWhitespaceBeforeFirstToken, diagnostics.SpanAt(firstContentLine+1, 1, len(line)-len(trimmed)), "whitespace before the first token of the first statement")
		}
	}

	var stmts []RawStatement
	curStart := -1
	var curLines []string
	flush := func(endExclusive int) {
		if curStart < 0 {
			return
		}
		text := strings.Join(curLines, "\n")
		if strings.TrimSpace(text) != "" {
			stmts = append(stmts, RawStatement{Text: text, Line: curStart + 1, Col: 1})
		}
		curLines = nil
		curStart = -1
	}
	for i, line := range lines {
		if line == "" {
			if curStart < 0 {
				continue
			}
			curLines = append(curLines, line)
			continue
		}
		if line[0] != ' ' && line[0] != '\t' {
			flush(i)
			curStart = i
		}
		if curStart >= 0 {
			curLines = append(curLines, line)
		}
	}
	flush(len(lines))

	st.Statements = stmts
	return ctx
}
