// Package mmsource implements the single-pass Metamath source parser of
// spec §4.5: a maximal-non-whitespace-run tokeniser feeding a scope
// machine that builds the database.Header tree, plus the canonical
// renderer that writes that tree back out (spec §6 database-file layout).
package mmsource

import (
	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/diagnostics"
	"github.com/mmverify/mmcore/internal/pipeline"
)

const (
	codeTypesettingFormat = diagnostics.CodeTypesettingFormat
)

// Options configures a Parse call.
type Options struct {
	// Cancel is polled between statements; if set, Parse returns a
	// DiagnosticError with CodeOpenDatabaseStoppedEarly immediately (spec
	// §4.5 cancellation).
	Cancel *pipeline.CancelFlag
	// OnProgress is called with an increasing percentage (0-100) roughly
	// every 1% of lines consumed.
	OnProgress func(percent int)
}

// Parser holds the scope machine state for one source file. Construct via
// Parse; there is no public constructor since a Parser's internal
// invariants are fully established only at the start of Parse.
type Parser struct {
	lex          *lexer
	totalLines   int
	lastReported int
	onProgress   func(int)
	cancel       *pipeline.CancelFlag

	root          *database.Header
	curHeaderPath database.HeaderPath

	scope           int
	activeConsts    map[string]bool
	activeVars      []map[string]bool
	activeFloatHyps [][]database.FloatingHypothesis
	activeDists     [][][]string
	activeHyps      [][]database.Hypothesis

	prevVariables map[string]bool
	prevFloatHyps []database.FloatingHypothesis

	hasNextLabel    bool
	nextLabel       string
	hasDescription  bool
	pendingDesc     string

	theoremCount int
	meta         Metadata
}

// Parse reads the full source file once and returns the constructed
// database tree, or the first semantic/lexical error encountered (spec §7:
// the Metamath source parser aborts at the first error).
func Parse(src []byte, opts Options) (*database.Header, *Metadata, *diagnostics.DiagnosticError) {
	if !isASCII(src) {
		return nil, nil, diagnostics.New(diagnostics.CodeNonASCIIInput, diagnostics.SpanAt(1, 1, 0), "source is not ASCII")
	}

	p := &Parser{
		lex:             newLexer(src),
		totalLines:      countLines(src),
		onProgress:      opts.OnProgress,
		cancel:          opts.Cancel,
		root:            database.NewRoot(),
		activeConsts:    make(map[string]bool),
		activeVars:      []map[string]bool{make(map[string]bool)},
		activeFloatHyps: [][]database.FloatingHypothesis{nil},
		activeDists:     [][][]string{nil},
		activeHyps:      [][]database.Hypothesis{nil},
		prevVariables:   make(map[string]bool),
	}

	for {
		if p.cancel.IsSet() {
			return nil, nil, diagnostics.New(diagnostics.CodeOpenDatabaseStoppedEarly, diagnostics.SpanAt(p.lex.line, p.lex.col, 0), "open database stopped early")
		}

		processed, err := p.processNextStatement()
		if err != nil {
			return nil, nil, err
		}
		if !processed {
			break
		}
		p.reportProgress()
	}

	if p.scope != 0 {
		return nil, nil, p.errf(diagnostics.CodeUnclosedScope, "%d scope(s) left open at end of file", p.scope)
	}

	return p.root, &p.meta, nil
}

func countLines(src []byte) int {
	n := 1
	for _, b := range src {
		if b == '\n' {
			n++
		}
	}
	return n
}

func (p *Parser) reportProgress() {
	if p.onProgress == nil || p.totalLines == 0 {
		return
	}
	pct := (p.lex.lineNumber() * 100) / p.totalLines
	if pct > 100 {
		pct = 100
	}
	if pct > p.lastReported {
		p.lastReported = pct
		p.onProgress(pct)
	}
}

func (p *Parser) errf(code diagnostics.Code, format string, args ...interface{}) *diagnostics.DiagnosticError {
	return diagnostics.New(code, diagnostics.SpanAt(p.lex.line, p.lex.col, 0), format, args...)
}

// processNextStatement consumes one top-level statement (or, recursively,
// the statement a bare label token prefixes), mirroring
// MmParser::process_next_statement's label look-ahead and
// pending-description lifecycle.
func (p *Parser) processNextStatement() (bool, *diagnostics.DiagnosticError) {
	tok, _, _, ok := p.lex.next()
	if !ok {
		return false, nil
	}

	var isComment bool
	var err *diagnostics.DiagnosticError

	switch tok {
	case "$(":
		isComment = true
		err = p.processComment()
	case "${":
		p.openScope()
	case "$}":
		err = p.closeScope()
	case "$c":
		err = p.processConstants()
	case "$v":
		err = p.processVariables()
	case "$f":
		err = p.processFloatingHypothesis()
	case "$e":
		err = p.processEssentialHypothesis()
	case "$d":
		err = p.processDisjoint()
	case "$a", "$p":
		err = p.processTheorem(tok == "$a")
	default:
		if !isValidLabel(tok) {
			return false, p.errf(diagnostics.CodeInvalidLabel, "%q is not a valid label", tok)
		}
		if p.hasNextLabel {
			return false, p.errf(diagnostics.CodeTokenOutsideStatement, "label %q follows label %q with no statement between", tok, p.nextLabel)
		}
		p.hasNextLabel = true
		p.nextLabel = tok

		processed, innerErr := p.processNextStatement()
		if innerErr != nil {
			return false, innerErr
		}
		if p.hasNextLabel {
			return false, p.errf(diagnostics.CodeTokenOutsideStatement, "label %q was not consumed by a statement", tok)
		}
		if !processed {
			return false, p.errf(diagnostics.CodeTokenOutsideStatement, "label %q has no following statement", tok)
		}
		return true, nil
	}

	if err != nil {
		return false, err
	}
	if !isComment {
		p.hasDescription = false
		p.pendingDesc = ""
	}
	return true, nil
}

func (p *Parser) curHeader() (*database.Header, *diagnostics.DiagnosticError) {
	h, ok := p.curHeaderPath.At(p.root)
	if !ok {
		return nil, p.errf(diagnostics.CodeInternalInvariantViolation, "current header path does not resolve")
	}
	return h, nil
}

func (p *Parser) isActiveVariable(sym string) bool {
	for _, scope := range p.activeVars {
		if scope[sym] {
			return true
		}
	}
	return false
}

func (p *Parser) openScope() {
	p.scope++
	p.activeVars = append(p.activeVars, make(map[string]bool))
	p.activeFloatHyps = append(p.activeFloatHyps, nil)
	p.activeDists = append(p.activeDists, nil)
	p.activeHyps = append(p.activeHyps, nil)
}

func (p *Parser) closeScope() *diagnostics.DiagnosticError {
	if p.scope == 0 {
		return p.errf(diagnostics.CodeUnexpectedScopeClose, "$} with no matching ${")
	}
	p.scope--

	last := len(p.activeVars) - 1
	for sym := range p.activeVars[last] {
		p.prevVariables[sym] = true
	}
	p.activeVars = p.activeVars[:last]

	lastFH := len(p.activeFloatHyps) - 1
	p.prevFloatHyps = append(p.prevFloatHyps, p.activeFloatHyps[lastFH]...)
	p.activeFloatHyps = p.activeFloatHyps[:lastFH]

	p.activeDists = p.activeDists[:len(p.activeDists)-1]
	p.activeHyps = p.activeHyps[:len(p.activeHyps)-1]
	return nil
}

// advanceExpressionUntil reads a Metamath expression (skipping nested
// comments) until a token equal to until is found: the first token must
// be an active constant (the typecode), every later token an active
// constant or active variable (spec §4.5 $e/$a/$p expression rule).
func (p *Parser) advanceExpressionUntil(until string) (string, *diagnostics.DiagnosticError) {
	var parts []string
	first := true
	for {
		tok, line, col, ok := p.lex.next()
		if !ok {
			return "", p.errf(diagnostics.CodeUnclosedComment, "unexpected end of file")
		}
		if tok == "$(" {
			if _, err := p.advanceEndOfComment(); err != nil {
				return "", err
			}
			continue
		}
		if tok == until {
			break
		}
		if first {
			if !p.activeConsts[tok] {
				return "", diagnostics.New(diagnostics.CodeExpressionMustStartWithType, diagnostics.SpanAt(line, col, len(tok)), "expression must start with an active constant, got %q", tok)
			}
		} else if !p.isActiveVariable(tok) && !p.activeConsts[tok] {
			return "", diagnostics.New(diagnostics.CodeExpressionUsesInactiveSym, diagnostics.SpanAt(line, col, len(tok)), "%q is not an active symbol", tok)
		}
		if !first {
			parts = append(parts, " ")
		}
		parts = append(parts, tok)
		first = false
	}
	return joinStrings(parts), nil
}

func joinStrings(parts []string) string {
	out := ""
	for _, s := range parts {
		out += s
	}
	return out
}

func (p *Parser) advanceEndOfComment() (string, *diagnostics.DiagnosticError) {
	var parts []string
	for {
		tok, _, _, ok := p.lex.next()
		if !ok {
			return "", p.errf(diagnostics.CodeUnclosedComment, "comment not closed with $)")
		}
		if tok == "$)" {
			return joinStrings(parts), nil
		}
		if len(parts) > 0 {
			parts = append(parts, " ")
		}
		parts = append(parts, tok)
	}
}

func (p *Parser) processComment() *diagnostics.DiagnosticError {
	comment, err := p.advanceEndOfComment()
	if err != nil {
		return err
	}

	fields := splitFields(comment)
	if len(fields) > 0 {
		switch fields[0] {
		case "$t":
			if e := p.parseTypesettingComment(comment); e != nil {
				return e.(*diagnostics.DiagnosticError)
			}
			return nil
		case "$j":
			if e := p.parseMetadataComment(comment); e != nil {
				return e.(*diagnostics.DiagnosticError)
			}
			return nil
		}
		if depth, marker := matchHeaderMarker(fields[0]); depth >= 0 {
			return p.processHeaderComment(comment, marker, depth)
		}
	}

	p.hasDescription = true
	p.pendingDesc = comment
	if p.scope == 0 {
		h, err := p.curHeader()
		if err != nil {
			return err
		}
		h.Content = append(h.Content, database.Statement{Kind: database.KindComment, Comment: comment})
	}
	return nil
}

var headerMarkers = []string{"####", "#*#*", "=-=-", "-.-."}

func matchHeaderMarker(firstToken string) (int, string) {
	for i, marker := range headerMarkers {
		if len(firstToken) >= len(marker) && firstToken[:len(marker)] == marker {
			return i + 1, marker
		}
	}
	return -1, ""
}

func (p *Parser) processHeaderComment(comment, marker string, depth int) *diagnostics.DiagnosticError {
	fields := splitFields(comment)[1:]
	var titleParts []string
	closed := false
	for _, tok := range fields {
		if len(tok) >= len(marker) && tok[:len(marker)] == marker {
			closed = true
			break
		}
		titleParts = append(titleParts, tok)
	}
	if !closed {
		return p.errf(diagnostics.CodeUnclosedHeader, "header marker %q not closed", marker)
	}

	title := joinFields(titleParts)

	parent := p.root
	path := database.HeaderPath{}
	for d := 0; d < depth-1; d++ {
		if len(parent.Subheaders) == 0 {
			break
		}
		idx := len(parent.Subheaders) - 1
		path = path.Child(idx)
		parent = &parent.Subheaders[idx]
	}
	newIdx := len(parent.Subheaders)
	parent.Subheaders = append(parent.Subheaders, database.Header{Title: title})
	path = path.Child(newIdx)

	p.hasDescription = false
	p.pendingDesc = ""
	p.curHeaderPath = path
	return nil
}

func splitFields(s string) []string {
	var out []string
	cur := ""
	for i := 0; i < len(s); i++ {
		if isASCIISpace(s[i]) {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(s[i])
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += " "
		}
		out += f
	}
	return out
}

func (p *Parser) processConstants() *diagnostics.DiagnosticError {
	if p.scope != 0 {
		return p.errf(diagnostics.CodeConstantOutsideTopLevel, "$c statement outside top-level scope")
	}

	var symbols []string
	for {
		tok, line, col, ok := p.lex.next()
		if !ok {
			return p.errf(diagnostics.CodeUnclosedComment, "unexpected end of file in $c statement")
		}
		if tok == "$(" {
			if _, err := p.advanceEndOfComment(); err != nil {
				return err
			}
			continue
		}
		if tok == "$." {
			break
		}
		if !isValidMathSymbol(tok) {
			return diagnostics.New(diagnostics.CodeInvalidSymbol, diagnostics.SpanAt(line, col, len(tok)), "%q is not a valid math symbol", tok)
		}
		if p.activeConsts[tok] || p.activeVars[0][tok] || p.prevVariables[tok] {
			return diagnostics.New(diagnostics.CodeSymbolAlreadyDeclared, diagnostics.SpanAt(line, col, len(tok)), "%q is already declared", tok)
		}
		symbols = append(symbols, tok)
		p.activeConsts[tok] = true
	}

	if len(symbols) == 0 {
		return p.errf(diagnostics.CodeInvalidSymbol, "$c statement declares no symbols")
	}

	h, err := p.curHeader()
	if err != nil {
		return err
	}
	h.Content = append(h.Content, database.Statement{Kind: database.KindConstantGroup, Constants: symbols})
	return nil
}

func (p *Parser) processVariables() *diagnostics.DiagnosticError {
	var symbols []string
	for {
		tok, line, col, ok := p.lex.next()
		if !ok {
			return p.errf(diagnostics.CodeUnclosedComment, "unexpected end of file in $v statement")
		}
		if tok == "$(" {
			if _, err := p.advanceEndOfComment(); err != nil {
				return err
			}
			continue
		}
		if tok == "$." {
			break
		}
		if !isValidMathSymbol(tok) {
			return diagnostics.New(diagnostics.CodeInvalidSymbol, diagnostics.SpanAt(line, col, len(tok)), "%q is not a valid math symbol", tok)
		}
		if p.activeConsts[tok] {
			return diagnostics.New(diagnostics.CodeVariableIsConstant, diagnostics.SpanAt(line, col, len(tok)), "%q is already a constant", tok)
		}
		if p.isActiveVariable(tok) {
			return diagnostics.New(diagnostics.CodeVariableAlreadyActive, diagnostics.SpanAt(line, col, len(tok)), "%q is already an active variable", tok)
		}
		symbols = append(symbols, tok)
		p.activeVars[p.scope][tok] = true
	}

	if len(symbols) == 0 {
		return p.errf(diagnostics.CodeInvalidSymbol, "$v statement declares no symbols")
	}

	if p.scope == 0 {
		h, err := p.curHeader()
		if err != nil {
			return err
		}
		h.Content = append(h.Content, database.Statement{Kind: database.KindVariableGroup, Variables: symbols})
	}
	return nil
}

func (p *Parser) varTypeAlreadyDeclared(variable string) bool {
	for _, scope := range p.activeFloatHyps {
		for _, fh := range scope {
			if fh.Variable == variable {
				return true
			}
		}
	}
	return false
}

func (p *Parser) varTypeConflictsWithPrevious(typecode, variable string) bool {
	for _, fh := range p.prevFloatHyps {
		if fh.Variable == variable && fh.Typecode != typecode {
			return true
		}
	}
	return false
}

func (p *Parser) processFloatingHypothesis() *diagnostics.DiagnosticError {
	label, err := p.takeLabel()
	if err != nil {
		return err
	}

	var tokens []string
	for {
		tok, _, _, ok := p.lex.next()
		if !ok {
			return p.errf(diagnostics.CodeUnclosedComment, "unexpected end of file in $f statement")
		}
		if tok == "$(" {
			if _, e := p.advanceEndOfComment(); e != nil {
				return e
			}
			continue
		}
		if tok == "$." {
			break
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) != 2 {
		return p.errf(diagnostics.CodeFloatHypStatementFormat, "$f statement must have exactly a typecode and a variable")
	}
	typecode, variable := tokens[0], tokens[1]

	if !p.activeConsts[typecode] {
		return p.errf(diagnostics.CodeFloatHypTypecodeNotActive, "typecode %q is not an active constant", typecode)
	}
	if !p.isActiveVariable(variable) {
		return p.errf(diagnostics.CodeFloatHypVariableNotActive, "variable %q is not active", variable)
	}
	if p.varTypeAlreadyDeclared(variable) {
		return p.errf(diagnostics.CodeVariableAlreadyHasFloatHyp, "variable %q already has a floating hypothesis in scope", variable)
	}
	if p.varTypeConflictsWithPrevious(typecode, variable) {
		return p.errf(diagnostics.CodeFloatHypTypecodeConflict, "variable %q was previously typed with a different typecode", variable)
	}

	fh := database.FloatingHypothesis{Label: label, Typecode: typecode, Variable: variable}
	if p.scope == 0 {
		h, err := p.curHeader()
		if err != nil {
			return err
		}
		h.Content = append(h.Content, database.Statement{Kind: database.KindFloatingHypothesis, FloatHyp: fh})
	}
	p.activeFloatHyps[p.scope] = append(p.activeFloatHyps[p.scope], fh)
	return nil
}

func (p *Parser) takeLabel() (string, *diagnostics.DiagnosticError) {
	if !p.hasNextLabel {
		return "", p.errf(diagnostics.CodeMissingProofKeyword, "statement requires a preceding label")
	}
	label := p.nextLabel
	p.hasNextLabel = false
	p.nextLabel = ""
	return label, nil
}

func (p *Parser) processEssentialHypothesis() *diagnostics.DiagnosticError {
	label, err := p.takeLabel()
	if err != nil {
		return err
	}
	expr, err := p.advanceExpressionUntil("$.")
	if err != nil {
		return err
	}
	p.activeHyps[p.scope] = append(p.activeHyps[p.scope], database.Hypothesis{Label: label, Expression: expr})
	return nil
}

func (p *Parser) processDisjoint() *diagnostics.DiagnosticError {
	var vars []string
	for {
		tok, line, col, ok := p.lex.next()
		if !ok {
			return p.errf(diagnostics.CodeUnclosedComment, "unexpected end of file in $d statement")
		}
		if tok == "$(" {
			if _, e := p.advanceEndOfComment(); e != nil {
				return e
			}
			continue
		}
		if tok == "$." {
			break
		}
		if !p.isActiveVariable(tok) {
			return diagnostics.New(diagnostics.CodeDisjVariableNotActive, diagnostics.SpanAt(line, col, len(tok)), "%q is not an active variable", tok)
		}
		vars = append(vars, tok)
	}
	if len(vars) < 2 {
		return p.errf(diagnostics.CodeZeroOrOneSymbolDisj, "$d statement must name at least two variables")
	}
	p.activeDists[p.scope] = append(p.activeDists[p.scope], vars)
	return nil
}

func (p *Parser) processTheorem(isAxiom bool) *diagnostics.DiagnosticError {
	label, err := p.takeLabel()
	if err != nil {
		return err
	}

	description := ""
	if p.hasDescription {
		description = p.pendingDesc
		if p.scope == 0 {
			h, herr := p.curHeader()
			if herr != nil {
				return herr
			}
			if n := len(h.Content); n > 0 {
				h.Content = h.Content[:n-1]
			}
		}
	}

	var distincts [][]string
	for _, scope := range p.activeDists {
		distincts = append(distincts, scope...)
	}
	var hyps []database.Hypothesis
	for _, scope := range p.activeHyps {
		hyps = append(hyps, scope...)
	}

	endKeyword := "$."
	if !isAxiom {
		endKeyword = "$="
	}
	assertion, err := p.advanceExpressionUntil(endKeyword)
	if err != nil {
		return err
	}

	var proof *string
	if !isAxiom {
		text, err := p.advanceStatementIgnoreComments()
		if err != nil {
			return err
		}
		proof = &text
	}

	h, herr := p.curHeader()
	if herr != nil {
		return herr
	}
	h.Content = append(h.Content, database.Statement{
		Kind: database.KindTheorem,
		Theorem: database.Theorem{
			Label:       label,
			Description: description,
			Distincts:   distincts,
			Hypotheses:  hyps,
			Assertion:   assertion,
			Proof:       proof,
		},
	})
	p.theoremCount++
	return nil
}

// advanceStatementIgnoreComments reads raw tokens up to "$.", skipping
// nested comments, with no symbol-activity constraint: a proof's body is
// either labels or compressed-proof letters, neither of which is a
// Metamath symbol subject to the $e/$a expression rules.
func (p *Parser) advanceStatementIgnoreComments() (string, *diagnostics.DiagnosticError) {
	var parts []string
	for {
		tok, _, _, ok := p.lex.next()
		if !ok {
			return "", p.errf(diagnostics.CodeUnclosedComment, "unexpected end of file in proof")
		}
		if tok == "$(" {
			if _, err := p.advanceEndOfComment(); err != nil {
				return "", err
			}
			continue
		}
		if tok == "$." {
			break
		}
		if len(parts) > 0 {
			parts = append(parts, " ")
		}
		parts = append(parts, tok)
	}
	return joinStrings(parts), nil
}
