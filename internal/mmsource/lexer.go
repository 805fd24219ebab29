package mmsource

// lexer is the single-pass, maximal-non-whitespace-run tokeniser of spec
// §4.5, grounded on MmParser::advance_next_token. It tracks 1-based
// line/column for diagnostics and progress reporting.
type lexer struct {
	src  []byte
	pos  int
	line int
	col  int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

// next returns the next whitespace-delimited token, its starting
// line/column, and whether one was found.
func (l *lexer) next() (tok string, line, col int, ok bool) {
	for l.pos < len(l.src) && isASCIISpace(l.src[l.pos]) {
		l.advance()
	}
	start := l.pos
	startLine, startCol := l.line, l.col
	for l.pos < len(l.src) && !isASCIISpace(l.src[l.pos]) {
		l.advance()
	}
	if start == l.pos {
		return "", 0, 0, false
	}
	return string(l.src[start:l.pos]), startLine, startCol, true
}

// lineNumber reports the line the lexer's read head currently sits on,
// for progress reporting.
func (l *lexer) lineNumber() int { return l.line }

func (l *lexer) advance() {
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// isValidMathSymbol mirrors util::is_valid_math_symbol: printable ASCII
// excluding whitespace and the reserved '$' keyword marker.
func isValidMathSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '$' || b < 33 || b > 126 {
			return false
		}
	}
	return true
}

// isValidLabel mirrors util::is_valid_label: letters, digits, '-', '_', '.'.
func isValidLabel(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '-', b == '_', b == '.':
		default:
			return false
		}
	}
	return true
}

func isASCII(src []byte) bool {
	for _, b := range src {
		if b > 127 {
			return false
		}
	}
	return true
}
