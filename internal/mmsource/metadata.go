package mmsource

import "strings"

// HTMLRepresentation is one `htmldef`/`althtmldef` metadata entry: the
// HTML passes through to the environment unvalidated (spec §6 names this
// "HTML metadata passes through to the environment" — rendering-side
// validation is explicitly the caller's concern, not the core's).
type HTMLRepresentation struct {
	Symbol string
	HTML   string
}

// VariableColor is a `varcolorcode`/`altvarcolorcode` metadata directive.
type VariableColor struct {
	Typecode string
	Color    string
}

// SyntaxTypecode is a `syntaxtypecode "TC"` metadata directive.
type SyntaxTypecode struct {
	Typecode string
}

// LogicalTypecode is a `logicaltypecode "TC" as "SYNTAX_TC"` directive.
type LogicalTypecode struct {
	Typecode       string
	SyntaxTypecode string
}

// Metadata collects every `$j` / `$t` directive accumulated while parsing a
// source file.
type Metadata struct {
	HTML             []HTMLRepresentation
	VariableColors   []VariableColor
	AltVariableColors []VariableColor
	SyntaxTypecodes  []SyntaxTypecode
	LogicalTypecodes []LogicalTypecode
}

// tokenizeDirectiveText splits a `$t`/`$j` comment body into directive
// tokens: whitespace-delimited, a trailing ';' split off its token as a
// separate statement-terminator token, and "/*"-prefixed tokens (inline
// remarks) dropped, mirroring tokenize_typesetting_text.
func tokenizeDirectiveText(text string) []string {
	var out []string
	for _, raw := range strings.Fields(text) {
		if strings.HasPrefix(raw, "/*") {
			continue
		}
		if raw != ";" && strings.HasSuffix(raw, ";") {
			out = append(out, raw[:len(raw)-1], ";")
			continue
		}
		out = append(out, raw)
	}
	return out
}

// stringInQuotes returns the content of a `"..."`-quoted token.
func stringInQuotes(tok string) (string, bool) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", false
	}
	return tok[1 : len(tok)-1], true
}

func isHexColor(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// splitDirectiveStatements groups a directive token stream (leading `$t`
// or `$j` keyword already dropped) into ';'-terminated statements.
func splitDirectiveStatements(tokens []string) [][]string {
	var out [][]string
	var cur []string
	for _, tok := range tokens {
		if tok == ";" {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// parseTypesettingComment implements process_typesetting_comment: only
// `htmldef`/`althtmldef ... as "html" (+ "more")* ;` statements are
// meaningful to the core, everything else is ignored.
func (p *Parser) parseTypesettingComment(comment string) error {
	tokens := tokenizeDirectiveText(comment)
	if len(tokens) == 0 {
		return nil
	}
	for _, stmt := range splitDirectiveStatements(tokens[1:]) {
		if stmt[0] != "althtmldef" && stmt[0] != "htmldef" {
			continue
		}
		if len(stmt) < 4 || len(stmt)%2 != 0 || stmt[2] != "as" {
			return p.errf(codeTypesettingFormat, "malformed %s directive", stmt[0])
		}
		symbol, ok := stringInQuotes(stmt[1])
		if !ok {
			return p.errf(codeTypesettingFormat, "%s: symbol must be quoted", stmt[0])
		}
		var html strings.Builder
		part, ok := stringInQuotes(stmt[3])
		if !ok {
			return p.errf(codeTypesettingFormat, "%s: html must be quoted", stmt[0])
		}
		html.WriteString(part)
		next := 5
		for next < len(stmt) {
			if stmt[next-1] != "+" {
				return p.errf(codeTypesettingFormat, "%s: expected '+' continuation", stmt[0])
			}
			more, ok := stringInQuotes(stmt[next])
			if !ok {
				return p.errf(codeTypesettingFormat, "%s: html continuation must be quoted", stmt[0])
			}
			html.WriteString(more)
			next += 2
		}
		p.meta.HTML = append(p.meta.HTML, HTMLRepresentation{Symbol: symbol, HTML: html.String()})
	}
	return nil
}

// parseMetadataComment implements process_additional_information_comment:
// varcolorcode/altvarcolorcode/syntaxtypecode/logicaltypecode directives.
func (p *Parser) parseMetadataComment(comment string) error {
	tokens := tokenizeDirectiveText(comment)
	if len(tokens) == 0 {
		return nil
	}
	for _, stmt := range splitDirectiveStatements(tokens[1:]) {
		switch stmt[0] {
		case "varcolorcode", "altvarcolorcode":
			if len(stmt) != 4 || stmt[2] != "as" {
				return p.errf(codeTypesettingFormat, "malformed %s directive", stmt[0])
			}
			typecode, ok1 := stringInQuotes(stmt[1])
			color, ok2 := stringInQuotes(stmt[3])
			if !ok1 || !ok2 {
				return p.errf(codeTypesettingFormat, "%s: arguments must be quoted", stmt[0])
			}
			if !isHexColor(color) {
				return p.errf(codeTypesettingFormat, "%s: %q is not a 6-digit hex color", stmt[0], color)
			}
			list := &p.meta.VariableColors
			if stmt[0] == "altvarcolorcode" {
				list = &p.meta.AltVariableColors
			}
			for _, vc := range *list {
				if vc.Typecode == typecode {
					return p.errf(codeTypesettingFormat, "%s: typecode %q already has a color", stmt[0], typecode)
				}
			}
			*list = append(*list, VariableColor{Typecode: typecode, Color: color})
		case "syntaxtypecode":
			if len(stmt) != 2 {
				return p.errf(codeTypesettingFormat, "malformed syntaxtypecode directive")
			}
			tc, ok := stringInQuotes(stmt[1])
			if !ok {
				return p.errf(codeTypesettingFormat, "syntaxtypecode: argument must be quoted")
			}
			p.meta.SyntaxTypecodes = append(p.meta.SyntaxTypecodes, SyntaxTypecode{Typecode: tc})
		case "logicaltypecode":
			if len(stmt) != 4 || stmt[2] != "as" {
				return p.errf(codeTypesettingFormat, "malformed logicaltypecode directive")
			}
			tc, ok1 := stringInQuotes(stmt[1])
			syntaxTc, ok2 := stringInQuotes(stmt[3])
			if !ok1 || !ok2 {
				return p.errf(codeTypesettingFormat, "logicaltypecode: arguments must be quoted")
			}
			p.meta.LogicalTypecodes = append(p.meta.LogicalTypecodes, LogicalTypecode{Typecode: tc, SyntaxTypecode: syntaxTc})
		}
	}
	return nil
}
