package mmsource

import (
	"strings"

	"github.com/mmverify/mmcore/internal/database"
)

// DefaultWidth is the canonical wrap column (spec §6: "comments wrap at 80
// columns").
const DefaultWidth = 80

// Render writes root back out in canonical Metamath source form: the
// on-disk layout the proof engine both consumes and bit-exactly
// reproduces for everything except a theorem's proof encoding, which
// comes from internal/proof. Comments wrap at width columns; a theorem
// carrying essential hypotheses is wrapped in its own ${ … $} scope so the
// hypotheses it was checked against are visible only to it.
func Render(root *database.Header, width int) []byte {
	if width <= 0 {
		width = DefaultWidth
	}
	var b strings.Builder
	renderHeader(&b, root, 0, width)
	return []byte(b.String())
}

func renderHeader(b *strings.Builder, h *database.Header, depth int, width int) {
	if depth > 0 {
		writeHeaderComment(b, h.Title, depth, width)
	}
	for i := range h.Content {
		renderStatement(b, &h.Content[i], width)
	}
	for i := range h.Subheaders {
		renderHeader(b, &h.Subheaders[i], depth+1, width)
	}
}

func writeHeaderComment(b *strings.Builder, title string, depth int, width int) {
	marker := headerMarkers[len(headerMarkers)-1]
	if depth-1 < len(headerMarkers) {
		marker = headerMarkers[depth-1]
	}
	b.WriteString("$(\n")
	for _, line := range wrapWords(strings.Fields(marker+" "+title+" "+marker), width) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("$)\n")
}

func renderStatement(b *strings.Builder, s *database.Statement, width int) {
	switch s.Kind {
	case database.KindComment:
		writeComment(b, s.Comment, width)
	case database.KindConstantGroup:
		writeWrappedKeyword(b, "$c", s.Constants, width)
	case database.KindVariableGroup:
		writeWrappedKeyword(b, "$v", s.Variables, width)
	case database.KindFloatingHypothesis:
		b.WriteString(s.FloatHyp.Label)
		b.WriteString(" $f ")
		b.WriteString(s.FloatHyp.Typecode)
		b.WriteString(" ")
		b.WriteString(s.FloatHyp.Variable)
		b.WriteString(" $.\n")
	case database.KindTheorem:
		writeTheorem(b, &s.Theorem, width)
	}
}

func writeComment(b *strings.Builder, text string, width int) {
	b.WriteString("$(\n")
	for _, line := range wrapWords(strings.Fields(text), width) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("$)\n")
}

func writeWrappedKeyword(b *strings.Builder, keyword string, symbols []string, width int) {
	words := append([]string{keyword}, symbols...)
	words = append(words, "$.")
	for _, line := range wrapWords(words, width) {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeTheorem(b *strings.Builder, th *database.Theorem, width int) {
	scoped := len(th.Hypotheses) > 0
	if scoped {
		b.WriteString("${\n")
	}
	if th.Description != "" {
		writeComment(b, th.Description, width)
	}
	for _, clause := range th.Distincts {
		writeWrappedKeyword(b, "$d", clause, width)
	}
	for _, hyp := range th.Hypotheses {
		words := []string{hyp.Label, "$e"}
		words = append(words, strings.Fields(hyp.Expression)...)
		words = append(words, "$.")
		for _, line := range wrapWords(words, width) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	keyword := "$a"
	if th.Proof != nil {
		keyword = "$p"
	}
	words := []string{th.Label, keyword}
	words = append(words, strings.Fields(th.Assertion)...)
	if th.Proof == nil {
		words = append(words, "$.")
		for _, line := range wrapWords(words, width) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	} else {
		words = append(words, "$=")
		for _, line := range wrapWords(words, width) {
			b.WriteString(line)
			b.WriteString("\n")
		}
		for _, line := range renderProof(*th.Proof, width) {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("$.\n")
	}

	if scoped {
		b.WriteString("$}\n")
	}
}

// renderProof wraps a proof's stored text: a compressed proof's label
// region wraps on whitespace while its code region wraps with no
// separator at all (spec §6), an uncompressed proof is plain
// whitespace-wrapped label text.
func renderProof(proof string, width int) []string {
	fields := strings.Fields(proof)
	if len(fields) > 0 && fields[0] == "(" {
		closeIdx := -1
		for i, f := range fields {
			if f == ")" {
				closeIdx = i
				break
			}
		}
		if closeIdx >= 0 {
			labelWords := fields[:closeIdx+1]
			var lines []string
			lines = append(lines, wrapWords(labelWords, width)...)
			if closeIdx+1 < len(fields) {
				code := strings.Join(fields[closeIdx+1:], "")
				lines = append(lines, wrapNoSeparator(code, width)...)
			}
			return lines
		}
	}
	return wrapWords(fields, width)
}

// wrapWords greedily packs words onto lines no wider than width, each line
// separated from the next word by a single space.
func wrapWords(words []string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() == 0 {
			cur.WriteString(w)
			continue
		}
		if cur.Len()+1+len(w) > width {
			lines = append(lines, cur.String())
			cur.Reset()
			cur.WriteString(w)
			continue
		}
		cur.WriteString(" ")
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// wrapNoSeparator breaks s into width-wide chunks with no delimiter, as
// the compressed-proof code region requires.
func wrapNoSeparator(s string, width int) []string {
	var lines []string
	for len(s) > width {
		lines = append(lines, s[:width])
		s = s[width:]
	}
	if len(s) > 0 {
		lines = append(lines, s)
	}
	return lines
}
