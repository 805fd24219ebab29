package database

import "strconv"

// ElementKind distinguishes the two shapes a depth-first walk can yield
// (spec §4.4).
type ElementKind int

const (
	ElementHeader ElementKind = iota
	ElementStatement
)

// StatementRef locates one statement: the header that owns its Content
// slice, and its index within that slice.
type StatementRef struct {
	HeaderPath HeaderPath
	Index      int
}

// Element is one node of the depth-first walk: either a header (with its
// path and depth, depth 1 at the root's direct subheaders) or a statement.
type Element struct {
	Kind ElementKind

	HeaderPath HeaderPath
	Depth      int
	Header     *Header

	StatementRef StatementRef
	Statement    *Statement
}

// Elements returns the full depth-first walk of root: each header is
// yielded before its own content and subheaders, each statement in its
// declaration order within its owning header.
func Elements(root *Header) []Element {
	var out []Element
	var walk func(h *Header, path HeaderPath, depth int)
	walk = func(h *Header, path HeaderPath, depth int) {
		if depth > 0 {
			out = append(out, Element{Kind: ElementHeader, HeaderPath: path, Depth: depth, Header: h})
		}
		for i := range h.Content {
			out = append(out, Element{
				Kind:         ElementStatement,
				StatementRef: StatementRef{HeaderPath: path, Index: i},
				Statement:    &h.Content[i],
			})
		}
		for i := range h.Subheaders {
			walk(&h.Subheaders[i], path.Child(i), depth+1)
		}
	}
	walk(root, HeaderPath{}, 0)
	return out
}

// Constants, Variables, FloatingHypotheses and Theorems are the
// specialised filtering iterators named in spec §4.4: each collapses the
// full walk down to the statement kind named.

func Constants(root *Header) []Element {
	return filterKind(root, KindConstantGroup)
}

func Variables(root *Header) []Element {
	return filterKind(root, KindVariableGroup)
}

func FloatingHypotheses(root *Header) []Element {
	return filterKind(root, KindFloatingHypothesis)
}

func Theorems(root *Header) []Element {
	return filterKind(root, KindTheorem)
}

func filterKind(root *Header, kind StatementKind) []Element {
	var out []Element
	for _, el := range Elements(root) {
		if el.Kind == ElementStatement && el.Statement.Kind == kind {
			out = append(out, el)
		}
	}
	return out
}

// AnchorKind selects which of the locate-after anchor shapes of spec §4.4
// an Anchor carries.
type AnchorKind int

const (
	AnchorStart AnchorKind = iota
	AnchorHeader
	AnchorComment
	AnchorConstant
	AnchorVariable
	AnchorTheoremOrFloatingHypothesis
)

// Anchor identifies an insertion point for an edit: either the very start
// of the database, or the element a walk of the tree will match by the
// rule described per-kind below.
type Anchor struct {
	Kind AnchorKind

	// HeaderPath is consulted for AnchorHeader.
	HeaderPath HeaderPath

	// CommentPath is consulted for AnchorComment, in the "h1.h2...#k" form:
	// dot-separated 1-based subheader indices, then "#" and the 0-based
	// index of the comment within that header's content.
	CommentPath string

	// Symbol is consulted for AnchorConstant/AnchorVariable.
	Symbol string

	// Label is consulted for AnchorTheoremOrFloatingHypothesis.
	Label string
}

// ErrAnchorNotFound reports that an Anchor's target does not occur in the
// tree being walked.
var ErrAnchorNotFound = &anchorError{}

type anchorError struct{}

func (*anchorError) Error() string { return "locate-after anchor not found" }

// LocateAfter returns the suffix of the full depth-first walk beginning
// immediately after the element matching anchor (spec §4.4). AnchorStart
// returns the entire walk.
func LocateAfter(root *Header, anchor Anchor) ([]Element, error) {
	elements := Elements(root)
	if anchor.Kind == AnchorStart {
		return elements, nil
	}
	for i, el := range elements {
		if anchorMatches(anchor, el) {
			return elements[i+1:], nil
		}
	}
	return nil, ErrAnchorNotFound
}

func anchorMatches(a Anchor, el Element) bool {
	switch a.Kind {
	case AnchorHeader:
		return el.Kind == ElementHeader && el.HeaderPath.Equal(a.HeaderPath)
	case AnchorComment:
		if el.Kind != ElementStatement || el.Statement.Kind != KindComment {
			return false
		}
		return commentPath(el.StatementRef) == a.CommentPath
	case AnchorConstant:
		if el.Kind != ElementStatement || el.Statement.Kind != KindConstantGroup {
			return false
		}
		return containsString(el.Statement.Constants, a.Symbol)
	case AnchorVariable:
		if el.Kind != ElementStatement || el.Statement.Kind != KindVariableGroup {
			return false
		}
		return containsString(el.Statement.Variables, a.Symbol)
	case AnchorTheoremOrFloatingHypothesis:
		if el.Kind != ElementStatement {
			return false
		}
		switch el.Statement.Kind {
		case KindTheorem:
			return el.Statement.Theorem.Label == a.Label
		case KindFloatingHypothesis:
			return el.Statement.FloatHyp.Label == a.Label
		}
	}
	return false
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// commentPath renders ref in the "h1.h2...#k" form described in spec §4.4:
// the owning header's 1-based child indices at each depth, joined by ".",
// then "#" and the statement's 0-based index.
func commentPath(ref StatementRef) string {
	s := ""
	for _, idx := range ref.HeaderPath.Path {
		if s != "" {
			s += "."
		}
		s += strconv.Itoa(idx + 1)
	}
	s += "#" + strconv.Itoa(ref.Index)
	return s
}
