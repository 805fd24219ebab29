// Package database implements the in-memory database tree of spec §3/§4.4:
// a Header/Statement tree read once from source, plus the depth-first and
// locate-after walks used to find edit insertion points.
package database

// StatementKind tags the closed variant a Statement carries (spec §3).
type StatementKind int

const (
	KindComment StatementKind = iota
	KindConstantGroup
	KindVariableGroup
	KindFloatingHypothesis
	KindTheorem
)

// Hypothesis is one essential hypothesis of a Theorem: a label and its
// expression text.
type Hypothesis struct {
	Label      string
	Expression string
}

// FloatingHypothesis is a $f statement: label, typecode name, and the
// variable it attaches to.
type FloatingHypothesis struct {
	Label    string
	Typecode string
	Variable string
}

// Theorem is an $a or $p statement that is not itself a bare syntax axiom
// fragment: full metadata plus optional proof text (absent for an axiom).
type Theorem struct {
	Label       string
	Description string
	// Distincts holds the theorem's disjoint-variable clauses, each a list
	// of >= 2 variable names.
	Distincts   [][]string
	Hypotheses  []Hypothesis
	Assertion   string
	Proof       *string
}

// Statement is the tagged variant of spec §3: exactly one of the kind-keyed
// fields is populated, matching the no-dynamic-dispatch discipline used
// throughout this module.
type Statement struct {
	Kind StatementKind

	Comment string

	// Constants/Variables hold the non-empty symbol list of a
	// ConstantGroup/VariableGroup statement, in declaration order.
	Constants []string
	Variables []string

	FloatHyp FloatingHypothesis
	Theorem  Theorem
}

// Header is a titled section of the database tree: its own content
// statements in order, followed by any nested subheaders.
type Header struct {
	Title       string
	Description string
	Content     []Statement
	Subheaders  []Header
}

// NewRoot returns an empty, untitled root header ready to receive content.
func NewRoot() *Header {
	return &Header{}
}

// HeaderPath is a vector of child indices from the root, identifying one
// subheader (spec §3). An empty path denotes the root itself.
type HeaderPath struct {
	Path []int
}

func (p HeaderPath) Equal(o HeaderPath) bool {
	if len(p.Path) != len(o.Path) {
		return false
	}
	for i := range p.Path {
		if p.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}

// At resolves p within root, returning the header it denotes.
func (p HeaderPath) At(root *Header) (*Header, bool) {
	h := root
	for _, idx := range p.Path {
		if idx < 0 || idx >= len(h.Subheaders) {
			return nil, false
		}
		h = &h.Subheaders[idx]
	}
	return h, true
}

// Child returns the path to root's idx'th direct subheader.
func (p HeaderPath) Child(idx int) HeaderPath {
	child := make([]int, len(p.Path)+1)
	copy(child, p.Path)
	child[len(p.Path)] = idx
	return HeaderPath{Path: child}
}
