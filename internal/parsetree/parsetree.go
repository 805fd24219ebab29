// Package parsetree implements the recursive parse-tree structure of
// spec §3: every node is either a grammar-rule application with ordered
// children, or a work variable bearing (typecode, base-variable,
// generation number).
package parsetree

import "github.com/mmverify/mmcore/internal/symtab"

// WorkVariable is an internal typed metavariable used during proof editing
// to stand for an unknown sub-expression. Two work variables are equal iff
// all three components match.
type WorkVariable struct {
	Typecode symtab.ID
	Base     symtab.ID
	Number   int
}

func (a WorkVariable) Equal(b WorkVariable) bool {
	return a.Typecode == b.Typecode && a.Base == b.Base && a.Number == b.Number
}

// Node is the tagged variant described in spec §3. Exactly one of the two
// shapes is populated, distinguished by IsWorkVariable; there is no
// virtual dispatch, matching the "no dynamic dispatch" design note.
type Node struct {
	IsWorkVariable bool

	// populated when !IsWorkVariable
	Rule     int // index into the owning grammar's rule list
	Children []*Node

	// populated when IsWorkVariable
	WorkVar WorkVariable
}

func NewNode(rule int, children []*Node) *Node {
	return &Node{Rule: rule, Children: children}
}

func NewWorkVariable(wv WorkVariable) *Node {
	return &Node{IsWorkVariable: true, WorkVar: wv}
}

// Tree pairs a top node with its computed typecode.
type Tree struct {
	Top      *Node
	Typecode symtab.ID
}

// HasWorkVariables reports whether any node in the subtree rooted at n is
// a work variable.
func (n *Node) HasWorkVariables() bool {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.IsWorkVariable {
			return true
		}
		stack = append(stack, cur.Children...)
	}
	return false
}

// RuleLookup is the minimal view of a grammar the tree walkers need,
// avoiding a hard dependency from parsetree -> grammar (grammar already
// depends on parsetree for rule-application children).
type RuleLookup interface {
	IsFloatingHypothesis(rule int) bool
}

// FloatingHypothesisRules collects the set of floating-hypothesis rule
// indices occurring (as whole subtrees) anywhere within n, stopping the
// walk at each one found (a floating-hypothesis application has no further
// floating-hypothesis descendants by construction).
func (n *Node) FloatingHypothesisRules(g RuleLookup) map[int]struct{} {
	out := make(map[int]struct{})
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.IsWorkVariable {
			continue
		}
		if g.IsFloatingHypothesis(cur.Rule) {
			out[cur.Rule] = struct{}{}
			continue
		}
		stack = append(stack, cur.Children...)
	}
	return out
}

// Equal does a deep structural comparison of two nodes.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.IsWorkVariable != o.IsWorkVariable {
		return false
	}
	if n.IsWorkVariable {
		return n.WorkVar.Equal(o.WorkVar)
	}
	if n.Rule != o.Rule || len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies the subtree rooted at n. Substitution is by cloning
// sub-trees, never by sharing a reference graph (design note §9).
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	if n.IsWorkVariable {
		return &Node{IsWorkVariable: true, WorkVar: n.WorkVar}
	}
	children := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = c.Clone()
	}
	return &Node{Rule: n.Rule, Children: children}
}
