// Package proof implements the proof-string codec and reverse-direction
// stack-machine verifier of spec §4.7 Stage 6 / §4.8: turning a completed
// proof tree into Metamath's uncompressed or compressed proof text, turning
// compressed text back into the flat label sequence a verifier consumes,
// and replaying that sequence against a theorem's recorded assertions to
// confirm it actually proves what it claims. Grounded on
// original_source/src-tauri/src/metamath/mmp_parser/stage_6.rs (encoding)
// and original_source/src-tauri/src/metamath/verify.rs (verification).
package proof

// Node is one step of a proof tree: a label (hypothesis, axiom, or
// theorem) together with the already-built subproofs supplying its
// mandatory hypotheses, in declaration order. A leaf (len(Children) == 0)
// is a hypothesis reference or a zero-hypothesis axiom.
type Node struct {
	Label    string
	Children []*Node
}

// NewLeaf builds a hypothesis or zero-hypothesis-axiom node.
func NewLeaf(label string) *Node { return &Node{Label: label} }

// NewNode builds an interior node citing label over the given, already
// ordered, child subproofs.
func NewNode(label string, children []*Node) *Node {
	return &Node{Label: label, Children: children}
}
