package proof

import "strings"

// EncodeUncompressed flattens root into the plain whitespace-separated
// proof form: a post-order label walk, directly executable by a
// forward-direction stack machine one token at a time.
func EncodeUncompressed(root *Node) string {
	var toks []string
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			walk(c)
		}
		toks = append(toks, n.Label)
	}
	walk(root)
	return strings.Join(toks, " ")
}

// EncodeCompressed produces the "( labels ) code" compressed form (spec §6):
// mandatory is the theorem's own ordered mandatory-hypothesis labels
// (floating and essential). Standard Metamath compressed proofs never print
// those inside the parenthesized label list — they occupy the implicit
// numeric positions 1..len(mandatory) — so only labels other than the
// theorem's own mandatory hypotheses are collected into the printed pool,
// each in first-use order, with printed-pool numbers starting right above
// len(mandatory). A subproof used more than once is emitted in full at its
// first occurrence, marked with a trailing 'Z' to record it as reusable, and
// referenced by that save index at every later occurrence. Grounded on
// original_source/src-tauri/src/metamath/mmp_parser/stage_6.rs's
// calc_compressed_proof, which excludes a theorem's own mandatory
// hypotheses from the printed list while still counting them in the
// numbering.
func EncodeCompressed(root *Node, mandatory []string) (labels []string, code string) {
	sig := make(map[*Node]string)
	var computeSig func(n *Node) string
	computeSig = func(n *Node) string {
		if s, ok := sig[n]; ok {
			return s
		}
		parts := make([]string, len(n.Children)+1)
		parts[0] = n.Label
		for i, c := range n.Children {
			parts[i+1] = computeSig(c)
		}
		s := strings.Join(parts, "\x00")
		sig[n] = s
		return s
	}

	count := make(map[string]int)
	var walkCount func(n *Node)
	walkCount = func(n *Node) {
		count[computeSig(n)]++
		for _, c := range n.Children {
			walkCount(c)
		}
	}
	walkCount(root)

	mandIndex := make(map[string]int, len(mandatory))
	for i, m := range mandatory {
		if _, ok := mandIndex[m]; !ok {
			mandIndex[m] = i + 1
		}
	}

	poolIndex := make(map[string]int)
	var pool []string
	addLabel := func(l string) {
		if _, ok := mandIndex[l]; ok {
			return
		}
		if _, ok := poolIndex[l]; !ok {
			pool = append(pool, l)
			poolIndex[l] = len(pool)
		}
	}
	var collect func(n *Node)
	collect = func(n *Node) {
		addLabel(n.Label)
		for _, c := range n.Children {
			collect(c)
		}
	}
	collect(root)

	h := len(mandatory)
	savedIndex := make(map[string]int)
	nextSaved := h + len(pool) + 1
	var sb strings.Builder
	var emit func(n *Node)
	emit = func(n *Node) {
		s := sig[n]
		if idx, ok := savedIndex[s]; ok {
			sb.WriteString(encodeNumber(idx))
			return
		}
		for _, c := range n.Children {
			emit(c)
		}
		var num int
		if mi, ok := mandIndex[n.Label]; ok {
			num = mi
		} else {
			num = h + poolIndex[n.Label]
		}
		sb.WriteString(encodeNumber(num))
		if count[s] > 1 {
			savedIndex[s] = nextSaved
			nextSaved++
			sb.WriteByte('Z')
		}
	}
	emit(root)

	return pool, sb.String()
}

// encodeNumber renders the 1-based index n using Metamath's compressed-proof
// digit alphabet: A-T (1-20) for a final low-order digit, preceded, for
// n > 20, by a base-5 run of U-Y high-order digits.
func encodeNumber(n int) string {
	if n < 1 {
		return ""
	}
	q := (n - 1) / 20
	r := (n-1)%20 + 1
	var prefix []byte
	for q > 0 {
		q--
		prefix = append(prefix, byte('U'+q%5))
		q /= 5
	}
	for i, j := 0, len(prefix)-1; i < j; i, j = i+1, j-1 {
		prefix[i], prefix[j] = prefix[j], prefix[i]
	}
	return string(prefix) + string(rune('A'+r-1))
}
