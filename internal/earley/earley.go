// Package earley implements the Earley recognizer/builder of spec §4.3: it
// parses an input token sequence (which may include first-class work
// variables) against a target typecode and returns the parse trees the
// grammar admits.
//
// This is a close port of the original implementation's state-set loop
// (original_source/src-tauri/src/util/earley_parser_optimized.rs), adapted
// to the precomputed dispatch tables of internal/grammar.
package earley

import (
	"errors"

	"github.com/mmverify/mmcore/internal/grammar"
	"github.com/mmverify/mmcore/internal/parsetree"
	"github.com/mmverify/mmcore/internal/symtab"
)

var (
	// ErrMissingExpression is returned for an empty input sequence.
	ErrMissingExpression = errors.New("missing expression")
	// ErrExpressionParse is returned when no parse spans the full input.
	ErrExpressionParse = errors.New("expression parse error")
)

// Input is one token of the sequence handed to the recognizer: either a
// known symbol id, or a work variable standing in for any sub-tree of its
// typecode.
type Input struct {
	IsWorkVariable bool
	ID             symtab.ID
	WorkVar        parsetree.WorkVariable
}

func Symbol(id symtab.ID) Input { return Input{ID: id} }

func WorkVariable(wv parsetree.WorkVariable) Input {
	return Input{IsWorkVariable: true, WorkVar: wv}
}

type itemKind int

const (
	kindSingle itemKind = iota
	kindCombined
)

// item is a state in the Earley table. Single represents "rule partially
// matched up to processed tokens, began at origin, with children parse
// trees so far"; Combined is the compact predictor set "(typecode,
// origin)".
type item struct {
	kind itemKind

	// Single fields. ruleIdx == goalRule for the synthetic goal item.
	ruleIdx   int
	processed int
	start     int
	children  []*parsetree.Node

	// Combined fields (start doubles as the Combined item's origin).
	typecode symtab.ID
}

// goalRule is the sentinel rule index identifying the synthetic goal item
// seeded at position 0, mirroring the original's rule_i == -1 convention.
const goalRule = -1

type stateSet struct {
	unprocessed []item
	processed   []item
	combinedAt  map[symtab.ID]bool
}

func newStateSet() *stateSet {
	return &stateSet{combinedAt: make(map[symtab.ID]bool)}
}

func (s *stateSet) insert(it item) {
	if it.kind == kindCombined {
		if s.combinedAt[it.typecode] {
			return
		}
		s.combinedAt[it.typecode] = true
	}
	s.unprocessed = append(s.unprocessed, it)
}

func (s *stateSet) next() (item, bool) {
	if len(s.unprocessed) == 0 {
		return item{}, false
	}
	it := s.unprocessed[len(s.unprocessed)-1]
	s.unprocessed = s.unprocessed[:len(s.unprocessed)-1]
	s.processed = append(s.processed, it)
	return it, true
}

// Engine recognises expressions against a fixed grammar and symbol table.
type Engine struct {
	g       *grammar.Grammar
	symbols *symtab.Table
}

func New(g *grammar.Grammar, symbols *symtab.Table) *Engine {
	return &Engine{g: g, symbols: symbols}
}

// run carries the per-call state (goal production, sets, input) that the
// predictor/scanner/completer share.
type run struct {
	e       *Engine
	goalRhs []symtab.ID
	sets    []*stateSet
	expr    []Input
}

func (r *run) rhsOf(ruleIdx int) []symtab.ID {
	if ruleIdx == goalRule {
		return r.goalRhs
	}
	return r.e.g.Rules[ruleIdx].Rhs
}

func (r *run) lhsOf(ruleIdx int) symtab.ID {
	if ruleIdx == goalRule {
		return 0 // never consulted: the goal item is never itself completed-over
	}
	return r.e.g.Rules[ruleIdx].Lhs
}

// Parse recognises expr against target and returns the resulting ordered
// parse-tree children (spec §4.3's "Result").
func (e *Engine) Parse(expr []Input, target symtab.ID) ([]*parsetree.Node, error) {
	if len(expr) == 0 {
		return nil, ErrMissingExpression
	}

	r := &run{e: e, goalRhs: []symtab.ID{target}, expr: expr}
	r.sets = make([]*stateSet, len(expr)+1)
	for i := range r.sets {
		r.sets[i] = newStateSet()
	}
	r.sets[0].insert(item{kind: kindSingle, ruleIdx: goalRule, processed: 0, start: 0})

	for k := 0; k <= len(expr); k++ {
		cur := r.sets[k]
		for {
			it, ok := cur.next()
			if !ok {
				break
			}
			if it.kind == kindCombined {
				r.burstCombined(it, k)
				continue
			}
			rhs := r.rhsOf(it.ruleIdx)
			if it.processed >= len(rhs) {
				r.complete(it, k)
				continue
			}
			nextSym := rhs[it.processed]
			if e.symbols.IsTypecode(nextSym) {
				r.predict(it, k, nextSym)
			} else {
				r.scan(it, k, nextSym)
			}
		}
	}

	final := r.sets[len(expr)]
	for _, it := range final.processed {
		if it.kind == kindSingle && it.ruleIdx == goalRule && it.processed >= len(r.goalRhs) && it.start == 0 {
			return it.children, nil
		}
	}
	return nil, ErrExpressionParse
}

func (r *run) predict(it item, k int, typecode symtab.ID) {
	r.sets[k].insert(item{kind: kindCombined, typecode: typecode, start: k})
}

func (r *run) scan(it item, k int, expected symtab.ID) {
	if k >= len(r.expr) {
		return
	}
	tok := r.expr[k]
	if tok.IsWorkVariable {
		// A Single item's next expected symbol is a specific terminal
		// (variable or constant) id; a work variable never equals a
		// specific terminal, so it cannot satisfy a direct scan. It can
		// only be consumed through the Combined/predict path, where the
		// next expected symbol is a typecode (spec §4.3 scanner note).
		return
	}
	if tok.ID != expected {
		return
	}
	children := append([]*parsetree.Node{}, it.children...)
	r.sets[k+1].insert(item{kind: kindSingle, ruleIdx: it.ruleIdx, processed: it.processed + 1, start: it.start, children: children})
}

// burstCombined performs, in one step, the union of predictor expansion
// (combined_states_to_add) and terminal scanning (single_states_to_add),
// including the work-variable special case.
func (r *run) burstCombined(it item, k int) {
	g := r.e.g
	tcIdx := int(it.typecode) - 1
	if tcIdx >= 0 && tcIdx < len(g.CombinedStatesToAdd) {
		for _, nextTc := range g.CombinedStatesToAdd[tcIdx] {
			r.sets[k].insert(item{kind: kindCombined, typecode: nextTc, start: k})
		}
	}

	if k >= len(r.expr) {
		return
	}
	tok := r.expr[k]
	if tok.IsWorkVariable {
		// The work-variable rule for a typecode tc was installed at rule
		// index tc-1 (internal/grammar adds them first, in typecode id
		// order); scanning a work variable of typecode tc therefore
		// always advances exactly that rule.
		wvRule := int(tok.WorkVar.Typecode) - 1
		if wvRule < 0 || wvRule >= len(g.Rules) || g.Rules[wvRule].Lhs != it.typecode {
			return
		}
		child := parsetree.NewWorkVariable(tok.WorkVar)
		r.sets[k+1].insert(item{kind: kindSingle, ruleIdx: wvRule, processed: 1, start: it.start, children: []*parsetree.Node{child}})
		return
	}
	termIdx := int(tok.ID) - r.e.symbols.TypecodeCount() - 1
	if tcIdx < 0 || tcIdx >= len(g.SingleStatesToAdd) || termIdx < 0 || termIdx >= len(g.SingleStatesToAdd[tcIdx]) {
		return
	}
	for _, ruleIdx := range g.SingleStatesToAdd[tcIdx][termIdx] {
		r.sets[k+1].insert(item{kind: kindSingle, ruleIdx: ruleIdx, processed: 1, start: it.start})
	}
}

// complete advances every item in the origin set that was waiting on this
// rule's lhs typecode, wrapping the just-completed item into a parse-tree
// node on the way — except for a work-variable rule completion, whose
// already-scanned WorkVariable child is propagated verbatim rather than
// wrapped in a new Node (spec §4.3 "work-variable unwrap").
func (r *run) complete(it item, k int) {
	if it.ruleIdx == goalRule {
		return // the goal item never completes over anything else
	}
	lhs := r.lhsOf(it.ruleIdx)
	rhs := r.rhsOf(it.ruleIdx)

	var resultNode *parsetree.Node
	if len(rhs) > 0 && rhs[0] == grammar.WorkVariableSentinel {
		resultNode = it.children[0]
	} else {
		resultNode = parsetree.NewNode(it.ruleIdx, append([]*parsetree.Node{}, it.children...))
	}

	g := r.e.g
	for _, other := range r.sets[it.start].processed {
		switch other.kind {
		case kindSingle:
			otherRhs := r.rhsOf(other.ruleIdx)
			if other.processed >= len(otherRhs) || otherRhs[other.processed] != lhs {
				continue
			}
			newChildren := append(append([]*parsetree.Node{}, other.children...), resultNode)
			r.sets[k].insert(item{kind: kindSingle, ruleIdx: other.ruleIdx, processed: other.processed + 1, start: other.start, children: newChildren})
		case kindCombined:
			outerIdx := int(other.typecode) - 1
			lhsIdx := int(lhs) - 1
			if outerIdx < 0 || outerIdx >= len(g.CompleterRules) || lhsIdx < 0 || lhsIdx >= len(g.CompleterRules[outerIdx]) {
				continue
			}
			for _, ruleIdx := range g.CompleterRules[outerIdx][lhsIdx] {
				r.sets[k].insert(item{kind: kindSingle, ruleIdx: ruleIdx, processed: 1, start: other.start, children: []*parsetree.Node{resultNode}})
			}
		}
	}
}
