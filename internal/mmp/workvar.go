package mmp

import (
	"github.com/mmverify/mmcore/internal/parsetree"
	"github.com/mmverify/mmcore/internal/symtab"
)

// WorkVariableManager hands out fresh work variables deterministically
// (spec §4.7 Stage 5 "work variable manager"): for a given (typecode,
// base-variable) pair, the next number is one past the highest number
// already in use anywhere in the in-progress proof, so a rerun of
// unification on an unmodified file never collides with a number a prior
// run minted. Grounded on mmp_parser/stage_5.rs's work-variable allocator.
type WorkVariableManager struct {
	seen map[wvKey]int
}

type wvKey struct {
	typecode symtab.ID
	base     symtab.ID
}

func newWorkVariableManager(st *State) *WorkVariableManager {
	wvm := &WorkVariableManager{seen: make(map[wvKey]int)}
	for _, step := range st.Steps {
		if step.Tree != nil {
			wvm.scan(step.Tree)
		}
	}
	return wvm
}

func (w *WorkVariableManager) scan(n *parsetree.Node) {
	if n == nil {
		return
	}
	if n.IsWorkVariable {
		k := wvKey{typecode: n.WorkVar.Typecode, base: n.WorkVar.Base}
		if n.WorkVar.Number > w.seen[k] {
			w.seen[k] = n.WorkVar.Number
		}
		return
	}
	for _, c := range n.Children {
		w.scan(c)
	}
}

// Fresh mints the next unused work variable for (typecode, base),
// incrementing the watermark so a second call for the same pair never
// repeats a number.
func (w *WorkVariableManager) Fresh(typecode, base symtab.ID) parsetree.WorkVariable {
	k := wvKey{typecode: typecode, base: base}
	w.seen[k]++
	return parsetree.WorkVariable{Typecode: typecode, Base: base, Number: w.seen[k]}
}
