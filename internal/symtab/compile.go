package symtab

import (
	"fmt"

	"github.com/mmverify/mmcore/internal/database"
)

// VariableWithoutTypecodeError reports a $v-declared variable that never
// occurs as the variable of any floating hypothesis in the tree, so it has
// no typecode to be declared against. Grounded on
// original_source/src-tauri/src/lib.rs's Error::VariableWithoutTypecode.
type VariableWithoutTypecodeError struct {
	Variable string
}

func (e *VariableWithoutTypecodeError) Error() string {
	return fmt.Sprintf("symtab: variable %q has no floating hypothesis binding it to a typecode", e.Variable)
}

// FromDatabase builds a Table deterministically from a fully loaded
// database, exactly as spec §4.1 requires: typecodes first (each distinct
// typecode seen in a floating hypothesis, keyed by its first appearance in
// source order), then variables in $v declaration order bound to the
// typecode their own $f statement names, then constants in $c declaration
// order.
//
// A variable's typecode is only known once its floating hypothesis has
// been seen, so this walks the tree twice: once to collect the
// variable→typecode-name binding from every floating hypothesis, once more
// to declare typecodes/variables/constants in the order spec §4.1 names.
// A variable with no floating hypothesis anywhere in the tree (declared,
// say, only to appear in a $d statement) has no typecode to bind it to and
// is reported via *VariableWithoutTypecodeError rather than silently given
// a fabricated typecode of its own.
func FromDatabase(root *database.Header) (*Table, error) {
	varTypecode := make(map[string]string)
	typecodeOrder := make([]string, 0)
	seenTypecode := make(map[string]bool)
	for _, el := range database.FloatingHypotheses(root) {
		fh := el.Statement.FloatHyp
		if _, ok := varTypecode[fh.Variable]; !ok {
			varTypecode[fh.Variable] = fh.Typecode
		}
		if !seenTypecode[fh.Typecode] {
			seenTypecode[fh.Typecode] = true
			typecodeOrder = append(typecodeOrder, fh.Typecode)
		}
	}

	b := NewBuilder()
	tcID := make(map[string]ID, len(typecodeOrder))
	for _, tc := range typecodeOrder {
		tcID[tc] = b.DeclareTypecode(tc)
	}

	for _, el := range database.Variables(root) {
		for _, v := range el.Statement.Variables {
			tc, ok := varTypecode[v]
			if !ok {
				return nil, &VariableWithoutTypecodeError{Variable: v}
			}
			id, ok := tcID[tc]
			if !ok {
				id = b.DeclareTypecode(tc)
				tcID[tc] = id
			}
			b.DeclareVariable(v, id)
		}
	}

	for _, el := range database.Constants(root) {
		for _, c := range el.Statement.Constants {
			b.DeclareConstant(c)
		}
	}

	return b.Build(), nil
}
