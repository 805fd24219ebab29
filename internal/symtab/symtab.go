// Package symtab implements the symbol table described in spec §4.1: a
// bidirectional mapping between textual Metamath symbols and dense integer
// identifiers, partitioned into three contiguous ranges (typecodes,
// variables, constants), plus per-variable typecode and per-typecode
// default-variable bookkeeping.
package symtab

import (
	"fmt"
	"strconv"
	"strings"
)

// ID is a dense symbol identifier. Identifiers start at 1.
type ID uint32

// Table is built once, deterministically, from a fully loaded database by
// walking it in source order: typecodes first (keyed internally under the
// textual form "$TC" so a typecode never collides with a same-spelled
// constant), then variables in declaration order, then constants in
// declaration order.
type Table struct {
	nameToID map[string]ID
	idToName map[ID]string

	variableTypecode map[ID]ID // variable id -> typecode id
	typecodeDefault  map[ID]ID // typecode id -> default variable id

	typecodeCount int
	variableCount int
	constantCount int
}

// NewBuilder starts an incremental table build. Typecodes must all be
// declared before any variable, and all variables before any constant,
// mirroring the three-range invariant; Builder enforces this by assigning
// ids monotonically per phase.
type Builder struct {
	t *Table
}

func NewBuilder() *Builder {
	return &Builder{t: &Table{
		nameToID:         make(map[string]ID),
		idToName:         make(map[ID]string),
		variableTypecode: make(map[ID]ID),
		typecodeDefault:  make(map[ID]ID),
	}}
}

// typecodeKey returns the distinguished textual key used to store a
// typecode's "typecode form", so that a typecode and a constant with the
// same spelling never collide (spec §3).
func typecodeKey(name string) string { return "$" + name }

// DeclareTypecode registers typecode name if not already known and returns
// its id. Typecodes occupy ids [1, T].
func (b *Builder) DeclareTypecode(name string) ID {
	key := typecodeKey(name)
	if id, ok := b.t.nameToID[key]; ok {
		return id
	}
	b.t.typecodeCount++
	id := ID(b.t.typecodeCount)
	b.t.nameToID[key] = id
	b.t.idToName[id] = key
	return id
}

// DeclareVariable registers a new variable bound to typecode tc and
// returns its id. Variables occupy ids (T, T+V].
func (b *Builder) DeclareVariable(name string, tc ID) ID {
	b.t.variableCount++
	id := ID(b.t.typecodeCount + b.t.variableCount)
	b.t.nameToID[name] = id
	b.t.idToName[id] = name
	b.t.variableTypecode[id] = tc
	if _, ok := b.t.typecodeDefault[tc]; !ok {
		b.t.typecodeDefault[tc] = id
	}
	return id
}

// DeclareConstant registers a new constant and returns its id. Constants
// occupy ids (T+V, T+V+C].
func (b *Builder) DeclareConstant(name string) ID {
	b.t.constantCount++
	id := ID(b.t.typecodeCount + b.t.variableCount + b.t.constantCount)
	b.t.nameToID[name] = id
	b.t.idToName[id] = name
	return id
}

func (b *Builder) Build() *Table { return b.t }

// --- queries ---

func (t *Table) NumberOf(name string) (ID, bool) {
	id, ok := t.nameToID[name]
	return id, ok
}

// NumberOfTypecode looks up a typecode by its plain spelling (not the "$"
// form).
func (t *Table) NumberOfTypecode(name string) (ID, bool) {
	id, ok := t.nameToID[typecodeKey(name)]
	return id, ok
}

func (t *Table) NameOf(id ID) (string, bool) {
	name, ok := t.idToName[id]
	return name, ok
}

// DisplayName strips the leading "$" typecode marker, if any, for output.
func (t *Table) DisplayName(id ID) string {
	name, ok := t.idToName[id]
	if !ok {
		return ""
	}
	return strings.TrimPrefix(name, "$")
}

func (t *Table) IsTypecode(id ID) bool {
	return id >= 1 && int(id) <= t.typecodeCount
}

func (t *Table) IsVariable(id ID) bool {
	return int(id) > t.typecodeCount && int(id) <= t.typecodeCount+t.variableCount
}

func (t *Table) IsConstant(id ID) bool {
	return int(id) > t.typecodeCount+t.variableCount && int(id) <= t.typecodeCount+t.variableCount+t.constantCount
}

func (t *Table) TypecodeCount() int { return t.typecodeCount }
func (t *Table) VariableCount() int { return t.variableCount }
func (t *Table) ConstantCount() int { return t.constantCount }

// TypecodeOf returns the typecode id bound to variable v.
func (t *Table) TypecodeOf(v ID) (ID, bool) {
	tc, ok := t.variableTypecode[v]
	return tc, ok
}

// DefaultVariable returns the typecode's designated default variable, used
// to name fresh work variables.
func (t *Table) DefaultVariable(tc ID) (ID, bool) {
	v, ok := t.typecodeDefault[tc]
	return v, ok
}

// --- expression / work-variable tokenization (spec §4.1) ---

// Symbol is one token of a tokenized expression: either a known symbol id
// or a work-variable literal of the form "base$n".
type Symbol struct {
	IsWorkVariable bool
	ID             ID  // valid when !IsWorkVariable
	WorkTypecode   ID  // valid when IsWorkVariable: typecode of base
	WorkBase       ID  // valid when IsWorkVariable: the base variable id
	WorkNumber     int // valid when IsWorkVariable
}

var (
	// ErrNonSymbol marks a token that does not resolve to any known
	// symbol and is not a well-formed work-variable literal.
	ErrNonSymbol = fmt.Errorf("token is not a known symbol")
	// ErrInvalidWorkVariable marks a malformed work-variable literal.
	ErrInvalidWorkVariable = fmt.Errorf("invalid work variable literal")
)

// ParseExpression splits text on ASCII whitespace and resolves each token
// to either a plain symbol or a work-variable literal. Fails with
// ErrNonSymbol for unknown tokens and ErrInvalidWorkVariable for malformed
// work-variable literals ("x$0", "x$007", "x$ 3", or unknown base "x").
func (t *Table) ParseExpression(text string) ([]Symbol, error) {
	tokens := strings.Fields(text)
	out := make([]Symbol, 0, len(tokens))
	for _, tok := range tokens {
		sym, err := t.parseToken(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

func (t *Table) parseToken(tok string) (Symbol, error) {
	if id, ok := t.nameToID[tok]; ok {
		return Symbol{ID: id}, nil
	}
	if idx := strings.IndexByte(tok, '$'); idx >= 0 {
		base := tok[:idx]
		numStr := tok[idx+1:]
		baseID, ok := t.nameToID[base]
		if !ok || !t.IsVariable(baseID) {
			return Symbol{}, fmt.Errorf("%w: unknown base variable %q", ErrInvalidWorkVariable, base)
		}
		if numStr == "" || !isStrictDecimal(numStr) {
			return Symbol{}, fmt.Errorf("%w: %q", ErrInvalidWorkVariable, tok)
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return Symbol{}, fmt.Errorf("%w: %q", ErrInvalidWorkVariable, tok)
		}
		tc := t.variableTypecode[baseID]
		return Symbol{IsWorkVariable: true, WorkTypecode: tc, WorkBase: baseID, WorkNumber: n}, nil
	}
	return Symbol{}, fmt.Errorf("%w: %q", ErrNonSymbol, tok)
}

// isStrictDecimal requires a non-negative base-10 integer with no leading
// '+' and no leading zero digit: "x$0" and "x$007" are both rejected per
// spec's boundary examples, so the numeric part must start with '1'-'9'.
func isStrictDecimal(s string) bool {
	if s == "" || s[0] < '1' || s[0] > '9' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
