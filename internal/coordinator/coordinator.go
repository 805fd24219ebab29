// Package coordinator implements the single-threaded cooperative scheduler
// of spec §5: one exclusive lock over the whole application state, a
// swappable per-edit cancel flag, and an atomic, hash-guarded on-disk
// write. Grounded on internal/evaluator/builtins_term.go's
// mutex-guarded-registry-plus-atomic-sequence shape (progressRegistryMu /
// atomic.AddInt64(&handleSeq, ...)), generalized from a handle registry to
// a single piece of exclusively-owned state.
package coordinator

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/grammar"
	"github.com/mmverify/mmcore/internal/mmp"
	"github.com/mmverify/mmcore/internal/mmsource"
	"github.com/mmverify/mmcore/internal/pipeline"
	"github.com/mmverify/mmcore/internal/settingsfile"
	"github.com/mmverify/mmcore/internal/symtab"
)

// ProgressEvent is one fire-and-forget progress notification posted to the
// environment (spec §5: "events are fire-and-forget").
type ProgressEvent struct {
	RequestID string
	Percent   int
	Message   string
}

// state is the one exclusively-owned application state spec §5 describes:
// a loaded database plus everything derived from it.
type state struct {
	path     string
	contents []byte
	hash     [sha256.Size]byte

	root     *database.Header
	meta     *mmsource.Metadata
	symbols  *symtab.Table
	grammar  *grammar.Grammar
	records  map[string]*database.TheoremRecord
	// logicalTypecodes maps a logical typecode name (e.g. "|-") to the
	// syntactic typecode an expression headed by it actually parses
	// against (e.g. "wff"); see mmp.State.LogicalTypecodes.
	logicalTypecodes map[string]string
}

// Coordinator owns the exclusive lock, the swappable cancel flag, and the
// event-posting channel described in spec §5.
type Coordinator struct {
	mu    sync.Mutex
	st    *state
	cfMu  sync.Mutex
	cf    *pipeline.CancelFlag

	Settings settingsfile.Settings
	Events   chan ProgressEvent
}

// New returns a Coordinator with default settings and a buffered event
// channel; callers that don't care about progress events may leave Events
// undrained — sends never block the caller holding the state lock because
// post drops an event whenever the channel is full.
func New() *Coordinator {
	return &Coordinator{
		Settings: settingsfile.Defaults(),
		Events:   make(chan ProgressEvent, 64),
	}
}

func (c *Coordinator) post(ev ProgressEvent) {
	select {
	case c.Events <- ev:
	default:
	}
}

// newRequestID stamps a coordinator request with an opaque correlation id
// carried on the progress events it posts (spec §5);
// a plain counter would work just as well, but this mirrors the teacher's
// own reach for github.com/google/uuid wherever it needs an opaque handle.
func newRequestID() string {
	return uuid.NewString()
}

// OpenDatabase reads path, parses it into a database tree, and derives the
// symbol table, grammar, and per-theorem records from it (spec §4.1/§4.2),
// replacing the coordinator's current state under the exclusive lock. The
// file is read before the lock is taken; the parse and the derivations
// run while holding it (spec §5).
func (c *Coordinator) OpenDatabase(path string) error {
	reqID := newRequestID()
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("coordinator: open %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cancel := c.installCancelFlag()
	root, meta, derr := mmsource.Parse(contents, mmsource.Options{
		Cancel: cancel,
		OnProgress: func(percent int) {
			c.post(ProgressEvent{RequestID: reqID, Percent: percent, Message: "parsing " + filepath.Base(path)})
		},
	})
	if derr != nil {
		return fmt.Errorf("coordinator: parse %s: %s", path, derr.Error())
	}

	syms, serr := symtab.FromDatabase(root)
	if serr != nil {
		return fmt.Errorf("coordinator: build symbol table for %s: %w", path, serr)
	}
	syntactic := make(map[string]bool, len(meta.SyntaxTypecodes))
	for _, st := range meta.SyntaxTypecodes {
		syntactic[st.Typecode] = true
	}
	g, gerr := grammar.FromDatabase(syms, root, syntactic)
	if gerr != nil {
		return fmt.Errorf("coordinator: build grammar for %s: %w", path, gerr)
	}

	records := database.Records(root, c.classify(syntactic), database.ProofLabels)

	logical := make(map[string]string, len(meta.LogicalTypecodes))
	for _, lt := range meta.LogicalTypecodes {
		logical[lt.Typecode] = lt.SyntaxTypecode
	}

	c.st = &state{
		path:             path,
		contents:         contents,
		hash:             sha256.Sum256(contents),
		root:             root,
		meta:             meta,
		symbols:          syms,
		grammar:          g,
		records:          records,
		logicalTypecodes: logical,
	}
	c.post(ProgressEvent{RequestID: reqID, Percent: 100, Message: "opened " + filepath.Base(path)})
	return nil
}

// Stats reports the currently-open database's typecode and theorem
// counts, for an editor frontend's status line; ok is false if no
// database is open.
func (c *Coordinator) Stats() (typecodeCount, theoremCount int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return 0, 0, false
	}
	return c.st.symbols.TypecodeCount(), len(c.st.records), true
}

// classify implements spec §4.5's classification rule for a theorem with
// no proof: syntax axiom if its assertion's leading typecode is syntactic,
// else definition if its label carries the environment-configured
// definition prefix, else a plain axiom.
func (c *Coordinator) classify(syntactic map[string]bool) func(database.Theorem) database.Classification {
	prefix := c.Settings.DefinitionsStartWith
	return func(th database.Theorem) database.Classification {
		if fields := splitFirstField(th.Assertion); fields != "" && syntactic[fields] {
			return database.ClassSyntaxAxiom
		}
		if prefix != "" && hasPrefix(th.Label, prefix) {
			return database.ClassDefinition
		}
		return database.ClassAxiom
	}
}

func splitFirstField(s string) string {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	j := i
	for j < len(s) && s[j] != ' ' {
		j++
	}
	return s[i:j]
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// installCancelFlag swaps in a fresh cancel flag, canceling whatever flag
// preceded it, and returns the new one. Spec §5: "the coordinator flips
// the current flag, installs a new one, and releases the lock" — this
// method does the flip-and-install half; callers release the lock
// themselves.
func (c *Coordinator) installCancelFlag() *pipeline.CancelFlag {
	c.cfMu.Lock()
	defer c.cfMu.Unlock()
	if c.cf != nil {
		c.cf.Cancel()
	}
	c.cf = pipeline.NewCancelFlag()
	return c.cf
}

// Cancel cancels whatever request is currently in flight, if any.
func (c *Coordinator) Cancel() {
	c.cfMu.Lock()
	defer c.cfMu.Unlock()
	if c.cf != nil {
		c.cf.Cancel()
	}
}

// ApplyMmpEdit runs the full six-stage MMP pipeline (internal/mmp) over
// source against the coordinator's current database state. Per spec §5,
// the previous edit's cancel flag is flipped and a new one installed and
// the lock released before the (potentially long) pipeline run, so a
// third edit arriving mid-pipeline can still cancel the second one
// promptly instead of queuing behind it.
func (c *Coordinator) ApplyMmpEdit(source string) (*pipeline.Context, error) {
	c.mu.Lock()
	if c.st == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("coordinator: no database open")
	}
	st := c.st
	cancel := c.installCancelFlag()
	c.mu.Unlock()

	mmpState := &mmp.State{
		DB:               st.root,
		Symbols:          st.symbols,
		Grammar:          st.grammar,
		Records:          st.records,
		LogicalTypecodes: st.logicalTypecodes,
		Source:           source,
	}
	return mmp.Parse(mmpState, cancel), nil
}

// CommitMmpEdit builds the database.Theorem st's resolved qed step
// describes and inserts (or, for an existing label, replaces) it in the
// coordinator's in-memory tree at st.LocateAfter — the editor/on_edit.rs
// step of actually landing a resolved MMP edit in the database, previously
// missing end-to-end. The symbol table and grammar are left untouched: a
// committed theorem can only reference typecodes/variables/constants/
// floating hypotheses that already existed for it to have resolved
// against in the first place, so nothing new needs to be declared.
func (c *Coordinator) CommitMmpEdit(st *mmp.State) error {
	th, err := mmp.BuildTheorem(st)
	if err != nil {
		return fmt.Errorf("coordinator: build theorem: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return fmt.Errorf("coordinator: no database open")
	}

	stmt := database.Statement{Kind: database.KindTheorem, Theorem: th}
	if err := database.Insert(c.st.root, st.LocateAfter, stmt); err != nil {
		return fmt.Errorf("coordinator: insert %s: %w", th.Label, err)
	}

	syntactic := make(map[string]bool, len(c.st.meta.SyntaxTypecodes))
	for _, s := range c.st.meta.SyntaxTypecodes {
		syntactic[s.Typecode] = true
	}
	c.st.records = database.Records(c.st.root, c.classify(syntactic), database.ProofLabels)
	return nil
}

// WriteDatabase re-renders the current state and writes it back to its
// source path atomically, refusing if the on-disk content's hash has
// drifted since the last load/write (spec §5/§6).
func (c *Coordinator) WriteDatabase(render func(root *database.Header) []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return fmt.Errorf("coordinator: no database open")
	}

	onDisk, err := os.ReadFile(c.st.path)
	if err != nil {
		return fmt.Errorf("coordinator: re-reading %s before write: %w", c.st.path, err)
	}
	if sha256.Sum256(onDisk) != c.st.hash {
		return fmt.Errorf("coordinator: refusing to write %s: on-disk content changed since it was loaded", c.st.path)
	}

	out := render(c.st.root)
	tmp := c.st.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("coordinator: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.st.path); err != nil {
		return fmt.Errorf("coordinator: renaming %s into place: %w", tmp, err)
	}

	c.st.contents = out
	c.st.hash = sha256.Sum256(out)
	return nil
}
