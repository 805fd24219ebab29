// Package mmp implements the MMP staged parser of spec §4.7: six ordered
// stages that turn in-progress proof text into either a diagnostic list
// with cursor-precise spans, or a fully resolved theorem-in-progress with
// per-line status, a unification result, and an emitted proof string.
// Grounded on
// original_source/src-tauri/src/metamath/mmp_parser/stage_{1..6}.rs,
// restructured as internal/pipeline.Stage implementations sharing one
// *State threaded through pipeline.Context.Value rather than the
// original's ad hoc per-stage return enums, matching how
// internal/pipeline was already shaped for exactly this consumer.
package mmp

import (
	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/grammar"
	"github.com/mmverify/mmcore/internal/parsetree"
	"github.com/mmverify/mmcore/internal/proof"
	"github.com/mmverify/mmcore/internal/symtab"
)

// RawStatement is one Stage-1 statement: the full text from its anchor
// column-0 line up to (not including) the next column-0 line, plus the
// position of its first token for diagnostic spans.
type RawStatement struct {
	Text string
	Line int
	Col  int
}

// StatementKind tags the closed variant a ClassifiedStatement carries
// (Stage 2).
type StatementKind int

const (
	StmtHeader StatementKind = iota
	StmtComment
	StmtAxiom
	StmtTheorem
	StmtConst
	StmtVar
	StmtFloat
	StmtDistinct
	StmtAllowDiscouraged
	StmtAllowIncomplete
	StmtLocateAfter
	StmtLocateAfterConst
	StmtLocateAfterVar
	StmtCommentLine
	StmtProofStep
)

// HeaderDirective is a `$header PATH TITLE…` statement.
type HeaderDirective struct {
	Path  []int
	Title string
}

// CommentDirective is a `$comment PATH#N` statement.
type CommentDirective struct {
	Path  []int
	Index int
}

// FloatDirective is a `$f LABEL TC VAR` temp-hypothesis statement.
type FloatDirective struct {
	Label    string
	Typecode string
	Variable string
}

// ProofStepPrefix is the `[!][h]NAME:HYPS:REF` token-0 prefix of a
// proof-step line, plus the expression text that follows it.
type ProofStepPrefix struct {
	Advanced   bool // leading '!'
	IsHyp      bool // leading 'h' after '!'
	Name       string
	Hyps       []string // "?" entries kept literally; resolved in Stage 4
	Ref        string
	Expression string
}

// ClassifiedStatement is the tagged variant Stage 2 produces for one raw
// statement.
type ClassifiedStatement struct {
	Kind StatementKind
	Raw  RawStatement

	Header     HeaderDirective
	Comment    CommentDirective
	Label      string // $axiom/$theorem LABEL, $locateafter* REF
	Symbols    []string
	Float      FloatDirective
	Distinct   []string
	ProofStep  ProofStepPrefix
	CommentTxt string
}

// FileKind is the overall shape Stage 3 assigns the MMP file, derived
// from its label-defining statement (or lack of one).
type FileKind int

const (
	FileTheorem FileKind = iota
	FileAxiom
	FileHeaderInsertion
	FileCommentInsertion
	FileStandaloneConst
	FileStandaloneVar
	FileStandaloneFloat
	FileUnknown
)

// ProofLineStatusKind tags a ProofLineStatus (Stage 4/5).
type ProofLineStatusKind int

const (
	StatusNone ProofLineStatusKind = iota
	StatusCorrect
	StatusCorrectRecursively
	StatusErr
	StatusUnified
)

// ErrFlags is the four-flag mask of spec §4.7 Stage 4: which column of a
// proof-step line is implicated by an Err/Unified status.
type ErrFlags struct {
	StepName   bool
	Hyps       bool
	Ref        bool
	Expression bool
}

type ProofLineStatus struct {
	Kind  ProofLineStatusKind
	Flags ErrFlags
}

// Step is one proof-step line after Stage 4 resolution.
type Step struct {
	Raw        ProofStepPrefix
	Line       int
	HypIdx     []int // resolved predecessor indices; -1 for "?" or unresolved
	RefIdx     int   // set to -1 by Stage 4 and not otherwise filled; the resolved ref is RefLabel
	RefLabel   string
	IsHyp      bool
	Tree       *parsetree.Node
	Typecode   symtab.ID
	Status     ProofLineStatus
	NewLine    bool // marks a synthetic line; no stage inserts such lines, so it stays false
}

// State is the payload threaded through pipeline.Context.Value across all
// six stages. DB/Symbols/Grammar/Records (plus the label sets, the
// LogicalTypecodes map and Source) are set by the caller
// before Stage 1 runs; everything else is produced as the pipeline
// advances.
type State struct {
	DB         *database.Header
	Symbols    *symtab.Table
	Grammar    *grammar.Grammar
	Records    map[string]*database.TheoremRecord
	// DiscouragedLabels/IncompleteLabels are the database's "discouraged"
	// and "incomplete" label sets (spec §4.7 Stage 4), owned by whatever
	// metadata layer classifies them — internal/mmp only consults them.
	DiscouragedLabels map[string]struct{}
	IncompleteLabels  map[string]struct{}

	// LogicalTypecodes maps a logical typecode's name (e.g. "|-", never
	// itself $f-declared) to the syntactic typecode an expression headed
	// by it actually parses against (e.g. "wff"), per spec §4.2's "supplied
	// by the environment" typecode classification. A typecode absent from
	// this map is resolved as an ordinary (syntactic) typecode instead.
	LogicalTypecodes map[string]string

	Source string

	Statements []RawStatement
	Classified []ClassifiedStatement

	Kind            FileKind
	TheoremLabel    string
	// Description is the first comment line found among a theorem/axiom
	// file's statements (the '*'-prefixed comment lines, not $comment
	// directives),
	// carried through to become the committed Theorem's Description.
	Description     string
	Distincts       [][]string
	TempFloats      []FloatDirective
	AllowDiscouraged bool
	AllowIncomplete  bool
	LocateAfter      *database.Anchor
	DependencyLabels map[string]struct{}

	Steps []Step

	Unification *UnificationResult

	ProofTree    *proof.Node
	Uncompressed string
	Compressed   string
}
