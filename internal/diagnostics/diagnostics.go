// Package diagnostics holds the flat error-code enumeration and the
// span-carrying error type shared by every stage of the Metamath source
// parser and the MMP staged parser.
package diagnostics

import "fmt"

// Code is one member of the flat error enumeration; 64 codes are defined
// below. Families (I/O, lexical,
// semantic, MMP, grammar/parse, proof, internal) are grouped by constant
// block below rather than by a richer type, matching the source material's
// own flat enum.
type Code string

// I/O family.
const (
	CodeFileNotFound Code = "FileNotFound"
	CodeReadError    Code = "ReadError"
	CodeWriteError   Code = "WriteError"
	CodeHashMismatch Code = "HashMismatch"
)

// Lexical/syntactic-in-Metamath-source family.
const (
	CodeNonASCIIInput          Code = "NonASCIIInput"
	CodeUnclosedComment        Code = "UnclosedComment"
	CodeUnclosedHeader         Code = "UnclosedHeader"
	CodeInvalidSymbol          Code = "InvalidSymbol"
	CodeInvalidLabel           Code = "InvalidLabel"
	CodeTokenOutsideStatement  Code = "TokenOutsideStatement"
	CodeUnclosedScope          Code = "UnclosedScope"
	CodeUnexpectedScopeClose   Code = "UnexpectedScopeClose"
	CodeUnknownKeyword         Code = "UnknownKeyword"
)

// Semantic-in-Metamath-source family.
const (
	CodeSymbolAlreadyDeclared       Code = "SymbolAlreadyDeclared"
	CodeConstantOutsideTopLevel     Code = "ConstantOutsideTopLevel"
	CodeVariableAlreadyActive       Code = "VariableAlreadyActive"
	CodeVariableIsConstant          Code = "VariableIsConstant"
	CodePreviousVariableReuse       Code = "PreviousVariableReuse"
	CodeFloatHypStatementFormat     Code = "FloatHypStatementFormat"
	CodeFloatHypTypecodeNotActive   Code = "FloatHypTypecodeNotActive"
	CodeFloatHypVariableNotActive   Code = "FloatHypVariableNotActive"
	CodeFloatHypTypecodeConflict    Code = "FloatHypTypecodeConflict"
	CodeVariableAlreadyHasFloatHyp  Code = "VariableAlreadyHasFloatHyp"
	CodeExpressionUsesInactiveSym   Code = "ExpressionUsesInactiveSymbol"
	CodeExpressionMustStartWithType Code = "ExpressionMustStartWithTypecode"
	CodeZeroOrOneSymbolDisj         Code = "ZeroOrOneSymbolDisj"
	CodeDisjVariableNotActive       Code = "DisjVariableNotActive"
	CodeDuplicateLabel              Code = "DuplicateLabel"
	CodeMissingProofKeyword         Code = "MissingProofKeyword"
	CodeOpenDatabaseStoppedEarly    Code = "OpenDatabaseStoppedEarly"
	CodeTypesettingFormat           Code = "TypesettingFormat"
)

// MMP file family (per-stage diagnostics, spec §4.7 / §7).
const (
	CodeMmpWhitespaceBeforeFirstToken Code = "MmpWhitespaceBeforeFirstToken"
	CodeMmpUnknownStatementKind       Code = "MmpUnknownStatementKind"
	CodeMmpTooFewTokens               Code = "MmpTooFewTokens"
	CodeMmpTooManyTokens              Code = "MmpTooManyTokens"
	CodeMmpIllegalLabelChars          Code = "MmpIllegalLabelChars"
	CodeMmpDuplicateDirective         Code = "MmpDuplicateDirective"
	CodeMmpInvalidMmpStepPrefixFormat Code = "InvalidMmpStepPrefixFormat"
	CodeMmpHeaderPathUnresolved       Code = "MmpHeaderPathUnresolved"
	CodeMmpHeaderIndexOutOfRange      Code = "MmpHeaderIndexOutOfRange"
	CodeMmpCommentPathUnresolved      Code = "MmpCommentPathUnresolved"
	CodeMmpCommentIndexOutOfRange     Code = "MmpCommentIndexOutOfRange"
	CodeMmpOutOfPlaceDirective        Code = "MmpOutOfPlaceDirective"
	CodeMmpFloatHypLabelTaken         Code = "MmpFloatHypLabelTaken"
	CodeMmpLocateAfterUnresolved      Code = "MmpLocateAfterUnresolved"
	CodeMmpLocateAfterAtStart         Code = "MmpLocateAfterAtStart"
	CodeMmpDuplicateStepName          Code = "MmpDuplicateStepName"
	CodeMmpHypNameDoesntExist         Code = "HypNameDoesntExist"
	CodeMmpHypLineHasHyps             Code = "MmpHypLineHasHyps"
	CodeMmpStepRefNotALabel           Code = "MmpStepRefNotALabel"
	CodeMmpSyntaxTheoremUsed          Code = "SyntaxTheoremUsed"
	CodeMmpDiscouragedRefUsed         Code = "MmpDiscouragedRefUsed"
	CodeMmpIncompleteRefUsed          Code = "MmpIncompleteRefUsed"
)

// Grammar/parse family.
const (
	CodeExpressionParseError   Code = "ExpressionParseError"
	CodeMissingExpression      Code = "MissingExpression"
	CodeMissingTypecode        Code = "MissingTypecode"
	CodeInvalidWorkVariable    Code = "InvalidWorkVariable"
	CodeNonSymbolInExpression  Code = "NonSymbolInExpression"
	CodeNonSyntaxTypecodeInPos Code = "NonSyntaxTypecodeInSyntaxPosition"
)

// Proof family.
const (
	CodeInvalidProofText    Code = "InvalidProofText"
	CodeInvalidProofStep    Code = "InvalidProofStep"
	CodeSubstitutionMismatch Code = "SubstitutionMismatch"
	CodeUnificationFailed    Code = "UnificationFailed"
)

// Internal family.
const (
	CodeInternalInvariantViolation Code = "InternalInvariantViolation"
)

// Position is a single point in a Metamath source file, 1-based.
type Position struct {
	Line   int
	Column int
}

// Span is a start/end range, used to give MMP diagnostics cursor-precise
// locations (spec §4.7: "(kind, startLine, startCol, endLine, endCol)").
type Span struct {
	Start Position
	End   Position
}

// SpanAt builds a single-line span starting at (line, col) and ending
// width columns later on the same line.
func SpanAt(line, col, width int) Span {
	return Span{
		Start: Position{Line: line, Column: col},
		End:   Position{Line: line, Column: col + width},
	}
}

// DiagnosticError is the single error/diagnostic type used across the core,
// for Metamath-source faults and MMP diagnostics alike. Its Span is either a
// point (Start and End coincide) or a single-line range built by SpanAt.
type DiagnosticError struct {
	Code    Code
	Span    Span
	Message string
	File    string
}

func New(code Code, span Span, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{Code: code, Span: span, Message: fmt.Sprintf(format, args...)}
}

func (e *DiagnosticError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Span.Start.Line, e.Span.Start.Column, e.Code, e.Message)
}

// Bag accumulates diagnostics across a stage or pipeline run without
// aborting, per the MMP propagation policy (spec §7).
type Bag struct {
	Errors []*DiagnosticError
}

func (b *Bag) Add(code Code, span Span, format string, args ...interface{}) {
	b.Errors = append(b.Errors, New(code, span, format, args...))
}

func (b *Bag) AddErr(err *DiagnosticError) {
	if err != nil {
		b.Errors = append(b.Errors, err)
	}
}

func (b *Bag) HasErrors() bool { return len(b.Errors) > 0 }
