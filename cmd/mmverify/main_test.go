package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mmverify/mmcore/internal/database"
	"github.com/mmverify/mmcore/internal/mmsource"
)

// provableSource carries one proved theorem (th1) built from the same
// wi/ax-id fixture internal/coordinator's own tests use. th1's proof
// first cites wps directly — pushing its own floating-hypothesis
// conclusion ("ps") onto the stack — then ax-id, which pops that one
// mandatory floating-hypothesis argument and substitutes it for ph,
// exercising both direct floating-hypothesis citation and substitution in
// runVerify's stack machine.
const provableSource = `$( $j syntaxtypecode "wff" ; logicaltypecode "|-" as "wff" ; $)
$c wff ( -> |- $.
$v ph ps $.
wph $f wff ph $.
wps $f wff ps $.
wi $a wff ( ph -> ps ) $.
ax-id $a |- ( ph -> ph ) $.
th1 $p |- ( ps -> ps ) $= wps ax-id $.
`

func writeFixture(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.mm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestRunVerifySucceedsOnProvableTheorem(t *testing.T) {
	if code := runVerify(writeFixture(t, provableSource), false); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestRunVerifyFailsOnWrongProof(t *testing.T) {
	const suffix = "th1 $p |- ( ps -> ps ) $= wps ax-id $.\n"
	broken := provableSource[:len(provableSource)-len(suffix)] +
		"th1 $p |- ( ph -> ps ) $= wps ax-id $.\n"
	if code := runVerify(writeFixture(t, broken), false); code == 0 {
		t.Fatal("expected a nonzero exit code for a theorem whose proof doesn't match its assertion")
	}
}

func TestRunOpenSucceedsOnWellFormedDatabase(t *testing.T) {
	if code := runOpen(writeFixture(t, provableSource)); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

// compressedProvableSource is provableSource with th1's proof written in
// standard Metamath compressed form instead: th1's only mandatory
// hypothesis is wps (ph never occurs in th1's assertion), so it is never
// printed in the "( … )" label list — only ax-id is — and is cited purely
// by its implicit position 1 ('A'), exercising the standard mandatory-hyp
// numbering convention end to end.
const compressedProvableSource = `$( $j syntaxtypecode "wff" ; logicaltypecode "|-" as "wff" ; $)
$c wff ( -> |- $.
$v ph ps $.
wph $f wff ph $.
wps $f wff ps $.
wi $a wff ( ph -> ps ) $.
ax-id $a |- ( ph -> ph ) $.
th1 $p |- ( ps -> ps ) $= ( ax-id ) AB $.
`

func TestRunVerifySucceedsOnStandardCompressedProof(t *testing.T) {
	if code := runVerify(writeFixture(t, compressedProvableSource), false); code != 0 {
		t.Fatalf("expected exit code 0 decoding a standard compressed proof whose own mandatory hypothesis is never printed, got %d", code)
	}
}

func TestHypOrderListsFreeFloatsBeforeEssentials(t *testing.T) {
	root, _, derr := mmsource.Parse([]byte(provableSource), mmsource.Options{})
	if derr != nil {
		t.Fatalf("parse: %v", derr)
	}
	floatByVar := floatingHypothesesByVariable(root)
	if len(floatByVar) != 2 {
		t.Fatalf("expected floating hypotheses for ph and ps, got %d", len(floatByVar))
	}

	th := database.Theorem{
		Hypotheses: nil,
		Assertion:  "|- ( ps -> ps )",
	}
	floats := hypOrder(th, floatByVar)
	if len(floats) != 1 || floats[0].Variable != "ps" {
		t.Fatalf("expected exactly one floating hyp for ps, got %+v", floats)
	}
}
