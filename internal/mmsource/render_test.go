package mmsource

import (
	"strings"
	"testing"

	"github.com/mmverify/mmcore/internal/database"
)

func TestRenderRoundTripsThroughParse(t *testing.T) {
	src := `
		$c wff |- ( -> ) $.
		$v p q $.
		wp $f wff p $.
		wq $f wff q $.
		wi $a wff ( p -> q ) $.
	`
	root, _ := mustParse(t, src)
	out := string(Render(root, DefaultWidth))

	root2, _, err := Parse([]byte(out), Options{})
	if err != nil {
		t.Fatalf("re-parsing rendered output failed: %v\n--- rendered ---\n%s", err, out)
	}
	th1 := database.Theorems(root)
	th2 := database.Theorems(root2)
	if len(th1) != len(th2) {
		t.Fatalf("theorem count mismatch: %d vs %d", len(th1), len(th2))
	}
	if th1[0].Statement.Theorem.Assertion != th2[0].Statement.Theorem.Assertion {
		t.Errorf("assertion mismatch after round trip: %q vs %q", th1[0].Statement.Theorem.Assertion, th2[0].Statement.Theorem.Assertion)
	}
}

func TestRenderWrapsLongComment(t *testing.T) {
	text := strings.Repeat("word ", 40)
	var b strings.Builder
	writeComment(&b, strings.TrimSpace(text), 20)
	for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
		if len(line) > 20 {
			t.Errorf("line exceeds width: %q (%d chars)", line, len(line))
		}
	}
}

func TestWrapNoSeparatorChunksEvenly(t *testing.T) {
	chunks := wrapNoSeparator("ABCDEFGHIJ", 4)
	want := []string{"ABCD", "EFGH", "IJ"}
	if len(chunks) != len(want) {
		t.Fatalf("got %v, want %v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestRenderEmitsScopeForHypotheses(t *testing.T) {
	src := `
		$c wff |- ( -> ) $.
		$v p q $.
		wp $f wff p $.
		wq $f wff q $.
		hyp $e |- p $.
		mp $a |- q $.
	`
	root, _ := mustParse(t, src)
	out := string(Render(root, DefaultWidth))
	if !strings.Contains(out, "${") || !strings.Contains(out, "$}") {
		t.Errorf("expected a ${ $} scope around a theorem with hypotheses, got:\n%s", out)
	}
}
