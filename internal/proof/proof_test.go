package proof

import "testing"

// buildSampleTree models ax-mp applied to two hypotheses hyp1, hyp2, itself
// reused twice to exercise the compressed-proof save/back-reference path.
func buildSampleTree() *Node {
	leafHyp1 := NewLeaf("hyp1")
	leafHyp2 := NewLeaf("hyp2")
	mp := NewNode("ax-mp", []*Node{leafHyp1, leafHyp2})
	return NewNode("ax-mp", []*Node{mp, leafHyp2})
}

func TestEncodeUncompressedPostOrder(t *testing.T) {
	got := EncodeUncompressed(buildSampleTree())
	want := "hyp1 hyp2 ax-mp hyp2 ax-mp"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEncodeNumberAlphabet(t *testing.T) {
	cases := map[int]string{1: "A", 20: "T", 21: "UA", 25: "UE"}
	for n, want := range cases {
		if got := encodeNumber(n); got != want {
			t.Errorf("encodeNumber(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestEncodeCompressedOmitsMandatoryHypsFromPrintedLabels(t *testing.T) {
	root := buildSampleTree()
	mandatory := []string{"hyp1", "hyp2"}
	labels, _ := EncodeCompressed(root, mandatory)
	for _, lbl := range labels {
		if lbl == "hyp1" || lbl == "hyp2" {
			t.Fatalf("printed label pool %v should not contain mandatory hypothesis %q", labels, lbl)
		}
	}
	if len(labels) != 1 || labels[0] != "ax-mp" {
		t.Fatalf("expected only ax-mp in the printed pool, got %v", labels)
	}
}

func TestEncodeCompressedRoundTripsThroughDecode(t *testing.T) {
	root := buildSampleTree()
	mandatory := []string{"hyp1", "hyp2"}
	labels, code := EncodeCompressed(root, mandatory)

	hyps := func(label string) (int, bool) {
		switch label {
		case "hyp1", "hyp2":
			return 0, true
		case "ax-mp":
			return 2, true
		}
		return 0, false
	}
	flat, err := DecodeCompressed(mandatory, labels, code, hyps)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := EncodeUncompressed(root)
	if flat != want {
		t.Fatalf("decoded %q, want %q", flat, want)
	}
}

func TestDecodeCompressedResolvesMandatoryHypsByImplicitPosition(t *testing.T) {
	// "B" alone, with no printed labels at all, must resolve to mandatory[1]
	// ("hyp2") purely from its implicit position in the 1..H range.
	hyps := func(string) (int, bool) { return 0, true }
	flat, err := DecodeCompressed([]string{"hyp1", "hyp2"}, nil, "B", hyps)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if flat != "hyp2" {
		t.Fatalf("got %q, want %q", flat, "hyp2")
	}
}

func TestDecodeCompressedRejectsUnknownBackReference(t *testing.T) {
	hyps := func(string) (int, bool) { return 0, true }
	if _, err := DecodeCompressed(nil, []string{"a"}, "B", hyps); err == nil {
		t.Fatal("expected an error for an out-of-range back-reference")
	}
}

func TestDecodeCompressedHandlesUnknownStepMarker(t *testing.T) {
	hyps := func(label string) (int, bool) {
		if label == "ax-mp" {
			return 2, true
		}
		return 0, true
	}
	flat, err := DecodeCompressed([]string{"hyp1", "hyp2"}, []string{"ax-mp"}, "A?C", hyps)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if flat != "hyp1 ? ax-mp" {
		t.Fatalf("got %q", flat)
	}
}
