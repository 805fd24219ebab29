package proof

import (
	"fmt"
	"strings"
)

// HypCounter answers, for a label appearing in a proof, how many mandatory
// hypotheses it takes — the only fact DecodeCompressed needs from the
// database to know how deep to reach into the value stack at each step.
type HypCounter func(label string) (int, bool)

// letter is one decoded compressed-proof number, plus whether it carried a
// trailing 'Z' save marker.
type letter struct {
	n       int
	save    bool
	unknown bool // a bare '?' token: an unfinished step (spec §4.7 incomplete proofs)
}

// decodeLetters parses a compressed-proof code string into its sequence of
// numbers (base-5 high digits 'U'-'Y' followed by a final low digit
// 'A'-'T'), recording which numbers were immediately followed by 'Z', and
// treating each standalone '?' as its own unknown-step entry.
func decodeLetters(code string) ([]letter, error) {
	var out []letter
	acc := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			continue
		case c == '?':
			out = append(out, letter{unknown: true})
		case c >= 'A' && c <= 'T':
			acc = acc*20 + int(c-'A') + 1
			out = append(out, letter{n: acc})
			acc = 0
		case c >= 'U' && c <= 'Y':
			acc = acc*5 + int(c-'U') + 1
		case c == 'Z':
			if len(out) == 0 {
				return nil, fmt.Errorf("proof: 'Z' with no preceding number")
			}
			out[len(out)-1].save = true
		default:
			return nil, fmt.Errorf("proof: invalid compressed-proof character %q", c)
		}
	}
	if acc != 0 {
		return nil, fmt.Errorf("proof: truncated compressed-proof number")
	}
	return out, nil
}

// DecodeCompressed expands a "( labels ) code" compressed proof into the
// equivalent flat, whitespace-separated uncompressed label sequence: every
// reuse of a saved subproof is replayed verbatim rather than referenced, so
// the result can be fed straight to VerifyUncompressed. A standalone '?'
// decodes to a lone "?" token (spec §4.7's incomplete-proof accommodation).
//
// mandatory is the theorem's own ordered mandatory-hypothesis labels
// (floating and essential): standard Metamath compressed proofs never print
// those inside the parenthesized label list, so numbers 1..len(mandatory)
// resolve against mandatory directly, numbers above that against labels
// (offset by len(mandatory)), and anything higher still is a back-reference
// to a saved subproof. Grounded on
// original_source/src-tauri/src/metamath/verify.rs's
// calc_proof_steps_and_numbers_compressed, which seeds the step table with
// the theorem's own hypotheses before any parenthesized label is read.
func DecodeCompressed(mandatory []string, labels []string, code string, hyps HypCounter) (string, error) {
	letters, err := decodeLetters(code)
	if err != nil {
		return "", err
	}

	h := len(mandatory)
	var stack [][]string
	var saved [][]string
	for _, lt := range letters {
		var seg []string
		switch {
		case lt.unknown:
			seg = []string{"?"}
		case lt.n >= 1 && lt.n <= h:
			// A theorem's own mandatory hypothesis, cited by its implicit
			// position: contributes no stack args, just its own label.
			seg = []string{mandatory[lt.n-1]}
		case lt.n > h && lt.n <= h+len(labels):
			lbl := labels[lt.n-h-1]
			hc, ok := hyps(lbl)
			if !ok {
				return "", fmt.Errorf("proof: unknown label %q", lbl)
			}
			if len(stack) < hc {
				return "", fmt.Errorf("proof: stack underflow decoding %q", lbl)
			}
			args := stack[len(stack)-hc:]
			stack = stack[:len(stack)-hc]
			for _, a := range args {
				seg = append(seg, a...)
			}
			seg = append(seg, lbl)
		default:
			idx := lt.n - h - len(labels) - 1
			if idx < 0 || idx >= len(saved) {
				return "", fmt.Errorf("proof: back-reference %d out of range", lt.n)
			}
			seg = saved[idx]
		}
		stack = append(stack, seg)
		if lt.save {
			saved = append(saved, seg)
		}
	}
	if len(stack) != 1 {
		return "", fmt.Errorf("proof: compressed proof does not reduce to a single result")
	}
	return strings.Join(stack[0], " "), nil
}
