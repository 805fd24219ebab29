package mmp

import "github.com/mmverify/mmcore/internal/pipeline"

// Parse runs the six-stage MMP pipeline (spec §4.7) over state, returning
// the finished Context: state has been mutated in place (Classified,
// Steps, Unification, ProofTree, Uncompressed/Compressed are all populated
// as far as the source allowed), and ctx.Diagnostics carries every
// diagnostic any stage raised along the way. cancel lets the coordinator
// abandon a stale parse mid-flight (spec §5); pass pipeline.NewCancelFlag()
// when no cancellation is needed.
func Parse(state *State, cancel *pipeline.CancelFlag) *pipeline.Context {
	ctx := pipeline.NewContext(state, cancel)
	p := pipeline.New(Stage1{}, Stage2{}, Stage3{}, Stage4{}, Stage5{}, Stage6{})
	return p.Run(ctx)
}
