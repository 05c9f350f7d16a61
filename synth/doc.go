// Package synth generates the synthetic corpus and query set of a
// predicate-filtered ground-truth dataset.
//
// The corpus is partitioned into contiguous groups of GroupSize vectors; the
// group identifier of position i is i/GroupSize + 1. Each query carries a
// predicate set of 1 to MaxPredicateSize distinct group identifiers.
//
// All randomness flows through an explicit *RNG, so generation is a pure
// function of (seed, params):
//
//	rng := synth.NewRNG(42)
//	corpus, queries, err := synth.Generate(rng, synth.Params{N: 1000, P: 8, X: 5})
package synth
