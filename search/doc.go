// Package search computes exact predicate-constrained nearest neighbors.
//
// For each query the corpus is restricted to vectors whose group identifier
// is in the query's predicate set (see package filter); the k best candidates
// are selected in that reduced space and mapped back to corpus-global
// indices. Two scorers share this logic:
//
//   - L2Scorer: squared Euclidean distance, ascending
//   - CosineScorer: dot product of L2-normalized vectors, descending
//
// Ties are broken by ascending corpus index in both modes.
//
// Every result row has exactly k entries. Valid neighbors fill a prefix of
// Row.Count entries and the remainder holds Sentinel, so a query with no
// matching candidates yields k sentinels.
//
//	s, _ := search.New(distance.MetricCosine, corpus, search.DefaultK)
//	nb, _ := search.Run(ctx, s, queries, search.WithWorkers(8))
package search
