// Package testutil provides testing utilities for aggo.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random document sets and for
// computing exact reference values to verify aggregation results.
//
// # Random Document Generation
//
//	rng := testutil.NewRNG(seed)
//	docs := rng.NumericDocs("price", 1000, 0, 100)
//	seg := segment.NewMemSegment(1, docs)
//
// # Reference Folds (Ground Truth)
//
//	sum := testutil.SumOf(docs, "price")
//	mx := testutil.MaxOf(docs, "price")
package testutil
