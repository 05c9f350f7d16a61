// Package predgt generates predicate-filtered nearest-neighbor ground truth.
//
// A run synthesizes a corpus of uniform random vectors labelled with
// contiguous group identifiers, draws queries that each carry a small
// predicate set of group identifiers, computes the exact top-k neighbors of
// every query restricted to corpus vectors whose group is in its predicate,
// and persists the corpus, queries and neighbor matrix as one dataset file.
//
// # Quick Start
//
//	res, err := predgt.Run(ctx, predgt.Params{N: 10_000, P: 128, X: 1_000}, "gt.pgt",
//	    predgt.WithMetric(distance.MetricCosine),
//	    predgt.WithSeed(7),
//	)
//
// # Publishing
//
// A written dataset can be uploaded to any blobstore.Store and recorded in a
// blobstore.Catalog:
//
//	store := s3.NewStore(client, "my-bucket", "datasets/")
//	res, err := predgt.Run(ctx, params, "gt.pgt",
//	    predgt.WithPublisher(store, "gt.pgt"),
//	    predgt.WithCatalog(s3.NewCatalog(ddb, "predgt-datasets")),
//	)
//	fmt.Println(res.Location) // s3://my-bucket/datasets/gt.pgt
//
// # Determinism
//
// Output is a pure function of the seed and parameters. Queries are searched
// in parallel, but every row is stored at its query's position, so the
// worker count never changes the result.
package predgt
