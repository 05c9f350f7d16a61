// Package distance provides the vector scoring functions used by the
// ground-truth search.
//
// # Supported Metrics
//
//   - MetricL2: Squared Euclidean distance (smaller is closer)
//   - MetricCosine: Cosine similarity via L2-normalized dot product (larger is closer)
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
//	unit, ok := distance.NormalizeL2Copy(v)
//	sim := distance.Dot(unit, other)
package distance
