// Package vecmath provides the small numeric helpers shared by the vector
// storage tiers.
package vecmath

import "math"

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value in [-1, 1]. Nil, empty, or length-mismatched inputs yield 0
// so callers can treat a missing vector as "no similarity" without branching.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
