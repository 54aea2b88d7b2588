package vectorindex

import "sort"

// Result is one nearest-neighbour hit. Position is the vector's insertion
// order in the index; Distance is squared euclidean distance to the query.
type Result struct {
	Position int
	Distance float32
}

// Index is an exact, brute-force similarity index over a fixed vector set.
// Exhaustive scan is deliberate: the corpus is one chat's chunks, and the
// index is rebuilt per question anyway because chat membership is mutable.
type Index struct {
	vectors [][]float32
}

// Build creates an index over the given vectors. A nil index is returned for
// an empty set; callers must treat that as "no retrievable content", not as
// an error.
func Build(vectors [][]float32) *Index {
	if len(vectors) == 0 {
		return nil
	}
	return &Index{vectors: vectors}
}

// Len reports the number of indexed vectors.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.vectors)
}

// Search returns the min(k, Len) vectors nearest to query, ordered by
// non-decreasing distance, ties broken by insertion order.
func (ix *Index) Search(query []float32, k int) []Result {
	if ix == nil || k <= 0 {
		return nil
	}

	results := make([]Result, len(ix.vectors))
	for i, v := range ix.vectors {
		results[i] = Result{Position: i, Distance: squaredDistance(query, v)}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Position < results[j].Position
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// squaredDistance compares vectors over their common prefix. Dimensionality
// must match across all stored vectors for a deployment; mixing embedding
// models invalidates the comparison and is not guarded against here.
func squaredDistance(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
