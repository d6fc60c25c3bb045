// Package vectorindex provides a flat in-memory inner-product index over
// unit-normalised video embeddings.
//
// The index is rebuild-only: there is no incremental insert, update or
// delete. A rebuild constructs the replacement off to the side and swaps
// it in atomically, so concurrent searches observe either the complete
// old index or the complete new one, never a mix.
package vectorindex

import (
	"math"
	"sort"
	"sync"
)

// Hit is a single similarity result.
type Hit struct {
	// ID is the matched video.
	ID int64

	// Score is the inner product with the query vector. Vectors are
	// unit-normalised, so this is cosine similarity.
	Score float32
}

// Index is a dense collection of embedding vectors with a parallel
// position → video id lookup list.
type Index struct {
	mu      sync.RWMutex
	vectors [][]float32
	ids     []int64
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Rebuild atomically replaces the index contents. ids and vectors are
// position-parallel and adopted as-is; callers must not mutate them
// afterwards. Passing empty slices leaves the index empty, which degrades
// vector search to returning nothing.
func (x *Index) Rebuild(ids []int64, vectors [][]float32) {
	x.mu.Lock()
	x.ids = ids
	x.vectors = vectors
	x.mu.Unlock()
}

// Len returns the number of indexed vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// SearchByVector returns the top-k video ids ranked by descending inner
// product. Ties break by insertion order (stable). k larger than the
// index returns everything; an empty index returns no hits, not an error.
func (x *Index) SearchByVector(query []float32, k int) []Hit {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.ids) == 0 {
		return nil
	}

	hits := make([]Hit, len(x.ids))
	for i, vec := range x.vectors {
		hits[i] = Hit{ID: x.ids[i], Score: dot(query, vec)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// SearchByMember looks up the stored vector of an existing member and
// searches with it. The member's own vector is not excluded from the
// result set; callers wanting "other similar videos" filter the source id
// themselves. The second return value is false when the id is not indexed.
func (x *Index) SearchByMember(id int64, k int) ([]Hit, bool) {
	x.mu.RLock()
	var query []float32
	for i, candidate := range x.ids {
		if candidate == id {
			query = x.vectors[i]
			break
		}
	}
	x.mu.RUnlock()

	if query == nil {
		return nil, false
	}
	return x.SearchByVector(query, k), true
}

// Normalize scales vec to unit length in place and returns it.
// The zero vector is returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// Mean returns the element-wise mean of the given vectors. The result is
// not renormalised. Returns nil for empty input.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	mean := make([]float32, len(vectors[0]))
	for _, vec := range vectors {
		for i, v := range vec {
			mean[i] += v
		}
	}
	n := float32(len(vectors))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
