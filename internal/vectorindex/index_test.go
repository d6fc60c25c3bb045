package vectorindex

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, ids []int64, vectors [][]float32) *Index {
	t.Helper()
	require.Len(t, vectors, len(ids))
	for _, vec := range vectors {
		Normalize(vec)
	}
	idx := New()
	idx.Rebuild(ids, vectors)
	return idx
}

func TestSearchByVectorSelfSimilarity(t *testing.T) {
	idx := buildIndex(t,
		[]int64{1, 2, 3},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.7, 0.7, 0},
		})

	hits := idx.SearchByVector([]float32{1, 0, 0}, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-6)
}

func TestSearchByVectorOrdering(t *testing.T) {
	idx := buildIndex(t,
		[]int64{1, 2, 3},
		[][]float32{
			{1, 0},
			{0.9, 0.1},
			{0, 1},
		})

	hits := idx.SearchByVector([]float32{1, 0}, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Equal(t, int64(2), hits[1].ID)
	assert.Equal(t, int64(3), hits[2].ID)
}

func TestSearchByVectorKLargerThanIndex(t *testing.T) {
	idx := buildIndex(t, []int64{1, 2}, [][]float32{{1, 0}, {0, 1}})

	hits := idx.SearchByVector([]float32{1, 0}, 50)
	assert.Len(t, hits, 2)
}

func TestSearchByVectorTiesStable(t *testing.T) {
	// Identical vectors: ties must preserve insertion order.
	idx := buildIndex(t,
		[]int64{10, 20, 30},
		[][]float32{{1, 0}, {1, 0}, {1, 0}})

	hits := idx.SearchByVector([]float32{1, 0}, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{hits[0].ID, hits[1].ID, hits[2].ID})
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := New()
	assert.Empty(t, idx.SearchByVector([]float32{1, 0}, 5))

	_, ok := idx.SearchByMember(1, 5)
	assert.False(t, ok)
}

func TestSearchByMember(t *testing.T) {
	idx := buildIndex(t,
		[]int64{1, 2},
		[][]float32{{1, 0}, {0, 1}})

	hits, ok := idx.SearchByMember(2, 2)
	require.True(t, ok)
	require.Len(t, hits, 2)
	// The member itself is not excluded; it ranks first.
	assert.Equal(t, int64(2), hits[0].ID)

	_, ok = idx.SearchByMember(99, 2)
	assert.False(t, ok)
}

// A search issued during a rebuild must observe either the complete old
// or the complete new index, never a mix.
func TestRebuildAtomicity(t *testing.T) {
	idx := buildIndex(t,
		[]int64{1, 2},
		[][]float32{{1, 0}, {0.5, 0.5}})

	oldIDs := map[int64]bool{1: true, 2: true}
	newIDs := map[int64]bool{3: true, 4: true}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			vecs := [][]float32{{1, 0}, {0.5, 0.5}}
			for _, v := range vecs {
				Normalize(v)
			}
			if i%2 == 0 {
				idx.Rebuild([]int64{3, 4}, vecs)
			} else {
				idx.Rebuild([]int64{1, 2}, vecs)
			}
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			hits := idx.SearchByVector([]float32{1, 0}, 10)
			if len(hits) == 0 {
				continue
			}
			fromOld := oldIDs[hits[0].ID]
			for _, h := range hits {
				if fromOld {
					assert.True(t, oldIDs[h.ID], "mixed generations in one result")
				} else {
					assert.True(t, newIDs[h.ID], "mixed generations in one result")
				}
			}
		}
	}()

	wg.Wait()
}

func TestNormalize(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestMean(t *testing.T) {
	mean := Mean([][]float32{{1, 0}, {0, 1}})
	assert.Equal(t, []float32{0.5, 0.5}, mean)

	assert.Nil(t, Mean(nil))
}
