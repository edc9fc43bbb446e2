package vectorstore

import (
	"math"
	"sort"
	"strconv"

	"ragprompt/internal/domain"
)

// Similarity is the cosine similarity of a and b. Both norms are computed,
// so vectors need not be normalised. A zero vector is similar to nothing (0).
func Similarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores entries against vector and returns the best topK, ordered by
// decreasing similarity with ties broken by ascending id.
func Rank(entries []domain.IndexedEntry, vector []float64, topK int) []domain.SearchResult {
	results := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		results[i] = domain.SearchResult{
			ID:    e.ID,
			Chunk: domain.Chunk{Text: e.Text, Metadata: domain.MetadataFromMap(e.Metadata)},
			Score: Similarity(e.Vector, vector),
		}
	}
	SortResults(results)
	if topK < len(results) {
		results = results[:topK]
	}
	return results
}

// SortResults orders results by decreasing score, then ascending id.
func SortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return LessID(results[i].ID, results[j].ID)
	})
}

// LessID orders ids numerically when both are integers and lexically otherwise.
func LessID(a, b string) bool {
	ai, errA := strconv.ParseUint(a, 10, 64)
	bi, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
