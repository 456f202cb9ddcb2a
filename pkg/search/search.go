package search

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/rh1/sitetools/internal/models"
)

const (
	DefaultThreshold        = 0.5
	DefaultMaxResults       = 3
	DefaultKeywordThreshold = 0.3
)

type Result struct {
	models.ChunkRecord
	Similarity float64 `json:"similarity"`
}

type SearchOptions struct {
	Threshold  float64
	MaxResults int
}

// Index is an in-memory view over precomputed chunk records.
type Index struct {
	records []models.ChunkRecord
}

func New(records []models.ChunkRecord) *Index {
	return &Index{records: records}
}

// Search ranks records by cosine similarity to query. Records whose vector
// length differs from the query are skipped.
func (ix *Index) Search(query []float32, opts SearchOptions) []Result {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}

	var results []Result
	for _, rec := range ix.records {
		sim, ok := CosineSimilarity(query, rec.Embedding)
		if !ok || sim < opts.Threshold {
			continue
		}
		results = append(results, Result{ChunkRecord: rec, Similarity: sim})
	}

	return top(results, opts.MaxResults)
}

// KeywordSearch scores records by query word hits when no query embedding
// is available. Words of two characters or fewer are ignored; a whole-word
// hit counts 2, a substring hit 1.
func (ix *Index) KeywordSearch(query string, maxResults int) []Result {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	patterns := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}

	n := float64(len(words))
	var results []Result
	for _, rec := range ix.records {
		text := strings.ToLower(rec.Text)

		var score, exact float64
		for i, w := range words {
			switch {
			case patterns[i].MatchString(text):
				score += 2
				exact++
			case strings.Contains(text, w):
				score++
			}
		}

		score = (score / n) * (1 + exact/n)
		score = math.Min(score, 1.0)
		if score > DefaultKeywordThreshold {
			results = append(results, Result{ChunkRecord: rec, Similarity: score})
		}
	}

	return top(results, maxResults)
}

func top(results []Result, n int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > n {
		results = results[:n]
	}
	return results
}

// CosineSimilarity reports false when the vectors cannot be compared.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
