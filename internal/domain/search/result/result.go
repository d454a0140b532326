package result

import (
	"sort"

	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

// Result is a single search hit.
type Result struct {
	kind       entity.Kind
	id         int64
	score      float64
	attributes map[string]string
}

// New creates a search result.
func New(kind entity.Kind, id int64, score float64, attributes map[string]string) Result {
	return Result{kind: kind, id: id, score: score, attributes: attributes}
}

// Kind returns the entity kind of the hit.
func (r *Result) Kind() entity.Kind { return r.kind }

// ID returns the record identifier.
func (r *Result) ID() int64 { return r.id }

// Score returns the cosine similarity of the hit to the query.
func (r *Result) Score() float64 { return r.score }

// Attributes returns the stored attributes.
func (r *Result) Attributes() map[string]string { return r.attributes }

// Rank orders results by descending score, breaking ties by ascending id.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})
}

// Without returns results minus any hit with the given id, keeping order.
func Without(results []Result, id int64) []Result {
	out := results[:0:0]
	for _, r := range results {
		if r.id != id {
			out = append(out, r)
		}
	}
	return out
}

// Truncate returns at most n results.
func Truncate(results []Result, n int) []Result {
	if n >= 0 && len(results) > n {
		return results[:n]
	}
	return results
}
