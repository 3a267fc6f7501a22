package index

import (
	"sort"
	"strconv"
)

// Filter narrows a search. Nil/empty fields are ignored; set fields must
// all hold (intersection semantics).
type Filter struct {
	Categories     []string
	PriorityMin    *int
	PriorityMax    *int
	Tags           []string
	Author         string
	Source         string
	HasInheritance *bool
	IsActive       *bool
}

// Result is one ranked hit.
type Result struct {
	Name  string
	Score float64
	Doc   Document
}

// Facets are value counts computed over the final candidate set.
type Facets struct {
	Categories   map[string]int `json:"categories"`
	Priorities   map[string]int `json:"priorities"`
	Environments map[string]int `json:"environments"`
	Tags         map[string]int `json:"tags"`
}

// SearchResult bundles the ranked hits with their facet counts.
type SearchResult struct {
	Results []Result
	Facets  Facets
	Total   int
}

// Search intersects the indexed candidate sets selected by the filter,
// drops candidates failing the scalar predicates, ranks the survivors,
// and computes facet counts over them. accessCount supplies the
// cache-access bonus and may be nil.
func (ix *Index) Search(f Filter, accessCount func(name string) int64) SearchResult {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	candidates := ix.candidateSet(f)

	var results []Result
	for name := range candidates {
		doc := ix.docs[name]
		if !matchesScalar(doc, f) {
			continue
		}
		results = append(results, Result{
			Name:  name,
			Score: score(doc, f, accessCount),
			Doc:   doc,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})

	facets := Facets{
		Categories:   map[string]int{},
		Priorities:   map[string]int{},
		Environments: map[string]int{},
		Tags:         map[string]int{},
	}
	for _, r := range results {
		if r.Doc.Category != "" {
			facets.Categories[r.Doc.Category]++
		}
		facets.Priorities[strconv.Itoa(r.Doc.Level)]++
		if r.Doc.Environment != "" {
			facets.Environments[r.Doc.Environment]++
		}
		for _, tag := range r.Doc.Tags {
			facets.Tags[tag]++
		}
	}

	return SearchResult{Results: results, Facets: facets, Total: len(results)}
}

// candidateSet intersects the set-valued filter axes. With none set every
// indexed document is a candidate.
func (ix *Index) candidateSet(f Filter) map[string]struct{} {
	var sets []map[string]struct{}

	if len(f.Categories) > 0 {
		union := make(map[string]struct{})
		for _, c := range f.Categories {
			for name := range ix.facets[FacetCategory][c] {
				union[name] = struct{}{}
			}
		}
		sets = append(sets, union)
	}
	if len(f.Tags) > 0 {
		union := make(map[string]struct{})
		for _, t := range f.Tags {
			for name := range ix.facets[FacetTag][t] {
				union[name] = struct{}{}
			}
		}
		sets = append(sets, union)
	}
	if f.Author != "" {
		sets = append(sets, ix.facets[FacetAuthor][f.Author])
	}
	if f.Source != "" {
		sets = append(sets, ix.facets[FacetSource][f.Source])
	}

	if len(sets) == 0 {
		all := make(map[string]struct{}, len(ix.docs))
		for name := range ix.docs {
			all[name] = struct{}{}
		}
		return all
	}

	out := make(map[string]struct{})
	for name := range sets[0] {
		in := true
		for _, s := range sets[1:] {
			if _, ok := s[name]; !ok {
				in = false
				break
			}
		}
		if in {
			out[name] = struct{}{}
		}
	}
	return out
}

// matchesScalar checks the non-set predicates: priority range, inheritance
// flag, active flag.
func matchesScalar(doc Document, f Filter) bool {
	if f.PriorityMin != nil && doc.Level < *f.PriorityMin {
		return false
	}
	if f.PriorityMax != nil && doc.Level > *f.PriorityMax {
		return false
	}
	if f.HasInheritance != nil && doc.HasInheritance != *f.HasInheritance {
		return false
	}
	if f.IsActive != nil && doc.Active != *f.IsActive {
		return false
	}
	return true
}

// score ranks a candidate: +10 for a category match, +5 for landing in
// the priority range, +3 per matching tag, plus an access-frequency bonus
// capped at 5 (accessCount/10).
func score(doc Document, f Filter, accessCount func(name string) int64) float64 {
	s := 0.0
	for _, c := range f.Categories {
		if doc.Category == c {
			s += 10
			break
		}
	}
	if f.PriorityMin != nil || f.PriorityMax != nil {
		s += 5
	}
	for _, want := range f.Tags {
		for _, have := range doc.Tags {
			if want == have {
				s += 3
				break
			}
		}
	}
	if accessCount != nil {
		bonus := float64(accessCount(doc.Name)) / 10
		if bonus > 5 {
			bonus = 5
		}
		s += bonus
	}
	return s
}
