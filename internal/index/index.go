// Package index maintains secondary facet indexes over registered
// templates and serves filtered, relevance-ranked search. Indexes are
// process-lifetime derived views: rebuilt incrementally on register/remove
// and never persisted.
package index

import (
	"strconv"
	"sync"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// Facet names a grouping axis.
type Facet string

const (
	FacetCategory    Facet = "category"
	FacetPriority    Facet = "priority"
	FacetEnvironment Facet = "environment"
	FacetTag         Facet = "tag"
	FacetAuthor      Facet = "author"
	FacetSource      Facet = "source"
	FacetParameter   Facet = "parameter"
	FacetFunction    Facet = "function"
)

// Document is the indexed projection of one registered template.
type Document struct {
	Name           string
	Category       string
	Level          int
	Environment    string
	Tags           []string
	Authors        []string
	Source         string
	Parameters     []string
	Functions      []string
	HasInheritance bool
	Active         bool
}

// DocumentFor projects a template plus its priority metadata into the
// indexed form.
func DocumentFor(t rtbtypes.Template, p rtbtypes.PriorityInfo) Document {
	params := make([]string, 0, len(t.Configuration))
	for k := range t.Configuration {
		params = append(params, k)
	}
	funcs := make([]string, 0, len(t.CustomFunctions))
	for _, f := range t.CustomFunctions {
		funcs = append(funcs, f.Name)
	}
	return Document{
		Name:           t.Name,
		Category:       p.Category,
		Level:          p.Level,
		Environment:    t.Meta.Environment,
		Tags:           append([]string(nil), t.Meta.Tags...),
		Authors:        append([]string(nil), t.Meta.Author...),
		Source:         t.Meta.Source,
		Parameters:     params,
		Functions:      funcs,
		HasInheritance: len(p.InheritsFrom) > 0,
		Active:         t.Meta.IsActive(),
	}
}

// Index holds the facet multi-maps. Owned by one store instance; a single
// RWMutex is enough because updates happen only on register/remove.
type Index struct {
	mu     sync.RWMutex
	docs   map[string]Document
	facets map[Facet]map[string]map[string]struct{}
}

// New returns an empty index.
func New() *Index {
	return &Index{
		docs:   make(map[string]Document),
		facets: make(map[Facet]map[string]map[string]struct{}),
	}
}

// Add indexes (or reindexes) one document.
func (ix *Index) Add(doc Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(doc.Name)
	ix.addLocked(doc)
}

// Remove drops a document and its facet memberships. Returns whether the
// document was indexed.
func (ix *Index) Remove(name string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.docs[name]
	ix.removeLocked(name)
	return ok
}

// Rebuild replaces the whole index from scratch.
func (ix *Index) Rebuild(docs []Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = make(map[string]Document, len(docs))
	ix.facets = make(map[Facet]map[string]map[string]struct{})
	for _, d := range docs {
		ix.addLocked(d)
	}
	logging.Get(logging.CategoryIndex).Debug("full rebuild complete: %d documents", len(docs))
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

func (ix *Index) addLocked(doc Document) {
	ix.docs[doc.Name] = doc
	ix.put(FacetCategory, doc.Category, doc.Name)
	ix.put(FacetPriority, strconv.Itoa(doc.Level), doc.Name)
	ix.put(FacetEnvironment, doc.Environment, doc.Name)
	ix.put(FacetAuthor, firstOrEmpty(doc.Authors), doc.Name)
	ix.put(FacetSource, doc.Source, doc.Name)
	for _, tag := range doc.Tags {
		ix.put(FacetTag, tag, doc.Name)
	}
	for _, p := range doc.Parameters {
		ix.put(FacetParameter, p, doc.Name)
	}
	for _, f := range doc.Functions {
		ix.put(FacetFunction, f, doc.Name)
	}
}

func (ix *Index) removeLocked(name string) {
	if _, ok := ix.docs[name]; !ok {
		return
	}
	delete(ix.docs, name)
	for _, byValue := range ix.facets {
		for value, members := range byValue {
			delete(members, name)
			if len(members) == 0 {
				delete(byValue, value)
			}
		}
	}
}

func (ix *Index) put(facet Facet, value, name string) {
	if value == "" {
		return
	}
	byValue, ok := ix.facets[facet]
	if !ok {
		byValue = make(map[string]map[string]struct{})
		ix.facets[facet] = byValue
	}
	members, ok := byValue[value]
	if !ok {
		members = make(map[string]struct{})
		byValue[value] = members
	}
	members[name] = struct{}{}
}

// Lookup returns the template names carrying one facet value.
func (ix *Index) Lookup(facet Facet, value string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	members := ix.facets[facet][value]
	out := make([]string, 0, len(members))
	for name := range members {
		out = append(out, name)
	}
	return out
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
