// Package store implements the template registry: the single owner of
// template documents and their priority metadata. The chain cache and the
// facet indexes are derived views owned by the store instance and
// invalidated on every mutation.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/cache"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/index"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/priority"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// Options tunes a store instance.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	// AuditPath enables the SQLite audit sink when non-empty.
	// ":memory:" is accepted for tests.
	AuditPath string
}

// TemplateStore holds named templates plus priority metadata. All fields
// are instance-owned; two stores never share state, so tests can run
// stores in parallel. One RWMutex guards the maps - operations are cheap
// enough that finer locking buys nothing.
type TemplateStore struct {
	mu         sync.RWMutex
	templates  map[string]rtbtypes.Template
	priorities map[string]rtbtypes.PriorityInfo

	chainCache *cache.ChainCache
	indexes    *index.Index
	audit      *AuditStore
}

// NewStore creates an empty store. The audit sink is optional; a store
// without one simply skips history writes.
func NewStore(opts Options) (*TemplateStore, error) {
	s := &TemplateStore{
		templates:  make(map[string]rtbtypes.Template),
		priorities: make(map[string]rtbtypes.PriorityInfo),
		chainCache: cache.New(opts.CacheSize, opts.CacheTTL),
		indexes:    index.New(),
	}
	if opts.AuditPath != "" {
		audit, err := NewAuditStore(opts.AuditPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		s.audit = audit
	}
	logging.Store("template store created (cache=%d entries)", opts.CacheSize)
	return s, nil
}

// Register validates and stores a template under name. A prior
// registration under the same name is fully replaced - last write wins,
// no partial merging. Registration is atomic: on validation failure the
// store, cache, and indexes are untouched.
func (s *TemplateStore) Register(name string, tmpl rtbtypes.Template, prio rtbtypes.PriorityInfo) error {
	timer := logging.StartTimer(logging.CategoryStore, "Register "+name)
	defer timer.Stop()

	if err := validateTemplate(name, tmpl); err != nil {
		return err
	}
	if !priority.Valid(prio.Level) {
		return &rtbtypes.ValidationError{
			Template: name,
			Reason:   fmt.Sprintf("priority level %d outside [%d,%d]", prio.Level, priority.Min, priority.Max),
		}
	}

	tmpl.Name = name
	prio.TemplateName = name
	prio.ResolvedAt = time.Now()
	stored := tmpl.Clone()

	s.mu.Lock()
	replaced := false
	if _, ok := s.templates[name]; ok {
		replaced = true
	}
	s.templates[name] = stored
	s.priorities[name] = prio
	s.mu.Unlock()

	// Derived views: drop every cached chain rooted at this template and
	// reindex just this document.
	s.chainCache.InvalidatePrefix(name + ":")
	s.indexes.Add(index.DocumentFor(stored, prio))

	if replaced {
		logging.Store("re-registered template %q (level %d, %d parents)", name, prio.Level, len(prio.InheritsFrom))
	} else {
		logging.Store("registered template %q (level %d, %d parents)", name, prio.Level, len(prio.InheritsFrom))
	}
	s.writeAudit("register", name, prio)
	return nil
}

// Get returns the template registered under name.
func (s *TemplateStore) Get(name string) (rtbtypes.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[name]
	return t, ok
}

// Priority returns the priority metadata for name.
func (s *TemplateStore) Priority(name string) (rtbtypes.PriorityInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.priorities[name]
	return p, ok
}

// Has reports whether name is registered.
func (s *TemplateStore) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.templates[name]
	return ok
}

// Remove deletes a template along with its priority record, cached
// chains, and index memberships. Returns whether anything was removed.
func (s *TemplateStore) Remove(name string) bool {
	s.mu.Lock()
	_, existed := s.templates[name]
	var prio rtbtypes.PriorityInfo
	if existed {
		prio = s.priorities[name]
		delete(s.templates, name)
		delete(s.priorities, name)
	}
	s.mu.Unlock()

	if !existed {
		return false
	}

	s.chainCache.InvalidatePrefix(name + ":")
	s.indexes.Remove(name)
	logging.Store("removed template %q", name)
	s.writeAudit("remove", name, prio)
	return true
}

// Names returns all registered template names (unordered).
func (s *TemplateStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.templates))
	for name := range s.templates {
		out = append(out, name)
	}
	return out
}

// Len returns the number of registered templates.
func (s *TemplateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Search runs a filtered facet search, folding cache access frequency
// into the relevance score.
func (s *TemplateStore) Search(f index.Filter) index.SearchResult {
	return s.indexes.Search(f, s.chainCache.AccessCount)
}

// RebuildIndexes reindexes every registered template from scratch.
func (s *TemplateStore) RebuildIndexes() {
	s.mu.RLock()
	docs := make([]index.Document, 0, len(s.templates))
	for name, t := range s.templates {
		docs = append(docs, index.DocumentFor(t, s.priorities[name]))
	}
	s.mu.RUnlock()
	s.indexes.Rebuild(docs)
}

// Cache exposes the chain cache to the resolver.
func (s *TemplateStore) Cache() *cache.ChainCache {
	return s.chainCache
}

// Audit exposes the audit sink, or nil when disabled.
func (s *TemplateStore) Audit() *AuditStore {
	return s.audit
}

// Close releases the audit database and drops derived state.
func (s *TemplateStore) Close() error {
	s.chainCache.Clear()
	if s.audit != nil {
		return s.audit.Close()
	}
	return nil
}

func (s *TemplateStore) writeAudit(op, name string, prio rtbtypes.PriorityInfo) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordEvent(op, name, prio); err != nil {
		// History writes never fail the mutation itself.
		logging.Get(logging.CategoryAudit).Warn("audit write failed for %s %q: %v", op, name, err)
	}
}
