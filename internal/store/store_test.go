package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/index"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

func newTestStore(t *testing.T) *TemplateStore {
	t.Helper()
	s, err := NewStore(Options{CacheSize: 16, CacheTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func tmpl(name string, cfg map[string]rtbtypes.ConfigValue) rtbtypes.Template {
	if cfg == nil {
		cfg = map[string]rtbtypes.ConfigValue{}
	}
	return rtbtypes.Template{Name: name, Configuration: cfg}
}

func prio(name string, level int, parents ...string) rtbtypes.PriorityInfo {
	return rtbtypes.PriorityInfo{TemplateName: name, Level: level, InheritsFrom: parents}
}

func TestRegisterAndGet(t *testing.T) {
	s := newTestStore(t)

	cfg := map[string]rtbtypes.ConfigValue{"txPower": rtbtypes.Int(40)}
	require.NoError(t, s.Register("base", tmpl("base", cfg), prio("base", 80)))

	got, ok := s.Get("base")
	require.True(t, ok)
	require.True(t, got.Configuration["txPower"].Equal(rtbtypes.Int(40)))

	p, ok := s.Priority("base")
	require.True(t, ok)
	require.Equal(t, 80, p.Level)
	require.Equal(t, 1, s.Len())
}

func TestRegisterStoresClone(t *testing.T) {
	s := newTestStore(t)

	cfg := map[string]rtbtypes.ConfigValue{"txPower": rtbtypes.Int(40)}
	require.NoError(t, s.Register("base", tmpl("base", cfg), prio("base", 80)))

	// Mutating the caller's map must not reach the stored document.
	cfg["txPower"] = rtbtypes.Int(0)
	got, _ := s.Get("base")
	require.True(t, got.Configuration["txPower"].Equal(rtbtypes.Int(40)))
}

func TestRegisterReplacesEntirely(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Register("x", tmpl("x", map[string]rtbtypes.ConfigValue{
		"a": rtbtypes.Int(1), "b": rtbtypes.Int(2),
	}), prio("x", 50)))
	require.NoError(t, s.Register("x", tmpl("x", map[string]rtbtypes.ConfigValue{
		"a": rtbtypes.Int(9),
	}), prio("x", 40)))

	got, _ := s.Get("x")
	require.Len(t, got.Configuration, 1, "re-registration must replace, not merge")
	p, _ := s.Priority("x")
	require.Equal(t, 40, p.Level)
	require.Equal(t, 1, s.Len())
}

func TestRegisterRejectsBadInput(t *testing.T) {
	s := newTestStore(t)

	err := s.Register("", tmpl("", nil), prio("", 10))
	require.True(t, rtbtypes.IsValidation(err), "missing name: %v", err)

	err = s.Register("x", rtbtypes.Template{Name: "x"}, prio("x", 10))
	require.True(t, rtbtypes.IsValidation(err), "nil configuration: %v", err)

	err = s.Register("x", tmpl("x", nil), prio("x", 99))
	require.True(t, rtbtypes.IsValidation(err), "out-of-range level: %v", err)

	bad := tmpl("x", nil)
	bad.CustomFunctions = []rtbtypes.CustomFunction{{Name: "1bad", Args: []string{}, Body: []string{"return 1"}}}
	err = s.Register("x", bad, prio("x", 10))
	require.True(t, rtbtypes.IsValidation(err), "invalid function name: %v", err)

	require.Equal(t, 0, s.Len(), "failed registrations must not mutate the store")
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Register("x", tmpl("x", nil), prio("x", 10)))

	require.True(t, s.Remove("x"))
	require.False(t, s.Remove("x"))
	require.False(t, s.Has("x"))

	res := s.Search(index.Filter{})
	require.Zero(t, res.Total, "removed template still indexed")
}

func TestSearchThroughStore(t *testing.T) {
	s := newTestStore(t)

	a := tmpl("a", nil)
	a.Meta.Tags = []string{"urban"}
	require.NoError(t, s.Register("a", a, rtbtypes.PriorityInfo{TemplateName: "a", Level: 30, Category: "radio"}))
	require.NoError(t, s.Register("b", tmpl("b", nil), rtbtypes.PriorityInfo{TemplateName: "b", Level: 80, Category: "transport"}))

	res := s.Search(index.Filter{Categories: []string{"radio"}})
	require.Equal(t, 1, res.Total)
	require.Equal(t, "a", res.Results[0].Name)
}

func TestAuditHistory(t *testing.T) {
	s, err := NewStore(Options{CacheSize: 16, CacheTTL: time.Minute, AuditPath: ":memory:"})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Register("x", tmpl("x", nil), prio("x", 30, "base")))
	require.NoError(t, s.Register("x", tmpl("x", nil), prio("x", 20)))
	s.Remove("x")

	history, err := s.Audit().History("x", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Newest first.
	require.Equal(t, "remove", history[0].Operation)
	require.Equal(t, "register", history[2].Operation)
	require.Equal(t, []string{"base"}, history[2].Parents)
}

func TestAuditKV(t *testing.T) {
	a, err := NewAuditStore(":memory:")
	require.NoError(t, err)
	defer a.Close()

	_, ok, err := a.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, a.Put("k", "v1"))
	require.NoError(t, a.Put("k", "v2"))
	v, ok, err := a.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}
