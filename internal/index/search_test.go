package index

import (
	"testing"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

func doc(name, category string, level int, tags ...string) Document {
	return Document{
		Name:     name,
		Category: category,
		Level:    level,
		Tags:     tags,
		Active:   true,
	}
}

func seeded() *Index {
	ix := New()
	ix.Add(doc("t1", "radio", 30, "urban"))
	ix.Add(doc("t2", "radio", 80, "rural"))
	ix.Add(doc("t3", "transport", 30, "urban"))
	return ix
}

func TestSearchByCategoryWithFacets(t *testing.T) {
	ix := New()
	ix.Add(doc("x", "A", 30))
	ix.Add(doc("y", "A", 40))
	ix.Add(doc("z", "B", 50))

	res := ix.Search(Filter{Categories: []string{"A"}}, nil)
	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2", res.Total)
	}
	if res.Facets.Categories["A"] != 2 {
		t.Errorf("facet count for A = %d, want 2", res.Facets.Categories["A"])
	}
	if _, present := res.Facets.Categories["B"]; present {
		t.Error("facets must only count matched documents")
	}
}

func TestSearchIntersectsAxes(t *testing.T) {
	ix := seeded()

	// Category OR within the axis, AND across axes.
	res := ix.Search(Filter{Categories: []string{"radio"}, Tags: []string{"urban"}}, nil)
	if res.Total != 1 || res.Results[0].Name != "t1" {
		t.Fatalf("results = %+v, want only t1", res.Results)
	}

	res = ix.Search(Filter{Categories: []string{"radio", "transport"}}, nil)
	if res.Total != 3 {
		t.Errorf("union within category axis gave %d results, want 3", res.Total)
	}
}

func TestSearchPriorityRange(t *testing.T) {
	ix := seeded()
	min, max := 0, 40
	res := ix.Search(Filter{PriorityMin: &min, PriorityMax: &max}, nil)
	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2 (levels 30)", res.Total)
	}
	for _, r := range res.Results {
		if r.Doc.Level > max {
			t.Errorf("result %s level %d outside range", r.Name, r.Doc.Level)
		}
	}
}

func TestSearchScoring(t *testing.T) {
	ix := New()
	ix.Add(doc("both", "radio", 30, "urban", "dense"))
	ix.Add(doc("one", "transport", 30, "urban"))

	res := ix.Search(Filter{Categories: []string{"radio", "transport"}, Tags: []string{"urban", "dense"}}, nil)
	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2", res.Total)
	}
	if res.Results[0].Name != "both" {
		t.Fatalf("two-tag match must rank first: %+v", res.Results)
	}
	if res.Results[0].Score != 16 { // +10 category, +3 per tag
		t.Errorf("top score = %v, want 16", res.Results[0].Score)
	}
	if res.Results[1].Score != 13 { // +10 category, +3 one tag
		t.Errorf("second score = %v, want 13", res.Results[1].Score)
	}
}

func TestSearchAccessBonus(t *testing.T) {
	ix := New()
	ix.Add(doc("hot", "A", 30))
	ix.Add(doc("cold", "A", 30))

	counts := map[string]int64{"hot": 200} // bonus capped at 5
	res := ix.Search(Filter{Categories: []string{"A"}}, func(name string) int64 {
		return counts[name]
	})
	if res.Results[0].Name != "hot" {
		t.Fatalf("frequently accessed template should rank first: %+v", res.Results)
	}
	if got := res.Results[0].Score - res.Results[1].Score; got != 5 {
		t.Errorf("access bonus difference = %v, want capped 5", got)
	}
}

func TestRemoveDropsFacets(t *testing.T) {
	ix := seeded()
	if !ix.Remove("t1") {
		t.Fatal("Remove reported unknown document")
	}
	if ix.Len() != 2 {
		t.Errorf("Len = %d, want 2", ix.Len())
	}
	if names := ix.Lookup(FacetTag, "urban"); len(names) != 1 || names[0] != "t3" {
		t.Errorf("tag facet = %v, want [t3]", names)
	}
}

func TestDocumentFor(t *testing.T) {
	active := false
	tpl := rtbtypes.Template{
		Name: "urban_site",
		Configuration: map[string]rtbtypes.ConfigValue{
			"txPower": rtbtypes.Int(40),
		},
		CustomFunctions: []rtbtypes.CustomFunction{{Name: "calc_offset"}},
		Meta: rtbtypes.Meta{
			Environment: "production",
			Tags:        []string{"urban"},
			Author:      []string{"noc"},
			Active:      &active,
		},
	}
	prio := rtbtypes.PriorityInfo{
		TemplateName: "urban_site",
		Level:        30,
		Category:     "radio",
		InheritsFrom: []string{"base"},
	}

	d := DocumentFor(tpl, prio)
	if d.Name != "urban_site" || d.Category != "radio" || d.Level != 30 {
		t.Errorf("identity fields wrong: %+v", d)
	}
	if !d.HasInheritance {
		t.Error("HasInheritance should be true")
	}
	if d.Active {
		t.Error("explicit active=false must carry through")
	}
	if len(d.Parameters) != 1 || d.Parameters[0] != "txPower" {
		t.Errorf("parameters = %v", d.Parameters)
	}
	if len(d.Functions) != 1 || d.Functions[0] != "calc_offset" {
		t.Errorf("functions = %v", d.Functions)
	}
}
