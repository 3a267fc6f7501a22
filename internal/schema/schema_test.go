package schema

import (
	"testing"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

func f(v float64) *float64 { return &v }

func chainWith(resolved map[string]rtbtypes.ConfigValue) *rtbtypes.InheritanceChain {
	return &rtbtypes.InheritanceChain{TemplateName: "cell_a", Resolved: resolved}
}

func TestValidateTypeMismatch(t *testing.T) {
	provider := StaticProvider{Schemas: map[string]ParameterSchema{
		"txPower": {Name: "txPower", Type: TypeNumber},
	}}
	chain := chainWith(map[string]rtbtypes.ConfigValue{
		"txPower": rtbtypes.String("forty"),
	})

	res := Validate(chain, provider, nil)
	if res.Valid {
		t.Fatal("type mismatch should invalidate the result")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", res.Errors)
	}
}

func TestValidateConstraintSeverities(t *testing.T) {
	provider := StaticProvider{Schemas: map[string]ParameterSchema{
		"txPower": {Name: "txPower", Type: TypeNumber, Constraints: []Constraint{
			{Severity: SeverityError, Min: f(0), Max: f(46)},
		}},
		"hysteresis": {Name: "hysteresis", Type: TypeNumber, Constraints: []Constraint{
			{Severity: SeverityWarning, Max: f(10)},
		}},
	}}

	t.Run("error severity invalidates", func(t *testing.T) {
		chain := chainWith(map[string]rtbtypes.ConfigValue{
			"txPower": rtbtypes.Number(50),
		})
		res := Validate(chain, provider, nil)
		if res.Valid {
			t.Fatal("out-of-range value with error severity should invalidate")
		}
		if len(res.Errors) != 1 || len(res.Warnings) != 0 {
			t.Fatalf("errors=%v warnings=%v", res.Errors, res.Warnings)
		}
	})

	t.Run("warning severity stays valid", func(t *testing.T) {
		chain := chainWith(map[string]rtbtypes.ConfigValue{
			"hysteresis": rtbtypes.Number(12),
		})
		res := Validate(chain, provider, nil)
		if !res.Valid {
			t.Fatal("warning-severity violation must not invalidate")
		}
		if len(res.Warnings) != 1 || res.Warnings[0].Code != rtbtypes.WarnConstraint {
			t.Fatalf("warnings = %+v", res.Warnings)
		}
	})

	t.Run("in range passes clean", func(t *testing.T) {
		chain := chainWith(map[string]rtbtypes.ConfigValue{
			"txPower":    rtbtypes.Number(40),
			"hysteresis": rtbtypes.Number(2.5),
		})
		res := Validate(chain, provider, nil)
		if !res.Valid || len(res.Errors) != 0 || len(res.Warnings) != 0 {
			t.Fatalf("unexpected result %+v", res)
		}
	})
}

func TestValidateEnumAndPattern(t *testing.T) {
	provider := StaticProvider{Schemas: map[string]ParameterSchema{
		"duplexMode": {Name: "duplexMode", Type: TypeString, Constraints: []Constraint{
			{Severity: SeverityError, Enum: []string{"FDD", "TDD"}},
		}},
		"cellId": {Name: "cellId", Type: TypeString, Constraints: []Constraint{
			{Severity: SeverityError, Pattern: `^[A-Z]{2}\d{4}$`},
		}},
	}}

	chain := chainWith(map[string]rtbtypes.ConfigValue{
		"duplexMode": rtbtypes.String("FDD"),
		"cellId":     rtbtypes.String("SE1234"),
	})
	if res := Validate(chain, provider, nil); !res.Valid {
		t.Fatalf("conforming values rejected: %v", res.Errors)
	}

	chain = chainWith(map[string]rtbtypes.ConfigValue{
		"duplexMode": rtbtypes.String("HDX"),
		"cellId":     rtbtypes.String("se-12"),
	})
	res := Validate(chain, provider, nil)
	if res.Valid || len(res.Errors) != 2 {
		t.Fatalf("valid=%v errors=%v, want both rejected", res.Valid, res.Errors)
	}
}

func TestValidateUnknownAttributeWarns(t *testing.T) {
	hierarchy := &MOHierarchy{Classes: map[string][]string{
		"EUtranCellFDD": {"txPower", "earfcn"},
	}}
	chain := chainWith(map[string]rtbtypes.ConfigValue{
		"txPower":  rtbtypes.Number(40),
		"txPowerr": rtbtypes.Number(40),
	})

	res := Validate(chain, nil, hierarchy)
	if !res.Valid {
		t.Fatal("unknown attribute must not invalidate")
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != rtbtypes.WarnUnknownParameter {
		t.Fatalf("warnings = %+v, want one unknown-parameter warning", res.Warnings)
	}
}

func TestValidateNilCollaborators(t *testing.T) {
	chain := chainWith(map[string]rtbtypes.ConfigValue{
		"anything": rtbtypes.Bool(true),
	})
	res := Validate(chain, nil, nil)
	if !res.Valid || len(res.Errors) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("nil collaborators should validate everything, got %+v", res)
	}
}

func TestMOHierarchyAttributeLookup(t *testing.T) {
	h := &MOHierarchy{
		Classes: map[string][]string{
			"ENodeBFunction": {"eNodeBId"},
			"EUtranCellFDD":  {"txPower", "earfcn"},
		},
		Relationships: map[string][]string{
			"ENodeBFunction": {"EUtranCellFDD"},
		},
	}
	for _, attr := range []string{"eNodeBId", "txPower", "earfcn"} {
		if !h.KnownAttribute(attr) {
			t.Errorf("KnownAttribute(%q) = false", attr)
		}
	}
	if h.KnownAttribute("EUtranCellFDD") {
		t.Error("class names are not attributes")
	}
}
