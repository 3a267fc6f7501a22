package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

func vals(pairs ...Value) []Value { return pairs }

func v(prio int, source string, cv rtbtypes.ConfigValue) Value {
	return Value{Priority: prio, Source: source, V: cv}
}

func TestNumericStrategies(t *testing.T) {
	// Two contributions: level 10 value 5, level 20 value 3.
	input := vals(
		v(10, "a", rtbtypes.Number(5)),
		v(20, "b", rtbtypes.Number(3)),
	)
	e := NewEngine()

	tests := []struct {
		strategy Strategy
		want     float64
	}{
		{Sum, 8},
		{Average, 4},
		{HighestPriority, 5},
		{LowestPriority, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			got := e.Apply(tt.strategy, "p", input)
			if got.Kind() != rtbtypes.KindNumber || got.NumberVal() != tt.want {
				t.Errorf("Apply(%s) = %v, want %v", tt.strategy, got, tt.want)
			}
		})
	}
}

func TestNumericFoldSkipsNonNumbers(t *testing.T) {
	e := NewEngine()
	got := e.Apply(Sum, "p", vals(
		v(10, "a", rtbtypes.Number(5)),
		v(20, "b", rtbtypes.String("not a number")),
		v(30, "c", rtbtypes.Number(2)),
	))
	if got.NumberVal() != 7 {
		t.Errorf("Sum skipping non-numeric = %v, want 7", got.NumberVal())
	}

	// All non-numeric: last contribution wins.
	got = e.Apply(Average, "p", vals(
		v(10, "a", rtbtypes.String("x")),
		v(20, "b", rtbtypes.String("y")),
	))
	if got.StringVal() != "y" {
		t.Errorf("Average over non-numeric = %v, want last value", got)
	}
}

func TestMergeAll(t *testing.T) {
	e := NewEngine()

	t.Run("IdenticalCollapse", func(t *testing.T) {
		got := e.Apply(MergeAll, "p", vals(
			v(10, "a", rtbtypes.Number(7)),
			v(20, "b", rtbtypes.Number(7)),
		))
		if !got.Equal(rtbtypes.Number(7)) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("ArraysFlattenDedupe", func(t *testing.T) {
		got := e.Apply(MergeAll, "p", vals(
			v(10, "a", rtbtypes.Array(rtbtypes.Int(1), rtbtypes.Int(2))),
			v(20, "b", rtbtypes.Array(rtbtypes.Int(2), rtbtypes.Int(3))),
		))
		want := rtbtypes.Array(rtbtypes.Int(1), rtbtypes.Int(2), rtbtypes.Int(3))
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("ObjectsShallowMerge", func(t *testing.T) {
		got := e.Apply(MergeAll, "p", vals(
			v(10, "a", rtbtypes.Object(map[string]rtbtypes.ConfigValue{"x": rtbtypes.Int(1), "y": rtbtypes.Int(2)})),
			v(20, "b", rtbtypes.Object(map[string]rtbtypes.ConfigValue{"y": rtbtypes.Int(9), "z": rtbtypes.Int(3)})),
		))
		// Left-to-right: later contributions overwrite shared keys.
		want := rtbtypes.Object(map[string]rtbtypes.ConfigValue{
			"x": rtbtypes.Int(1), "y": rtbtypes.Int(9), "z": rtbtypes.Int(3),
		})
		if !cmp.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("StringsJoin", func(t *testing.T) {
		got := e.Apply(MergeAll, "p", vals(
			v(10, "a", rtbtypes.String("alpha")),
			v(20, "b", rtbtypes.String("beta")),
		))
		if got.StringVal() != "alpha | beta" {
			t.Errorf("got %q", got.StringVal())
		}
	})

	t.Run("MixedKindsFallBackToHighestPriority", func(t *testing.T) {
		got := e.Apply(MergeAll, "p", vals(
			v(20, "b", rtbtypes.String("s")),
			v(10, "a", rtbtypes.Number(1)),
		))
		if !got.Equal(rtbtypes.Number(1)) {
			t.Errorf("got %v, want highest-priority value", got)
		}
	})
}

func TestConcatenate(t *testing.T) {
	e := NewEngine()

	got := e.Apply(Concatenate, "p", vals(
		v(10, "a", rtbtypes.Array(rtbtypes.Int(1))),
		v(20, "b", rtbtypes.Array(rtbtypes.Int(1), rtbtypes.Int(2))),
	))
	// Concatenate keeps duplicates, unlike merge_all.
	want := rtbtypes.Array(rtbtypes.Int(1), rtbtypes.Int(1), rtbtypes.Int(2))
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got = e.Apply(Concatenate, "p", vals(
		v(10, "a", rtbtypes.String("ab")),
		v(20, "b", rtbtypes.String("cd")),
	))
	if got.StringVal() != "abcd" {
		t.Errorf("got %q, want abcd", got.StringVal())
	}

	// Mixed kinds: raw list of contributions.
	got = e.Apply(Concatenate, "p", vals(
		v(10, "a", rtbtypes.Number(1)),
		v(20, "b", rtbtypes.String("x")),
	))
	if got.Kind() != rtbtypes.KindArray || len(got.ArrayVal()) != 2 {
		t.Errorf("got %v, want 2-element array", got)
	}
}

func TestCustomStrategy(t *testing.T) {
	e := NewEngine()
	e.RegisterCustom("txPower", func(parameter string, values []Value) rtbtypes.ConfigValue {
		// Max wins.
		best := values[0].V
		for _, v := range values[1:] {
			if v.V.NumberVal() > best.NumberVal() {
				best = v.V
			}
		}
		return best
	})

	got := e.Apply(Custom, "txPower", vals(
		v(10, "a", rtbtypes.Number(20)),
		v(20, "b", rtbtypes.Number(43)),
	))
	if got.NumberVal() != 43 {
		t.Errorf("custom resolver ignored: got %v", got)
	}

	// No resolver registered: last contribution wins.
	got = e.Apply(Custom, "other", vals(
		v(10, "a", rtbtypes.Number(1)),
		v(20, "b", rtbtypes.Number(2)),
	))
	if got.NumberVal() != 2 {
		t.Errorf("unregistered custom fallback: got %v", got)
	}
}

func TestDetectConflict(t *testing.T) {
	if DetectConflict(vals(v(10, "a", rtbtypes.Number(60)))) {
		t.Error("single contribution is never a conflict")
	}
	// Same structural group (both numbers): no structural conflict.
	if DetectConflict(vals(v(10, "a", rtbtypes.Number(60)), v(20, "b", rtbtypes.Number(30)))) {
		t.Error("numbers share one structural group")
	}
	if !DetectConflict(vals(v(10, "a", rtbtypes.Number(60)), v(20, "b", rtbtypes.String("60")))) {
		t.Error("number vs string is a structural conflict")
	}
}

func TestConflictRecordFields(t *testing.T) {
	values := vals(
		v(30, "prod", rtbtypes.Number(60)),
		v(80, "base", rtbtypes.Number(30)),
	)
	rec := NewConflictRecord("timeout", values, rtbtypes.Number(60), HighestPriority)
	if rec.ID == "" {
		t.Error("record needs a unique id")
	}
	if rec.Parameter != "timeout" {
		t.Errorf("parameter = %q", rec.Parameter)
	}
	if len(rec.Sources) != 2 || rec.Sources[0] != "prod" || rec.Sources[1] != "base" {
		t.Errorf("sources = %v", rec.Sources)
	}
	if !rec.ResolvedValue.Equal(rtbtypes.Number(60)) {
		t.Errorf("resolved = %v", rec.ResolvedValue)
	}
}
