package processor

import (
	"fmt"
	"math"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// NativeFunc is a built-in evaluation function. Built-ins run in-process;
// only template-supplied functions go through the interpreter.
type NativeFunc func(args []rtbtypes.ConfigValue) (rtbtypes.ConfigValue, error)

// builtinFunctions are the predefined RAN helpers available to every
// template's $eval entries without declaring custom functions.
func builtinFunctions() map[string]NativeFunc {
	return map[string]NativeFunc{
		"calculate_rsrp_offset":   calculateRSRPOffset,
		"calculate_power_control": calculatePowerControl,
		"qci_to_priority":         qciToPriority,
		"handover_margin":         handoverMargin,
		"bandwidth_to_prb":        bandwidthToPRB,
	}
}

func numArgs(name string, args []rtbtypes.ConfigValue, want int) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%s expects %d args, got %d", name, want, len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		if a.Kind() != rtbtypes.KindNumber {
			return nil, fmt.Errorf("%s arg %d must be a number, got %s", name, i, a.Kind())
		}
		out[i] = a.NumberVal()
	}
	return out, nil
}

// calculateRSRPOffset sums a base RSRP threshold with an adjustment and
// clamps the result to the reportable RSRP range (-140..-44 dBm).
func calculateRSRPOffset(args []rtbtypes.ConfigValue) (rtbtypes.ConfigValue, error) {
	n, err := numArgs("calculate_rsrp_offset", args, 2)
	if err != nil {
		return rtbtypes.Null(), err
	}
	v := n[0] + n[1]
	v = math.Max(-140, math.Min(-44, v))
	return rtbtypes.Number(v), nil
}

// calculatePowerControl computes open-loop UE transmit power
// P0 + alpha * pathloss, capped at the 23 dBm class-3 maximum.
func calculatePowerControl(args []rtbtypes.ConfigValue) (rtbtypes.ConfigValue, error) {
	n, err := numArgs("calculate_power_control", args, 3)
	if err != nil {
		return rtbtypes.Null(), err
	}
	p0, alpha, pathloss := n[0], n[1], n[2]
	if alpha < 0 || alpha > 1 {
		return rtbtypes.Null(), fmt.Errorf("calculate_power_control: alpha %g outside [0,1]", alpha)
	}
	return rtbtypes.Number(math.Min(23, p0+alpha*pathloss)), nil
}

// qciPriorities maps standardized QCI values to scheduling priority.
var qciPriorities = map[int]int{
	1: 2, 2: 4, 3: 3, 4: 5, 5: 1, 6: 6, 7: 7, 8: 8, 9: 9,
}

func qciToPriority(args []rtbtypes.ConfigValue) (rtbtypes.ConfigValue, error) {
	n, err := numArgs("qci_to_priority", args, 1)
	if err != nil {
		return rtbtypes.Null(), err
	}
	qci := int(n[0])
	prio, ok := qciPriorities[qci]
	if !ok {
		return rtbtypes.Null(), fmt.Errorf("qci_to_priority: unknown QCI %d", qci)
	}
	return rtbtypes.Int(prio), nil
}

// handoverMargin combines hysteresis and cell individual offset, floored
// at zero.
func handoverMargin(args []rtbtypes.ConfigValue) (rtbtypes.ConfigValue, error) {
	n, err := numArgs("handover_margin", args, 2)
	if err != nil {
		return rtbtypes.Null(), err
	}
	return rtbtypes.Number(math.Max(0, n[0]+n[1])), nil
}

// prbCounts maps LTE channel bandwidth in MHz to resource block count.
var prbCounts = map[float64]int{
	1.4: 6, 3: 15, 5: 25, 10: 50, 15: 75, 20: 100,
}

func bandwidthToPRB(args []rtbtypes.ConfigValue) (rtbtypes.ConfigValue, error) {
	n, err := numArgs("bandwidth_to_prb", args, 1)
	if err != nil {
		return rtbtypes.Null(), err
	}
	prb, ok := prbCounts[n[0]]
	if !ok {
		return rtbtypes.Null(), fmt.Errorf("bandwidth_to_prb: unsupported bandwidth %g MHz", n[0])
	}
	return rtbtypes.Int(prb), nil
}
