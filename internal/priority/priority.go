// Package priority defines the inheritance precedence model. Levels are an
// open integer range [0,80]: lower values carry higher override authority,
// 80 is a pure default. The named constants document the conventional
// bands; any in-range value is legal.
package priority

// Named priority levels. These are documentation, not an exhaustive enum.
const (
	AgentOverride      = 0  // closed-loop agent decisions, absolute authority
	CriticalFix        = 10 // emergency parameter fixes
	UrgentOptimization = 20
	NetworkPolicy      = 30
	OperatorPreference = 40
	VendorRecommended  = 50
	Baseline           = 60
	Inherited          = 70
	Default            = 80 // lowest precedence
)

// Min and Max bound the legal level range.
const (
	Min = 0
	Max = 80
)

// Valid reports whether level falls in the open range [Min,Max].
func Valid(level int) bool {
	return level >= Min && level <= Max
}

// Compare orders two levels: negative when a takes precedence over b
// (lower numeric level wins), zero when equal. Suitable for sort.Slice.
func Compare(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Wins reports whether level a overrides level b. Ties go to a, matching
// the "lower sorts first, wins ties" contract.
func Wins(a, b int) bool {
	return a <= b
}

// Name returns the conventional band name for a level, or "custom" for
// values between the named constants.
func Name(level int) string {
	switch level {
	case AgentOverride:
		return "agent_override"
	case CriticalFix:
		return "critical_fix"
	case UrgentOptimization:
		return "urgent_optimization"
	case NetworkPolicy:
		return "network_policy"
	case OperatorPreference:
		return "operator_preference"
	case VendorRecommended:
		return "vendor_recommended"
	case Baseline:
		return "baseline"
	case Inherited:
		return "inherited"
	case Default:
		return "default"
	}
	return "custom"
}
