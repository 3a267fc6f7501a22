package merge

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// DetectConflict reports whether the contributions to one parameter
// actually disagree. Values are grouped by structural key; two or more
// contributions spread over more than one group constitute a conflict.
func DetectConflict(values []Value) bool {
	if len(values) < 2 {
		return false
	}
	groups := make(map[string]struct{}, len(values))
	for _, v := range values {
		groups[v.V.StructuralKey()] = struct{}{}
	}
	return len(groups) > 1
}

// NewConflictRecord builds the diagnostic record for a contested
// parameter. The reason string always phrases the default
// highest-priority resolution even when a different strategy produced the
// final value; the Strategy field carries what actually ran.
func NewConflictRecord(parameter string, values []Value, resolved rtbtypes.ConfigValue, strategy Strategy) rtbtypes.ConflictRecord {
	sources := make([]string, len(values))
	raw := make([]rtbtypes.ConfigValue, len(values))
	for i, v := range values {
		sources[i] = v.Source
		raw[i] = v.V
	}
	winner := pickByPriority(values, true)
	return rtbtypes.ConflictRecord{
		ID:            uuid.NewString(),
		Parameter:     parameter,
		Sources:       sources,
		Values:        raw,
		ResolvedValue: resolved,
		Strategy:      string(strategy),
		Reason: fmt.Sprintf("parameter %q contested by %d templates; highest priority source %q (level %d) wins by default",
			parameter, len(values), winner.Source, winner.Priority),
	}
}
