package journey

import (
	"strings"
)

// EdgeKey identifies a directed edge by its endpoints.
type EdgeKey struct {
	From NodeRef `json:"from"`
	To   NodeRef `json:"to"`
}

// String returns "from->to" using the canonical node labels.
func (k EdgeKey) String() string {
	return k.From.String() + "->" + k.To.String()
}

// Edge is a directed, weighted connection between two nodes. Count and
// ValueSum only increase between Clear calls.
type Edge struct {
	Key      EdgeKey
	Count    int64
	ValueSum float64
}

// PathKey returns a canonical fingerprint for a node sequence. Two journeys
// are the same path exactly when their fingerprints are equal; repeated
// nodes (self-loops included) are part of the sequence.
func PathKey(path []NodeRef) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, len(path))
	for i, ref := range path {
		parts[i] = ref.String()
	}
	return strings.Join(parts, "|")
}
