// internal/network/merge/models.go
package merge

import "strings"

// Policy decides which per-backend results surface as records.
type Policy string

const (
	PolicyAll  Policy = "ALL"
	PolicyHit  Policy = "HIT"
	PolicyNone Policy = "NONE"
)

// ParsePolicy is case-insensitive; empty or unknown values mean ALL.
func ParsePolicy(s string) Policy {
	switch Policy(strings.ToUpper(strings.TrimSpace(s))) {
	case PolicyHit:
		return PolicyHit
	case PolicyNone:
		return PolicyNone
	default:
		return PolicyAll
	}
}

// admits reports whether a record with the given exists flag is surfaced.
func (p Policy) admits(exists bool) bool {
	switch p {
	case PolicyHit:
		return exists
	case PolicyNone:
		return !exists
	default:
		return true
	}
}

// Identity is what the network stamps into every aggregate's meta block.
type Identity struct {
	BeaconID   string
	APIVersion string
}
