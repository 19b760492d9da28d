package metadata

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// FitPolicy chooses which of several free regions large enough for a request receives it
type FitPolicy uint32

const (
	// FitFirst selects the eligible region with the lowest address
	FitFirst FitPolicy = iota + 1
	// FitBest selects the smallest eligible region, keeping the large ones available for
	// large requests at the cost of leaving small unusable leftovers
	FitBest
	// FitWorst selects the largest eligible region, so that whatever is left over stays
	// large enough to be useful
	FitWorst
)

var fitPolicyMapping = map[FitPolicy]string{
	FitFirst: "first",
	FitBest:  "best",
	FitWorst: "worst",
}

func (p FitPolicy) String() string {
	return fitPolicyMapping[p]
}

// Valid returns true if p is one of the known policies
func (p FitPolicy) Valid() bool {
	_, ok := fitPolicyMapping[p]
	return ok
}

// ParseFitPolicy accepts "first", "best" or "worst", optionally suffixed with "-fit"
func ParseFitPolicy(value string) (FitPolicy, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "-fit")
	for policy, policyName := range fitPolicyMapping {
		if policyName == name {
			return policy, nil
		}
	}

	return 0, errors.Newf("unknown fit policy %q: expected first, best or worst", value)
}
