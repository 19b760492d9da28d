package sim

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils/metadata"
)

// Model selects which contiguous allocation strategy a Simulator uses
type Model uint32

const (
	// ModelFixedEqual divides memory into equal partitions, the first of which belongs to the
	// operating system. Processes go to the first free partition in address order.
	ModelFixedEqual Model = iota + 1
	// ModelVariableStatic uses a fixed table of partitions of different sizes. Processes are
	// placed with the configured fit policy.
	ModelVariableStatic
	// ModelDynamic carves blocks of exactly the requested size out of free memory with best fit,
	// merging neighbours on free and compacting on demand.
	ModelDynamic
)

var modelMapping = map[Model]string{
	ModelFixedEqual:     "fixed",
	ModelVariableStatic: "variable",
	ModelDynamic:        "dynamic",
}

func (m Model) String() string {
	return modelMapping[m]
}

// Partitioned returns true for the models backed by a partition table
func (m Model) Partitioned() bool {
	return m == ModelFixedEqual || m == ModelVariableStatic
}

// placementPolicy returns the fit policy allocations use under this model. Only the variable
// static model honours the configured policy.
func (m Model) placementPolicy(configured metadata.FitPolicy) metadata.FitPolicy {
	switch m {
	case ModelFixedEqual:
		return metadata.FitFirst
	case ModelDynamic:
		return metadata.FitBest
	default:
		return configured
	}
}

// ParseModel converts a model name ("fixed", "variable" or "dynamic") into a Model
func ParseModel(value string) (Model, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for model, name := range modelMapping {
		if name == normalized {
			return model, nil
		}
	}

	return 0, errors.Newf("unknown memory model %q: expected fixed, variable or dynamic", value)
}
