package sim

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
)

// CreateFlags indicate specific simulator behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateExternallySynchronized turns off the simulator's internal mutex. The consumer must
	// guarantee the simulator is used from only one goroutine at a time.
	CreateExternallySynchronized CreateFlags = 1 << iota
	// CreateWithoutSeeds starts the simulator, and every reset, with an empty process roster
	// instead of the model's seed processes
	CreateWithoutSeeds
)

var createFlagsMapping = map[CreateFlags]string{
	CreateExternallySynchronized: "CreateExternallySynchronized",
	CreateWithoutSeeds:           "CreateWithoutSeeds",
}

func (f CreateFlags) String() string {
	var names []string
	for flag := CreateExternallySynchronized; flag <= CreateWithoutSeeds; flag <<= 1 {
		if f&flag != 0 {
			names = append(names, createFlagsMapping[flag])
		}
	}
	return strings.Join(names, "|")
}

const (
	defaultTotalMemory    = 16384
	defaultOSMemory       = 1024
	defaultPartitionCount = 16
	defaultPartitionSize  = 1024
)

// SeedProcess describes a process created whenever the simulator is initialized or reset
type SeedProcess struct {
	Name     string
	Size     int
	Segments []process.Segment
}

// CreateOptions contains optional settings when creating a Simulator. It is valid to leave
// every field blank except Model.
type CreateOptions struct {
	// Flags indicates specific simulator behaviors to activate or deactivate
	Flags CreateFlags
	// Model is the allocation strategy to simulate
	Model Model

	// FitPolicy is the initial policy of the variable static model. It defaults to best fit and
	// is ignored by the other models.
	FitPolicy metadata.FitPolicy
	// AutoCompact lets the dynamic model compact memory and retry once when no single free
	// block can hold a process but the combined free memory could
	AutoCompact bool
	// EagerCompaction makes the dynamic model queue a compaction after every free that leaves
	// more than one free block behind
	EagerCompaction bool

	// TotalMemory is the size of the dynamic model's memory in KiB, 16384 by default
	TotalMemory int
	// OSMemory is the size of the dynamic model's operating system reservation in KiB, 1024 by
	// default. Use a negative value for no reservation.
	OSMemory int

	// PartitionCount and PartitionSize shape the fixed equal model's table: 16 partitions of
	// 1024 KiB by default. The first partition is always reserved.
	PartitionCount int
	PartitionSize  int

	// Partitions is the variable static model's table. DefaultPartitionTable is used when empty.
	Partitions []metadata.PartitionSpec

	// SeedProcesses replaces the model's default seed roster when not nil
	SeedProcesses []SeedProcess

	// EventHandler, when not nil, is notified of every state change
	EventHandler EventHandler
}

func (o CreateOptions) withDefaults() (CreateOptions, error) {
	if _, known := modelMapping[o.Model]; !known {
		return o, errors.Newf("CreateOptions.Model must be one of fixed, variable or dynamic, but was %d", o.Model)
	}

	if o.FitPolicy == 0 {
		o.FitPolicy = metadata.FitBest
	} else if !o.FitPolicy.Valid() {
		return o, errors.Newf("CreateOptions.FitPolicy has unknown value %d", o.FitPolicy)
	}

	if o.TotalMemory == 0 {
		o.TotalMemory = defaultTotalMemory
	}

	if o.OSMemory == 0 {
		o.OSMemory = defaultOSMemory
	} else if o.OSMemory < 0 {
		o.OSMemory = 0
	}

	if o.PartitionCount == 0 {
		o.PartitionCount = defaultPartitionCount
	}

	if o.PartitionSize == 0 {
		o.PartitionSize = defaultPartitionSize
	}

	if len(o.Partitions) == 0 {
		o.Partitions = DefaultPartitionTable()
	}

	if o.SeedProcesses == nil && o.Flags&CreateWithoutSeeds == 0 {
		o.SeedProcesses = DefaultSeeds(o.Model)
	} else if o.Flags&CreateWithoutSeeds != 0 {
		o.SeedProcesses = nil
	}

	return o, nil
}
