package defrag

import "github.com/vkngwrapper/memsim/memutils/metadata"

// Store is the block store a Context compacts. metadata.DynamicBlockMetadata implements it.
type Store interface {
	SupportsSplitting() bool
	ReservedSize() int
	FreeRegionsCount() int
	Validate() error

	AllocationListBegin() metadata.BlockHandle
	FindNextAllocation(handle metadata.BlockHandle) (metadata.BlockHandle, error)
	Region(handle metadata.BlockHandle) (metadata.Region, error)
	Rebuild(placements []metadata.Placement) error
}

var _ Store = &metadata.DynamicBlockMetadata{}
