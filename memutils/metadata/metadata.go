package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/memutils"
)

// RegionMetadata represents a single contiguous range of simulated memory and the regions
// (blocks or partitions) it is carved into. It allows allocations to be requested and freed,
// as well as enumerated and queried. Addresses and sizes are in KiB.
type RegionMetadata interface {
	// Size retrieves the total size of the managed memory, reserved regions included
	Size() int
	// ReservedSize returns the amount of memory set aside for the operating system. Reserved
	// memory can never be allocated or freed.
	ReservedSize() int
	// SupportsSplitting returns true if regions can be split, merged and moved: that is, if
	// region boundaries follow allocations rather than a fixed table. This method must return
	// true for the metadata to be compacted with memutils/defrag.
	SupportsSplitting() bool

	// Validate performs internal consistency checks on the metadata. When the implementation is
	// functioning correctly, it should not be possible for this method to return an error.
	Validate() error
	// AllocationCount returns the number of occupied regions
	AllocationCount() int
	// FreeRegionsCount returns the number of free, non-reserved regions
	FreeRegionsCount() int
	// SumFreeSize returns the number of free KiB across all free regions
	SumFreeSize() int
	// LargestFreeSize returns the size of the largest free region, or 0 if there are none
	LargestFreeSize() int
	// MaxAllocationSize returns the largest allocation this metadata could ever satisfy,
	// assuming every region were free. Requests above it can never succeed.
	MaxAllocationSize() int
	// IsEmpty will return true if no region is occupied
	IsEmpty() bool

	// VisitAllRegions calls the provided callback once for each region in address order,
	// reserved regions included. Returning an error from the callback stops the walk and the
	// error is returned.
	VisitAllRegions(handleRegion func(region Region) error) error
	// Regions returns a copy of every region in address order
	Regions() []Region
	// Region returns the region identified by handle, or an error if the handle does not
	// map to a live region
	Region(handle BlockHandle) (Region, error)

	// AddDetailedStatistics sums this metadata's statistics into stats
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this metadata's basic statistics into stats
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations, restoring the layout the metadata was created with
	Clear()
	// BlockJsonData populates a json object with information about this metadata and its regions
	BlockJsonData(json *jwriter.ObjectState)

	// CreateAllocationRequest retrieves an AllocationRequest indicating where the implementation
	// would place an allocation of size KiB under the given policy. It returns false, without an
	// error, when no free region can hold the allocation right now. Implementations that always
	// use the same policy may ignore the argument.
	CreateAllocationRequest(size int, policy FitPolicy) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest. The implementation must return an error if the request
	// is no longer valid: the region no longer exists, is not free, or is too small.
	Alloc(request AllocationRequest) error
	// Free releases an occupied region. The implementation must return an error if the handle
	// does not map to an occupied region.
	Free(handle BlockHandle) error
}

// RegionMetadataBase is a simple struct that provides a few shared utilities for
// RegionMetadata implementations
type RegionMetadataBase struct {
	size         int
	reservedSize int
}

// NewRegionMetadata creates a RegionMetadataBase for size KiB of memory, the first reservedSize
// of which belong to the operating system
func NewRegionMetadata(size, reservedSize int) RegionMetadataBase {
	return RegionMetadataBase{
		size:         size,
		reservedSize: reservedSize,
	}
}

// Size returns the total managed size in KiB
func (m *RegionMetadataBase) Size() int { return m.size }

// ReservedSize returns the size of the operating system reservation in KiB
func (m *RegionMetadataBase) ReservedSize() int { return m.reservedSize }

// WriteBlockJson populates the totals shared by every implementation
func (m *RegionMetadataBase) WriteBlockJson(json *jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("ReservedBytes").Int(m.ReservedSize())
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}

// WriteRegionsJson writes one object per region to a "Regions" array
func WriteRegionsJson(json *jwriter.ObjectState, md RegionMetadata) {
	arrayState := json.Name("Regions").Array()
	defer arrayState.End()

	_ = md.VisitAllRegions(func(region Region) error {
		obj := arrayState.Object()
		defer obj.End()

		if region.Label != "" {
			obj.Name("Label").String(region.Label)
		}
		obj.Name("Offset").Int(region.Offset)
		obj.Name("Address").String(memutils.HexAddress(region.Offset))
		obj.Name("Size").Int(region.Size)

		switch {
		case region.Reserved:
			obj.Name("Type").String("Reserved")
		case region.Free:
			obj.Name("Type").String("Free")
		default:
			obj.Name("Type").String("Allocation")
			obj.Name("AllocSize").Int(region.AllocSize)
		}

		return nil
	})
}
