package metadata

import "math"

// BlockHandle identifies a single block or partition within a RegionMetadata. Handles of
// occupied blocks survive compaction; handles of free blocks do not survive coalescing.
type BlockHandle uint64

const (
	NoBlock BlockHandle = math.MaxUint64
)

// Region is a read-only view of one block or partition
type Region struct {
	Handle BlockHandle
	// Label is the display name of the region, such as "SO" or "P3". Blocks of the dynamic
	// model are unlabelled except for the OS reservation.
	Label    string
	Offset   int
	Size     int
	Free     bool
	Reserved bool
	// AllocSize is the size requested by the occupant; zero for free and reserved regions
	AllocSize int
}

// End returns the first address past the region
func (r Region) End() int {
	return r.Offset + r.Size
}

// Allocatable returns true if the region is free and could take an allocation of size KiB
func (r Region) Allocatable(size int) bool {
	return r.Free && !r.Reserved && r.Size >= size
}
