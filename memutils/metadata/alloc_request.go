package metadata

// AllocationRequestType indicates which RegionMetadata implementation produced an AllocationRequest
type AllocationRequestType uint32

const (
	// AllocationRequestSplit indicates that the request was sourced from DynamicBlockMetadata
	// and that the target block will be split if it's larger than the request
	AllocationRequestSplit AllocationRequestType = iota
	// AllocationRequestPartition indicates that the request was sourced from
	// PartitionTableMetadata and will occupy a whole partition
	AllocationRequestPartition
)

var allocationRequestMapping = map[AllocationRequestType]string{
	AllocationRequestSplit:     "Split",
	AllocationRequestPartition: "Partition",
}

func (t AllocationRequestType) String() string {
	return allocationRequestMapping[t]
}

// AllocationRequest is a type returned from RegionMetadata.CreateAllocationRequest which indicates
// where the metadata intends to place a new allocation. It is committed with RegionMetadata.Alloc.
type AllocationRequest struct {
	// BlockHandle is the free region the allocation will be placed in. After Alloc, the
	// allocation is identified by the same handle.
	BlockHandle BlockHandle
	// Offset is the address the allocation will start at
	Offset int
	// Size is the requested size in KiB
	Size int
	// RegionSize is the size of the chosen free region at the time the request was created
	RegionSize int
	Type       AllocationRequestType
}
