package metadata

import (
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/memsim/memutils"
	"golang.org/x/exp/slices"
)

// osLabel is the label given to the reserved block at the start of a DynamicBlockMetadata
const osLabel = "OS"

type dynamicBlock struct {
	handle   BlockHandle
	offset   int
	size     int
	free     bool
	reserved bool
}

func (b *dynamicBlock) region() Region {
	region := Region{
		Handle:   b.handle,
		Offset:   b.offset,
		Size:     b.size,
		Free:     b.free,
		Reserved: b.reserved,
	}
	if b.reserved {
		region.Label = osLabel
	} else if !b.free {
		region.AllocSize = b.size
	}
	return region
}

// Placement assigns a new offset to an occupied block. A full set of placements is passed to
// DynamicBlockMetadata.Rebuild to compact the block list.
type Placement struct {
	Handle BlockHandle
	Offset int
}

// DynamicBlockMetadata is a RegionMetadata implementation for variable-sized partitioning. The
// managed memory is an ordered list of blocks that together cover every address exactly once:
// an optional reserved block for the operating system followed by occupied and free blocks.
//
// Allocation splits a free block into an occupied block of exactly the requested size and,
// if anything is left over, a free block directly after it. Freeing a block merges it with
// free neighbours on both sides, so no two adjacent blocks are ever both free.
type DynamicBlockMetadata struct {
	RegionMetadataBase

	blocks      []*dynamicBlock
	handleKey   *swiss.Map[BlockHandle, *dynamicBlock]
	nextHandle  BlockHandle
	sumFreeSize int
	freeCount   int
	allocCount  int
}

var _ RegionMetadata = &DynamicBlockMetadata{}

// NewDynamicBlockMetadata creates a DynamicBlockMetadata managing size KiB, the first
// reservedSize KiB of which are reserved for the operating system. The remainder starts out
// as a single free block.
func NewDynamicBlockMetadata(size, reservedSize int) (*DynamicBlockMetadata, error) {
	if size <= 0 {
		return nil, errors.Errorf("memory size must be positive, but was %d", size)
	}
	if reservedSize < 0 || reservedSize >= size {
		return nil, errors.Errorf("reserved size %d must be at least 0 and less than the memory size %d", reservedSize, size)
	}

	m := &DynamicBlockMetadata{
		RegionMetadataBase: NewRegionMetadata(size, reservedSize),
	}
	m.Clear()

	return m, nil
}

func (m *DynamicBlockMetadata) allocateBlock(offset, size int, free bool) *dynamicBlock {
	m.nextHandle++
	b := &dynamicBlock{
		handle: m.nextHandle,
		offset: offset,
		size:   size,
		free:   free,
	}
	m.handleKey.Put(b.handle, b)
	return b
}

func (m *DynamicBlockMetadata) freeBlock(b *dynamicBlock) {
	m.handleKey.Delete(b.handle)
}

func (m *DynamicBlockMetadata) getBlock(handle BlockHandle) (*dynamicBlock, int, error) {
	block, ok := m.handleKey.Get(handle)
	if !ok {
		return nil, -1, errors.Errorf("received handle %d, which does not map to a live block", handle)
	}

	index := slices.Index(m.blocks, block)
	if index < 0 {
		return nil, -1, errors.Errorf("block %d is registered but missing from the block list", handle)
	}

	return block, index, nil
}

// Clear frees every allocation, leaving the reserved block and one free block covering the rest
func (m *DynamicBlockMetadata) Clear() {
	m.handleKey = swiss.NewMap[BlockHandle, *dynamicBlock](42)
	m.blocks = m.blocks[:0]

	if m.ReservedSize() > 0 {
		osBlock := m.allocateBlock(0, m.ReservedSize(), false)
		osBlock.reserved = true
		m.blocks = append(m.blocks, osBlock)
	}

	m.blocks = append(m.blocks, m.allocateBlock(m.ReservedSize(), m.Size()-m.ReservedSize(), true))
	m.sumFreeSize = m.Size() - m.ReservedSize()
	m.freeCount = 1
	m.allocCount = 0
}

// SupportsSplitting always returns true for DynamicBlockMetadata
func (m *DynamicBlockMetadata) SupportsSplitting() bool { return true }

func (m *DynamicBlockMetadata) AllocationCount() int   { return m.allocCount }
func (m *DynamicBlockMetadata) FreeRegionsCount() int  { return m.freeCount }
func (m *DynamicBlockMetadata) SumFreeSize() int       { return m.sumFreeSize }
func (m *DynamicBlockMetadata) IsEmpty() bool          { return m.allocCount == 0 }
func (m *DynamicBlockMetadata) MaxAllocationSize() int { return m.Size() - m.ReservedSize() }

func (m *DynamicBlockMetadata) LargestFreeSize() int {
	var largest int
	for _, block := range m.blocks {
		if block.free {
			largest = memutils.Max(largest, block.size)
		}
	}
	return largest
}

// Validate checks that the blocks tile the memory exactly, that the reservation is intact, that
// no two neighbouring blocks are both free, and that the cached totals match the block list
func (m *DynamicBlockMetadata) Validate() error {
	if len(m.blocks) == 0 {
		return errors.New("the block list is empty")
	}

	if m.handleKey.Count() != len(m.blocks) {
		return errors.Errorf("%d handles are registered, but there are %d blocks", m.handleKey.Count(), len(m.blocks))
	}

	var offset, sumFree, freeCount, allocCount int
	for index, block := range m.blocks {
		if block.offset != offset {
			return errors.Errorf("block at index %d has offset %d, expected offset %d", index, block.offset, offset)
		}

		if block.size <= 0 {
			return errors.Errorf("block at index %d has non-positive size %d", index, block.size)
		}

		registered, ok := m.handleKey.Get(block.handle)
		if !ok || registered != block {
			return errors.Errorf("block at index %d has handle %d, which is not registered to it", index, block.handle)
		}

		if block.reserved {
			if index != 0 || block.size != m.ReservedSize() || block.free {
				return errors.Errorf("reserved block at index %d does not match the %d KiB reservation at offset 0", index, m.ReservedSize())
			}
		} else if index == 0 && m.ReservedSize() > 0 {
			return errors.New("the first block should be the operating system reservation")
		}

		if block.free {
			sumFree += block.size
			freeCount++

			if index > 0 && m.blocks[index-1].free {
				return errors.Errorf("blocks at indices %d and %d are both free and should have been merged", index-1, index)
			}
		} else if !block.reserved {
			allocCount++
		}

		offset += block.size
	}

	if offset != m.Size() {
		return errors.Errorf("blocks add up to %d KiB, but the metadata manages %d KiB", offset, m.Size())
	}

	if sumFree != m.sumFreeSize {
		return errors.Errorf("counted %d free KiB, but the metadata indicates %d", sumFree, m.sumFreeSize)
	}

	if freeCount != m.freeCount {
		return errors.Errorf("counted %d free blocks, but the metadata indicates %d", freeCount, m.freeCount)
	}

	if allocCount != m.allocCount {
		return errors.Errorf("counted %d allocations, but the metadata indicates %d", allocCount, m.allocCount)
	}

	return nil
}

func (m *DynamicBlockMetadata) VisitAllRegions(handleRegion func(region Region) error) error {
	for _, block := range m.blocks {
		err := handleRegion(block.region())
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *DynamicBlockMetadata) Regions() []Region {
	regions := make([]Region, 0, len(m.blocks))
	for _, block := range m.blocks {
		regions = append(regions, block.region())
	}
	return regions
}

func (m *DynamicBlockMetadata) Region(handle BlockHandle) (Region, error) {
	block, ok := m.handleKey.Get(handle)
	if !ok {
		return Region{}, errors.Errorf("received handle %d, which does not map to a live block", handle)
	}

	return block.region(), nil
}

// AllocationListBegin returns the handle of the occupied block with the lowest address, or
// NoBlock if nothing is allocated
func (m *DynamicBlockMetadata) AllocationListBegin() BlockHandle {
	for _, block := range m.blocks {
		if !block.free && !block.reserved {
			return block.handle
		}
	}

	return NoBlock
}

// FindNextAllocation returns the handle of the next occupied block after the one identified by
// handle, or NoBlock if it was the last
func (m *DynamicBlockMetadata) FindNextAllocation(handle BlockHandle) (BlockHandle, error) {
	_, index, err := m.getBlock(handle)
	if err != nil {
		return NoBlock, err
	}

	for _, block := range m.blocks[index+1:] {
		if !block.free && !block.reserved {
			return block.handle, nil
		}
	}

	return NoBlock, nil
}

func (m *DynamicBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	for _, block := range m.blocks {
		switch {
		case block.reserved:
			stats.AddReserved(block.size)
		case block.free:
			stats.AddUnusedRange(block.size)
		default:
			stats.AddAllocation(block.size, block.size)
		}
	}
}

func (m *DynamicBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.RegionCount += m.allocCount + m.freeCount
	stats.RegionBytes += m.Size() - m.ReservedSize()
	stats.AllocationCount += m.allocCount
	stats.AllocationBytes += m.Size() - m.ReservedSize() - m.sumFreeSize
}

func (m *DynamicBlockMetadata) BlockJsonData(json *jwriter.ObjectState) {
	m.WriteBlockJson(json, m.sumFreeSize, m.allocCount, m.freeCount)
	json.Name("LargestFreeBytes").Int(m.LargestFreeSize())
	WriteRegionsJson(json, m)
}

// CreateAllocationRequest chooses a free block for an allocation of size KiB using policy
func (m *DynamicBlockMetadata) CreateAllocationRequest(size int, policy FitPolicy) (bool, AllocationRequest, error) {
	if size <= 0 {
		return false, AllocationRequest{}, errors.New("allocation size must be greater than 0")
	}
	if !policy.Valid() {
		return false, AllocationRequest{}, errors.Errorf("unknown fit policy %d", policy)
	}
	memutils.DebugValidate(m)

	if size > m.sumFreeSize {
		return false, AllocationRequest{}, nil
	}

	region, found := SelectFit(policy, size, EligibleRegions(m.Regions(), size))
	if !found {
		return false, AllocationRequest{}, nil
	}

	return true, AllocationRequest{
		BlockHandle: region.Handle,
		Offset:      region.Offset,
		Size:        size,
		RegionSize:  region.Size,
		Type:        AllocationRequestSplit,
	}, nil
}

// Alloc commits an allocation request, splitting the chosen free block when it is larger than
// the request. The allocation keeps the handle of the block it was placed in.
func (m *DynamicBlockMetadata) Alloc(request AllocationRequest) error {
	if request.Type != AllocationRequestSplit {
		return errors.Errorf("attempted to allocate a request of type %s, but that type isn't supported by the dynamic metadata", request.Type)
	}

	block, index, err := m.getBlock(request.BlockHandle)
	if err != nil {
		return err
	}

	if block.reserved {
		return errors.Wrapf(memutils.ReservedRegionAccessError, "block %d belongs to the operating system", block.handle)
	}

	if !block.free {
		return errors.Errorf("block %d is not free", block.handle)
	}

	if block.offset != request.Offset {
		return errors.Errorf("block %d has moved from offset %d to %d since the request was created", block.handle, request.Offset, block.offset)
	}

	if request.Size <= 0 || request.Size > block.size {
		return errors.Errorf("block %d has size %d, which cannot hold an allocation of size %d", block.handle, block.size, request.Size)
	}

	remaining := block.size - request.Size
	block.size = request.Size
	block.free = false
	m.sumFreeSize -= request.Size
	m.allocCount++
	m.freeCount--

	if remaining > 0 {
		remainder := m.allocateBlock(block.offset+request.Size, remaining, true)
		m.blocks = slices.Insert(m.blocks, index+1, remainder)
		m.freeCount++
	}

	memutils.DebugValidate(m)
	return nil
}

// Free releases the occupied block identified by handle and merges it with any free neighbours.
// The handle is no longer valid afterwards if a merge with the previous block took place.
func (m *DynamicBlockMetadata) Free(handle BlockHandle) error {
	block, index, err := m.getBlock(handle)
	if err != nil {
		return err
	}

	if block.reserved {
		return errors.Wrapf(memutils.ReservedRegionAccessError, "block %d belongs to the operating system", block.handle)
	}

	if block.free {
		return errors.Errorf("block %d is already free", block.handle)
	}

	block.free = true
	m.sumFreeSize += block.size
	m.allocCount--
	m.freeCount++

	if index+1 < len(m.blocks) && m.blocks[index+1].free {
		next := m.blocks[index+1]
		block.size += next.size
		m.blocks = slices.Delete(m.blocks, index+1, index+2)
		m.freeBlock(next)
		m.freeCount--
	}

	if index > 0 && m.blocks[index-1].free {
		prev := m.blocks[index-1]
		prev.size += block.size
		m.blocks = slices.Delete(m.blocks, index, index+1)
		m.freeBlock(block)
		m.freeCount--
	}

	memutils.DebugValidate(m)
	return nil
}

// Rebuild compacts the block list. placements must name every occupied block, in address order,
// with offsets that pack them back to back starting right after the reservation. All free
// blocks are discarded and replaced by a single free block at the end, if any memory remains.
func (m *DynamicBlockMetadata) Rebuild(placements []Placement) error {
	if len(placements) != m.allocCount {
		return errors.Errorf("received %d placements, but there are %d allocations", len(placements), m.allocCount)
	}

	offset := m.ReservedSize()
	lastIndex := -1
	occupied := make([]*dynamicBlock, 0, len(placements))
	for i, placement := range placements {
		block, index, err := m.getBlock(placement.Handle)
		if err != nil {
			return err
		}

		if block.free || block.reserved {
			return errors.Errorf("placement %d names block %d, which is not an allocation", i, placement.Handle)
		}

		if placement.Offset != offset {
			return errors.Errorf("placement %d puts block %d at offset %d, but the next packed offset is %d", i, placement.Handle, placement.Offset, offset)
		}

		if index <= lastIndex {
			return errors.Errorf("placement %d would move block %d out of address order", i, placement.Handle)
		}

		lastIndex = index
		occupied = append(occupied, block)
		offset += block.size
	}

	rebuilt := make([]*dynamicBlock, 0, len(occupied)+2)
	for _, block := range m.blocks {
		if block.free {
			m.freeBlock(block)
		} else if block.reserved {
			rebuilt = append(rebuilt, block)
		}
	}

	for i, block := range occupied {
		block.offset = placements[i].Offset
		rebuilt = append(rebuilt, block)
	}

	m.freeCount = 0
	if remaining := m.Size() - offset; remaining > 0 {
		rebuilt = append(rebuilt, m.allocateBlock(offset, remaining, true))
		m.freeCount = 1
	}

	m.blocks = rebuilt
	memutils.DebugValidate(m)
	return nil
}
