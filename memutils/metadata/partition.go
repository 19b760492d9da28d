package metadata

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/memsim/memutils"
)

// PartitionSpec describes one entry of a static partition table
type PartitionSpec struct {
	Label    string
	Offset   int
	Size     int
	Reserved bool
}

type partition struct {
	PartitionSpec
	// allocSize is the size of the occupant, 0 while the partition is free
	allocSize int
}

func (p *partition) free() bool {
	return !p.Reserved && p.allocSize == 0
}

// PartitionTableMetadata is a RegionMetadata implementation for static partitioning: memory is
// divided once into a table of partitions whose boundaries never change. Each partition holds
// at most one allocation, and whatever the allocation doesn't use is internal fragmentation.
//
// Handles are the partition's index in the table.
type PartitionTableMetadata struct {
	RegionMetadataBase

	partitions  []partition
	allocCount  int
	sumFreeSize int
}

var _ RegionMetadata = &PartitionTableMetadata{}

// NewPartitionTableMetadata creates a PartitionTableMetadata from a table of partitions, which
// must be ordered by address and must not overlap
func NewPartitionTableMetadata(specs []PartitionSpec) (*PartitionTableMetadata, error) {
	if len(specs) == 0 {
		return nil, errors.New("a partition table needs at least one partition")
	}

	var end, reserved int
	partitions := make([]partition, 0, len(specs))
	for index, spec := range specs {
		if spec.Size <= 0 {
			return nil, errors.Errorf("partition %d has non-positive size %d", index, spec.Size)
		}

		if spec.Offset < end {
			return nil, errors.Errorf("partition %d at offset %d overlaps the previous partition, which ends at %d", index, spec.Offset, end)
		}

		if spec.Label == "" {
			spec.Label = fmt.Sprintf("P%d", index)
		}

		if spec.Reserved {
			reserved += spec.Size
		}

		partitions = append(partitions, partition{PartitionSpec: spec})
		end = spec.Offset + spec.Size
	}

	m := &PartitionTableMetadata{
		RegionMetadataBase: NewRegionMetadata(end, reserved),
		partitions:         partitions,
	}
	m.Clear()

	if m.MaxAllocationSize() == 0 {
		return nil, errors.New("every partition in the table is reserved")
	}

	return m, nil
}

// NewEqualPartitionTableMetadata creates a table of count partitions of size KiB each, laid out
// back to back from address 0 and labelled P0, P1 and so on. The first reservedCount partitions
// are reserved for the operating system.
func NewEqualPartitionTableMetadata(count, size, reservedCount int) (*PartitionTableMetadata, error) {
	if count <= 0 {
		return nil, errors.Errorf("partition count must be positive, but was %d", count)
	}

	specs := make([]PartitionSpec, count)
	for i := range specs {
		specs[i] = PartitionSpec{
			Label:    fmt.Sprintf("P%d", i),
			Offset:   i * size,
			Size:     size,
			Reserved: i < reservedCount,
		}
	}

	return NewPartitionTableMetadata(specs)
}

func (m *PartitionTableMetadata) getPartition(handle BlockHandle) (*partition, error) {
	if handle >= BlockHandle(len(m.partitions)) {
		return nil, errors.Errorf("received handle %d, but the table only has %d partitions", handle, len(m.partitions))
	}

	return &m.partitions[handle], nil
}

func (m *PartitionTableMetadata) region(index int) Region {
	p := &m.partitions[index]
	return Region{
		Handle:    BlockHandle(index),
		Label:     p.Label,
		Offset:    p.Offset,
		Size:      p.Size,
		Free:      p.free(),
		Reserved:  p.Reserved,
		AllocSize: p.allocSize,
	}
}

// Clear empties every partition
func (m *PartitionTableMetadata) Clear() {
	m.allocCount = 0
	m.sumFreeSize = 0
	for i := range m.partitions {
		m.partitions[i].allocSize = 0
		if !m.partitions[i].Reserved {
			m.sumFreeSize += m.partitions[i].Size
		}
	}
}

// SupportsSplitting always returns false: partition boundaries are fixed
func (m *PartitionTableMetadata) SupportsSplitting() bool { return false }

func (m *PartitionTableMetadata) AllocationCount() int { return m.allocCount }
func (m *PartitionTableMetadata) SumFreeSize() int     { return m.sumFreeSize }
func (m *PartitionTableMetadata) IsEmpty() bool        { return m.allocCount == 0 }

func (m *PartitionTableMetadata) FreeRegionsCount() int {
	var count int
	for i := range m.partitions {
		if m.partitions[i].free() {
			count++
		}
	}
	return count
}

func (m *PartitionTableMetadata) LargestFreeSize() int {
	var largest int
	for i := range m.partitions {
		if m.partitions[i].free() {
			largest = memutils.Max(largest, m.partitions[i].Size)
		}
	}
	return largest
}

// MaxAllocationSize returns the size of the largest partition that isn't reserved
func (m *PartitionTableMetadata) MaxAllocationSize() int {
	var largest int
	for i := range m.partitions {
		if !m.partitions[i].Reserved {
			largest = memutils.Max(largest, m.partitions[i].Size)
		}
	}
	return largest
}

// Validate checks the table ordering and that the cached totals match the partitions
func (m *PartitionTableMetadata) Validate() error {
	var end, sumFree, allocCount, reserved int
	for index := range m.partitions {
		p := &m.partitions[index]

		if p.Offset < end {
			return errors.Errorf("partition %d at offset %d overlaps the previous partition, which ends at %d", index, p.Offset, end)
		}

		if p.allocSize < 0 || p.allocSize > p.Size {
			return errors.Errorf("partition %d of size %d holds an allocation of size %d", index, p.Size, p.allocSize)
		}

		switch {
		case p.Reserved:
			if p.allocSize != 0 {
				return errors.Errorf("reserved partition %d holds an allocation", index)
			}
			reserved += p.Size
		case p.allocSize == 0:
			sumFree += p.Size
		default:
			allocCount++
		}

		end = p.Offset + p.Size
	}

	if end != m.Size() {
		return errors.Errorf("partitions end at %d, but the metadata manages %d KiB", end, m.Size())
	}

	if reserved != m.ReservedSize() {
		return errors.Errorf("counted %d reserved KiB, but the metadata indicates %d", reserved, m.ReservedSize())
	}

	if sumFree != m.sumFreeSize {
		return errors.Errorf("counted %d free KiB, but the metadata indicates %d", sumFree, m.sumFreeSize)
	}

	if allocCount != m.allocCount {
		return errors.Errorf("counted %d allocations, but the metadata indicates %d", allocCount, m.allocCount)
	}

	return nil
}

func (m *PartitionTableMetadata) VisitAllRegions(handleRegion func(region Region) error) error {
	for index := range m.partitions {
		err := handleRegion(m.region(index))
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *PartitionTableMetadata) Regions() []Region {
	regions := make([]Region, 0, len(m.partitions))
	for index := range m.partitions {
		regions = append(regions, m.region(index))
	}
	return regions
}

func (m *PartitionTableMetadata) Region(handle BlockHandle) (Region, error) {
	if _, err := m.getPartition(handle); err != nil {
		return Region{}, err
	}

	return m.region(int(handle)), nil
}

func (m *PartitionTableMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	for index := range m.partitions {
		p := &m.partitions[index]
		switch {
		case p.Reserved:
			stats.AddReserved(p.Size)
		case p.allocSize == 0:
			stats.AddUnusedRange(p.Size)
		default:
			stats.AddAllocation(p.Size, p.allocSize)
		}
	}
}

func (m *PartitionTableMetadata) AddStatistics(stats *memutils.Statistics) {
	for index := range m.partitions {
		p := &m.partitions[index]
		if p.Reserved {
			continue
		}

		stats.RegionCount++
		stats.RegionBytes += p.Size
		if p.allocSize > 0 {
			stats.AllocationCount++
			stats.AllocationBytes += p.Size
		}
	}
}

func (m *PartitionTableMetadata) BlockJsonData(json *jwriter.ObjectState) {
	m.WriteBlockJson(json, m.sumFreeSize, m.allocCount, m.FreeRegionsCount())
	json.Name("LargestFreeBytes").Int(m.LargestFreeSize())
	WriteRegionsJson(json, m)
}

// CreateAllocationRequest chooses a free partition for an allocation of size KiB using policy
func (m *PartitionTableMetadata) CreateAllocationRequest(size int, policy FitPolicy) (bool, AllocationRequest, error) {
	if size <= 0 {
		return false, AllocationRequest{}, errors.New("allocation size must be greater than 0")
	}
	if !policy.Valid() {
		return false, AllocationRequest{}, errors.Errorf("unknown fit policy %d", policy)
	}
	memutils.DebugValidate(m)

	region, found := SelectFit(policy, size, EligibleRegions(m.Regions(), size))
	if !found {
		return false, AllocationRequest{}, nil
	}

	return true, AllocationRequest{
		BlockHandle: region.Handle,
		Offset:      region.Offset,
		Size:        size,
		RegionSize:  region.Size,
		Type:        AllocationRequestPartition,
	}, nil
}

// Alloc places an allocation into the partition named by the request
func (m *PartitionTableMetadata) Alloc(request AllocationRequest) error {
	if request.Type != AllocationRequestPartition {
		return errors.Errorf("attempted to allocate a request of type %s, but that type isn't supported by the partition metadata", request.Type)
	}

	p, err := m.getPartition(request.BlockHandle)
	if err != nil {
		return err
	}

	if p.Reserved {
		return errors.Wrapf(memutils.ReservedRegionAccessError, "partition %s belongs to the operating system", p.Label)
	}

	if p.allocSize != 0 {
		return errors.Errorf("partition %s is already occupied", p.Label)
	}

	if request.Size <= 0 || request.Size > p.Size {
		return errors.Errorf("partition %s has size %d, which cannot hold an allocation of size %d", p.Label, p.Size, request.Size)
	}

	p.allocSize = request.Size
	m.allocCount++
	m.sumFreeSize -= p.Size

	memutils.DebugValidate(m)
	return nil
}

// Free empties the partition identified by handle
func (m *PartitionTableMetadata) Free(handle BlockHandle) error {
	p, err := m.getPartition(handle)
	if err != nil {
		return err
	}

	if p.Reserved {
		return errors.Wrapf(memutils.ReservedRegionAccessError, "partition %s belongs to the operating system", p.Label)
	}

	if p.allocSize == 0 {
		return errors.Errorf("partition %s is already free", p.Label)
	}

	p.allocSize = 0
	m.allocCount--
	m.sumFreeSize += p.Size

	memutils.DebugValidate(m)
	return nil
}
