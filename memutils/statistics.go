package memutils

import "math"

// Statistics contains basic totals for a memory store. All sizes are in KiB and reserved
// regions are never counted here.
type Statistics struct {
	RegionCount     int
	AllocationCount int
	RegionBytes     int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.RegionCount = 0
	s.AllocationCount = 0
	s.RegionBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.RegionCount += other.RegionCount
	s.AllocationCount += other.AllocationCount
	s.RegionBytes += other.RegionBytes
	s.AllocationBytes += other.AllocationBytes
}

// DetailedStatistics extends Statistics with per-range extremes, reserved space and the
// slack left inside occupied regions
type DetailedStatistics struct {
	Statistics
	UnusedRangeCount   int
	UnusedBytes        int
	AllocationSizeMin  int
	AllocationSizeMax  int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int

	ReservedCount int
	ReservedBytes int
	// SlackBytes is the sum over occupied regions of region size minus the size actually
	// requested by the occupant
	SlackBytes int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.UnusedBytes = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
	s.ReservedCount = 0
	s.ReservedBytes = 0
	s.SlackBytes = 0
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	s.RegionCount++
	s.RegionBytes += size
	s.UnusedRangeCount++
	s.UnusedBytes += size

	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

// AddAllocation records an occupied region of regionSize KiB holding an allocation of
// allocSize KiB. For variable-sized blocks the two are equal.
func (s *DetailedStatistics) AddAllocation(regionSize, allocSize int) {
	s.RegionCount++
	s.RegionBytes += regionSize
	s.AllocationCount++
	s.AllocationBytes += regionSize
	s.SlackBytes += regionSize - allocSize

	if allocSize < s.AllocationSizeMin {
		s.AllocationSizeMin = allocSize
	}

	if allocSize > s.AllocationSizeMax {
		s.AllocationSizeMax = allocSize
	}
}

func (s *DetailedStatistics) AddReserved(size int) {
	s.ReservedCount++
	s.ReservedBytes += size
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.UnusedRangeCount += other.UnusedRangeCount
	s.UnusedBytes += other.UnusedBytes
	s.ReservedCount += other.ReservedCount
	s.ReservedBytes += other.ReservedBytes
	s.SlackBytes += other.SlackBytes

	if other.UnusedRangeSizeMin < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = other.UnusedRangeSizeMin
	}

	if other.UnusedRangeSizeMax > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = other.UnusedRangeSizeMax
	}

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}

// FragmentationReport is the set of derived totals a front end displays next to the memory map
type FragmentationReport struct {
	// Capacity is the allocatable memory: everything except reserved regions
	Capacity    int
	TotalFree   int
	UsedMemory  int
	LargestFree int
	// ExternalFragmentation is free memory that is not part of the largest free region. It is
	// meaningful for stores whose regions can be resized.
	ExternalFragmentation int
	// InternalFragmentation is the memory wasted inside occupied fixed-boundary regions
	InternalFragmentation int
}

// Report derives a FragmentationReport from the collected statistics
func (s *DetailedStatistics) Report() FragmentationReport {
	report := FragmentationReport{
		Capacity:              s.RegionBytes,
		TotalFree:             s.UnusedBytes,
		UsedMemory:            s.AllocationBytes,
		InternalFragmentation: s.SlackBytes,
	}

	if s.UnusedRangeCount > 0 {
		report.LargestFree = s.UnusedRangeSizeMax
	}

	report.ExternalFragmentation = report.TotalFree - report.LargestFree
	return report
}

// Efficiency returns the percentage of a region's size that is actually used by its occupant
func Efficiency(regionSize, allocSize int) float64 {
	if regionSize <= 0 {
		return 0
	}

	return float64(allocSize) * 100 / float64(regionSize)
}
