package defrag

// Stats contains basic metrics for compaction over time
type Stats struct {
	// BytesMoved is the number of KiB that have been relocated
	BytesMoved int
	// AllocationsMoved is the number of relocated blocks
	AllocationsMoved int
	// FreeRegionsMerged is the number of free regions that disappeared into the trailing
	// free region. A compaction of a layout with three holes merges two of them away.
	FreeRegionsMerged int
	// Passes is the number of completed passes that moved anything
	Passes int
}

func (s *Stats) Add(stats Stats) {
	s.BytesMoved += stats.BytesMoved
	s.AllocationsMoved += stats.AllocationsMoved
	s.FreeRegionsMerged += stats.FreeRegionsMerged
	s.Passes += stats.Passes
}
