package sim

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/defrag"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
)

// RegionView is a read-only copy of one block or partition
type RegionView struct {
	Handle   metadata.BlockHandle
	Label    string
	Offset   int
	Address  string
	Size     int
	Free     bool
	Reserved bool

	// Owner is the occupying process, or 0 when the region is free or reserved
	Owner     process.ID
	OwnerName string
	// AllocSize is the size requested by the occupant
	AllocSize int
	// InternalFragmentation is Size - AllocSize for occupied regions
	InternalFragmentation int
	// Efficiency is the percentage of the region used by its occupant
	Efficiency float64
}

// End returns the first address after the region
func (r RegionView) End() int {
	return r.Offset + r.Size
}

// ProcessView is a read-only copy of one process and its derived state
type ProcessView struct {
	process.Process
	State process.State
	// Region is the handle of the occupied region, or metadata.NoBlock while stopped
	Region  metadata.BlockHandle
	Address string
}

// Snapshot is an immutable copy of a Simulator's state, taken between commands
type Snapshot struct {
	Model     Model
	FitPolicy metadata.FitPolicy

	// TotalMemory is the size of the whole simulated memory, reserved regions included
	TotalMemory    int
	ReservedMemory int

	Regions   []RegionView
	Processes []ProcessView
	Report    memutils.FragmentationReport

	// Compaction sums every compaction since the last reset
	Compaction defrag.Stats
}

// Snapshot copies the current state of the simulation
func (s *Simulator) Snapshot() Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.snapshot()
}

func (s *Simulator) snapshot() Snapshot {
	snapshot := Snapshot{
		Model:          s.model,
		FitPolicy:      s.model.placementPolicy(s.policy),
		TotalMemory:    s.store.Size(),
		ReservedMemory: s.store.ReservedSize(),
		Compaction:     s.compactionStats,
	}

	names := make(map[process.ID]string, s.registry.Count())
	for _, p := range s.registry.Processes() {
		names[p.ID] = p.Name
	}

	owners := s.registry.Owners()
	_ = s.store.VisitAllRegions(func(region metadata.Region) error {
		view := RegionView{
			Handle:    region.Handle,
			Label:     region.Label,
			Offset:    region.Offset,
			Address:   memutils.HexAddress(region.Offset),
			Size:      region.Size,
			Free:      region.Free,
			Reserved:  region.Reserved,
			AllocSize: region.AllocSize,
		}

		if owner, owned := owners[region.Handle]; owned {
			view.Owner = owner
			view.OwnerName = names[owner]
			view.InternalFragmentation = region.Size - region.AllocSize
			view.Efficiency = memutils.Efficiency(region.Size, region.AllocSize)
		}

		snapshot.Regions = append(snapshot.Regions, view)
		return nil
	})

	for _, p := range s.registry.Processes() {
		view := ProcessView{
			Process: p,
			State:   s.registry.State(p.ID),
			Region:  metadata.NoBlock,
		}

		if handle, running := s.registry.Assignment(p.ID); running {
			view.Region = handle
			if region, err := s.store.Region(handle); err == nil {
				view.Address = memutils.HexAddress(region.Offset)
			}
		}

		snapshot.Processes = append(snapshot.Processes, view)
	}

	var stats memutils.DetailedStatistics
	stats.Clear()
	s.store.AddDetailedStatistics(&stats)
	snapshot.Report = stats.Report()
	if s.model.Partitioned() {
		snapshot.Report.ExternalFragmentation = 0
	}

	return snapshot
}

// FreePartitions lists the free regions a process could be placed in, in address order
func (s *Simulator) FreePartitions() []RegionView {
	snapshot := s.Snapshot()

	var free []RegionView
	for _, region := range snapshot.Regions {
		if region.Free && !region.Reserved {
			free = append(free, region)
		}
	}

	return free
}

// Region finds the view of the region identified by handle
func (s Snapshot) Region(handle metadata.BlockHandle) (RegionView, bool) {
	for _, region := range s.Regions {
		if region.Handle == handle {
			return region, true
		}
	}

	return RegionView{}, false
}

// Process finds the view of the process with the given id
func (s Snapshot) Process(id process.ID) (ProcessView, bool) {
	for _, p := range s.Processes {
		if p.ID == id {
			return p, true
		}
	}

	return ProcessView{}, false
}

// WriteJSON writes the snapshot as a single JSON object
func (s Snapshot) WriteJSON(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	obj.Name("Model").String(s.Model.String())
	obj.Name("FitPolicy").String(s.FitPolicy.String())
	obj.Name("TotalMemory").Int(s.TotalMemory)
	obj.Name("ReservedMemory").Int(s.ReservedMemory)

	report := obj.Name("Totals").Object()
	report.Name("Capacity").Int(s.Report.Capacity)
	report.Name("TotalFree").Int(s.Report.TotalFree)
	report.Name("UsedMemory").Int(s.Report.UsedMemory)
	report.Name("LargestFree").Int(s.Report.LargestFree)
	if !s.Model.Partitioned() {
		report.Name("ExternalFragmentation").Int(s.Report.ExternalFragmentation)
	}
	report.Name("InternalFragmentation").Int(s.Report.InternalFragmentation)
	report.End()

	if s.Model == ModelDynamic {
		compaction := obj.Name("Compaction").Object()
		compaction.Name("Passes").Int(s.Compaction.Passes)
		compaction.Name("AllocationsMoved").Int(s.Compaction.AllocationsMoved)
		compaction.Name("BytesMoved").Int(s.Compaction.BytesMoved)
		compaction.Name("FreeRegionsMerged").Int(s.Compaction.FreeRegionsMerged)
		compaction.End()
	}

	regions := obj.Name("Regions").Array()
	for _, region := range s.Regions {
		regionObj := regions.Object()
		if region.Label != "" {
			regionObj.Name("Label").String(region.Label)
		}
		regionObj.Name("Address").String(region.Address)
		regionObj.Name("Size").Int(region.Size)

		switch {
		case region.Reserved:
			regionObj.Name("Type").String("Reserved")
		case region.Free:
			regionObj.Name("Type").String("Free")
		default:
			regionObj.Name("Type").String("Allocation")
			regionObj.Name("Owner").Int(int(region.Owner))
			regionObj.Name("OwnerName").String(region.OwnerName)
			regionObj.Name("AllocSize").Int(region.AllocSize)
			if s.Model.Partitioned() {
				regionObj.Name("InternalFragmentation").Int(region.InternalFragmentation)
				regionObj.Name("Efficiency").Float64(region.Efficiency)
			}
		}
		regionObj.End()
	}
	regions.End()

	processes := obj.Name("Processes").Array()
	for _, p := range s.Processes {
		processObj := processes.Object()
		processObj.Name("ID").Int(int(p.ID))
		processObj.Name("Name").String(p.Name)
		processObj.Name("Size").Int(p.Size)
		processObj.Name("State").String(p.State.String())
		if p.State == process.StateRunning {
			processObj.Name("Address").String(p.Address)
		}

		if len(p.Segments) > 0 {
			segments := processObj.Name("Segments").Array()
			for _, segment := range p.Segments {
				segmentObj := segments.Object()
				segmentObj.Name("Name").String(segment.Name)
				segmentObj.Name("Size").Int(segment.Size)
				segmentObj.End()
			}
			segments.End()
		}
		processObj.End()
	}
	processes.End()
}

// BuildStatsString renders the current state as JSON. When detailed is true, the raw block
// store is included alongside the snapshot.
func (s *Simulator) BuildStatsString(detailed bool) string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()

	snapshotWriter := jwriter.NewWriter()
	s.snapshot().WriteJSON(&snapshotWriter)
	obj.Name("Snapshot").Raw(snapshotWriter.Bytes())

	if detailed {
		storeObj := obj.Name("Store").Object()
		s.store.BlockJsonData(&storeObj)
		storeObj.End()
	}

	obj.End()
	return string(writer.Bytes())
}
