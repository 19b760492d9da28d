package sim_test

import (
	"bytes"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
	"github.com/vkngwrapper/memsim/sim"
	"golang.org/x/exp/slog"
)

func newSimulator(t *testing.T, options sim.CreateOptions) *sim.Simulator {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard))
	simulator, err := sim.New(logger, options)
	require.NoError(t, err)
	require.NoError(t, simulator.Validate())

	return simulator
}

func newDynamic(t *testing.T, autoCompact, eager bool) *sim.Simulator {
	return newSimulator(t, sim.CreateOptions{
		Model:           sim.ModelDynamic,
		AutoCompact:     autoCompact,
		EagerCompaction: eager,
	})
}

func create(t *testing.T, simulator *sim.Simulator, name string, size int) process.ID {
	t.Helper()

	p, err := simulator.CreateProcess(name, size)
	require.NoError(t, err)
	return p.ID
}

func spawn(t *testing.T, simulator *sim.Simulator, name string, size int) process.ID {
	t.Helper()

	p, err := simulator.Spawn(name, size)
	require.NoError(t, err)
	require.NoError(t, simulator.Validate())
	return p.ID
}

type span struct {
	Offset   int
	Size     int
	Free     bool
	Reserved bool
	Owner    process.ID
}

func spans(snapshot sim.Snapshot) []span {
	var result []span
	for _, region := range snapshot.Regions {
		result = append(result, span{region.Offset, region.Size, region.Free, region.Reserved, region.Owner})
	}
	return result
}

func runningCount(snapshot sim.Snapshot) int {
	var count int
	for _, p := range snapshot.Processes {
		if p.State == process.StateRunning {
			count++
		}
	}
	return count
}

func requireDynamicInvariants(t *testing.T, simulator *sim.Simulator, total int) {
	t.Helper()

	require.NoError(t, simulator.Validate())
	snapshot := simulator.Snapshot()

	offset := 0
	for index, region := range snapshot.Regions {
		require.Equal(t, offset, region.Offset, "region %d is not contiguous with its predecessor", index)
		require.Positive(t, region.Size)
		if index > 0 {
			require.False(t, region.Free && snapshot.Regions[index-1].Free, "regions %d and %d are both free", index-1, index)
		}
		offset += region.Size
	}
	require.Equal(t, total, offset)
}

func TestNewRequiresModel(t *testing.T) {
	_, err := sim.New(nil, sim.CreateOptions{})
	require.Error(t, err)

	_, err = sim.New(nil, sim.CreateOptions{Model: sim.ModelVariableStatic, FitPolicy: 9})
	require.Error(t, err)

	_, err = sim.New(nil, sim.CreateOptions{
		Model:         sim.ModelDynamic,
		SeedProcesses: []sim.SeedProcess{{Name: "Broken", Size: 0}},
	})
	require.True(t, errors.Is(err, memutils.InvalidSizeError))
}

func TestDefaultSeeds(t *testing.T) {
	fixed := newSimulator(t, sim.CreateOptions{Model: sim.ModelFixedEqual})
	require.Len(t, fixed.Snapshot().Processes, 6)
	require.Len(t, fixed.Snapshot().Regions, 16)

	variable := newSimulator(t, sim.CreateOptions{Model: sim.ModelVariableStatic})
	require.Len(t, variable.Snapshot().Processes, 8)
	require.Len(t, variable.Snapshot().Regions, 9)
	require.Equal(t, metadata.FitBest, variable.FitPolicy())

	dynamic := newSimulator(t, sim.CreateOptions{Model: sim.ModelDynamic})
	require.Empty(t, dynamic.Snapshot().Processes)

	empty := newSimulator(t, sim.CreateOptions{Model: sim.ModelVariableStatic, Flags: sim.CreateWithoutSeeds})
	require.Empty(t, empty.Snapshot().Processes)

	for _, p := range variable.Snapshot().Processes {
		require.Equal(t, process.StateStopped, p.State)
		require.Equal(t, metadata.NoBlock, p.Region)

		var total int
		for _, segment := range p.Segments {
			total += segment.Size
		}
		require.Equal(t, p.Size, total, "segments of %s", p.Name)
	}
}

// Scenario A
func TestDynamicSplitAndInsufficientMemory(t *testing.T) {
	simulator := newDynamic(t, false, false)

	snapshot := simulator.Snapshot()
	require.Equal(t, []span{
		{0, 1024, false, true, 0},
		{1024, 15360, true, false, 0},
	}, spans(snapshot))

	p1 := spawn(t, simulator, "P1", 512)
	require.Equal(t, []span{
		{0, 1024, false, true, 0},
		{1024, 512, false, false, p1},
		{1536, 14848, true, false, 0},
	}, spans(simulator.Snapshot()))

	p2 := create(t, simulator, "P2", 20000)
	before := simulator.Snapshot()

	err := simulator.Allocate(p2)
	require.True(t, errors.Is(err, memutils.InsufficientTotalMemoryError))
	require.Equal(t, before, simulator.Snapshot())

	view, ok := simulator.Snapshot().Process(p2)
	require.True(t, ok)
	require.Equal(t, process.StateStopped, view.State)
}

func TestDynamicInsufficientMemoryWithCompaction(t *testing.T) {
	simulator := newDynamic(t, true, false)

	spawn(t, simulator, "P1", 512)
	p2 := create(t, simulator, "P2", 20000)

	err := simulator.Allocate(p2)
	require.True(t, errors.Is(err, memutils.InsufficientTotalMemoryError))
	require.Equal(t, 0, simulator.CompactionStats().Passes)
}

// Scenario B
func TestFixedProcessTooLarge(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelFixedEqual})

	p := create(t, simulator, "Oversized", 1100)
	before := simulator.Snapshot()

	err := simulator.Allocate(p)
	require.True(t, errors.Is(err, memutils.ProcessTooLargeError))
	require.Equal(t, before, simulator.Snapshot())

	// The 1500 KiB seed process can never run either
	err = simulator.Allocate(6)
	require.True(t, errors.Is(err, memutils.ProcessTooLargeError))
}

func TestFixedFirstFreePartition(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelFixedEqual})

	for id := process.ID(1); id <= 5; id++ {
		require.NoError(t, simulator.Allocate(id))
	}

	snapshot := simulator.Snapshot()
	for id := process.ID(1); id <= 5; id++ {
		view, ok := snapshot.Process(id)
		require.True(t, ok)
		require.Equal(t, process.StateRunning, view.State)
		require.Equal(t, metadata.BlockHandle(id), view.Region)
	}

	require.Equal(t, memutils.FragmentationReport{
		Capacity:              15360,
		TotalFree:             10240,
		UsedMemory:            5120,
		LargestFree:           1024,
		InternalFragmentation: 5*1024 - (512 + 800 + 600 + 400 + 900),
	}, snapshot.Report)

	region, ok := snapshot.Region(2)
	require.True(t, ok)
	require.Equal(t, "Web Browser", region.OwnerName)
	require.Equal(t, 224, region.InternalFragmentation)
	require.InDelta(t, 78.125, region.Efficiency, 0.0001)

	require.NoError(t, simulator.Free(2))
	require.NoError(t, simulator.Allocate(2))
	view, _ := simulator.Snapshot().Process(2)
	require.Equal(t, metadata.BlockHandle(2), view.Region)
}

func TestFixedNoFreePartition(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelFixedEqual, Flags: sim.CreateWithoutSeeds})

	for i := 0; i < 15; i++ {
		spawn(t, simulator, "", 100)
	}
	require.Empty(t, simulator.FreePartitions())

	p := create(t, simulator, "Late", 100)
	err := simulator.Allocate(p)
	require.True(t, errors.Is(err, memutils.NoFreePartitionError))
	require.Contains(t, err.Error(), "free partitions: none")
}

// Scenario C
func TestVariableBestFitPrefersLowestAddress(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelVariableStatic, Flags: sim.CreateWithoutSeeds})

	p := spawn(t, simulator, "Request", 900)

	view, ok := simulator.Snapshot().Process(p)
	require.True(t, ok)
	require.Equal(t, "0x200000", view.Address)

	region, ok := simulator.Snapshot().Region(view.Region)
	require.True(t, ok)
	require.Equal(t, "P2", region.Label)
	require.Equal(t, 1024, region.Size)
}

func TestVariableTooLargeAndNoFreePartition(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelVariableStatic})

	// Huge Application, 5000 KiB, is bigger than any partition
	err := simulator.Allocate(8)
	require.True(t, errors.Is(err, memutils.ProcessTooLargeError))

	// Massive System takes one 4096 partition, a copy takes the other
	require.NoError(t, simulator.Allocate(7))
	spawn(t, simulator, "Second Massive", 3500)

	third := create(t, simulator, "Third Massive", 3500)
	err = simulator.Allocate(third)
	require.True(t, errors.Is(err, memutils.NoFreePartitionError))
	require.Contains(t, err.Error(), "P0 512 KiB @ 0x100000")
	require.Len(t, simulator.FreePartitions(), 6)
}

func TestVariablePolicyPurity(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelVariableStatic})

	require.NoError(t, simulator.Allocate(1))
	require.NoError(t, simulator.Allocate(3))
	before := simulator.Snapshot()

	for _, policy := range []metadata.FitPolicy{metadata.FitWorst, metadata.FitFirst, metadata.FitBest, metadata.FitWorst} {
		require.NoError(t, simulator.SetFitPolicy(policy))
		after := simulator.Snapshot()

		if diff := cmp.Diff(before.Regions, after.Regions); diff != "" {
			t.Errorf("changing policy to %s changed the partitions (-before +after):\n%s", policy, diff)
		}
		require.Equal(t, before.Processes, after.Processes)
		require.Equal(t, policy, after.FitPolicy)
	}

	// Worst fit now picks the first 4096 partition for a small request
	p := spawn(t, simulator, "Small", 100)
	view, _ := simulator.Snapshot().Process(p)
	region, _ := simulator.Snapshot().Region(view.Region)
	require.Equal(t, "P6", region.Label)

	require.NoError(t, simulator.SetFitPolicy(metadata.FitFirst))
	p = spawn(t, simulator, "Another Small", 100)
	view, _ = simulator.Snapshot().Process(p)
	region, _ = simulator.Snapshot().Region(view.Region)
	require.Equal(t, "P1", region.Label)

	require.Error(t, simulator.SetFitPolicy(0))
}

// Scenario D
func TestDynamicBestFitReusesHole(t *testing.T) {
	simulator := newDynamic(t, false, false)

	p1 := spawn(t, simulator, "P1", 600)
	p2 := spawn(t, simulator, "P2", 400)

	require.NoError(t, simulator.Free(p1))
	requireDynamicInvariants(t, simulator, 16384)

	snapshot := simulator.Snapshot()
	require.Equal(t, []span{
		{0, 1024, false, true, 0},
		{1024, 600, true, false, 0},
		{1624, 400, false, false, p2},
		{2024, 14360, true, false, 0},
	}, spans(snapshot))
	require.Equal(t, 600, snapshot.Report.ExternalFragmentation)
	require.Equal(t, 14360, snapshot.Report.LargestFree)

	p3 := spawn(t, simulator, "P3", 500)
	require.Equal(t, []span{
		{0, 1024, false, true, 0},
		{1024, 500, false, false, p3},
		{1524, 100, true, false, 0},
		{1624, 400, false, false, p2},
		{2024, 14360, true, false, 0},
	}, spans(simulator.Snapshot()))
}

func fragmentedDynamic(t *testing.T, autoCompact bool) (*sim.Simulator, process.ID) {
	simulator := newSimulator(t, sim.CreateOptions{
		Model:       sim.ModelDynamic,
		TotalMemory: 4096,
		AutoCompact: autoCompact,
	})

	a := spawn(t, simulator, "A", 1000)
	b := spawn(t, simulator, "B", 1000)
	c := spawn(t, simulator, "C", 1000)
	require.NoError(t, simulator.Free(a))
	require.NoError(t, simulator.Free(c))

	snapshot := simulator.Snapshot()
	require.Equal(t, 2072, snapshot.Report.TotalFree)
	require.Equal(t, 1072, snapshot.Report.LargestFree)

	return simulator, b
}

func TestDynamicFragmentedWithoutCompaction(t *testing.T) {
	simulator, _ := fragmentedDynamic(t, false)

	d := create(t, simulator, "D", 1500)
	before := simulator.Snapshot()

	err := simulator.Allocate(d)
	require.True(t, errors.Is(err, memutils.NoFreeBlockError))
	require.Equal(t, before, simulator.Snapshot())
}

func TestDynamicFragmentedWithCompaction(t *testing.T) {
	simulator, b := fragmentedDynamic(t, true)

	d := spawn(t, simulator, "D", 1500)
	requireDynamicInvariants(t, simulator, 4096)

	require.Equal(t, []span{
		{0, 1024, false, true, 0},
		{1024, 1000, false, false, b},
		{2024, 1500, false, false, d},
		{3524, 572, true, false, 0},
	}, spans(simulator.Snapshot()))

	stats := simulator.CompactionStats()
	require.Equal(t, 1, stats.Passes)
	require.Equal(t, 1, stats.AllocationsMoved)
	require.Equal(t, 1000, stats.BytesMoved)
	require.Equal(t, 1, stats.FreeRegionsMerged)
}

func TestEagerCompaction(t *testing.T) {
	testCases := map[string]struct {
		Eager          bool
		ExpectedLayout func(p2, p3 process.ID) []span
	}{
		"Enabled": {
			Eager: true,
			ExpectedLayout: func(p2, p3 process.ID) []span {
				return []span{
					{0, 1024, false, true, 0},
					{1024, 400, false, false, p2},
					{1424, 300, false, false, p3},
					{1724, 14660, true, false, 0},
				}
			},
		},
		"Disabled": {
			Eager: false,
			ExpectedLayout: func(p2, p3 process.ID) []span {
				return []span{
					{0, 1024, false, true, 0},
					{1024, 600, true, false, 0},
					{1624, 400, false, false, p2},
					{2024, 300, false, false, p3},
					{2324, 14060, true, false, 0},
				}
			},
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			simulator := newDynamic(t, false, testCase.Eager)

			p1 := spawn(t, simulator, "P1", 600)
			p2 := spawn(t, simulator, "P2", 400)
			p3 := spawn(t, simulator, "P3", 300)

			require.NoError(t, simulator.Free(p1))
			requireDynamicInvariants(t, simulator, 16384)
			require.Equal(t, testCase.ExpectedLayout(p2, p3), spans(simulator.Snapshot()))

			// Freeing into the tail leaves a single free region, so nothing is queued
			passes := simulator.CompactionStats().Passes
			require.NoError(t, simulator.Free(p3))
			require.Equal(t, passes, simulator.CompactionStats().Passes)
		})
	}
}

func TestCompactionIdempotence(t *testing.T) {
	simulator := newDynamic(t, false, false)

	ids := make([]process.ID, 0, 6)
	for _, size := range []int{700, 300, 1200, 50, 900, 2000} {
		ids = append(ids, spawn(t, simulator, "", size))
	}
	require.NoError(t, simulator.Free(ids[0]))
	require.NoError(t, simulator.Free(ids[2]))
	require.NoError(t, simulator.Free(ids[4]))

	require.NoError(t, simulator.Compact())
	requireDynamicInvariants(t, simulator, 16384)
	once := simulator.Snapshot()
	require.Equal(t, 1, len(simulator.FreePartitions()))

	require.NoError(t, simulator.Compact())
	twice := simulator.Snapshot()

	if diff := cmp.Diff(once.Regions, twice.Regions); diff != "" {
		t.Errorf("second compaction changed the layout (-once +twice):\n%s", diff)
	}
	require.Equal(t, once.Processes, twice.Processes)
	require.Equal(t, 1, twice.Compaction.Passes)
}

func TestFreeConservesMemory(t *testing.T) {
	for _, eager := range []bool{false, true} {
		simulator := newDynamic(t, false, eager)

		ids := make([]process.ID, 0, 8)
		sizes := map[process.ID]int{}
		for _, size := range []int{512, 1024, 64, 2048, 333, 700, 1500, 90} {
			id := spawn(t, simulator, "", size)
			ids = append(ids, id)
			sizes[id] = size
		}

		for _, index := range []int{3, 0, 6, 1, 7, 2, 5, 4} {
			before := simulator.Snapshot().Report.TotalFree
			require.NoError(t, simulator.Free(ids[index]))
			after := simulator.Snapshot().Report.TotalFree
			require.Equal(t, before+sizes[ids[index]], after)
			requireDynamicInvariants(t, simulator, 16384)
		}

		require.Equal(t, 15360, simulator.Snapshot().Report.LargestFree)
	}
}

func TestDynamicInvariantsUnderRandomCommands(t *testing.T) {
	configurations := map[string]struct {
		AutoCompact bool
		Eager       bool
	}{
		"Plain":            {},
		"AutoCompact":      {AutoCompact: true},
		"Eager":            {Eager: true},
		"AutoCompactEager": {AutoCompact: true, Eager: true},
	}

	for name, configuration := range configurations {
		t.Run(name, func(t *testing.T) {
			simulator := newDynamic(t, configuration.AutoCompact, configuration.Eager)
			random := rand.New(rand.NewSource(42))

			var running []process.ID
			for step := 0; step < 300; step++ {
				switch op := random.Intn(10); {
				case op < 5:
					p, err := simulator.Spawn("", 1+random.Intn(3000))
					if err == nil {
						running = append(running, p.ID)
					} else {
						require.True(t,
							errors.Is(err, memutils.NoFreeBlockError) || errors.Is(err, memutils.InsufficientTotalMemoryError),
							"unexpected error %+v", err)
					}
				case op < 9 && len(running) > 0:
					index := random.Intn(len(running))
					require.NoError(t, simulator.Free(running[index]))
					running = append(running[:index], running[index+1:]...)
				default:
					require.NoError(t, simulator.Compact())
				}

				requireDynamicInvariants(t, simulator, 16384)
				require.Equal(t, len(running), runningCount(simulator.Snapshot()))
			}
		})
	}
}

func TestLifecycleErrors(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelFixedEqual})

	err := simulator.Free(1)
	require.True(t, errors.Is(err, memutils.ProcessNotRunningError))

	require.NoError(t, simulator.Allocate(1))
	err = simulator.Allocate(1)
	require.True(t, errors.Is(err, memutils.ProcessRunningError))

	err = simulator.Allocate(99)
	require.True(t, errors.Is(err, memutils.UnknownProcessError))

	err = simulator.RemoveProcess(1)
	require.True(t, errors.Is(err, memutils.ProcessRunningError))
	require.NoError(t, simulator.RemoveProcess(2))
	require.Len(t, simulator.Snapshot().Processes, 5)

	_, err = simulator.CreateProcess("Empty", 0)
	require.True(t, errors.Is(err, memutils.InvalidSizeError))

	_, err = simulator.CreateProcess("Mismatch", 100, process.Segment{Name: "Code", Size: 60})
	require.True(t, errors.Is(err, memutils.InvalidSizeError))

	require.NoError(t, simulator.Validate())
}

func TestUnsupportedCommands(t *testing.T) {
	fixed := newSimulator(t, sim.CreateOptions{Model: sim.ModelFixedEqual})
	require.True(t, errors.Is(fixed.Compact(), memutils.UnsupportedCommandError))
	require.True(t, errors.Is(fixed.SetFitPolicy(metadata.FitWorst), memutils.UnsupportedCommandError))
	require.Equal(t, metadata.FitFirst, fixed.FitPolicy())

	dynamic := newDynamic(t, false, false)
	require.True(t, errors.Is(dynamic.SetFitPolicy(metadata.FitWorst), memutils.UnsupportedCommandError))
	require.Equal(t, metadata.FitBest, dynamic.FitPolicy())

	variable := newSimulator(t, sim.CreateOptions{Model: sim.ModelVariableStatic})
	require.True(t, errors.Is(variable.Compact(), memutils.UnsupportedCommandError))
}

func TestSpawnFailureDiscardsProcess(t *testing.T) {
	simulator := newDynamic(t, false, false)

	spawn(t, simulator, "Kept", 1000)
	_, err := simulator.Spawn("Too Big", 20000)
	require.True(t, errors.Is(err, memutils.InsufficientTotalMemoryError))

	snapshot := simulator.Snapshot()
	require.Len(t, snapshot.Processes, 1)
	require.Equal(t, "Kept", snapshot.Processes[0].Name)

	_, err = simulator.Spawn("Negative", -1)
	require.True(t, errors.Is(err, memutils.InvalidSizeError))
	require.Len(t, simulator.Snapshot().Processes, 1)
}

func TestAllocationFailureLogsOneLine(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.HandlerOptions{Level: slog.LevelInfo}.NewTextHandler(&logs))
	simulator, err := sim.New(logger, sim.CreateOptions{Model: sim.ModelDynamic})
	require.NoError(t, err)

	_, err = simulator.Spawn("Too Big", 20000)
	require.True(t, errors.Is(err, memutils.InsufficientTotalMemoryError))

	line := logs.String()
	require.Equal(t, 1, strings.Count(line, "\n"), "unexpected log %q", line)
	require.Contains(t, line, "level=INFO")
	require.Contains(t, line, `msg="allocation failed"`)
	require.Contains(t, line, "process.size=20000")
	require.Contains(t, line, "insufficient total free memory")
	require.NotContains(t, line, "stack trace")

	logs.Reset()
	quiet := slog.New(slog.HandlerOptions{Level: slog.LevelWarn}.NewTextHandler(&logs))
	simulator, err = sim.New(quiet, sim.CreateOptions{Model: sim.ModelDynamic})
	require.NoError(t, err)

	_, err = simulator.Spawn("Too Big", 20000)
	require.Error(t, err)
	require.Empty(t, logs.String())
}

func TestReset(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelVariableStatic})
	initial := simulator.Snapshot()

	require.NoError(t, simulator.Allocate(1))
	require.NoError(t, simulator.Allocate(2))
	spawn(t, simulator, "Extra", 100)
	require.NoError(t, simulator.SetFitPolicy(metadata.FitWorst))

	require.NoError(t, simulator.Reset())
	require.NoError(t, simulator.Validate())

	after := simulator.Snapshot()
	require.Equal(t, initial.Regions, after.Regions)
	require.Equal(t, initial.Processes, after.Processes)
	require.Equal(t, metadata.FitWorst, after.FitPolicy)

	dynamic := newDynamic(t, false, false)
	spawn(t, dynamic, "A", 100)
	spawn(t, dynamic, "B", 100)
	require.NoError(t, dynamic.Reset())
	require.Empty(t, dynamic.Snapshot().Processes)
	requireDynamicInvariants(t, dynamic, 16384)

	p := spawn(t, dynamic, "", 100)
	require.Equal(t, process.ID(1), p)
}

func TestExecuteCommands(t *testing.T) {
	simulator := newSimulator(t, sim.CreateOptions{Model: sim.ModelDynamic, EagerCompaction: true})

	commands := []sim.Command{
		sim.Spawn{Name: "A", Size: 600},
		sim.Spawn{Name: "B", Size: 400},
		sim.CreateProcess{Name: "C", Size: 300},
		sim.Allocate{ID: 3},
		sim.Free{ID: 1},
		sim.Compact{},
	}

	for _, command := range commands {
		require.NoError(t, simulator.Execute(command), command.String())
	}

	snapshot := simulator.Snapshot()
	require.Equal(t, []span{
		{0, 1024, false, true, 0},
		{1024, 400, false, false, 2},
		{1424, 300, false, false, 3},
		{1724, 14660, true, false, 0},
	}, spans(snapshot))

	// The eager follow-up did the work, the explicit compaction found nothing to move
	require.Equal(t, 1, snapshot.Compaction.Passes)

	require.NoError(t, simulator.Execute(sim.RemoveProcess{ID: 1}))
	require.Error(t, simulator.Execute(sim.SetFitPolicy{Policy: metadata.FitFirst}))
	require.NoError(t, simulator.Execute(sim.Reset{}))
}

func TestConcurrentCommands(t *testing.T) {
	simulator := newDynamic(t, true, true)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				p, err := simulator.Spawn("", 100)
				if err != nil {
					continue
				}
				_ = simulator.Snapshot()
				if i%2 == 0 {
					_ = simulator.Free(p.ID)
				}
			}
		}()
	}
	wg.Wait()

	requireDynamicInvariants(t, simulator, 16384)
	require.Len(t, simulator.Snapshot().Processes, 80)
	require.Equal(t, 40, runningCount(simulator.Snapshot()))
}

func TestParseModel(t *testing.T) {
	model, err := sim.ParseModel(" Dynamic ")
	require.NoError(t, err)
	require.Equal(t, sim.ModelDynamic, model)

	model, err = sim.ParseModel("variable")
	require.NoError(t, err)
	require.Equal(t, sim.ModelVariableStatic, model)
	require.True(t, model.Partitioned())

	_, err = sim.ParseModel("paged")
	require.Error(t, err)

	require.Equal(t, "CreateExternallySynchronized|CreateWithoutSeeds", (sim.CreateExternallySynchronized | sim.CreateWithoutSeeds).String())
}
