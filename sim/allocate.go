package sim

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/defrag"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
	"golang.org/x/exp/slog"
)

func (s *Simulator) allocate(id process.ID) error {
	p, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	if handle, running := s.registry.Assignment(id); running {
		return errors.Wrapf(memutils.ProcessRunningError, "%s already occupies region %d", p, handle)
	}

	handle, err := s.place(p)
	if err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelInfo, "allocation failed",
			slog.Int("process.id", int(p.ID)),
			slog.Int("process.size", p.Size),
			slog.String("error", err.Error()),
		)
		s.emit(Event{Type: EventAllocationFailed, Process: p, Err: err})
		return err
	}

	err = s.registry.Assign(id, handle)
	if err != nil {
		return errors.CombineErrors(err, s.store.Free(handle))
	}

	region, err := s.store.Region(handle)
	if err != nil {
		return err
	}

	s.logger.Debug("    Allocated",
		slog.Int("process.id", int(p.ID)),
		slog.String("address", memutils.HexAddress(region.Offset)),
		slog.Int("region.size", region.Size),
	)
	s.emit(Event{Type: EventAllocated, Process: p, Region: region})
	return nil
}

// place commits an allocation for p to the store and returns the handle of the region it
// occupies. The store is unchanged when an error is returned.
func (s *Simulator) place(p process.Process) (metadata.BlockHandle, error) {
	if s.model == ModelDynamic {
		return s.placeDynamic(p)
	}

	return s.placePartition(p)
}

func (s *Simulator) commit(request metadata.AllocationRequest) (metadata.BlockHandle, error) {
	err := s.store.Alloc(request)
	if err != nil {
		return metadata.NoBlock, err
	}

	return request.BlockHandle, nil
}

func (s *Simulator) placePartition(p process.Process) (metadata.BlockHandle, error) {
	largest := s.store.MaxAllocationSize()
	if p.Size > largest {
		return metadata.NoBlock, errors.Wrapf(memutils.ProcessTooLargeError,
			"%s needs %d KiB, but the largest partition holds %d KiB", p.Name, p.Size, largest)
	}

	policy := s.model.placementPolicy(s.policy)
	success, request, err := s.store.CreateAllocationRequest(p.Size, policy)
	if err != nil {
		return metadata.NoBlock, err
	}

	if !success {
		return metadata.NoBlock, errors.Wrapf(memutils.NoFreePartitionError,
			"%s needs %d KiB (%s fit); free partitions: %s", p.Name, p.Size, policy, s.describeFreeRegions())
	}

	return s.commit(request)
}

func (s *Simulator) placeDynamic(p process.Process) (metadata.BlockHandle, error) {
	success, request, err := s.store.CreateAllocationRequest(p.Size, metadata.FitBest)
	if err != nil {
		return metadata.NoBlock, err
	}

	if success {
		return s.commit(request)
	}

	totalFree := s.store.SumFreeSize()
	if totalFree < p.Size {
		return metadata.NoBlock, errors.Wrapf(memutils.InsufficientTotalMemoryError,
			"%s needs %d KiB, but only %d KiB are free in total", p.Name, p.Size, totalFree)
	}

	if !s.options.AutoCompact {
		return metadata.NoBlock, errors.Wrapf(memutils.NoFreeBlockError,
			"%s needs %d KiB; %d KiB are free but the largest block is %d KiB and compaction is off",
			p.Name, p.Size, totalFree, s.store.LargestFreeSize())
	}

	s.logger.Debug("    Compacting before retry", slog.Int("process.size", p.Size), slog.Int("free", totalFree))
	_, err = s.compact()
	if err != nil {
		return metadata.NoBlock, err
	}

	success, request, err = s.store.CreateAllocationRequest(p.Size, metadata.FitBest)
	if err != nil {
		return metadata.NoBlock, err
	}

	if !success {
		return metadata.NoBlock, errors.Wrapf(memutils.NoFreeBlockError,
			"%s needs %d KiB, and the largest block after compaction is %d KiB", p.Name, p.Size, s.store.LargestFreeSize())
	}

	return s.commit(request)
}

func (s *Simulator) free(id process.ID) error {
	p, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	handle, err := s.registry.Release(id)
	if err != nil {
		return err
	}

	region, err := s.store.Region(handle)
	if err == nil {
		err = s.store.Free(handle)
	}
	if err != nil {
		return errors.CombineErrors(err, s.registry.Assign(id, handle))
	}

	s.logger.Debug("    Freed",
		slog.Int("process.id", int(p.ID)),
		slog.String("address", memutils.HexAddress(region.Offset)),
		slog.Int("free", s.store.SumFreeSize()),
	)
	s.emit(Event{Type: EventFreed, Process: p, Region: region})

	if s.dynamic != nil && s.options.EagerCompaction && s.dynamic.FreeRegionsCount() > 1 {
		s.enqueue(autoCompact{})
	}

	return nil
}

func (s *Simulator) compactCommand() error {
	if s.dynamic == nil {
		return errors.Wrapf(memutils.UnsupportedCommandError, "the %s model cannot be compacted", s.model)
	}

	_, err := s.compact()
	return err
}

func (s *Simulator) compact() (defrag.Stats, error) {
	stats, err := s.compactor.Compact()
	s.compactionStats.Add(stats)

	s.logger.Debug("    Compacted",
		slog.Int("allocations.moved", stats.AllocationsMoved),
		slog.Int("bytes.moved", stats.BytesMoved),
		slog.Int("free.merged", stats.FreeRegionsMerged),
	)
	s.emit(Event{Type: EventCompacted, Compaction: stats})
	return stats, err
}

func (s *Simulator) handleMove(move defrag.Move) error {
	s.emit(Event{Type: EventBlockRelocated, Move: move})
	return nil
}

func (s *Simulator) describeFreeRegions() string {
	var parts []string
	_ = s.store.VisitAllRegions(func(region metadata.Region) error {
		if region.Free && !region.Reserved {
			parts = append(parts, fmt.Sprintf("%s %d KiB @ %s", region.Label, region.Size, memutils.HexAddress(region.Offset)))
		}
		return nil
	})

	if len(parts) == 0 {
		return "none"
	}

	return strings.Join(parts, ", ")
}
