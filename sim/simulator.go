package sim

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/internal/utils"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/defrag"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
	"golang.org/x/exp/slog"
)

// Simulator is a single contiguous memory allocation simulation. It exclusively owns its block
// store and process registry: all changes go through Commands, and readers see copies taken
// with Snapshot.
type Simulator struct {
	logger  *slog.Logger
	mutex   *utils.OptionalRWMutex
	options CreateOptions

	model  Model
	policy metadata.FitPolicy

	store     metadata.RegionMetadata
	dynamic   *metadata.DynamicBlockMetadata
	compactor defrag.Context
	registry  *process.Registry

	queue           []Command
	lastCreated     process.ID
	compactionStats defrag.Stats
}

// New creates a new Simulator and seeds its process roster
//
// logger - Receives debug records for every command and warnings for failed allocations. If nil,
// slog.Default() is used.
//
// options - Model is required, every other field has a default
func New(logger *slog.Logger, options CreateOptions) (*Simulator, error) {
	options, err := options.withDefaults()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Simulator{
		logger:   logger,
		mutex:    utils.NewOptionalRWMutex(options.Flags&CreateExternallySynchronized == 0),
		options:  options,
		model:    options.Model,
		policy:   options.FitPolicy,
		registry: process.NewRegistry(),
	}

	switch options.Model {
	case ModelFixedEqual:
		s.store, err = metadata.NewEqualPartitionTableMetadata(options.PartitionCount, options.PartitionSize, 1)
	case ModelVariableStatic:
		s.store, err = metadata.NewPartitionTableMetadata(options.Partitions)
	case ModelDynamic:
		s.dynamic, err = metadata.NewDynamicBlockMetadata(options.TotalMemory, options.OSMemory)
		s.store = s.dynamic
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not build the %s memory layout", options.Model)
	}

	if s.dynamic != nil {
		s.compactor = defrag.Context{
			Store:   s.dynamic,
			Handler: s.handleMove,
		}

		err = s.compactor.Init()
		if err != nil {
			return nil, err
		}
	}

	err = s.seed()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Simulator::New",
		slog.String("model", s.model.String()),
		slog.Int("regions", len(s.store.Regions())),
		slog.Int("processes", s.registry.Count()),
	)
	return s, nil
}

func (s *Simulator) seed() error {
	for _, seed := range s.options.SeedProcesses {
		_, err := s.createProcess(seed.Name, seed.Size, seed.Segments)
		if err != nil {
			return errors.Wrapf(err, "invalid seed process %q", seed.Name)
		}
	}

	return nil
}

func (s *Simulator) emit(event Event) {
	if s.options.EventHandler != nil {
		s.options.EventHandler.HandleEvent(event)
	}
}

func (s *Simulator) enqueue(cmd Command) {
	s.queue = append(s.queue, cmd)
}

// execute appends cmd to the queue and drains it. The error of cmd itself comes first, followed
// by the errors of any follow-ups it caused.
func (s *Simulator) execute(cmd Command) error {
	s.enqueue(cmd)

	var cmdErr, followUpErr error
	for first := true; len(s.queue) > 0; first = false {
		next := s.queue[0]
		s.queue = s.queue[1:]

		s.logger.Debug("Simulator::Execute", slog.String("command", next.String()))
		err := next.apply(s)
		memutils.DebugValidate(s)

		if first {
			cmdErr = err
		} else if err != nil {
			followUpErr = errors.CombineErrors(followUpErr, errors.Wrapf(err, "follow-up %s failed", next))
		}
	}

	return errors.CombineErrors(cmdErr, followUpErr)
}

// Execute applies a command, along with every follow-up it queues, before returning
func (s *Simulator) Execute(cmd Command) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.execute(cmd)
}

// CreateProcess adds a stopped process to the roster and returns it
func (s *Simulator) CreateProcess(name string, size int, segments ...process.Segment) (process.Process, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.execute(CreateProcess{Name: name, Size: size, Segments: segments})
	if err != nil {
		return process.Process{}, err
	}

	return s.registry.Get(s.lastCreated)
}

// Spawn creates a process and allocates memory for it. If the allocation fails, the process is
// not kept and the allocation error is returned.
func (s *Simulator) Spawn(name string, size int, segments ...process.Segment) (process.Process, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.execute(Spawn{Name: name, Size: size, Segments: segments})
	if err != nil {
		return process.Process{}, err
	}

	return s.registry.Get(s.lastCreated)
}

func (s *Simulator) Allocate(id process.ID) error {
	return s.Execute(Allocate{ID: id})
}

func (s *Simulator) Free(id process.ID) error {
	return s.Execute(Free{ID: id})
}

func (s *Simulator) RemoveProcess(id process.ID) error {
	return s.Execute(RemoveProcess{ID: id})
}

func (s *Simulator) SetFitPolicy(policy metadata.FitPolicy) error {
	return s.Execute(SetFitPolicy{Policy: policy})
}

func (s *Simulator) Compact() error {
	return s.Execute(Compact{})
}

func (s *Simulator) Reset() error {
	return s.Execute(Reset{})
}

// Model returns the allocation strategy being simulated
func (s *Simulator) Model() Model {
	return s.model
}

// FitPolicy returns the policy the next allocation will use
func (s *Simulator) FitPolicy() metadata.FitPolicy {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.model.placementPolicy(s.policy)
}

// CompactionStats returns the totals of every compaction since the last reset
func (s *Simulator) CompactionStats() defrag.Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.compactionStats
}

func (s *Simulator) createProcess(name string, size int, segments []process.Segment) (process.Process, error) {
	p, err := s.registry.Create(name, size, segments)
	if err != nil {
		return process.Process{}, err
	}

	s.lastCreated = p.ID
	s.emit(Event{Type: EventProcessCreated, Process: p})
	return p, nil
}

func (s *Simulator) removeProcess(id process.ID) error {
	p, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	err = s.registry.Remove(id)
	if err != nil {
		return err
	}

	s.emit(Event{Type: EventProcessRemoved, Process: p})
	return nil
}

func (s *Simulator) spawn(name string, size int, segments []process.Segment) error {
	p, err := s.createProcess(name, size, segments)
	if err != nil {
		return err
	}

	err = s.allocate(p.ID)
	if err != nil {
		return errors.CombineErrors(err, s.removeProcess(p.ID))
	}

	return nil
}

func (s *Simulator) setFitPolicy(policy metadata.FitPolicy) error {
	if s.model != ModelVariableStatic {
		return errors.Wrapf(memutils.UnsupportedCommandError, "the %s model does not have a configurable fit policy", s.model)
	}

	if !policy.Valid() {
		return errors.Newf("unknown fit policy %d", policy)
	}

	s.policy = policy
	s.emit(Event{Type: EventPolicyChanged, Policy: policy})
	return nil
}

func (s *Simulator) reset() error {
	s.store.Clear()
	s.registry.Reset()
	s.compactionStats = defrag.Stats{}
	s.lastCreated = 0

	s.emit(Event{Type: EventReset})
	return s.seed()
}

// Validate checks the block store, the registry, and that every assignment points at an
// occupied region of the right size
func (s *Simulator) Validate() error {
	err := memutils.ValidateAll(s.store, s.registry)
	if err != nil {
		return err
	}

	if s.store.AllocationCount() != s.registry.RunningCount() {
		return errors.Newf("the store holds %d allocations, but %d processes are running", s.store.AllocationCount(), s.registry.RunningCount())
	}

	for _, p := range s.registry.Processes() {
		handle, running := s.registry.Assignment(p.ID)
		if !running {
			continue
		}

		region, err := s.store.Region(handle)
		if err != nil {
			return errors.Wrapf(err, "process %s is assigned a region that does not exist", p.ID)
		}

		if region.Free || region.Reserved {
			return errors.Newf("process %s is assigned region %d, which is not an allocation", p.ID, handle)
		}

		if region.AllocSize != p.Size {
			return errors.Newf("process %s needs %d KiB, but region %d holds an allocation of %d KiB", p.ID, p.Size, handle, region.AllocSize)
		}
	}

	return nil
}
