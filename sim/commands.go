package sim

import (
	"fmt"

	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
)

// Command is a single request to a Simulator. Commands are applied strictly one at a time by
// Simulator.Execute; a command may queue follow-up commands, which run after it and after any
// follow-ups queued before them.
type Command interface {
	fmt.Stringer
	apply(s *Simulator) error
}

// CreateProcess adds a stopped process to the roster. Segments are optional but must add up to
// Size when present. An empty Name is replaced with P<id>.
type CreateProcess struct {
	Name     string
	Size     int
	Segments []process.Segment
}

func (c CreateProcess) String() string {
	return fmt.Sprintf("CreateProcess(%q, %d)", c.Name, c.Size)
}

func (c CreateProcess) apply(s *Simulator) error {
	_, err := s.createProcess(c.Name, c.Size, c.Segments)
	return err
}

// Allocate finds memory for a stopped process, moving it to running
type Allocate struct {
	ID process.ID
}

func (c Allocate) String() string {
	return fmt.Sprintf("Allocate(%s)", c.ID)
}

func (c Allocate) apply(s *Simulator) error {
	return s.allocate(c.ID)
}

// Free releases the memory of a running process, moving it to stopped
type Free struct {
	ID process.ID
}

func (c Free) String() string {
	return fmt.Sprintf("Free(%s)", c.ID)
}

func (c Free) apply(s *Simulator) error {
	return s.free(c.ID)
}

// RemoveProcess deletes a stopped process from the roster
type RemoveProcess struct {
	ID process.ID
}

func (c RemoveProcess) String() string {
	return fmt.Sprintf("RemoveProcess(%s)", c.ID)
}

func (c RemoveProcess) apply(s *Simulator) error {
	return s.removeProcess(c.ID)
}

// SetFitPolicy changes the policy used by later allocations. It is only accepted by the
// variable static model and never changes what is already allocated.
type SetFitPolicy struct {
	Policy metadata.FitPolicy
}

func (c SetFitPolicy) String() string {
	return fmt.Sprintf("SetFitPolicy(%s)", c.Policy)
}

func (c SetFitPolicy) apply(s *Simulator) error {
	return s.setFitPolicy(c.Policy)
}

// Compact slides every occupied block down so that all free memory ends up in one block at the
// end. It is only accepted by the dynamic model.
type Compact struct{}

func (c Compact) String() string {
	return "Compact()"
}

func (c Compact) apply(s *Simulator) error {
	return s.compactCommand()
}

// Reset discards every process and allocation and reinitializes from the seed roster
type Reset struct{}

func (c Reset) String() string {
	return "Reset()"
}

func (c Reset) apply(s *Simulator) error {
	return s.reset()
}

// Spawn creates a process and allocates memory for it in one step. If the allocation fails the
// new process is removed again, so the roster only gains processes that obtained memory.
type Spawn struct {
	Name     string
	Size     int
	Segments []process.Segment
}

func (c Spawn) String() string {
	return fmt.Sprintf("Spawn(%q, %d)", c.Name, c.Size)
}

func (c Spawn) apply(s *Simulator) error {
	return s.spawn(c.Name, c.Size, c.Segments)
}

// autoCompact is the follow-up queued after a free when eager compaction is on
type autoCompact struct{}

func (c autoCompact) String() string {
	return "AutoCompact()"
}

func (c autoCompact) apply(s *Simulator) error {
	// An earlier follow-up may already have compacted memory
	if s.dynamic == nil || s.dynamic.FreeRegionsCount() <= 1 {
		return nil
	}

	_, err := s.compact()
	return err
}
