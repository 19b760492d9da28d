package process

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"golang.org/x/exp/slices"
)

// Registry is the roster of simulated processes together with the assignment table that maps
// each running process to the block or partition it occupies. The assignment is the only place
// that association is stored: process state and the reverse lookup from region to owner are
// both derived from it.
type Registry struct {
	processes   *swiss.Map[ID, *Process]
	order       []ID
	assignments *swiss.Map[ID, metadata.BlockHandle]
	nextID      ID
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Reset discards every process and assignment. IDs start again from 1.
func (r *Registry) Reset() {
	r.processes = swiss.NewMap[ID, *Process](42)
	r.assignments = swiss.NewMap[ID, metadata.BlockHandle](42)
	r.order = r.order[:0]
	r.nextID = 1
}

// NextID returns the ID the next created process will receive
func (r *Registry) NextID() ID {
	return r.nextID
}

// Create adds a stopped process to the registry. An empty name is replaced with P<id>. The
// size must be positive and, if segments are provided, they must add up to it; otherwise the
// returned error wraps memutils.InvalidSizeError and nothing is added.
func (r *Registry) Create(name string, size int, segments []Segment) (Process, error) {
	id := r.nextID
	if name == "" {
		name = fmt.Sprintf("P%d", int(id))
	}

	err := validateSize(name, size, segments)
	if err != nil {
		return Process{}, err
	}

	p := Process{
		ID:       id,
		Name:     name,
		Size:     size,
		Segments: segments,
	}.clone()

	r.nextID++
	r.processes.Put(id, &p)
	r.order = append(r.order, id)

	return p.clone(), nil
}

func (r *Registry) get(id ID) (*Process, error) {
	p, ok := r.processes.Get(id)
	if !ok {
		return nil, errors.Wrapf(memutils.UnknownProcessError, "process %s", id)
	}

	return p, nil
}

// Get returns a copy of the process with the given id
func (r *Registry) Get(id ID) (Process, error) {
	p, err := r.get(id)
	if err != nil {
		return Process{}, err
	}

	return p.clone(), nil
}

// Remove deletes a stopped process from the roster
func (r *Registry) Remove(id ID) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}

	if r.assignments.Has(id) {
		return errors.Wrapf(memutils.ProcessRunningError, "cannot remove %s", p)
	}

	r.processes.Delete(id)
	if index := slices.Index(r.order, id); index >= 0 {
		r.order = slices.Delete(r.order, index, index+1)
	}

	return nil
}

// Assign records that the process now occupies the region identified by handle, moving it to
// StateRunning
func (r *Registry) Assign(id ID, handle metadata.BlockHandle) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}

	if current, running := r.assignments.Get(id); running {
		return errors.Wrapf(memutils.ProcessRunningError, "%s already occupies region %d", p, current)
	}

	if owner, owned := r.OwnerOf(handle); owned {
		return errors.Newf("region %d is already occupied by process %s", handle, owner)
	}

	r.assignments.Put(id, handle)
	return nil
}

// Release clears the assignment of a running process and returns the handle it occupied
func (r *Registry) Release(id ID) (metadata.BlockHandle, error) {
	p, err := r.get(id)
	if err != nil {
		return metadata.NoBlock, err
	}

	handle, running := r.assignments.Get(id)
	if !running {
		return metadata.NoBlock, errors.Wrapf(memutils.ProcessNotRunningError, "%s holds no memory", p)
	}

	r.assignments.Delete(id)
	return handle, nil
}

// Assignment returns the region occupied by the process, if it is running
func (r *Registry) Assignment(id ID) (metadata.BlockHandle, bool) {
	return r.assignments.Get(id)
}

// State derives the lifecycle state of a process from the assignment table
func (r *Registry) State(id ID) State {
	if r.assignments.Has(id) {
		return StateRunning
	}

	return StateStopped
}

// OwnerOf finds the process occupying the region identified by handle
func (r *Registry) OwnerOf(handle metadata.BlockHandle) (ID, bool) {
	var owner ID
	var found bool
	r.assignments.Iter(func(id ID, assigned metadata.BlockHandle) bool {
		if assigned == handle {
			owner = id
			found = true
		}
		return found
	})

	return owner, found
}

// Owners builds the reverse view of the assignment table, region handle to process
func (r *Registry) Owners() map[metadata.BlockHandle]ID {
	owners := make(map[metadata.BlockHandle]ID, r.assignments.Count())
	r.assignments.Iter(func(id ID, handle metadata.BlockHandle) bool {
		owners[handle] = id
		return false
	})

	return owners
}

// Processes returns a copy of every process in creation order
func (r *Registry) Processes() []Process {
	processes := make([]Process, 0, len(r.order))
	for _, id := range r.order {
		p, ok := r.processes.Get(id)
		if !ok {
			continue
		}
		processes = append(processes, p.clone())
	}

	return processes
}

// Count returns the number of processes in the roster
func (r *Registry) Count() int {
	return r.processes.Count()
}

// RunningCount returns the number of processes that currently hold memory
func (r *Registry) RunningCount() int {
	return r.assignments.Count()
}

// Validate checks that the roster and the assignment table agree with one another
func (r *Registry) Validate() error {
	if len(r.order) != r.processes.Count() {
		return errors.Newf("roster lists %d processes, but %d are registered", len(r.order), r.processes.Count())
	}

	var err error
	seen := make(map[metadata.BlockHandle]ID, r.assignments.Count())
	r.assignments.Iter(func(id ID, handle metadata.BlockHandle) bool {
		if !r.processes.Has(id) {
			err = errors.Newf("assignment table names unknown process %s", id)
			return true
		}

		if handle == metadata.NoBlock {
			err = errors.Newf("process %s is assigned to no block", id)
			return true
		}

		if other, duplicate := seen[handle]; duplicate {
			err = errors.Newf("processes %s and %s are both assigned region %d", other, id, handle)
			return true
		}

		seen[handle] = id
		return false
	})

	return err
}
