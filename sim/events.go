package sim

import (
	"github.com/vkngwrapper/memsim/memutils/defrag"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"github.com/vkngwrapper/memsim/process"
)

//go:generate mockgen -source events.go -destination ./mocks/events.go -package mock_sim

// EventType identifies what happened in an Event
type EventType uint32

const (
	EventProcessCreated EventType = iota + 1
	EventProcessRemoved
	EventAllocated
	EventAllocationFailed
	EventFreed
	EventBlockRelocated
	EventCompacted
	EventPolicyChanged
	EventReset
)

var eventTypeMapping = map[EventType]string{
	EventProcessCreated:   "ProcessCreated",
	EventProcessRemoved:   "ProcessRemoved",
	EventAllocated:        "Allocated",
	EventAllocationFailed: "AllocationFailed",
	EventFreed:            "Freed",
	EventBlockRelocated:   "BlockRelocated",
	EventCompacted:        "Compacted",
	EventPolicyChanged:    "PolicyChanged",
	EventReset:            "Reset",
}

func (t EventType) String() string {
	return eventTypeMapping[t]
}

// Event describes a single state change. Only the fields relevant to Type are populated.
type Event struct {
	Type EventType

	// Process is set for process, allocation and free events
	Process process.Process
	// Region is the block or partition involved in allocation and free events. Allocation
	// events carry the occupied region, EventFreed carries it as it was before being released.
	Region metadata.Region
	// Move is set for EventBlockRelocated
	Move defrag.Move
	// Compaction is set for EventCompacted
	Compaction defrag.Stats
	// Policy is set for EventPolicyChanged
	Policy metadata.FitPolicy
	// Err is set for EventAllocationFailed
	Err error
}

// EventHandler receives every Event a Simulator produces, in order, while the command that
// caused it is still being applied. Handlers must not call back into the Simulator.
type EventHandler interface {
	HandleEvent(event Event)
}

// EventHandlerFunc adapts a function to the EventHandler interface
type EventHandlerFunc func(event Event)

func (f EventHandlerFunc) HandleEvent(event Event) {
	f(event)
}
