package process

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils"
)

// ID identifies a process within a Registry. IDs start at 1 and are never reused until the
// registry is reset.
type ID int

func (id ID) String() string {
	return fmt.Sprintf("#%d", int(id))
}

// State is the lifecycle state of a process. A process is running exactly when it holds a
// block or partition.
type State uint32

const (
	StateStopped State = iota
	StateRunning
)

var stateMapping = map[State]string{
	StateStopped: "Stopped",
	StateRunning: "Running",
}

func (s State) String() string {
	return stateMapping[s]
}

// Segment is one named component of a process image, such as its code or its heap
type Segment struct {
	Name string
	Size int
}

func (s Segment) String() string {
	return fmt.Sprintf("%s: %d KiB", s.Name, s.Size)
}

// Process is a simulated program that requests a single contiguous region of Size KiB. It
// carries no reference to the region it occupies; the Registry keeps that association.
type Process struct {
	ID   ID
	Name string
	Size int
	// Segments optionally breaks Size down into components. When present they add up to Size.
	Segments []Segment
}

func (p Process) String() string {
	return fmt.Sprintf("%s %s (%d KiB)", p.ID, p.Name, p.Size)
}

// SegmentSummary renders the segments on one line, e.g. "Code: 256 KiB, Data: 256 KiB"
func (p Process) SegmentSummary() string {
	parts := make([]string, 0, len(p.Segments))
	for _, segment := range p.Segments {
		parts = append(parts, segment.String())
	}
	return strings.Join(parts, ", ")
}

func (p Process) clone() Process {
	if p.Segments != nil {
		p.Segments = append([]Segment(nil), p.Segments...)
	}
	return p
}

func validateSize(name string, size int, segments []Segment) error {
	if size <= 0 {
		return errors.Wrapf(memutils.InvalidSizeError, "process %q requested %d KiB", name, size)
	}

	if len(segments) == 0 {
		return nil
	}

	var total int
	for _, segment := range segments {
		if segment.Size <= 0 {
			return errors.Wrapf(memutils.InvalidSizeError, "segment %q of process %q has size %d KiB", segment.Name, name, segment.Size)
		}
		total += segment.Size
	}

	if total != size {
		return errors.Wrapf(memutils.InvalidSizeError, "segments of process %q add up to %d KiB, but it requested %d KiB", name, total, size)
	}

	return nil
}
