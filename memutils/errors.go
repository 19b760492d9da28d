package memutils

import "github.com/cockroachdb/errors"

var (
	// InvalidSizeError is returned when a process is created with a size that is not a positive
	// number of KiB, or whose segments do not add up to its size
	InvalidSizeError error = errors.New("invalid process size")
	// ProcessTooLargeError is returned when a process could never fit in any allocatable partition,
	// no matter which partitions are free
	ProcessTooLargeError error = errors.New("process is too large for any partition")
	// NoFreeBlockError is returned from the dynamic model when no single free block can hold
	// the process and compaction is unavailable or did not help
	NoFreeBlockError error = errors.New("no free block large enough")
	// NoFreePartitionError is returned from the partitioned models when every partition the
	// process could fit in is occupied
	NoFreePartitionError error = errors.New("no free partition available")
	// InsufficientTotalMemoryError is returned from the dynamic model when all free memory
	// combined is smaller than the process, so compaction cannot help
	InsufficientTotalMemoryError error = errors.New("insufficient total free memory")
	// ReservedRegionAccessError indicates an attempt to allocate into or free the region
	// reserved for the operating system. It points at a bug in the caller.
	ReservedRegionAccessError error = errors.New("attempted to access a reserved region")

	// UnknownProcessError is returned when a command names a process id that doesn't exist
	UnknownProcessError error = errors.New("unknown process")
	// ProcessRunningError is returned when allocating for a process that already holds memory
	ProcessRunningError error = errors.New("process is already running")
	// ProcessNotRunningError is returned when freeing a process that holds no memory
	ProcessNotRunningError error = errors.New("process is not running")
	// UnsupportedCommandError is returned when a command does not apply to the active model,
	// such as compacting a partitioned model
	UnsupportedCommandError error = errors.New("command not supported by this memory model")
)
