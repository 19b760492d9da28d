package defrag

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
)

// Context is the core of the compaction logic. A compaction pass consists of collecting moves
// with CollectMoves, which does not touch the store, and committing them with CompletePass, which
// slides every occupied block down against its predecessor and leaves a single free block at the
// end of memory. A Context can be reused for any number of passes.
type Context struct {
	// Store is the block store this context exists to compact
	Store Store
	// Handler is called for each relocation as part of CompletePass. It may be nil.
	Handler MoveHandler

	moves      []Move
	placements []metadata.Placement
}

// Init verifies that the Store can be compacted. It must be called before the first pass.
func (c *Context) Init() error {
	if c.Store == nil {
		panic("attempted to init compaction context without a block store")
	}

	if !c.Store.SupportsSplitting() {
		return errors.New("attempted to compact a store with fixed region boundaries- partition tables cannot be compacted")
	}

	return nil
}

func (c *Context) mustFindNextAllocation(handle metadata.BlockHandle) metadata.BlockHandle {
	next, err := c.Store.FindNextAllocation(handle)
	if err != nil {
		panic(fmt.Sprintf("unexpected error when getting next allocation: %+v", err))
	}

	return next
}

func (c *Context) mustGetRegion(handle metadata.BlockHandle) metadata.Region {
	region, err := c.Store.Region(handle)
	if err != nil {
		panic(fmt.Sprintf("unexpected error when getting allocation region: %+v", err))
	}

	return region
}

// CollectMoves walks the occupied blocks in address order and works out where each one lands
// when packed against the reservation. It returns true if at least one block has to move. When
// it returns false the layout is already compact and CompletePass will leave it untouched.
func (c *Context) CollectMoves() bool {
	c.moves = c.moves[:0]
	c.placements = c.placements[:0]

	offset := c.Store.ReservedSize()
	for handle := c.Store.AllocationListBegin(); handle != metadata.NoBlock; handle = c.mustFindNextAllocation(handle) {
		region := c.mustGetRegion(handle)

		c.placements = append(c.placements, metadata.Placement{
			Handle: handle,
			Offset: offset,
		})

		if region.Offset != offset {
			c.moves = append(c.moves, Move{
				Handle:    handle,
				Size:      region.Size,
				SrcOffset: region.Offset,
				DstOffset: offset,
			})
		}

		offset += region.Size
	}

	return len(c.moves) > 0
}

// Moves returns the relocations most recently collected with CollectMoves
func (c *Context) Moves() []Move {
	return c.moves
}

// CompletePass commits the moves found by the last CollectMoves call, updates stats and then calls
// Handler for each move in address order. Errors returned from Handler are combined into the
// returned error but do not stop the pass. An error from the store itself means the collected
// moves no longer describe it, in which case nothing is changed.
func (c *Context) CompletePass(stats *Stats) error {
	defer func() {
		c.moves = c.moves[:0]
		c.placements = c.placements[:0]
	}()

	if len(c.moves) == 0 {
		return nil
	}

	freeBefore := c.Store.FreeRegionsCount()
	err := c.Store.Rebuild(c.placements)
	if err != nil {
		return errors.Wrap(err, "could not rebuild the block store from the collected moves")
	}
	memutils.DebugValidate(c.Store)

	stats.Passes++
	stats.FreeRegionsMerged += freeBefore - c.Store.FreeRegionsCount()

	var allErrors error
	for _, move := range c.moves {
		stats.BytesMoved += move.Size
		stats.AllocationsMoved++

		if c.Handler == nil {
			continue
		}

		allErrors = errors.CombineErrors(allErrors, c.Handler(move))
	}

	return allErrors
}

// Compact runs a single full pass: every block ends up packed against the reservation. Running it
// on an already compact store does nothing.
func (c *Context) Compact() (Stats, error) {
	var stats Stats

	err := c.Init()
	if err != nil {
		return stats, err
	}

	if !c.CollectMoves() {
		return stats, nil
	}

	err = c.CompletePass(&stats)
	return stats, err
}
