package defrag

import (
	"fmt"

	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
)

// Move describes the relocation of a single occupied block. Blocks only ever slide toward
// lower addresses, so DstOffset is always below SrcOffset.
type Move struct {
	Handle    metadata.BlockHandle
	Size      int
	SrcOffset int
	DstOffset int
}

// Distance returns how many KiB the block slides down
func (m Move) Distance() int {
	return m.SrcOffset - m.DstOffset
}

func (m Move) String() string {
	return fmt.Sprintf("block %d (%d KiB): %s -> %s", m.Handle, m.Size, memutils.HexAddress(m.SrcOffset), memutils.HexAddress(m.DstOffset))
}

// MoveHandler is called once per relocation after the block store has been rebuilt. Returning an
// error does not undo the relocation; the errors of a pass are combined and returned from
// Context.CompletePass.
type MoveHandler func(move Move) error
