package bufmgr

import (
	"errors"
	"fmt"

	"github.com/tuannm99/bufpool/internal/storage"
)

var (
	// ErrBufferExceeded is returned when a full clock sweep found every
	// frame pinned.
	ErrBufferExceeded = errors.New("bufmgr: all buffer frames are pinned")

	// Index faults. These indicate a bug or corruption in the buffer
	// manager itself, not a caller mistake.
	ErrHashNotFound       = errors.New("bufmgr: page entry not found in buffer hash table")
	ErrHashAlreadyPresent = errors.New("bufmgr: page entry already present in buffer hash table")
	ErrHashTable          = errors.New("bufmgr: buffer hash table fault")
)

// PageNotPinnedError is returned by UnpinPage when the page's pin count is
// already zero.
type PageNotPinnedError struct {
	Filename string
	PageNo   storage.PageID
	FrameNo  FrameID
}

func (e *PageNotPinnedError) Error() string {
	return fmt.Sprintf("bufmgr: page %d of %s in frame %d is not pinned",
		e.PageNo, e.Filename, e.FrameNo)
}

// PagePinnedError is returned by FlushFile when a page of the target file
// still has outstanding pins.
type PagePinnedError struct {
	Filename string
	PageNo   storage.PageID
	FrameNo  FrameID
}

func (e *PagePinnedError) Error() string {
	return fmt.Sprintf("bufmgr: page %d of %s in frame %d is pinned",
		e.PageNo, e.Filename, e.FrameNo)
}

// BadBufferError is returned by FlushFile when a frame associated with the
// target file is not valid.
type BadBufferError struct {
	FrameNo FrameID
	Dirty   bool
	Valid   bool
	Refbit  bool
}

func (e *BadBufferError) Error() string {
	return fmt.Sprintf("bufmgr: bad buffer frame %d (dirty=%v valid=%v refbit=%v)",
		e.FrameNo, e.Dirty, e.Valid, e.Refbit)
}
