package bufmgr

import (
	"fmt"

	"github.com/tuannm99/bufpool/internal/storage"
)

// FrameID indexes a frame in the buffer pool, in [0, numBufs).
type FrameID int

// frameDesc holds the metadata of one buffer frame. frameNo doubles as the
// index of the frame's page slot in the manager's pool array.
type frameDesc struct {
	frameNo FrameID
	file    File
	pageNo  storage.PageID

	pinCnt int
	dirty  bool
	valid  bool
	refbit bool
}

// set stamps the frame with its new page identity. The page arrives pinned
// once and recently referenced.
func (d *frameDesc) set(file File, pageNo storage.PageID) {
	d.file = file
	d.pageNo = pageNo
	d.pinCnt = 1
	d.valid = true
	d.dirty = false
	d.refbit = true
}

// clear returns the frame to the invalid state and forgets its page
// identity. set and clear are the only transitions between the valid and
// invalid states; pin count, dirty and refbit updates on a valid frame are
// made in place by the manager.
func (d *frameDesc) clear() {
	d.pinCnt = 0
	d.valid = false
	d.dirty = false
	d.refbit = false
	d.file = nil
	d.pageNo = 0
}

func (d *frameDesc) String() string {
	name := "<none>"
	if d.file != nil {
		name = d.file.Filename()
	}
	return fmt.Sprintf("file:%s pageNo:%d pinCnt:%d dirty:%v valid:%v refbit:%v",
		name, d.pageNo, d.pinCnt, d.dirty, d.valid, d.refbit)
}
