// Package bufmgr implements the buffer manager of the storage engine: a
// bounded pool of page frames with clock-sweep (second chance) replacement,
// pin accounting and dirty-page write-back.
//
// The manager assumes a single cooperative caller. It makes no
// synchronization guarantees of its own.
package bufmgr

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tuannm99/bufpool/internal/storage"
)

// File is the page-granular backing store a frame refers to. Files are
// borrowed from the caller: the manager never creates or closes them, and
// a File must outlive every frame that references it.
type File interface {
	ReadPage(pageNo storage.PageID) (storage.Page, error)
	WritePage(page *storage.Page) error
	AllocatePage() (storage.Page, error)
	DeletePage(pageNo storage.PageID) error
	Filename() string
}

var logger = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}()

// SetLogger replaces the package logger. Diagnostics for index faults are
// emitted through it before the fault is propagated.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		logger = l
	}
}

// Manager is the buffer manager. It owns the frame descriptor table, the
// parallel page-buffer array and the page-identity index for its whole
// lifetime; frames are sized once at construction.
type Manager struct {
	numBufs   int
	descTable []frameDesc
	pool      []storage.Page
	table     *hashTable
	clockHand FrameID
	closed    bool
}

// NewManager builds a pool of numBufs frames. numBufs must be >= 1.
func NewManager(numBufs int) *Manager {
	if numBufs < 1 {
		panic("bufmgr: numBufs must be >= 1")
	}

	m := &Manager{
		numBufs:   numBufs,
		descTable: make([]frameDesc, numBufs),
		pool:      make([]storage.Page, numBufs),
		// The first advance lands on frame 0.
		clockHand: FrameID(numBufs - 1),
	}
	for i := range m.descTable {
		m.descTable[i].frameNo = FrameID(i)
	}

	htsize := ((int(float64(numBufs)*1.2)*2)/2 + 1)
	m.table = newHashTable(htsize)

	return m
}

// NumBufs returns the pool size.
func (m *Manager) NumBufs() int {
	return m.numBufs
}

func (m *Manager) advanceClock() {
	m.clockHand = (m.clockHand + 1) % FrameID(m.numBufs)
}

// allocBuf selects a frame for reuse with the clock algorithm. A frame
// with the refbit set is spared exactly once per sweep; a pinned frame is
// skipped, and once every frame has been seen pinned within this call the
// sweep gives up with ErrBufferExceeded. A dirty victim is written back
// before its identity is dropped from the index.
//
// On success the returned frame is invalid-but-selected: the caller
// populates its page slot and calls set on the descriptor.
func (m *Manager) allocBuf() (FrameID, error) {
	pinnedSeen := 0
	for {
		m.advanceClock()
		d := &m.descTable[m.clockHand]

		if !d.valid {
			return d.frameNo, nil
		}
		if d.refbit {
			d.refbit = false
			continue
		}
		if d.pinCnt > 0 {
			pinnedSeen++
			if pinnedSeen == m.numBufs {
				return 0, ErrBufferExceeded
			}
			continue
		}

		// Victim: valid, unreferenced, unpinned.
		if d.dirty {
			if err := d.file.WritePage(&m.pool[d.frameNo]); err != nil {
				return 0, fmt.Errorf("bufmgr: write back page %d of %s: %w",
					d.pageNo, d.file.Filename(), err)
			}
		}
		// The index entry goes on the clean path too, or a stale entry
		// would keep pointing at the repurposed frame.
		if err := m.table.remove(d.file, d.pageNo); err != nil {
			return 0, m.indexFault("evict", d.file, d.pageNo, err)
		}
		d.clear()
		return d.frameNo, nil
	}
}

// ReadPage hands the caller a pinned reference to the page's frame slot,
// loading the page from file on a pool miss. The returned pointer stays
// usable until the matching unpin allows the frame to be evicted.
//
// A nil file is a no-op and returns a nil page.
func (m *Manager) ReadPage(file File, pageNo storage.PageID) (*storage.Page, error) {
	if file == nil {
		return nil, nil
	}

	if frame, ok := m.table.lookup(file, pageNo); ok {
		d := &m.descTable[frame]
		d.refbit = true
		d.pinCnt++
		return &m.pool[frame], nil
	}

	frame, err := m.allocBuf()
	if err != nil {
		return nil, err
	}
	pg, err := file.ReadPage(pageNo)
	if err != nil {
		return nil, fmt.Errorf("bufmgr: read page %d of %s: %w", pageNo, file.Filename(), err)
	}
	m.pool[frame] = pg
	if err := m.table.insert(file, pageNo, frame); err != nil {
		return nil, m.indexFault("read", file, pageNo, err)
	}
	m.descTable[frame].set(file, pageNo)
	return &m.pool[frame], nil
}

// UnpinPage releases one pin on the page. With dirty=true the frame is
// marked dirty; the flag is never cleared here, only by a write-back.
// Unpinning a page that is not resident is a no-op; unpinning one whose
// pin count is already zero fails with PageNotPinnedError.
func (m *Manager) UnpinPage(file File, pageNo storage.PageID, dirty bool) error {
	if file == nil {
		return nil
	}
	frame, ok := m.table.lookup(file, pageNo)
	if !ok {
		return nil
	}
	d := &m.descTable[frame]
	if d.pinCnt == 0 {
		return &PageNotPinnedError{Filename: file.Filename(), PageNo: pageNo, FrameNo: frame}
	}
	d.pinCnt--
	if dirty {
		d.dirty = true
	}
	return nil
}

// AllocPage asks the file for a fresh page, places it in a frame and
// returns its number together with a pinned reference.
func (m *Manager) AllocPage(file File) (storage.PageID, *storage.Page, error) {
	if file == nil {
		return 0, nil, nil
	}

	pg, err := file.AllocatePage()
	if err != nil {
		return 0, nil, fmt.Errorf("bufmgr: allocate page in %s: %w", file.Filename(), err)
	}
	pageNo := pg.PageNumber()

	frame, err := m.allocBuf()
	if err != nil {
		return 0, nil, err
	}
	m.pool[frame] = pg
	if err := m.table.insert(file, pageNo, frame); err != nil {
		return 0, nil, m.indexFault("alloc", file, pageNo, err)
	}
	m.descTable[frame].set(file, pageNo)
	return pageNo, &m.pool[frame], nil
}

// FlushFile writes back every dirty page of file and drops all of the
// file's pages from the pool, scanning frames in ascending order. The
// flush aborts on the first pinned (PagePinnedError) or invalid
// (BadBufferError) frame belonging to the file.
func (m *Manager) FlushFile(file File) error {
	if file == nil {
		return nil
	}
	for i := range m.descTable {
		d := &m.descTable[i]
		if d.file != file {
			continue
		}
		if !d.valid {
			return &BadBufferError{FrameNo: d.frameNo, Dirty: d.dirty, Valid: d.valid, Refbit: d.refbit}
		}
		if d.pinCnt > 0 {
			return &PagePinnedError{Filename: file.Filename(), PageNo: d.pageNo, FrameNo: d.frameNo}
		}
		if d.dirty {
			if err := d.file.WritePage(&m.pool[i]); err != nil {
				return fmt.Errorf("bufmgr: flush page %d of %s: %w", d.pageNo, file.Filename(), err)
			}
			d.dirty = false
		}
		if err := m.table.remove(file, d.pageNo); err != nil {
			return m.indexFault("flush", file, d.pageNo, err)
		}
		d.clear()
	}
	return nil
}

// DisposePage drops the page from the pool, if resident, and deletes it
// from the file. A pin on the page is discarded along with the frame.
func (m *Manager) DisposePage(file File, pageNo storage.PageID) error {
	if file == nil {
		return nil
	}
	if frame, ok := m.table.lookup(file, pageNo); ok {
		m.descTable[frame].clear()
		if err := m.table.remove(file, pageNo); err != nil {
			return m.indexFault("dispose", file, pageNo, err)
		}
	}
	if err := file.DeletePage(pageNo); err != nil {
		return fmt.Errorf("bufmgr: delete page %d of %s: %w", pageNo, file.Filename(), err)
	}
	return nil
}

// Close writes every valid dirty frame back through its owning file and
// releases the pool. Pinned frames are not an error at shutdown; they are
// flushed if dirty and discarded. Close is idempotent; the first
// write-back error is returned but the scan finishes.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for i := range m.descTable {
		d := &m.descTable[i]
		if !d.valid || !d.dirty {
			continue
		}
		if err := d.file.WritePage(&m.pool[i]); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("bufmgr: flush page %d of %s on close: %w",
					d.pageNo, d.file.Filename(), err)
			}
			continue
		}
		d.dirty = false
	}

	m.descTable = nil
	m.pool = nil
	m.table = nil
	return firstErr
}

// PrintSelf dumps the state of every frame to w.
func (m *Manager) PrintSelf(w io.Writer) {
	validFrames := 0
	for i := range m.descTable {
		fmt.Fprintf(w, "FrameNo:%d %s\n", i, m.descTable[i].String())
		if m.descTable[i].valid {
			validFrames++
		}
	}
	fmt.Fprintf(w, "Total Number of Valid Frames:%d\n", validFrames)
}

func (m *Manager) String() string {
	var b strings.Builder
	m.PrintSelf(&b)
	return b.String()
}

// indexFault logs an identity-index fault and passes the error through.
// These faults mean the pool's bookkeeping is inconsistent.
func (m *Manager) indexFault(op string, file File, pageNo storage.PageID, err error) error {
	logger.WithFields(logrus.Fields{
		"op":     op,
		"file":   file.Filename(),
		"pageNo": pageNo,
	}).WithError(err).Error("buffer hash table fault")
	return err
}
