package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	util "github.com/tuannm99/bufpool/internal/alias/util"
)

// File header layout (slot 0)
const (
	fileMagic   uint32 = 0x4246504C // "BFPL"
	fileVersion uint16 = 1

	offMagic      = 0
	offVersion    = 4
	offHdrPgSize  = 8
	offNextPageNo = 12
	offFreeHead   = 16
)

// DiskFile is a page file on local disk. Slot 0 holds the file header;
// data pages are numbered from 1. Deleted pages are chained into an
// on-disk free list (each free slot stores the next free page number in
// its payload) and reused by AllocatePage before the file is extended.
type DiskFile struct {
	f    *os.File
	path string

	nextPageNo PageID // lowest page number never allocated
	freeHead   PageID // head of the free list, 0 = empty
}

// OpenDiskFile opens (or creates) the page file at path. An existing file
// must carry a matching magic, version and page size.
func OpenDiskFile(path string) (*DiskFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("open page file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		util.CloseFileFunc(f)
		return nil, fmt.Errorf("stat page file: %w", err)
	}

	d := &DiskFile{f: f, path: path}

	if info.Size() == 0 {
		d.nextPageNo = 1
		d.freeHead = 0
		if err := d.writeHeader(); err != nil {
			util.CloseFileFunc(f)
			return nil, err
		}
		return d, nil
	}

	if err := d.readHeader(); err != nil {
		util.CloseFileFunc(f)
		return nil, err
	}
	return d, nil
}

func (d *DiskFile) writeHeader() error {
	var hdr [PageSize]byte
	binary.LittleEndian.PutUint32(hdr[offMagic:], fileMagic)
	binary.LittleEndian.PutUint16(hdr[offVersion:], fileVersion)
	binary.LittleEndian.PutUint32(hdr[offHdrPgSize:], PageSize)
	binary.LittleEndian.PutUint32(hdr[offNextPageNo:], uint32(d.nextPageNo))
	binary.LittleEndian.PutUint32(hdr[offFreeHead:], uint32(d.freeHead))
	if _, err := d.f.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("write file header: %w", err)
	}
	return nil
}

func (d *DiskFile) readHeader() error {
	var hdr [PageSize]byte
	if _, err := d.f.ReadAt(hdr[:], 0); err != nil && err != io.EOF {
		return fmt.Errorf("read file header: %w", err)
	}
	if binary.LittleEndian.Uint32(hdr[offMagic:]) != fileMagic {
		return fmt.Errorf("%s: %w", d.path, ErrBadMagic)
	}
	if binary.LittleEndian.Uint16(hdr[offVersion:]) != fileVersion {
		return fmt.Errorf("%s: %w", d.path, ErrBadVersion)
	}
	if binary.LittleEndian.Uint32(hdr[offHdrPgSize:]) != PageSize {
		return fmt.Errorf("%s: %w", d.path, ErrBadPageSize)
	}
	d.nextPageNo = PageID(binary.LittleEndian.Uint32(hdr[offNextPageNo:]))
	d.freeHead = PageID(binary.LittleEndian.Uint32(hdr[offFreeHead:]))
	return nil
}

// Filename returns the path the file was opened with.
func (d *DiskFile) Filename() string {
	return d.path
}

// NumPages returns the number of allocated pages, free or not.
func (d *DiskFile) NumPages() int {
	return int(d.nextPageNo) - 1
}

func (d *DiskFile) checkOpen() error {
	if d.f == nil {
		return fmt.Errorf("%s: %w", d.path, ErrFileClosed)
	}
	return nil
}

func (d *DiskFile) checkPageNo(pageNo PageID) error {
	if pageNo == 0 || pageNo >= d.nextPageNo {
		return fmt.Errorf("%s: page %d: %w", d.path, pageNo, ErrPageNotFound)
	}
	return nil
}

// ReadPage reads one page from disk. A slot that was allocated but never
// written back comes out zero-filled with just the page number stamped;
// higher layers initialize such pages lazily.
func (d *DiskFile) ReadPage(pageNo PageID) (Page, error) {
	var p Page
	if err := d.checkOpen(); err != nil {
		return p, err
	}
	if err := d.checkPageNo(pageNo); err != nil {
		return p, err
	}

	n, err := d.f.ReadAt(p.raw(), int64(pageNo)*PageSize)
	if err != nil && err != io.EOF {
		return p, fmt.Errorf("read page %d from %s: %w", pageNo, d.path, err)
	}
	// Zero-fill the rest of the page on a short read (sparse slot).
	for i := n; i < PageSize; i++ {
		p.buf[i] = 0
	}
	if p.flags()&FlagFree != 0 {
		return p, fmt.Errorf("%s: page %d is free: %w", d.path, pageNo, ErrPageNotFound)
	}
	if p.PageNumber() == 0 {
		p.setPageNumber(pageNo)
	}
	if !p.verifyChecksum() {
		return p, fmt.Errorf("%s: page %d: %w", d.path, pageNo, ErrPageCorrupted)
	}
	return p, nil
}

// WritePage writes the page back to its slot, identified by the page's own
// number, stamping a fresh payload checksum.
func (d *DiskFile) WritePage(p *Page) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	pageNo := p.PageNumber()
	if err := d.checkPageNo(pageNo); err != nil {
		return err
	}
	p.stampChecksum()
	if _, err := d.f.WriteAt(p.raw(), int64(pageNo)*PageSize); err != nil {
		return fmt.Errorf("write page %d to %s: %w", pageNo, d.path, err)
	}
	return nil
}

// AllocatePage reserves a new page slot and returns an initialized page
// whose number is the new id. Freed slots are reused before the file grows.
func (d *DiskFile) AllocatePage() (Page, error) {
	var p Page
	if err := d.checkOpen(); err != nil {
		return p, err
	}

	var pageNo PageID
	if d.freeHead != 0 {
		pageNo = d.freeHead
		next, err := d.readFreeLink(pageNo)
		if err != nil {
			return p, err
		}
		d.freeHead = next
	} else {
		pageNo = d.nextPageNo
		d.nextPageNo++
	}

	p = NewPage(pageNo)
	if _, err := d.f.WriteAt(p.raw(), int64(pageNo)*PageSize); err != nil {
		return p, fmt.Errorf("allocate page %d in %s: %w", pageNo, d.path, err)
	}
	if err := d.writeHeader(); err != nil {
		return p, err
	}
	return p, nil
}

// DeletePage deallocates the page, pushing its slot onto the free list.
func (d *DiskFile) DeletePage(pageNo PageID) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := d.checkPageNo(pageNo); err != nil {
		return err
	}

	// Reject double deletes: a slot already on the free list carries FlagFree.
	var hdr [PageHeaderSize]byte
	if n, err := d.f.ReadAt(hdr[:], int64(pageNo)*PageSize); err != nil && err != io.EOF {
		return fmt.Errorf("read page %d header from %s: %w", pageNo, d.path, err)
	} else if n == PageHeaderSize && binary.LittleEndian.Uint16(hdr[offFlags:])&FlagFree != 0 {
		return fmt.Errorf("%s: page %d already free: %w", d.path, pageNo, ErrPageNotFound)
	}

	free := NewPage(pageNo)
	free.setFlags(FlagFree)
	binary.LittleEndian.PutUint32(free.Data(), uint32(d.freeHead))
	if _, err := d.f.WriteAt(free.raw(), int64(pageNo)*PageSize); err != nil {
		return fmt.Errorf("delete page %d in %s: %w", pageNo, d.path, err)
	}
	d.freeHead = pageNo
	return d.writeHeader()
}

// readFreeLink reads the next-free pointer stored in a free slot's payload.
func (d *DiskFile) readFreeLink(pageNo PageID) (PageID, error) {
	var p Page
	if _, err := d.f.ReadAt(p.raw(), int64(pageNo)*PageSize); err != nil && err != io.EOF {
		return 0, fmt.Errorf("read free link of page %d in %s: %w", pageNo, d.path, err)
	}
	if p.flags()&FlagFree == 0 {
		return 0, fmt.Errorf("%s: page %d not on free list: %w", d.path, pageNo, ErrPageCorrupted)
	}
	return PageID(binary.LittleEndian.Uint32(p.Data())), nil
}

// Close persists the header, syncs and closes the file.
func (d *DiskFile) Close() error {
	if d.f == nil {
		return nil
	}
	if err := d.writeHeader(); err != nil {
		util.CloseFileFunc(d.f)
		d.f = nil
		return err
	}
	if err := d.f.Sync(); err != nil {
		util.CloseFileFunc(d.f)
		d.f = nil
		return fmt.Errorf("sync %s: %w", d.path, err)
	}
	err := d.f.Close()
	d.f = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", d.path, err)
	}
	return nil
}
