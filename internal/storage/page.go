package storage

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Header offsets
const (
	offPageNo   = 0
	offFlags    = 4
	offReserved = 6
	offChecksum = 8
)

// Page flags
const (
	// FlagChecksum marks a slot whose checksum field has been stamped by
	// WritePage. Slots that were allocated but never written back carry a
	// zero flags word and are not verified on read.
	FlagChecksum uint16 = 1 << 0
	// FlagFree marks a slot sitting on the file's free list.
	FlagFree uint16 = 1 << 1
)

// PageID identifies a page within one file. Page number 0 is the file
// header and is never handed out to callers.
type PageID uint32

// Page is one fixed-size unit of file storage. It is a plain value: the
// buffer pool holds Pages by value in a flat array and copies them in and
// out on load/eviction.
//
// +------------------+ 0
// | pageNo  (uint32) |
// | flags   (uint16) |
// | reserved(uint16) |
// | checksum(uint64) |
// +------------------+ PageHeaderSize
// |                  |
// |  Payload         |
// |                  |
// +------------------+ PageSize (8192)
type Page struct {
	buf [PageSize]byte
}

// NewPage returns a zero-payload page stamped with pageNo.
func NewPage(pageNo PageID) Page {
	var p Page
	p.setPageNumber(pageNo)
	return p
}

// ---- low-level header getters/setters ----

func (p *Page) PageNumber() PageID {
	return PageID(binary.LittleEndian.Uint32(p.buf[offPageNo:]))
}

func (p *Page) setPageNumber(v PageID) {
	binary.LittleEndian.PutUint32(p.buf[offPageNo:], uint32(v))
}

func (p *Page) flags() uint16 {
	return binary.LittleEndian.Uint16(p.buf[offFlags:])
}

func (p *Page) setFlags(v uint16) {
	binary.LittleEndian.PutUint16(p.buf[offFlags:], v)
}

func (p *Page) checksum() uint64 {
	return binary.LittleEndian.Uint64(p.buf[offChecksum:])
}

func (p *Page) setChecksum(v uint64) {
	binary.LittleEndian.PutUint64(p.buf[offChecksum:], v)
}

// Data returns the page payload. The slice aliases the page buffer, so
// writes through it mutate the page in place.
func (p *Page) Data() []byte {
	return p.buf[PageHeaderSize:]
}

// raw returns the full on-disk image of the page.
func (p *Page) raw() []byte {
	return p.buf[:]
}

// stampChecksum computes the payload checksum and records it in the header.
func (p *Page) stampChecksum() {
	p.setChecksum(xxhash.Sum64(p.Data()))
	p.setFlags(p.flags() | FlagChecksum)
}

// verifyChecksum reports whether the stored checksum matches the payload.
// Slots never stamped by WritePage pass trivially.
func (p *Page) verifyChecksum() bool {
	if p.flags()&FlagChecksum == 0 {
		return true
	}
	return p.checksum() == xxhash.Sum64(p.Data())
}
