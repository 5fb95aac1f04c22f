package bufmgr

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/tuannm99/bufpool/internal/storage"
)

// hashTable is the page-identity index: it maps (file, pageNo) to the
// frame currently holding that page. Collisions are chained. Keys compare
// by File identity; the bucket hash only needs a stable distribution, so
// it runs xxhash over the file name and page number.
type hashTable struct {
	buckets []*hashEntry
}

type hashEntry struct {
	file   File
	pageNo storage.PageID
	frame  FrameID
	next   *hashEntry
}

func newHashTable(htsize int) *hashTable {
	if htsize < 1 {
		htsize = 1
	}
	return &hashTable{buckets: make([]*hashEntry, htsize)}
}

func (h *hashTable) bucket(file File, pageNo storage.PageID) int {
	d := xxhash.New()
	_, _ = d.WriteString(file.Filename())
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(pageNo))
	_, _ = d.Write(b[:])
	return int(d.Sum64() % uint64(len(h.buckets)))
}

// insert adds (file, pageNo) -> frame. Fails with ErrHashAlreadyPresent if
// the key is already mapped.
func (h *hashTable) insert(file File, pageNo storage.PageID, frame FrameID) error {
	if len(h.buckets) == 0 {
		return ErrHashTable
	}
	i := h.bucket(file, pageNo)
	for e := h.buckets[i]; e != nil; e = e.next {
		if e.file == file && e.pageNo == pageNo {
			return ErrHashAlreadyPresent
		}
	}
	h.buckets[i] = &hashEntry{file: file, pageNo: pageNo, frame: frame, next: h.buckets[i]}
	return nil
}

// lookup returns the frame holding (file, pageNo), if any.
func (h *hashTable) lookup(file File, pageNo storage.PageID) (FrameID, bool) {
	if len(h.buckets) == 0 {
		return 0, false
	}
	for e := h.buckets[h.bucket(file, pageNo)]; e != nil; e = e.next {
		if e.file == file && e.pageNo == pageNo {
			return e.frame, true
		}
	}
	return 0, false
}

// remove deletes the mapping for (file, pageNo). Fails with
// ErrHashNotFound if the key is absent.
func (h *hashTable) remove(file File, pageNo storage.PageID) error {
	if len(h.buckets) == 0 {
		return ErrHashTable
	}
	i := h.bucket(file, pageNo)
	var prev *hashEntry
	for e := h.buckets[i]; e != nil; prev, e = e, e.next {
		if e.file == file && e.pageNo == pageNo {
			if prev == nil {
				h.buckets[i] = e.next
			} else {
				prev.next = e.next
			}
			return nil
		}
	}
	return ErrHashNotFound
}
