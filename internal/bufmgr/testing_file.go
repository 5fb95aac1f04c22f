package bufmgr

import (
	"fmt"

	"github.com/tuannm99/bufpool/internal/storage"
)

// memFile is an in-memory File used by tests. It records every call so
// tests can observe write-back and deletion behavior of the manager.
type memFile struct {
	name       string
	pages      map[storage.PageID]storage.Page
	nextPageNo storage.PageID

	readCalls   []storage.PageID
	writeCalls  []storage.PageID
	deleteCalls []storage.PageID
	allocCalls  int

	writeErr error
}

func newMemFile(name string) *memFile {
	return &memFile{
		name:       name,
		pages:      make(map[storage.PageID]storage.Page),
		nextPageNo: 1,
	}
}

func (f *memFile) ReadPage(pageNo storage.PageID) (storage.Page, error) {
	f.readCalls = append(f.readCalls, pageNo)
	pg, ok := f.pages[pageNo]
	if !ok {
		return storage.Page{}, fmt.Errorf("%s: page %d: %w", f.name, pageNo, storage.ErrPageNotFound)
	}
	return pg, nil
}

func (f *memFile) WritePage(page *storage.Page) error {
	f.writeCalls = append(f.writeCalls, page.PageNumber())
	if f.writeErr != nil {
		return f.writeErr
	}
	f.pages[page.PageNumber()] = *page
	return nil
}

func (f *memFile) AllocatePage() (storage.Page, error) {
	f.allocCalls++
	pg := storage.NewPage(f.nextPageNo)
	f.pages[f.nextPageNo] = pg
	f.nextPageNo++
	return pg, nil
}

func (f *memFile) DeletePage(pageNo storage.PageID) error {
	f.deleteCalls = append(f.deleteCalls, pageNo)
	if _, ok := f.pages[pageNo]; !ok {
		return fmt.Errorf("%s: page %d: %w", f.name, pageNo, storage.ErrPageNotFound)
	}
	delete(f.pages, pageNo)
	return nil
}

func (f *memFile) Filename() string {
	return f.name
}

// writesTo counts recorded WritePage calls for one page.
func (f *memFile) writesTo(pageNo storage.PageID) int {
	n := 0
	for _, w := range f.writeCalls {
		if w == pageNo {
			n++
		}
	}
	return n
}
