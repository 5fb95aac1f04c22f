package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T) *DiskFile {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rel")
	d, err := OpenDiskFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDiskFile_OpenCreatesHeader(t *testing.T) {
	d := newTestFile(t)
	require.Zero(t, d.NumPages())

	info, err := os.Stat(d.Filename())
	require.NoError(t, err)
	require.Equal(t, int64(PageSize), info.Size())
}

func TestDiskFile_AllocateNumbersFromOne(t *testing.T) {
	d := newTestFile(t)

	p1, err := d.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageID(1), p1.PageNumber())

	p2, err := d.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageID(2), p2.PageNumber())
	require.Equal(t, 2, d.NumPages())
}

func TestDiskFile_WriteReadRoundTrip(t *testing.T) {
	d := newTestFile(t)

	p, err := d.AllocatePage()
	require.NoError(t, err)
	copy(p.Data(), []byte("payload bytes"))
	require.NoError(t, d.WritePage(&p))

	got, err := d.ReadPage(p.PageNumber())
	require.NoError(t, err)
	require.Equal(t, p.PageNumber(), got.PageNumber())
	require.Equal(t, []byte("payload bytes"), got.Data()[:13])
}

func TestDiskFile_ReadUnknownPageFails(t *testing.T) {
	d := newTestFile(t)

	_, err := d.ReadPage(0)
	require.ErrorIs(t, err, ErrPageNotFound)
	_, err = d.ReadPage(1)
	require.ErrorIs(t, err, ErrPageNotFound)

	_, err = d.AllocatePage()
	require.NoError(t, err)
	_, err = d.ReadPage(2)
	require.ErrorIs(t, err, ErrPageNotFound)
}

func TestDiskFile_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rel")

	d, err := OpenDiskFile(path)
	require.NoError(t, err)
	p, err := d.AllocatePage()
	require.NoError(t, err)
	copy(p.Data(), []byte("durable"))
	require.NoError(t, d.WritePage(&p))
	require.NoError(t, d.Close())

	d2, err := OpenDiskFile(path)
	require.NoError(t, err)
	defer func() { _ = d2.Close() }()

	require.Equal(t, 1, d2.NumPages())
	got, err := d2.ReadPage(p.PageNumber())
	require.NoError(t, err)
	require.Equal(t, []byte("durable"), got.Data()[:7])

	// Allocation continues after the last allocated page.
	next, err := d2.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageID(2), next.PageNumber())
}

func TestDiskFile_DeleteAndReuse(t *testing.T) {
	d := newTestFile(t)

	p1, err := d.AllocatePage()
	require.NoError(t, err)
	p2, err := d.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageID(2), p2.PageNumber())

	require.NoError(t, d.DeletePage(p1.PageNumber()))
	_, err = d.ReadPage(p1.PageNumber())
	require.ErrorIs(t, err, ErrPageNotFound)

	// The freed slot is handed out again before the file grows.
	p3, err := d.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, p1.PageNumber(), p3.PageNumber())

	p4, err := d.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageID(3), p4.PageNumber())
}

func TestDiskFile_DeleteFreeListOrder(t *testing.T) {
	d := newTestFile(t)

	var pages []PageID
	for i := 0; i < 3; i++ {
		p, err := d.AllocatePage()
		require.NoError(t, err)
		pages = append(pages, p.PageNumber())
	}
	for _, pageNo := range pages {
		require.NoError(t, d.DeletePage(pageNo))
	}

	// LIFO reuse: last freed comes back first.
	for i := len(pages) - 1; i >= 0; i-- {
		p, err := d.AllocatePage()
		require.NoError(t, err)
		require.Equal(t, pages[i], p.PageNumber())
	}
}

func TestDiskFile_DoubleDeleteFails(t *testing.T) {
	d := newTestFile(t)

	p, err := d.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, d.DeletePage(p.PageNumber()))
	require.ErrorIs(t, d.DeletePage(p.PageNumber()), ErrPageNotFound)
}

func TestDiskFile_DeleteUnknownPageFails(t *testing.T) {
	d := newTestFile(t)
	require.ErrorIs(t, d.DeletePage(0), ErrPageNotFound)
	require.ErrorIs(t, d.DeletePage(9), ErrPageNotFound)
}

func TestDiskFile_CorruptedPageDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rel")
	d, err := OpenDiskFile(path)
	require.NoError(t, err)

	p, err := d.AllocatePage()
	require.NoError(t, err)
	copy(p.Data(), []byte("precious"))
	require.NoError(t, d.WritePage(&p))
	require.NoError(t, d.Close())

	// Flip a payload byte on disk behind the file's back.
	raw, err := os.OpenFile(path, os.O_RDWR, FileMode0644)
	require.NoError(t, err)
	_, err = raw.WriteAt([]byte{0xFF}, int64(p.PageNumber())*PageSize+PageHeaderSize)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	d2, err := OpenDiskFile(path)
	require.NoError(t, err)
	defer func() { _ = d2.Close() }()

	_, err = d2.ReadPage(p.PageNumber())
	require.ErrorIs(t, err, ErrPageCorrupted)
}

func TestDiskFile_RejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rel")
	require.NoError(t, os.WriteFile(path, []byte("not a page file at all"), FileMode0644))

	_, err := OpenDiskFile(path)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestDiskFile_ClosedFileFails(t *testing.T) {
	d := newTestFile(t)
	p, err := d.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = d.ReadPage(p.PageNumber())
	require.ErrorIs(t, err, ErrFileClosed)
	require.ErrorIs(t, d.WritePage(&p), ErrFileClosed)
	_, err = d.AllocatePage()
	require.ErrorIs(t, err, ErrFileClosed)
	require.ErrorIs(t, d.DeletePage(p.PageNumber()), ErrFileClosed)

	// Close is idempotent.
	require.NoError(t, d.Close())
}
