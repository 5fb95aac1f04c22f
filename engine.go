// Package bufpool ties the buffer manager to real page files on disk.
//
// An Engine owns the DiskFiles it opens and one buffer Manager; the
// Manager only borrows File references, so files stay open for as long as
// any frame may point at them. Like the manager itself, the Engine assumes
// a single cooperative caller.
package bufpool

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/tuannm99/bufpool/internal"
	"github.com/tuannm99/bufpool/internal/bufmgr"
	"github.com/tuannm99/bufpool/internal/storage"
)

type Engine struct {
	cfg   *internal.Config
	mgr   *bufmgr.Manager
	files map[string]*storage.DiskFile
}

// Open loads the yaml config at path and builds an engine from it.
func Open(path string) (*Engine, error) {
	cfg, err := internal.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return OpenWith(cfg)
}

// OpenWith builds an engine from an in-memory config, for embedding
// callers that do their own configuration.
func OpenWith(cfg *internal.Config) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.Workdir, storage.FileMode0755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"workdir": cfg.Storage.Workdir,
		"numBufs": cfg.Pool.NumBufs,
	}).Debug("bufpool: engine open")

	return &Engine{
		cfg:   cfg,
		mgr:   bufmgr.NewManager(cfg.Pool.NumBufs),
		files: make(map[string]*storage.DiskFile),
	}, nil
}

// Manager exposes the underlying buffer manager.
func (e *Engine) Manager() *bufmgr.Manager {
	return e.mgr
}

// OpenFile opens (or returns the already-open) page file with the given
// name under the engine's workdir.
func (e *Engine) OpenFile(name string) (*storage.DiskFile, error) {
	if f, ok := e.files[name]; ok {
		return f, nil
	}
	f, err := storage.OpenDiskFile(filepath.Join(e.cfg.Storage.Workdir, name))
	if err != nil {
		return nil, err
	}
	e.files[name] = f
	return f, nil
}

// fileArg keeps a nil *DiskFile a nil File, so the manager's absent-file
// no-op applies instead of a typed-nil interface slipping through.
func fileArg(f *storage.DiskFile) bufmgr.File {
	if f == nil {
		return nil
	}
	return f
}

// ReadPage pins and returns the page through the buffer pool.
func (e *Engine) ReadPage(file *storage.DiskFile, pageNo storage.PageID) (*storage.Page, error) {
	return e.mgr.ReadPage(fileArg(file), pageNo)
}

// UnpinPage releases one pin, optionally marking the page dirty.
func (e *Engine) UnpinPage(file *storage.DiskFile, pageNo storage.PageID, dirty bool) error {
	return e.mgr.UnpinPage(fileArg(file), pageNo, dirty)
}

// AllocatePage reserves a new page in file and returns it pinned.
func (e *Engine) AllocatePage(file *storage.DiskFile) (storage.PageID, *storage.Page, error) {
	return e.mgr.AllocPage(fileArg(file))
}

// DisposePage drops the page from the pool and deletes it from file.
func (e *Engine) DisposePage(file *storage.DiskFile, pageNo storage.PageID) error {
	return e.mgr.DisposePage(fileArg(file), pageNo)
}

// FlushFile writes back the dirty pages of file and evicts all of the
// file's pages, clean or dirty, from the pool.
func (e *Engine) FlushFile(file *storage.DiskFile) error {
	return e.mgr.FlushFile(fileArg(file))
}

// Close flushes the pool, then closes every file the engine opened. The
// first error wins but remaining files are still closed.
func (e *Engine) Close() error {
	firstErr := e.mgr.Close()
	for name, f := range e.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.files, name)
	}
	logrus.Debug("bufpool: engine closed")
	return firstErr
}
