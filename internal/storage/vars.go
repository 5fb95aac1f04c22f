package storage

import (
	"errors"
)

const (
	OneB  = 1 << 0  // 1
	OneKB = 1 << 10 // 1,024
	OneMB = 1 << 20 // 1,048,576

	// PageSize is the engine-wide page size. Every read and write against a
	// page file moves exactly this many bytes.
	PageSize = 1 << 13 // 8,192 (8 KiB)

	// PageHeaderSize is the fixed prefix of every page slot on disk:
	// pageNo (4) + flags (2) + reserved (2) + checksum (8).
	PageHeaderSize = 16

	// PageDataSize is the payload capacity of a page.
	PageDataSize = PageSize - PageHeaderSize
)

const (
	FileMode0644 = 0o644
	FileMode0664 = 0o664
	FileMode0755 = 0o755
)

var (
	ErrPageNotFound  = errors.New("storage: page not found")
	ErrPageCorrupted = errors.New("storage: page checksum mismatch")
	ErrBadMagic      = errors.New("storage: invalid file magic number")
	ErrBadVersion    = errors.New("storage: unsupported file format version")
	ErrBadPageSize   = errors.New("storage: file page size does not match build")
	ErrFileClosed    = errors.New("storage: file is closed")
)
