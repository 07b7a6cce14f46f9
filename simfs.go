// Package simfs
// Copyright (C) 2025 Alex Gaetano Padula & VFSLite Contributors
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2.1 of the License, or (at your option) any later version.
//
// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public
// License along with this library; if not, write to the Free Software
// Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301  USA
package simfs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"simfs/disk"
	"simfs/log_service"
)

// BlockType tags every block in the descriptor table
type BlockType uint8

// Block types
const (
	BlockTypeFree       BlockType = 0
	BlockTypeDescriptor BlockType = 1 // blocks holding the descriptor table itself
	BlockTypeDirectory  BlockType = 2
	BlockTypeFile       BlockType = 3 // file control block
	BlockTypeData       BlockType = 4 // reserved file payload, content is not modeled
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeFree:
		return "free"
	case BlockTypeDescriptor:
		return "descriptor"
	case BlockTypeDirectory:
		return "directory"
	case BlockTypeFile:
		return "file"
	case BlockTypeData:
		return "data"
	default:
		return fmt.Sprintf("BlockType(%d)", uint8(t))
	}
}

const (
	DefaultBlockSize     = 5000
	DefaultTotalBlocks   = 800 // 4,000,000 byte disk
	DefaultMaxNameLength = 20
	DefaultParityShards  = 2
	DefaultRootName      = "root"

	DescriptorName = "descriptor"
)

// Options configures the geometry of a filesystem
type Options struct {
	BlockSize     uint32 // Size of each block in bytes
	TotalBlocks   uint64 // Number of blocks in the arena
	MaxNameLength int    // Longest name in bytes a record can hold
	ParityShards  int    // Parity shards protecting the descriptor table, 0 disables
	RootName      string // Name of the root directory
	Logger        log_service.LogService
}

func DefaultOptions() Options {
	return Options{
		BlockSize:     DefaultBlockSize,
		TotalBlocks:   DefaultTotalBlocks,
		MaxNameLength: DefaultMaxNameLength,
		ParityShards:  DefaultParityShards,
		RootName:      DefaultRootName,
	}
}

// FS is a block-structured filesystem held entirely in one memory arena.
// It is not safe for concurrent use; hosts serving concurrent callers must
// serialize every call.
type FS struct {
	opts      Options
	disk      *disk.Disk // nil until Format
	table     *descriptorTable
	rootBlock uint64
	ls        log_service.LogService
}

// Info describes the geometry and usage of a formatted filesystem
type Info struct {
	FsID              string
	BlockSize         uint32
	TotalBlocks       uint64
	DescriptorBlocks  uint64
	FreeBlocks        uint64
	MaxNameLength     int
	DirectoryCapacity int // children per directory record
	FileCapacity      int // data blocks per file record
	ParityShards      int
	CreatedOn         time.Time
}

// New validates opts and returns an unformatted filesystem. Every operation
// other than Format fails with ErrUninitialized until Format is called.
func New(opts Options) (*FS, error) {
	if opts.RootName == "" {
		opts.RootName = DefaultRootName
	}
	if opts.Logger == nil {
		opts.Logger = log_service.NopLogService{}
	}
	if opts.MaxNameLength < 1 || opts.MaxNameLength > 255 {
		return nil, fmt.Errorf("%w: max name length %d", ErrInvalidArgument, opts.MaxNameLength)
	}
	if opts.ParityShards < 0 {
		return nil, fmt.Errorf("%w: parity shards %d", ErrInvalidArgument, opts.ParityShards)
	}

	fs := &FS{opts: opts, ls: opts.Logger}

	if err := fs.validName(opts.RootName); err != nil {
		return nil, fmt.Errorf("root name: %w", err)
	}
	if fs.directoryCapacity() < 1 || fs.fileCapacity() < 1 {
		return nil, fmt.Errorf("%w: block size %d cannot hold a record with %d byte names", ErrInvalidArgument, opts.BlockSize, opts.MaxNameLength)
	}
	if opts.TotalBlocks <= fs.descriptorBlocks() {
		return nil, fmt.Errorf("%w: %d blocks leave no room beyond the %d descriptor blocks", ErrInvalidArgument, opts.TotalBlocks, fs.descriptorBlocks())
	}
	if err := disk.CheckGeometry(opts.BlockSize, opts.TotalBlocks, fs.descriptorBlocks(), opts.ParityShards); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	return fs, nil
}

// Formatted reports whether Format has completed
func (fs *FS) Formatted() bool {
	return fs.disk != nil
}

// Format allocates the arena, writes the descriptor table into its leading
// blocks and creates the root directory. Calling it again is a no-op.
func (fs *FS) Format() (Cursor, error) {
	if fs.disk != nil {
		return fs.RootCursor(), nil
	}

	d, err := disk.New(fs.opts.BlockSize, fs.opts.TotalBlocks, fs.descriptorBlocks(), fs.opts.ParityShards)
	if errors.Is(err, disk.ErrInvalidGeometry) {
		return Cursor{}, fmt.Errorf("failed to create disk: %w: %v", ErrInvalidArgument, err)
	}
	if err != nil {
		return Cursor{}, fmt.Errorf("failed to create disk: %w", err)
	}

	table := newDescriptorTable(d, fs.opts.MaxNameLength, fs.descriptorBlocks(), fs.ls)
	if err := table.format(); err != nil {
		return Cursor{}, err
	}

	root, err := table.allocate(fs.opts.RootName, BlockTypeDirectory)
	if err != nil {
		return Cursor{}, err
	}

	fs.disk = d
	fs.table = table
	fs.rootBlock = root

	if err := fs.writeDirectory(root, &DirectoryRecord{Name: fs.opts.RootName}); err != nil {
		fs.disk, fs.table = nil, nil
		return Cursor{}, err
	}

	h := d.Header()
	fs.ls.Info(log_service.LogEvent{
		Message: "Formatted disk",
		Metadata: map[string]any{
			"fsid":        h.FsID.String(),
			"bytes":       d.Size(),
			"blockSize":   h.BlockSize,
			"blocks":      h.TotalBlocks,
			"descriptor":  h.ProtectedBlocks,
			"rootBlock":   root,
			"parityShard": h.ParityShards,
		},
	})

	return fs.RootCursor(), nil
}

// RootCursor returns a cursor positioned at the root directory
func (fs *FS) RootCursor() Cursor {
	return Cursor{Directory: fs.opts.RootName}
}

// GetRootBlock returns the block holding the root directory record
func (fs *FS) GetRootBlock() uint64 {
	return fs.rootBlock
}

// Info returns geometry and usage figures
func (fs *FS) Info() (Info, error) {
	if err := fs.ready(); err != nil {
		return Info{}, err
	}
	free, err := fs.table.freeCount()
	if err != nil {
		return Info{}, err
	}
	h := fs.disk.Header()
	return Info{
		FsID:              h.FsID.String(),
		BlockSize:         h.BlockSize,
		TotalBlocks:       h.TotalBlocks,
		DescriptorBlocks:  h.ProtectedBlocks,
		FreeBlocks:        free,
		MaxNameLength:     fs.opts.MaxNameLength,
		DirectoryCapacity: fs.directoryCapacity(),
		FileCapacity:      fs.fileCapacity(),
		ParityShards:      h.ParityShards,
		CreatedOn:         time.Unix(h.CreatedOn, 0),
	}, nil
}

func (fs *FS) ready() error {
	if fs == nil || fs.disk == nil {
		return ErrUninitialized
	}
	return nil
}

func (fs *FS) descriptorBlocks() uint64 {
	return descriptorBlocks(fs.opts.TotalBlocks, fs.opts.BlockSize, fs.opts.MaxNameLength)
}

// validName checks a name that is about to be stored in a record
func (fs *FS) validName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidArgument)
	case name == "." || name == "..":
		return fmt.Errorf("%w: reserved name %q", ErrInvalidArgument, name)
	case len(name) > fs.opts.MaxNameLength:
		return fmt.Errorf("%w: name %q longer than %d bytes", ErrInvalidArgument, name, fs.opts.MaxNameLength)
	case strings.IndexByte(name, 0) >= 0:
		return fmt.Errorf("%w: name contains NUL", ErrInvalidArgument)
	}
	return nil
}

// DataBlocksFor returns how many data blocks a file of size bytes reserves
func (fs *FS) DataBlocksFor(size int64) int {
	bs := int64(fs.opts.BlockSize)
	n := size / bs
	if size%bs != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return int(n)
}
