// Package simfs tests
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
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
)

// smallOptions describes a 64 block disk of 512 byte blocks with 8 byte
// names. The descriptor table takes blocks 0 and 1, the root is block 2.
func smallOptions() Options {
	return Options{
		BlockSize:     512,
		TotalBlocks:   64,
		MaxNameLength: 8,
		ParityShards:  2,
		RootName:      "root",
	}
}

// newTestFS creates and formats a filesystem
func newTestFS(t *testing.T, opts Options) (*FS, Cursor) {
	t.Helper()
	fs, err := New(opts)
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	cur, err := fs.Format()
	if err != nil {
		t.Fatalf("Failed to format filesystem: %v", err)
	}
	return fs, cur
}

func freeBlocks(t *testing.T, fs *FS) uint64 {
	t.Helper()
	free, err := fs.FreeBlocks()
	if err != nil {
		t.Fatalf("Failed to count free blocks: %v", err)
	}
	return free
}

func mustCheck(t *testing.T, fs *FS) {
	t.Helper()
	if err := fs.Check(); err != nil {
		t.Fatalf("Consistency check failed: %v", err)
	}
}

// TestFormat tests formatting with the default geometry
func TestFormat(t *testing.T) {
	fs, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	if fs.Formatted() {
		t.Fatal("New filesystem should not be formatted")
	}

	cur, err := fs.Format()
	if err != nil {
		t.Fatalf("Failed to format: %v", err)
	}
	if cur != (Cursor{Directory: "root"}) {
		t.Fatalf("Unexpected root cursor: %+v", cur)
	}

	// 800 entries of 22 bytes need 4 blocks of 5000
	if fs.GetRootBlock() != 4 {
		t.Fatalf("Expected root at block 4, got %d", fs.GetRootBlock())
	}

	info, err := fs.Info()
	if err != nil {
		t.Fatalf("Failed to get info: %v", err)
	}
	if info.TotalBlocks != 800 || info.BlockSize != 5000 || info.DescriptorBlocks != 4 {
		t.Fatalf("Unexpected geometry: %+v", info)
	}
	if info.FreeBlocks != 795 {
		t.Fatalf("Expected 795 free blocks, got %d", info.FreeBlocks)
	}
	if info.DirectoryCapacity != 236 || info.FileCapacity != 618 {
		t.Fatalf("Unexpected record capacities: %d children, %d data blocks", info.DirectoryCapacity, info.FileCapacity)
	}
	if _, err := uuid.Parse(info.FsID); err != nil {
		t.Fatalf("FsID %q is not a UUID: %v", info.FsID, err)
	}

	for i := uint64(0); i < 4; i++ {
		e, err := fs.Entry(i)
		if err != nil {
			t.Fatalf("Failed to read entry %d: %v", i, err)
		}
		if e.Free || e.Type != BlockTypeDescriptor {
			t.Fatalf("Block %d should belong to the descriptor table, got %+v", i, e)
		}
	}
	e, err := fs.Entry(4)
	if err != nil {
		t.Fatalf("Failed to read root entry: %v", err)
	}
	if e.Free || e.Type != BlockTypeDirectory || e.Name != "root" {
		t.Fatalf("Unexpected root entry: %+v", e)
	}

	// Formatting again changes nothing
	if _, err := fs.Format(); err != nil {
		t.Fatalf("Failed to format again: %v", err)
	}
	if free := freeBlocks(t, fs); free != 795 {
		t.Fatalf("Second format changed free blocks to %d", free)
	}
	mustCheck(t, fs)
}

// TestUninitialized tests that every operation fails before Format
func TestUninitialized(t *testing.T) {
	fs, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	cur := Cursor{Directory: "root"}

	ops := map[string]func() error{
		"mkdir":  func() error { _, err := fs.MakeDirectory(cur, "a"); return err },
		"rmdir":  func() error { return fs.RemoveDirectory(cur, "a") },
		"mvdir":  func() error { return fs.RenameDirectory("a", "b") },
		"mkfil":  func() error { _, err := fs.MakeFile(cur, "a", 1); return err },
		"rmfil":  func() error { return fs.RemoveFile("a") },
		"mvfil":  func() error { return fs.RenameFile("a", "b") },
		"szfil":  func() error { _, err := fs.ResizeFile("a", 1); return err },
		"chdir":  func() error { _, err := fs.ChangeDirectory(cur, "a"); return err },
		"print":  func() error { return fs.PrintTree(&bytes.Buffer{}, "root") },
		"find":   func() error { _, err := fs.Find("a", BlockTypeFile); return err },
		"info":   func() error { _, err := fs.Info(); return err },
		"check":  func() error { return fs.Check() },
		"repair": func() error { _, err := fs.Repair(); return err },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrUninitialized) {
			t.Errorf("%s: expected ErrUninitialized, got %v", name, err)
		}
	}
}

func TestNewInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero name length", func(o *Options) { o.MaxNameLength = 0 }},
		{"name length too large", func(o *Options) { o.MaxNameLength = 256 }},
		{"negative parity", func(o *Options) { o.ParityShards = -1 }},
		{"reserved root name", func(o *Options) { o.RootName = ".." }},
		{"root name too long", func(o *Options) { o.RootName = "filesystem" }},
		{"zero block size", func(o *Options) { o.BlockSize = 0 }},
		{"block too small for a record", func(o *Options) { o.BlockSize = 24 }},
		{"no room past the descriptor", func(o *Options) { o.TotalBlocks = 1 }},
		{"wide parity with unaligned blocks", func(o *Options) {
			// 40000 entries of 22 bytes fill 8800 descriptor blocks
			o.BlockSize, o.TotalBlocks, o.MaxNameLength = 100, 40000, 20
		}},
		{"arena too large", func(o *Options) { o.BlockSize, o.TotalBlocks = 1<<20, 1<<20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := smallOptions()
			tt.modify(&opts)
			if _, err := New(opts); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

// TestWideParityFormat tests a descriptor table of more than 256 blocks
// under parity when the block size is 64 byte aligned
func TestWideParityFormat(t *testing.T) {
	opts := smallOptions()
	opts.BlockSize, opts.TotalBlocks = 64, 1700
	fs, cur := newTestFS(t, opts)
	info, err := fs.Info()
	if err != nil {
		t.Fatalf("Failed to get info: %v", err)
	}
	if info.DescriptorBlocks <= 256 {
		t.Fatalf("Expected more than 256 descriptor blocks, got %d", info.DescriptorBlocks)
	}
	if _, err := fs.MakeDirectory(cur, "docs"); err != nil {
		t.Fatalf("Failed to create docs: %v", err)
	}
	mustCheck(t, fs)
}

// TestDirectoryCapacityBound tests that a directory never holds more
// children than its record can count
func TestDirectoryCapacityBound(t *testing.T) {
	fs, err := New(Options{BlockSize: 200000, TotalBlocks: 8, MaxNameLength: 1, RootName: "r"})
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	if got := fs.directoryCapacity(); got != math.MaxUint16 {
		t.Fatalf("Expected capacity %d, got %d", math.MaxUint16, got)
	}
}

// TestEndToEnd walks through a short session with the default geometry
func TestEndToEnd(t *testing.T) {
	fs, cur := newTestFS(t, DefaultOptions())

	if _, err := fs.MakeDirectory(cur, "docs"); err != nil {
		t.Fatalf("Failed to create docs: %v", err)
	}
	block, err := fs.MakeFile(cur, "notes", 12000)
	if err != nil {
		t.Fatalf("Failed to create notes: %v", err)
	}
	file, err := fs.ReadFile(block)
	if err != nil {
		t.Fatalf("Failed to read notes: %v", err)
	}
	if len(file.DataBlocks) != 3 {
		t.Fatalf("Expected 3 data blocks, got %d", len(file.DataBlocks))
	}

	var out bytes.Buffer
	if err := fs.PrintTree(&out, "root"); err != nil {
		t.Fatalf("Failed to print tree: %v", err)
	}
	if want := "root:\n\tdocs\n\tnotes\ndocs:\n"; out.String() != want {
		t.Fatalf("Expected %q, got %q", want, out.String())
	}

	if err := fs.RenameFile("notes", "report"); err != nil {
		t.Fatalf("Failed to rename notes: %v", err)
	}
	if _, err := fs.Find("notes", BlockTypeFile); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected notes to be gone, got %v", err)
	}
	attr, err := fs.Stat("report", BlockTypeFile)
	if err != nil {
		t.Fatalf("Failed to stat report: %v", err)
	}
	if attr.Size != 12000 || attr.Block != block {
		t.Fatalf("Unexpected report attributes: %+v", attr)
	}
	mustCheck(t, fs)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUninitialized, "Uninitialized"},
		{ErrNotFound, "NotFound"},
		{ErrNameConflict, "NameConflict"},
		{ErrInvalidArgument, "InvalidArgument"},
		{ErrOutOfSpace, "OutOfSpace"},
		{ErrCorruptState, "CorruptState"},
		{errors.New("other"), ""},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	fs, cur := newTestFS(t, smallOptions())
	_, err := fs.MakeDirectory(cur, "")
	if got := Kind(err); got != "InvalidArgument" {
		t.Errorf("Expected wrapped error to classify as InvalidArgument, got %q (%v)", got, err)
	}
}

func TestDataBlocksFor(t *testing.T) {
	fs, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	tests := []struct {
		size int64
		want int
	}{
		{0, 1},
		{1, 1},
		{4999, 1},
		{5000, 1},
		{5001, 2},
		{12000, 3},
		{15000, 3},
		{math.MaxInt64, math.MaxInt64/5000 + 1},
	}
	for _, tt := range tests {
		if got := fs.DataBlocksFor(tt.size); got != tt.want {
			t.Errorf("DataBlocksFor(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}
