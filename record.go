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
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Record layouts, N = MaxNameLength:
//
//	directory: type(1) | childCount(2) | name(N) | parent(N) | childCount x (type(1) | name(N))
//	file:      type(1) | name(N) | parent(N) | size(8) | dataCount(4) | dataCount x block(8)
const (
	directoryHeaderSize = 3
	fileHeaderSize      = 13
	blockRefSize        = 8
)

// ChildEntry is one (name, type) pair of a directory's child list
type ChildEntry struct {
	Name string
	Type BlockType
}

// DirectoryRecord is the record stored in a directory's block
type DirectoryRecord struct {
	Name     string
	Parent   string // empty for the root
	Children []ChildEntry
}

// FileRecord is the record stored in a file's control block
type FileRecord struct {
	Name       string
	Parent     string
	Size       int64
	DataBlocks []uint64
}

func (d *DirectoryRecord) indexOf(name string) int {
	return slices.IndexFunc(d.Children, func(c ChildEntry) bool { return c.Name == name })
}

// Child looks up a child by name
func (d *DirectoryRecord) Child(name string) (ChildEntry, bool) {
	if i := d.indexOf(name); i >= 0 {
		return d.Children[i], true
	}
	return ChildEntry{}, false
}

// removeChild drops name from the child list, keeping the order of the rest
func (d *DirectoryRecord) removeChild(name string) bool {
	i := d.indexOf(name)
	if i < 0 {
		return false
	}
	d.Children = slices.Delete(d.Children, i, i+1)
	return true
}

func (d *DirectoryRecord) renameChild(name, newName string) bool {
	i := d.indexOf(name)
	if i < 0 {
		return false
	}
	d.Children[i].Name = newName
	return true
}

func putName(buf []byte, name string) {
	n := copy(buf, name)
	clear(buf[n:])
}

func getName(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

// directoryCapacity is bounded by the 2 byte child count
func (fs *FS) directoryCapacity() int {
	n := fs.opts.MaxNameLength
	return min((int(fs.opts.BlockSize)-directoryHeaderSize-2*n)/(1+n), math.MaxUint16)
}

func (fs *FS) fileCapacity() int {
	n := fs.opts.MaxNameLength
	return (int(fs.opts.BlockSize) - fileHeaderSize - 2*n) / blockRefSize
}

func (fs *FS) encodeDirectory(rec *DirectoryRecord) ([]byte, error) {
	if len(rec.Children) > fs.directoryCapacity() {
		return nil, fmt.Errorf("%w: directory %q holds %d children, capacity %d", ErrOutOfSpace, rec.Name, len(rec.Children), fs.directoryCapacity())
	}
	n := fs.opts.MaxNameLength
	buf := make([]byte, directoryHeaderSize+2*n+len(rec.Children)*(1+n))
	buf[0] = byte(BlockTypeDirectory)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(rec.Children)))
	putName(buf[3:3+n], rec.Name)
	putName(buf[3+n:3+2*n], rec.Parent)

	off := directoryHeaderSize + 2*n
	for _, c := range rec.Children {
		buf[off] = byte(c.Type)
		putName(buf[off+1:off+1+n], c.Name)
		off += 1 + n
	}
	return buf, nil
}

func (fs *FS) decodeDirectory(block uint64, buf []byte) (*DirectoryRecord, error) {
	n := fs.opts.MaxNameLength
	if BlockType(buf[0]) != BlockTypeDirectory {
		return nil, fmt.Errorf("%w: block %d holds a %s record, want directory", ErrCorruptState, block, BlockType(buf[0]))
	}
	count := int(binary.LittleEndian.Uint16(buf[1:3]))
	if count > fs.directoryCapacity() {
		return nil, fmt.Errorf("%w: block %d claims %d children", ErrCorruptState, block, count)
	}

	rec := &DirectoryRecord{
		Name:     getName(buf[3 : 3+n]),
		Parent:   getName(buf[3+n : 3+2*n]),
		Children: make([]ChildEntry, 0, count),
	}
	off := directoryHeaderSize + 2*n
	for i := 0; i < count; i++ {
		rec.Children = append(rec.Children, ChildEntry{
			Type: BlockType(buf[off]),
			Name: getName(buf[off+1 : off+1+n]),
		})
		off += 1 + n
	}
	return rec, nil
}

func (fs *FS) encodeFile(rec *FileRecord) ([]byte, error) {
	if len(rec.DataBlocks) > fs.fileCapacity() {
		return nil, fmt.Errorf("%w: file %q needs %d data blocks, capacity %d", ErrInvalidArgument, rec.Name, len(rec.DataBlocks), fs.fileCapacity())
	}
	n := fs.opts.MaxNameLength
	buf := make([]byte, fileHeaderSize+2*n+len(rec.DataBlocks)*blockRefSize)
	buf[0] = byte(BlockTypeFile)
	putName(buf[1:1+n], rec.Name)
	putName(buf[1+n:1+2*n], rec.Parent)

	off := 1 + 2*n
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(rec.Size))
	binary.LittleEndian.PutUint32(buf[off+8:off+12], uint32(len(rec.DataBlocks)))
	off += 12
	for _, b := range rec.DataBlocks {
		binary.LittleEndian.PutUint64(buf[off:off+blockRefSize], b)
		off += blockRefSize
	}
	return buf, nil
}

func (fs *FS) decodeFile(block uint64, buf []byte) (*FileRecord, error) {
	n := fs.opts.MaxNameLength
	if BlockType(buf[0]) != BlockTypeFile {
		return nil, fmt.Errorf("%w: block %d holds a %s record, want file", ErrCorruptState, block, BlockType(buf[0]))
	}

	off := 1 + 2*n
	rec := &FileRecord{
		Name:   getName(buf[1 : 1+n]),
		Parent: getName(buf[1+n : 1+2*n]),
		Size:   int64(binary.LittleEndian.Uint64(buf[off : off+8])),
	}
	count := int(binary.LittleEndian.Uint32(buf[off+8 : off+12]))
	if count > fs.fileCapacity() {
		return nil, fmt.Errorf("%w: block %d claims %d data blocks", ErrCorruptState, block, count)
	}
	off += 12

	rec.DataBlocks = make([]uint64, count)
	for i := range rec.DataBlocks {
		rec.DataBlocks[i] = binary.LittleEndian.Uint64(buf[off : off+blockRefSize])
		off += blockRefSize
	}
	return rec, nil
}

func (fs *FS) readDirectory(block uint64) (*DirectoryRecord, error) {
	buf, err := fs.disk.ReadBlock(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return fs.decodeDirectory(block, buf)
}

func (fs *FS) writeDirectory(block uint64, rec *DirectoryRecord) error {
	buf, err := fs.encodeDirectory(rec)
	if err != nil {
		return err
	}
	return fs.disk.WriteBlock(block, buf)
}

func (fs *FS) readFile(block uint64) (*FileRecord, error) {
	buf, err := fs.disk.ReadBlock(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return fs.decodeFile(block, buf)
}

func (fs *FS) writeFile(block uint64, rec *FileRecord) error {
	buf, err := fs.encodeFile(rec)
	if err != nil {
		return err
	}
	return fs.disk.WriteBlock(block, buf)
}

// ReadDirectory decodes the directory record stored at block
func (fs *FS) ReadDirectory(block uint64) (*DirectoryRecord, error) {
	if err := fs.ready(); err != nil {
		return nil, err
	}
	return fs.readDirectory(block)
}

// ReadFile decodes the file record stored at block
func (fs *FS) ReadFile(block uint64) (*FileRecord, error) {
	if err := fs.ready(); err != nil {
		return nil, err
	}
	return fs.readFile(block)
}

// resolve maps a name referenced by another record back to its block. A
// miss means the referencing record and the descriptor table disagree.
func (fs *FS) resolve(name string, typ BlockType) (uint64, error) {
	block, err := fs.table.find(name, typ)
	if err != nil {
		return 0, fmt.Errorf("%w: dangling reference to %s %q", ErrCorruptState, typ, name)
	}
	return block, nil
}

// loadDirectory finds a directory by name and decodes it
func (fs *FS) loadDirectory(name string) (uint64, *DirectoryRecord, error) {
	block, err := fs.table.find(name, BlockTypeDirectory)
	if err != nil {
		return 0, nil, err
	}
	rec, err := fs.readDirectory(block)
	if err != nil {
		return 0, nil, err
	}
	return block, rec, nil
}
