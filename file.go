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

	"simfs/log_service"
)

// MakeFile creates a file of the given declared size in the cursor's
// directory. One control block holds the record and DataBlocksFor(size)
// further blocks are reserved for its payload. Capacity is checked up front,
// so a failed create leaves nothing allocated.
func (fs *FS) MakeFile(cur Cursor, name string, size int64) (uint64, error) {
	if err := fs.ready(); err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("mkfil %q: %w: negative size %d", name, ErrInvalidArgument, size)
	}
	if err := fs.validName(name); err != nil {
		return 0, fmt.Errorf("mkfil %q: %w", name, err)
	}

	parentBlock, parent, err := fs.loadDirectory(cur.Directory)
	if err != nil {
		return 0, fmt.Errorf("mkfil %q: %w", name, err)
	}
	if _, ok := parent.Child(name); ok {
		return 0, fmt.Errorf("mkfil %q: %w in %q", name, ErrNameConflict, parent.Name)
	}
	if _, err := fs.table.find(name, BlockTypeFile); err == nil {
		return 0, fmt.Errorf("mkfil %q: %w: file exists elsewhere", name, ErrNameConflict)
	}

	block, err := fs.createFile(parentBlock, parent, name, size)
	if err != nil {
		return 0, fmt.Errorf("mkfil %q: %w", name, err)
	}
	return block, nil
}

// createFile allocates and links a file under parent
func (fs *FS) createFile(parentBlock uint64, parent *DirectoryRecord, name string, size int64) (uint64, error) {
	n := fs.DataBlocksFor(size)
	if n > fs.fileCapacity() {
		return 0, fmt.Errorf("%w: size %d needs %d data blocks, a file holds at most %d", ErrInvalidArgument, size, n, fs.fileCapacity())
	}
	if len(parent.Children) >= fs.directoryCapacity() {
		return 0, fmt.Errorf("%w: directory %q is full", ErrOutOfSpace, parent.Name)
	}
	free, err := fs.table.freeCount()
	if err != nil {
		return 0, err
	}
	if free < uint64(n)+1 {
		return 0, fmt.Errorf("%w: need %d blocks, %d free", ErrOutOfSpace, n+1, free)
	}

	block, err := fs.table.allocate(name, BlockTypeFile)
	if err != nil {
		return 0, err
	}
	rec := &FileRecord{
		Name:       name,
		Parent:     parent.Name,
		Size:       size,
		DataBlocks: make([]uint64, 0, n),
	}
	for i := 0; i < n; i++ {
		db, err := fs.table.allocate(name, BlockTypeData)
		if err != nil {
			return 0, err
		}
		rec.DataBlocks = append(rec.DataBlocks, db)
	}
	if err := fs.writeFile(block, rec); err != nil {
		return 0, err
	}

	parent.Children = append(parent.Children, ChildEntry{Name: name, Type: BlockTypeFile})
	if err := fs.writeDirectory(parentBlock, parent); err != nil {
		return 0, err
	}

	fs.ls.Debug(log_service.LogEvent{
		Message:  "Created file",
		Metadata: map[string]any{"name": name, "parent": parent.Name, "block": block, "size": size, "dataBlocks": n},
	})
	return block, nil
}

// openFile resolves a file together with its parent directory
func (fs *FS) openFile(name string) (uint64, *FileRecord, uint64, *DirectoryRecord, error) {
	block, err := fs.table.find(name, BlockTypeFile)
	if err != nil {
		return 0, nil, 0, nil, err
	}
	file, err := fs.readFile(block)
	if err != nil {
		return 0, nil, 0, nil, err
	}
	parentBlock, err := fs.resolve(file.Parent, BlockTypeDirectory)
	if err != nil {
		return 0, nil, 0, nil, err
	}
	parent, err := fs.readDirectory(parentBlock)
	if err != nil {
		return 0, nil, 0, nil, err
	}
	if _, ok := parent.Child(name); !ok {
		return 0, nil, 0, nil, fmt.Errorf("%w: %q does not list file %q", ErrCorruptState, parent.Name, name)
	}
	return block, file, parentBlock, parent, nil
}

// RemoveFile deletes the file name, releasing its data blocks and then its
// control block.
func (fs *FS) RemoveFile(name string) error {
	if err := fs.ready(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("rmfil: %w: missing operand", ErrInvalidArgument)
	}

	block, file, parentBlock, parent, err := fs.openFile(name)
	if err != nil {
		return fmt.Errorf("rmfil %q: %w", name, err)
	}
	if err := fs.unlinkFile(block, file, parentBlock, parent); err != nil {
		return fmt.Errorf("rmfil %q: %w", name, err)
	}
	return nil
}

func (fs *FS) unlinkFile(block uint64, file *FileRecord, parentBlock uint64, parent *DirectoryRecord) error {
	parent.removeChild(file.Name)
	if err := fs.writeDirectory(parentBlock, parent); err != nil {
		return err
	}
	for _, db := range file.DataBlocks {
		if err := fs.table.release(db); err != nil {
			return err
		}
	}
	if err := fs.table.release(block); err != nil {
		return err
	}

	fs.ls.Debug(log_service.LogEvent{
		Message:  "Removed file",
		Metadata: map[string]any{"name": file.Name, "parent": parent.Name, "block": block, "dataBlocks": len(file.DataBlocks)},
	})
	return nil
}

// RenameFile renames the file name to newName within its directory. Size and
// data blocks are left as they are.
func (fs *FS) RenameFile(name, newName string) error {
	if err := fs.ready(); err != nil {
		return err
	}
	if err := fs.validName(newName); err != nil {
		return fmt.Errorf("mvfil %q: %w", name, err)
	}

	block, file, parentBlock, parent, err := fs.openFile(name)
	if err != nil {
		return fmt.Errorf("mvfil %q: %w", name, err)
	}
	if _, ok := parent.Child(newName); ok {
		return fmt.Errorf("mvfil %q: %w: %q exists in %q", name, ErrNameConflict, newName, parent.Name)
	}
	if _, err := fs.table.find(newName, BlockTypeFile); err == nil {
		return fmt.Errorf("mvfil %q: %w: file %q exists elsewhere", name, ErrNameConflict, newName)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	parent.renameChild(name, newName)
	if err := fs.writeDirectory(parentBlock, parent); err != nil {
		return err
	}
	if err := fs.table.rename(block, newName); err != nil {
		return err
	}
	for _, db := range file.DataBlocks {
		if err := fs.table.rename(db, newName); err != nil {
			return err
		}
	}
	file.Name = newName
	if err := fs.writeFile(block, file); err != nil {
		return err
	}

	fs.ls.Debug(log_service.LogEvent{
		Message:  "Renamed file",
		Metadata: map[string]any{"from": name, "to": newName, "block": block},
	})
	return nil
}

// ResizeFile gives the file name a new declared size by removing it and
// creating it again in the same directory. The data blocks are allocated
// afresh, first-fit, so their placement may change, and the file moves to
// the end of its directory listing. If the new footprint cannot fit, the
// file is left untouched.
func (fs *FS) ResizeFile(name string, size int64) (uint64, error) {
	if err := fs.ready(); err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("szfil %q: %w: negative size %d", name, ErrInvalidArgument, size)
	}

	block, file, parentBlock, parent, err := fs.openFile(name)
	if err != nil {
		return 0, fmt.Errorf("szfil %q: %w", name, err)
	}

	n := fs.DataBlocksFor(size)
	if n > fs.fileCapacity() {
		return 0, fmt.Errorf("szfil %q: %w: size %d needs %d data blocks, a file holds at most %d", name, ErrInvalidArgument, size, n, fs.fileCapacity())
	}
	free, err := fs.table.freeCount()
	if err != nil {
		return 0, err
	}
	reclaimable := uint64(len(file.DataBlocks)) + 1
	if free+reclaimable < uint64(n)+1 {
		return 0, fmt.Errorf("szfil %q: %w: need %d blocks, %d available", name, ErrOutOfSpace, n+1, free+reclaimable)
	}

	if err := fs.unlinkFile(block, file, parentBlock, parent); err != nil {
		return 0, fmt.Errorf("szfil %q: %w", name, err)
	}
	newBlock, err := fs.createFile(parentBlock, parent, name, size)
	if err != nil {
		return 0, fmt.Errorf("szfil %q: %w", name, err)
	}
	return newBlock, nil
}
