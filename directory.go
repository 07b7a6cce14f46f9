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

// MakeDirectory creates name as a child of the cursor's directory and
// returns the block holding its record.
func (fs *FS) MakeDirectory(cur Cursor, name string) (uint64, error) {
	if err := fs.ready(); err != nil {
		return 0, err
	}
	if err := fs.validName(name); err != nil {
		return 0, fmt.Errorf("mkdir %q: %w", name, err)
	}

	parentBlock, parent, err := fs.loadDirectory(cur.Directory)
	if err != nil {
		return 0, fmt.Errorf("mkdir %q: %w", name, err)
	}
	if _, ok := parent.Child(name); ok {
		return 0, fmt.Errorf("mkdir %q: %w in %q", name, ErrNameConflict, parent.Name)
	}
	if _, err := fs.table.find(name, BlockTypeDirectory); err == nil {
		return 0, fmt.Errorf("mkdir %q: %w: directory exists elsewhere", name, ErrNameConflict)
	}
	if len(parent.Children) >= fs.directoryCapacity() {
		return 0, fmt.Errorf("mkdir %q: %w: directory %q is full", name, ErrOutOfSpace, parent.Name)
	}

	block, err := fs.table.allocate(name, BlockTypeDirectory)
	if err != nil {
		return 0, fmt.Errorf("mkdir %q: %w", name, err)
	}
	if err := fs.writeDirectory(block, &DirectoryRecord{Name: name, Parent: parent.Name}); err != nil {
		return 0, err
	}

	parent.Children = append(parent.Children, ChildEntry{Name: name, Type: BlockTypeDirectory})
	if err := fs.writeDirectory(parentBlock, parent); err != nil {
		return 0, err
	}

	fs.ls.Debug(log_service.LogEvent{
		Message:  "Created directory",
		Metadata: map[string]any{"name": name, "parent": parent.Name, "block": block},
	})
	return block, nil
}

// RemoveDirectory deletes the child directory name of the cursor's directory
// together with everything below it.
func (fs *FS) RemoveDirectory(cur Cursor, name string) error {
	if err := fs.ready(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("rmdir: %w: missing operand", ErrInvalidArgument)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("rmdir %q: %w", name, ErrNotFound)
	}

	parentBlock, parent, err := fs.loadDirectory(cur.Directory)
	if err != nil {
		return fmt.Errorf("rmdir %q: %w", name, err)
	}
	child, ok := parent.Child(name)
	if !ok || child.Type != BlockTypeDirectory {
		return fmt.Errorf("rmdir %q: %w in %q", name, ErrNotFound, parent.Name)
	}
	block, err := fs.resolve(name, BlockTypeDirectory)
	if err != nil {
		return fmt.Errorf("rmdir %q: %w", name, err)
	}

	// Resolve the whole subtree before touching anything so a dangling
	// reference leaves the tree as it was.
	doomed, err := fs.collectSubtree(block, map[uint64]bool{})
	if err != nil {
		return fmt.Errorf("rmdir %q: %w", name, err)
	}

	parent.removeChild(name)
	if err := fs.writeDirectory(parentBlock, parent); err != nil {
		return err
	}
	for _, b := range doomed {
		if err := fs.table.release(b); err != nil {
			return err
		}
	}

	fs.ls.Debug(log_service.LogEvent{
		Message:  "Removed directory",
		Metadata: map[string]any{"name": name, "parent": parent.Name, "blocks": len(doomed)},
	})
	return nil
}

// collectSubtree lists every block owned by the directory at block, children
// before their parents and data blocks before their file's control block.
func (fs *FS) collectSubtree(block uint64, seen map[uint64]bool) ([]uint64, error) {
	if seen[block] {
		return nil, fmt.Errorf("%w: directory block %d reached twice", ErrCorruptState, block)
	}
	seen[block] = true

	dir, err := fs.readDirectory(block)
	if err != nil {
		return nil, err
	}

	var blocks []uint64
	for _, c := range dir.Children {
		switch c.Type {
		case BlockTypeDirectory:
			cb, err := fs.resolve(c.Name, BlockTypeDirectory)
			if err != nil {
				return nil, err
			}
			sub, err := fs.collectSubtree(cb, seen)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, sub...)
		case BlockTypeFile:
			fb, err := fs.resolve(c.Name, BlockTypeFile)
			if err != nil {
				return nil, err
			}
			file, err := fs.readFile(fb)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, file.DataBlocks...)
			blocks = append(blocks, fb)
		default:
			return nil, fmt.Errorf("%w: %q lists %q with type %s", ErrCorruptState, dir.Name, c.Name, c.Type)
		}
	}
	return append(blocks, block), nil
}

// RenameDirectory renames the directory name to newName. The parent's child
// entry and the back-reference of every direct child follow the new name.
func (fs *FS) RenameDirectory(name, newName string) error {
	if err := fs.ready(); err != nil {
		return err
	}
	if err := fs.validName(newName); err != nil {
		return fmt.Errorf("mvdir %q: %w", name, err)
	}

	block, err := fs.table.find(name, BlockTypeDirectory)
	if err != nil {
		return fmt.Errorf("mvdir %q: %w", name, err)
	}
	if block == fs.rootBlock {
		return fmt.Errorf("mvdir %q: %w: cannot rename the root directory", name, ErrInvalidArgument)
	}
	if _, err := fs.table.find(newName, BlockTypeDirectory); err == nil {
		return fmt.Errorf("mvdir %q: %w: directory %q exists", name, ErrNameConflict, newName)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	dir, err := fs.readDirectory(block)
	if err != nil {
		return err
	}
	parentBlock, err := fs.resolve(dir.Parent, BlockTypeDirectory)
	if err != nil {
		return fmt.Errorf("mvdir %q: %w", name, err)
	}
	parent, err := fs.readDirectory(parentBlock)
	if err != nil {
		return err
	}
	if _, ok := parent.Child(name); !ok {
		return fmt.Errorf("mvdir %q: %w: parent %q does not list it", name, ErrCorruptState, parent.Name)
	}
	if _, ok := parent.Child(newName); ok {
		return fmt.Errorf("mvdir %q: %w: %q exists in %q", name, ErrNameConflict, newName, parent.Name)
	}

	// stage: every child must resolve and decode before anything is written
	type fixup struct {
		block uint64
		dir   *DirectoryRecord
		file  *FileRecord
	}
	fixups := make([]fixup, 0, len(dir.Children))
	for _, c := range dir.Children {
		cb, err := fs.resolve(c.Name, c.Type)
		if err != nil {
			return fmt.Errorf("mvdir %q: %w", name, err)
		}
		f := fixup{block: cb}
		switch c.Type {
		case BlockTypeDirectory:
			f.dir, err = fs.readDirectory(cb)
		case BlockTypeFile:
			f.file, err = fs.readFile(cb)
		default:
			err = fmt.Errorf("%w: %q lists %q with type %s", ErrCorruptState, dir.Name, c.Name, c.Type)
		}
		if err != nil {
			return fmt.Errorf("mvdir %q: %w", name, err)
		}
		fixups = append(fixups, f)
	}

	dir.Name = newName
	if err := fs.writeDirectory(block, dir); err != nil {
		return err
	}
	if err := fs.table.rename(block, newName); err != nil {
		return err
	}
	parent.renameChild(name, newName)
	if err := fs.writeDirectory(parentBlock, parent); err != nil {
		return err
	}

	for _, f := range fixups {
		var err error
		if f.dir != nil {
			f.dir.Parent = newName
			err = fs.writeDirectory(f.block, f.dir)
		} else {
			f.file.Parent = newName
			err = fs.writeFile(f.block, f.file)
		}
		if err != nil {
			return err
		}
	}

	fs.ls.Debug(log_service.LogEvent{
		Message:  "Renamed directory",
		Metadata: map[string]any{"from": name, "to": newName, "block": block, "children": len(fixups)},
	})
	return nil
}
