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
	"fmt"
	"io"
)

// Listing is one directory in a tree walk: its name and immediate children
type Listing struct {
	Name     string
	Block    uint64
	Children []ChildEntry
}

// Tree walks the hierarchy below the directory root depth first, pre-order.
// Files are leaves. A directory reached twice means the on-disk tree has a
// cycle and yields ErrCorruptState.
func (fs *FS) Tree(root string) ([]Listing, error) {
	if err := fs.ready(); err != nil {
		return nil, err
	}
	block, err := fs.table.find(root, BlockTypeDirectory)
	if err != nil {
		return nil, fmt.Errorf("print %q: %w", root, err)
	}

	var out []Listing
	if err := fs.walk(block, map[uint64]bool{}, &out); err != nil {
		return nil, fmt.Errorf("print %q: %w", root, err)
	}
	return out, nil
}

func (fs *FS) walk(block uint64, seen map[uint64]bool, out *[]Listing) error {
	if seen[block] {
		return fmt.Errorf("%w: directory block %d reached twice", ErrCorruptState, block)
	}
	seen[block] = true

	dir, err := fs.readDirectory(block)
	if err != nil {
		return err
	}
	*out = append(*out, Listing{Name: dir.Name, Block: block, Children: dir.Children})

	for _, c := range dir.Children {
		if c.Type != BlockTypeDirectory {
			continue
		}
		cb, err := fs.resolve(c.Name, BlockTypeDirectory)
		if err != nil {
			return err
		}
		if err := fs.walk(cb, seen, out); err != nil {
			return err
		}
	}
	return nil
}

// PrintTree writes the walk from root as "name:" lines each followed by one
// tab-indented line per child.
func (fs *FS) PrintTree(w io.Writer, root string) error {
	listings, err := fs.Tree(root)
	if err != nil {
		return err
	}
	for _, l := range listings {
		if _, err := fmt.Fprintf(w, "%s:\n", l.Name); err != nil {
			return err
		}
		for _, c := range l.Children {
			if _, err := fmt.Fprintf(w, "\t%s\n", c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find returns the block allocated to name with the given type
func (fs *FS) Find(name string, typ BlockType) (uint64, error) {
	if err := fs.ready(); err != nil {
		return 0, err
	}
	return fs.table.find(name, typ)
}

// Lookup returns the child entry name of the cursor's directory
func (fs *FS) Lookup(cur Cursor, name string) (ChildEntry, error) {
	if err := fs.ready(); err != nil {
		return ChildEntry{}, err
	}
	_, dir, err := fs.loadDirectory(cur.Directory)
	if err != nil {
		return ChildEntry{}, err
	}
	child, ok := dir.Child(name)
	if !ok {
		return ChildEntry{}, fmt.Errorf("%w: %q in %q", ErrNotFound, name, dir.Name)
	}
	return child, nil
}

// Attributes describes one directory or file
type Attributes struct {
	Name       string
	Parent     string
	Type       BlockType
	Block      uint64
	Size       int64    // files only
	DataBlocks []uint64 // files only
	Children   int      // directories only
}

// Stat returns the attributes of the directory or file name
func (fs *FS) Stat(name string, typ BlockType) (*Attributes, error) {
	if err := fs.ready(); err != nil {
		return nil, err
	}

	switch typ {
	case BlockTypeDirectory:
		block, dir, err := fs.loadDirectory(name)
		if err != nil {
			return nil, err
		}
		return &Attributes{
			Name:     dir.Name,
			Parent:   dir.Parent,
			Type:     typ,
			Block:    block,
			Children: len(dir.Children),
		}, nil
	case BlockTypeFile:
		block, err := fs.table.find(name, BlockTypeFile)
		if err != nil {
			return nil, err
		}
		file, err := fs.readFile(block)
		if err != nil {
			return nil, err
		}
		return &Attributes{
			Name:       file.Name,
			Parent:     file.Parent,
			Type:       typ,
			Block:      block,
			Size:       file.Size,
			DataBlocks: file.DataBlocks,
		}, nil
	default:
		return nil, fmt.Errorf("%w: stat of %s", ErrInvalidArgument, typ)
	}
}

// Entry returns the descriptor table slot for block
func (fs *FS) Entry(block uint64) (DescriptorEntry, error) {
	if err := fs.ready(); err != nil {
		return DescriptorEntry{}, err
	}
	return fs.table.entry(block)
}

// Descriptor returns every allocated descriptor slot in block order
func (fs *FS) Descriptor() ([]DescriptorEntry, error) {
	if err := fs.ready(); err != nil {
		return nil, err
	}
	all, err := fs.table.entries()
	if err != nil {
		return nil, err
	}
	used := all[:0]
	for _, e := range all {
		if !e.Free {
			used = append(used, e)
		}
	}
	return used, nil
}

// FreeBlocks returns the number of unallocated blocks
func (fs *FS) FreeBlocks() (uint64, error) {
	if err := fs.ready(); err != nil {
		return 0, err
	}
	return fs.table.freeCount()
}
