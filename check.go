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

	"simfs/disk"
	"simfs/log_service"
)

// Check verifies the descriptor table against its parity and then walks the
// whole tree, confirming that every record agrees with the table:
//   - each child entry resolves to a block of the stated type whose record
//     names this directory as its parent
//   - each data block is allocated as data and owned by exactly one file
//   - every allocated block is reachable from the root
//   - no two blocks share a (name, type) pair
//
// All findings are returned joined; each wraps ErrCorruptState.
func (fs *FS) Check() error {
	if err := fs.ready(); err != nil {
		return err
	}

	if err := fs.disk.Verify(); err != nil {
		fs.ls.Warn(log_service.LogEvent{Message: "Descriptor table failed verification", Metadata: map[string]any{"error": err.Error()}})
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	entries, err := fs.table.entries()
	if err != nil {
		return err
	}

	c := &checker{fs: fs, entries: entries, reached: make(map[uint64]bool), owner: make(map[uint64]string)}
	c.checkTable()
	c.checkDirectory(fs.rootBlock, "")
	c.checkReachable()

	if len(c.problems) > 0 {
		fs.ls.Warn(log_service.LogEvent{Message: "Consistency check failed", Metadata: map[string]any{"problems": len(c.problems)}})
	}
	return errors.Join(c.problems...)
}

type checker struct {
	fs       *FS
	entries  []DescriptorEntry
	reached  map[uint64]bool
	owner    map[uint64]string // data block -> owning file
	problems []error
}

func (c *checker) fail(format string, args ...any) {
	c.problems = append(c.problems, fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...)))
}

func (c *checker) checkTable() {
	seen := make(map[string]uint64)
	for _, e := range c.entries {
		if e.Block < c.fs.table.blocks {
			if e.Free || e.Type != BlockTypeDescriptor {
				c.fail("descriptor block %d is not reserved", e.Block)
			}
			continue
		}
		if e.Free {
			continue
		}
		switch e.Type {
		case BlockTypeDirectory, BlockTypeFile:
			key := nameKey(e.Name, e.Type)
			if prev, ok := seen[key]; ok {
				c.fail("%s %q allocated at blocks %d and %d", e.Type, e.Name, prev, e.Block)
			}
			seen[key] = e.Block
		case BlockTypeData:
		default:
			c.fail("block %d has type %s", e.Block, e.Type)
		}
	}
}

func (c *checker) checkDirectory(block uint64, parent string) {
	if c.reached[block] {
		c.fail("directory block %d reached twice", block)
		return
	}
	c.reached[block] = true

	dir, err := c.fs.readDirectory(block)
	if err != nil {
		c.problems = append(c.problems, err)
		return
	}
	if e := c.entries[block]; e.Free || e.Type != BlockTypeDirectory || e.Name != dir.Name {
		c.fail("directory %q at block %d disagrees with descriptor %+v", dir.Name, block, e)
	}
	if dir.Parent != parent {
		c.fail("directory %q names parent %q, listed under %q", dir.Name, dir.Parent, parent)
	}

	names := make(map[string]bool, len(dir.Children))
	for _, child := range dir.Children {
		if names[child.Name] {
			c.fail("directory %q lists %q twice", dir.Name, child.Name)
			continue
		}
		names[child.Name] = true

		cb, err := c.fs.table.find(child.Name, child.Type)
		if err != nil {
			c.fail("directory %q lists missing %s %q", dir.Name, child.Type, child.Name)
			continue
		}
		switch child.Type {
		case BlockTypeDirectory:
			c.checkDirectory(cb, dir.Name)
		case BlockTypeFile:
			c.checkFile(cb, dir.Name)
		default:
			c.fail("directory %q lists %q with type %s", dir.Name, child.Name, child.Type)
		}
	}
}

func (c *checker) checkFile(block uint64, parent string) {
	if c.reached[block] {
		c.fail("file block %d reached twice", block)
		return
	}
	c.reached[block] = true

	file, err := c.fs.readFile(block)
	if err != nil {
		c.problems = append(c.problems, err)
		return
	}
	if e := c.entries[block]; e.Name != file.Name {
		c.fail("file %q at block %d is named %q in the descriptor", file.Name, block, e.Name)
	}
	if file.Parent != parent {
		c.fail("file %q names parent %q, listed under %q", file.Name, file.Parent, parent)
	}
	if want := c.fs.DataBlocksFor(file.Size); len(file.DataBlocks) != want {
		c.fail("file %q of size %d holds %d data blocks, want %d", file.Name, file.Size, len(file.DataBlocks), want)
	}

	for _, db := range file.DataBlocks {
		if db >= uint64(len(c.entries)) {
			c.fail("file %q references block %d beyond the disk", file.Name, db)
			continue
		}
		if prev, ok := c.owner[db]; ok {
			c.fail("data block %d owned by both %q and %q", db, prev, file.Name)
			continue
		}
		c.owner[db] = file.Name
		c.reached[db] = true

		if e := c.entries[db]; e.Free || e.Type != BlockTypeData {
			c.fail("data block %d of %q is not allocated as data", db, file.Name)
		}
	}
}

func (c *checker) checkReachable() {
	for _, e := range c.entries {
		if e.Free || e.Block < c.fs.table.blocks || c.reached[e.Block] {
			continue
		}
		c.fail("%s block %d (%q) is allocated but unreachable", e.Type, e.Block, e.Name)
	}
}

// Repair rebuilds damaged descriptor blocks from parity and returns the
// blocks it rewrote.
func (fs *FS) Repair() ([]uint64, error) {
	if err := fs.ready(); err != nil {
		return nil, err
	}

	repaired, err := fs.disk.Repair()
	if err != nil {
		if errors.Is(err, disk.ErrUnrecoverable) {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		return nil, err
	}
	fs.table.names.Flush()

	if len(repaired) > 0 {
		fs.ls.Warn(log_service.LogEvent{Message: "Repaired descriptor blocks", Metadata: map[string]any{"blocks": repaired}})
	}
	return repaired, nil
}
