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

	"github.com/patrickmn/go-cache"

	"simfs/disk"
	"simfs/log_service"
)

const entryAllocated = 1 << 0

// DescriptorEntry is one slot of the descriptor table
type DescriptorEntry struct {
	Block uint64
	Free  bool
	Type  BlockType // meaningful only when the block is allocated
	Name  string
}

// descriptorTable is the allocation authority. Its entries live in the
// leading blocks of the arena, laid out as flags(1) | type(1) | name(N).
// The name cache only accelerates lookups; every hit is checked against the
// table before it is trusted.
type descriptorTable struct {
	disk    *disk.Disk
	nameLen int
	blocks  uint64 // number of arena blocks the table occupies
	names   *cache.Cache
	ls      log_service.LogService
}

func descriptorBlocks(totalBlocks uint64, blockSize uint32, nameLen int) uint64 {
	size := totalBlocks * uint64(2+nameLen)
	return (size + uint64(blockSize) - 1) / uint64(blockSize)
}

func newDescriptorTable(d *disk.Disk, nameLen int, blocks uint64, ls log_service.LogService) *descriptorTable {
	return &descriptorTable{
		disk:    d,
		nameLen: nameLen,
		blocks:  blocks,
		names:   cache.New(cache.NoExpiration, 0),
		ls:      ls,
	}
}

func (t *descriptorTable) entrySize() int {
	return 2 + t.nameLen
}

func (t *descriptorTable) total() uint64 {
	return t.disk.TotalBlocks()
}

func nameKey(name string, typ BlockType) string {
	return fmt.Sprintf("%d/%s", typ, name)
}

// indexed reports whether blocks of this type are resolvable by name
func indexed(typ BlockType) bool {
	return typ == BlockTypeDirectory || typ == BlockTypeFile
}

func (t *descriptorTable) encode(e DescriptorEntry) []byte {
	buf := make([]byte, t.entrySize())
	if !e.Free {
		buf[0] = entryAllocated
		buf[1] = byte(e.Type)
		putName(buf[2:], e.Name)
	}
	return buf
}

func (t *descriptorTable) decode(n uint64, buf []byte) DescriptorEntry {
	e := DescriptorEntry{Block: n, Free: buf[0]&entryAllocated == 0}
	if !e.Free {
		e.Type = BlockType(buf[1])
		e.Name = getName(buf[2:t.entrySize()])
	}
	return e
}

// format marks the table's own blocks as permanently allocated
func (t *descriptorTable) format() error {
	name := DescriptorName
	if len(name) > t.nameLen {
		name = name[:t.nameLen]
	}
	for i := uint64(0); i < t.blocks; i++ {
		if err := t.put(DescriptorEntry{Block: i, Type: BlockTypeDescriptor, Name: name}); err != nil {
			return err
		}
	}
	t.ls.Debug(log_service.LogEvent{
		Message:  "Descriptor table written",
		Metadata: map[string]any{"blocks": t.blocks, "entries": t.total()},
	})
	return nil
}

func (t *descriptorTable) entry(n uint64) (DescriptorEntry, error) {
	if n >= t.total() {
		return DescriptorEntry{}, fmt.Errorf("%w: block %d out of range", ErrInvalidArgument, n)
	}
	buf := make([]byte, t.entrySize())
	if _, err := t.disk.ReadAt(buf, int64(n)*int64(t.entrySize())); err != nil {
		return DescriptorEntry{}, fmt.Errorf("failed to read descriptor entry %d: %w", n, err)
	}
	return t.decode(n, buf), nil
}

func (t *descriptorTable) put(e DescriptorEntry) error {
	if e.Block >= t.total() {
		return fmt.Errorf("%w: block %d out of range", ErrInvalidArgument, e.Block)
	}
	if _, err := t.disk.WriteAt(t.encode(e), int64(e.Block)*int64(t.entrySize())); err != nil {
		return fmt.Errorf("failed to write descriptor entry %d: %w", e.Block, err)
	}
	return nil
}

// raw returns the encoded table for linear scans
func (t *descriptorTable) raw() ([]byte, error) {
	buf := make([]byte, int(t.total())*t.entrySize())
	if _, err := t.disk.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("failed to read descriptor table: %w", err)
	}
	return buf, nil
}

func (t *descriptorTable) entries() ([]DescriptorEntry, error) {
	buf, err := t.raw()
	if err != nil {
		return nil, err
	}
	es := t.entrySize()
	out := make([]DescriptorEntry, t.total())
	for i := range out {
		out[i] = t.decode(uint64(i), buf[i*es:(i+1)*es])
	}
	return out, nil
}

// find returns the lowest allocated block carrying name with the given type
func (t *descriptorTable) find(name string, typ BlockType) (uint64, error) {
	key := nameKey(name, typ)
	if v, ok := t.names.Get(key); ok {
		n := v.(uint64)
		if e, err := t.entry(n); err == nil && !e.Free && e.Type == typ && e.Name == name {
			return n, nil
		}
		t.names.Delete(key)
	}

	buf, err := t.raw()
	if err != nil {
		return 0, err
	}
	es := t.entrySize()
	for i := uint64(0); i < t.total(); i++ {
		e := t.decode(i, buf[int(i)*es:int(i+1)*es])
		if !e.Free && e.Type == typ && e.Name == name {
			if indexed(typ) {
				t.names.Set(key, i, cache.NoExpiration)
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrNotFound, typ, name)
}

// rename rewrites the name slot of an allocated block
func (t *descriptorTable) rename(n uint64, name string) error {
	e, err := t.entry(n)
	if err != nil {
		return err
	}
	if e.Free {
		return fmt.Errorf("%w: rename of free block %d", ErrCorruptState, n)
	}
	t.names.Delete(nameKey(e.Name, e.Type))

	old := e.Name
	e.Name = name
	if err := t.put(e); err != nil {
		return err
	}
	t.ls.Debug(log_service.LogEvent{
		Message:  "Renamed descriptor entry",
		Metadata: map[string]any{"block": n, "from": old, "to": name},
	})
	return nil
}
