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

	"simfs/log_service"
)

// allocate claims the lowest-indexed free block and stamps it with name and
// type. First-fit keeps allocation deterministic.
func (t *descriptorTable) allocate(name string, typ BlockType) (uint64, error) {
	buf, err := t.raw()
	if err != nil {
		return 0, err
	}
	es := t.entrySize()
	for i := uint64(0); i < t.total(); i++ {
		if buf[int(i)*es]&entryAllocated != 0 {
			continue
		}
		if err := t.put(DescriptorEntry{Block: i, Type: typ, Name: name}); err != nil {
			return 0, err
		}
		if indexed(typ) {
			t.names.Set(nameKey(name, typ), i, cache.NoExpiration)
		}
		t.ls.Debug(log_service.LogEvent{
			Message:  "Allocated block",
			Metadata: map[string]any{"block": i, "name": name, "type": typ.String()},
		})
		return i, nil
	}

	t.ls.Warn(log_service.LogEvent{
		Message:  "No free block",
		Metadata: map[string]any{"name": name, "type": typ.String()},
	})
	return 0, fmt.Errorf("%w: no free block for %q", ErrOutOfSpace, name)
}

// release returns block n to the free pool. It does not look at the record
// stored in the block; callers tear records down in the right order.
func (t *descriptorTable) release(n uint64) error {
	if n < t.blocks {
		return fmt.Errorf("%w: block %d belongs to the descriptor table", ErrInvalidArgument, n)
	}
	e, err := t.entry(n)
	if err != nil {
		return err
	}
	if !e.Free && indexed(e.Type) {
		t.names.Delete(nameKey(e.Name, e.Type))
	}
	if err := t.put(DescriptorEntry{Block: n, Free: true}); err != nil {
		return err
	}
	t.ls.Debug(log_service.LogEvent{
		Message:  "Released block",
		Metadata: map[string]any{"block": n, "name": e.Name, "type": e.Type.String()},
	})
	return nil
}

func (t *descriptorTable) freeCount() (uint64, error) {
	buf, err := t.raw()
	if err != nil {
		return 0, err
	}
	es := t.entrySize()
	var free uint64
	for i := 0; i < int(t.total()); i++ {
		if buf[i*es]&entryAllocated == 0 {
			free++
		}
	}
	return free, nil
}
