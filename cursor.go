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

import "fmt"

// Cursor is a caller's working directory, held by name. It is a plain value:
// operations take it as an argument and ChangeDirectory returns a new one.
type Cursor struct {
	Directory string
	Parent    string // empty at the root
}

// Renamed returns the cursor adjusted for the directory old having been
// renamed to new.
func (c Cursor) Renamed(old, new string) Cursor {
	if c.Directory == old {
		c.Directory = new
	}
	if c.Parent == old {
		c.Parent = new
	}
	return c
}

// ChangeDirectory moves the cursor. ".." goes to the parent and is a no-op
// at the root; "." stays put; any other name must be a child directory of
// the cursor's directory or the cursor's parent. On failure the returned
// cursor equals cur.
func (fs *FS) ChangeDirectory(cur Cursor, name string) (Cursor, error) {
	if err := fs.ready(); err != nil {
		return cur, err
	}

	switch name {
	case "":
		return cur, fmt.Errorf("chdir: %w: missing operand", ErrInvalidArgument)
	case ".":
		return cur, nil
	case "..":
		if cur.Parent == "" {
			return cur, nil
		}
		_, parent, err := fs.loadDirectory(cur.Parent)
		if err != nil {
			return cur, fmt.Errorf("chdir ..: %w", err)
		}
		return Cursor{Directory: parent.Name, Parent: parent.Parent}, nil
	}

	_, dir, err := fs.loadDirectory(cur.Directory)
	if err != nil {
		return cur, fmt.Errorf("chdir %q: %w", name, err)
	}
	child, ok := dir.Child(name)
	isChild := ok && child.Type == BlockTypeDirectory
	if !isChild && (cur.Parent == "" || name != cur.Parent) {
		return cur, fmt.Errorf("chdir %q: %w in %q", name, ErrNotFound, dir.Name)
	}

	_, target, err := fs.loadDirectory(name)
	if err != nil {
		return cur, fmt.Errorf("chdir %q: %w", name, err)
	}
	return Cursor{Directory: target.Name, Parent: target.Parent}, nil
}
