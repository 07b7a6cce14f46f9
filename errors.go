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

import "errors"

var (
	ErrUninitialized   = errors.New("filesystem not initialized")
	ErrNotFound        = errors.New("no such file or directory")
	ErrNameConflict    = errors.New("name already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfSpace      = errors.New("no space left on device")
	ErrCorruptState    = errors.New("filesystem state is corrupt")
)

// Kind returns the taxonomy name of err, or "" when err is nil or unknown.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUninitialized):
		return "Uninitialized"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrNameConflict):
		return "NameConflict"
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	case errors.Is(err, ErrOutOfSpace):
		return "OutOfSpace"
	case errors.Is(err, ErrCorruptState):
		return "CorruptState"
	default:
		return ""
	}
}
