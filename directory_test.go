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
	"errors"
	"testing"
)

// TestMakeDirectory tests creating nested directories
func TestMakeDirectory(t *testing.T) {
	fs, cur := newTestFS(t, smallOptions())
	before := freeBlocks(t, fs)

	block, err := fs.MakeDirectory(cur, "a")
	if err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if block != 3 {
		t.Fatalf("Expected first-fit block 3, got %d", block)
	}

	dir, err := fs.ReadDirectory(block)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	if dir.Name != "a" || dir.Parent != "root" || len(dir.Children) != 0 {
		t.Fatalf("Unexpected directory record: %+v", dir)
	}

	root, err := fs.ReadDirectory(fs.GetRootBlock())
	if err != nil {
		t.Fatalf("Failed to read root: %v", err)
	}
	if c, ok := root.Child("a"); !ok || c.Type != BlockTypeDirectory {
		t.Fatalf("Root does not list a: %+v", root.Children)
	}

	cur, err = fs.ChangeDirectory(cur, "a")
	if err != nil {
		t.Fatalf("Failed to change into a: %v", err)
	}
	if _, err := fs.MakeDirectory(cur, "b"); err != nil {
		t.Fatalf("Failed to create nested directory: %v", err)
	}
	attr, err := fs.Stat("b", BlockTypeDirectory)
	if err != nil {
		t.Fatalf("Failed to stat b: %v", err)
	}
	if attr.Parent != "a" {
		t.Fatalf("Expected b under a, got %q", attr.Parent)
	}

	if free := freeBlocks(t, fs); free != before-2 {
		t.Fatalf("Expected %d free blocks, got %d", before-2, free)
	}
	mustCheck(t, fs)
}

func TestMakeDirectoryErrors(t *testing.T) {
	fs, cur := newTestFS(t, smallOptions())
	if _, err := fs.MakeDirectory(cur, "a"); err != nil {
		t.Fatalf("Failed to create a: %v", err)
	}
	if _, err := fs.MakeFile(cur, "f", 1); err != nil {
		t.Fatalf("Failed to create f: %v", err)
	}
	inA, err := fs.ChangeDirectory(cur, "a")
	if err != nil {
		t.Fatalf("Failed to change into a: %v", err)
	}
	before := freeBlocks(t, fs)

	tests := []struct {
		name    string
		cur     Cursor
		dirName string
		want    error
	}{
		{"duplicate directory", cur, "a", ErrNameConflict},
		{"file of the same name", cur, "f", ErrNameConflict},
		{"directory elsewhere", inA, "a", ErrNameConflict},
		{"empty name", cur, "", ErrInvalidArgument},
		{"dot", cur, ".", ErrInvalidArgument},
		{"dot dot", cur, "..", ErrInvalidArgument},
		{"too long", cur, "abcdefghi", ErrInvalidArgument},
		{"missing cursor directory", Cursor{Directory: "gone", Parent: "root"}, "x", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fs.MakeDirectory(tt.cur, tt.dirName); !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if free := freeBlocks(t, fs); free != before {
				t.Fatalf("Failed mkdir changed free blocks from %d to %d", before, free)
			}
		})
	}
	mustCheck(t, fs)
}

// TestMakeDirectoryFull tests that a full directory record refuses children
func TestMakeDirectoryFull(t *testing.T) {
	opts := smallOptions()
	opts.BlockSize = 64 // (64-3-16)/9 = 5 children per directory
	fs, cur := newTestFS(t, opts)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		if _, err := fs.MakeDirectory(cur, name); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
	before := freeBlocks(t, fs)

	if _, err := fs.MakeDirectory(cur, "f"); !errors.Is(err, ErrOutOfSpace) {
		t.Fatalf("Expected ErrOutOfSpace, got %v", err)
	}
	if _, err := fs.MakeFile(cur, "g", 1); !errors.Is(err, ErrOutOfSpace) {
		t.Fatalf("Expected ErrOutOfSpace for a file, got %v", err)
	}
	if free := freeBlocks(t, fs); free != before {
		t.Fatalf("Failed creates changed free blocks from %d to %d", before, free)
	}
	mustCheck(t, fs)
}

// TestMakeDirectoryDiskFull tests running out of blocks
func TestMakeDirectoryDiskFull(t *testing.T) {
	opts := smallOptions()
	opts.TotalBlocks = 6 // one descriptor block, root, four free
	fs, cur := newTestFS(t, opts)

	for _, name := range []string{"a", "b", "c", "d"} {
		if _, err := fs.MakeDirectory(cur, name); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
	if _, err := fs.MakeDirectory(cur, "e"); !errors.Is(err, ErrOutOfSpace) {
		t.Fatalf("Expected ErrOutOfSpace, got %v", err)
	}
	root, err := fs.ReadDirectory(fs.GetRootBlock())
	if err != nil {
		t.Fatalf("Failed to read root: %v", err)
	}
	if len(root.Children) != 4 {
		t.Fatalf("Expected 4 children, got %+v", root.Children)
	}
	mustCheck(t, fs)
}

// TestRemoveDirectoryCascade tests that a subtree is freed as a whole
func TestRemoveDirectoryCascade(t *testing.T) {
	fs, cur := newTestFS(t, smallOptions())
	if _, err := fs.MakeDirectory(cur, "keep"); err != nil {
		t.Fatalf("Failed to create keep: %v", err)
	}
	before := freeBlocks(t, fs)

	if _, err := fs.MakeDirectory(cur, "a"); err != nil {
		t.Fatalf("Failed to create a: %v", err)
	}
	inA, _ := fs.ChangeDirectory(cur, "a")
	if _, err := fs.MakeDirectory(inA, "b"); err != nil {
		t.Fatalf("Failed to create b: %v", err)
	}
	if _, err := fs.MakeFile(inA, "f2", 100); err != nil {
		t.Fatalf("Failed to create f2: %v", err)
	}
	inB, _ := fs.ChangeDirectory(inA, "b")
	if _, err := fs.MakeFile(inB, "f1", 1500); err != nil {
		t.Fatalf("Failed to create f1: %v", err)
	}
	// a, b, f2 + 1, f1 + 3
	if free := freeBlocks(t, fs); free != before-8 {
		t.Fatalf("Expected %d free blocks, got %d", before-8, free)
	}

	if err := fs.RemoveDirectory(cur, "a"); err != nil {
		t.Fatalf("Failed to remove a: %v", err)
	}
	if free := freeBlocks(t, fs); free != before {
		t.Fatalf("Expected %d free blocks after removal, got %d", before, free)
	}

	for _, n := range []struct {
		name string
		typ  BlockType
	}{{"a", BlockTypeDirectory}, {"b", BlockTypeDirectory}, {"f1", BlockTypeFile}, {"f2", BlockTypeFile}} {
		if _, err := fs.Find(n.name, n.typ); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected %s to be gone, got %v", n.name, err)
		}
	}

	root, _ := fs.ReadDirectory(fs.GetRootBlock())
	if len(root.Children) != 1 || root.Children[0].Name != "keep" {
		t.Fatalf("Unexpected root children: %+v", root.Children)
	}
	mustCheck(t, fs)

	// Freed names are reusable
	if _, err := fs.MakeFile(cur, "f1", 1); err != nil {
		t.Fatalf("Failed to reuse name f1: %v", err)
	}
}

func TestRemoveDirectoryErrors(t *testing.T) {
	fs, cur := newTestFS(t, smallOptions())
	if _, err := fs.MakeDirectory(cur, "a"); err != nil {
		t.Fatalf("Failed to create a: %v", err)
	}
	inA, _ := fs.ChangeDirectory(cur, "a")
	if _, err := fs.MakeDirectory(inA, "b"); err != nil {
		t.Fatalf("Failed to create b: %v", err)
	}
	if _, err := fs.MakeFile(cur, "f", 1); err != nil {
		t.Fatalf("Failed to create f: %v", err)
	}

	tests := []struct {
		name string
		dir  string
		want error
	}{
		{"empty", "", ErrInvalidArgument},
		{"dot", ".", ErrNotFound},
		{"dot dot", "..", ErrNotFound},
		{"file", "f", ErrNotFound},
		{"grandchild", "b", ErrNotFound},
		{"missing", "zz", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fs.RemoveDirectory(cur, tt.dir); !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}
	mustCheck(t, fs)
}

// TestRenameDirectory tests that children follow a renamed directory
func TestRenameDirectory(t *testing.T) {
	fs, cur := newTestFS(t, smallOptions())
	for _, name := range []string{"x", "a", "y"} {
		if _, err := fs.MakeDirectory(cur, name); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
	inA, _ := fs.ChangeDirectory(cur, "a")
	if _, err := fs.MakeDirectory(inA, "b"); err != nil {
		t.Fatalf("Failed to create b: %v", err)
	}
	if _, err := fs.MakeFile(inA, "f", 10); err != nil {
		t.Fatalf("Failed to create f: %v", err)
	}
	block, _ := fs.Find("a", BlockTypeDirectory)

	if err := fs.RenameDirectory("a", "z"); err != nil {
		t.Fatalf("Failed to rename a: %v", err)
	}

	if _, err := fs.Find("a", BlockTypeDirectory); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected a to be gone, got %v", err)
	}
	got, err := fs.Find("z", BlockTypeDirectory)
	if err != nil || got != block {
		t.Fatalf("Expected z at block %d, got %d, %v", block, got, err)
	}

	root, _ := fs.ReadDirectory(fs.GetRootBlock())
	names := []string{}
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	if len(names) != 3 || names[0] != "x" || names[1] != "z" || names[2] != "y" {
		t.Fatalf("Expected rename in place [x z y], got %v", names)
	}

	for _, typ := range []struct {
		name string
		typ  BlockType
	}{{"b", BlockTypeDirectory}, {"f", BlockTypeFile}} {
		attr, err := fs.Stat(typ.name, typ.typ)
		if err != nil {
			t.Fatalf("Failed to stat %s: %v", typ.name, err)
		}
		if attr.Parent != "z" {
			t.Errorf("Expected %s under z, got %q", typ.name, attr.Parent)
		}
	}
	mustCheck(t, fs)
}

func TestRenameDirectoryErrors(t *testing.T) {
	fs, cur := newTestFS(t, smallOptions())
	if _, err := fs.MakeDirectory(cur, "a"); err != nil {
		t.Fatalf("Failed to create a: %v", err)
	}
	inA, _ := fs.ChangeDirectory(cur, "a")
	if _, err := fs.MakeDirectory(inA, "b"); err != nil {
		t.Fatalf("Failed to create b: %v", err)
	}
	if _, err := fs.MakeFile(cur, "f", 1); err != nil {
		t.Fatalf("Failed to create f: %v", err)
	}

	tests := []struct {
		name string
		from string
		to   string
		want error
	}{
		{"root", "root", "top", ErrInvalidArgument},
		{"missing", "zz", "yy", ErrNotFound},
		{"directory exists elsewhere", "a", "b", ErrNameConflict},
		{"sibling file", "a", "f", ErrNameConflict},
		{"empty new name", "a", "", ErrInvalidArgument},
		{"reserved new name", "a", "..", ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fs.RenameDirectory(tt.from, tt.to); !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}
	mustCheck(t, fs)
}
