// Package shell tests
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
package shell

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"simfs"
)

func newShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	fs, err := simfs.New(simfs.DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	var out bytes.Buffer
	return New(fs, &out, nil), &out
}

// TestRunScenario tests a full session read from a script
func TestRunScenario(t *testing.T) {
	sh, out := newShell(t)

	script := strings.Join([]string{
		"root",
		"mkdir docs",
		"mkfil notes 12000",
		"",
		"print",
		"mvfil notes report",
		"exit",
		"mkdir never",
	}, "\n")

	if err := sh.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Failed to run script: %v", err)
	}

	want := Banner + "\n" + "root:\n\tdocs\n\tnotes\ndocs:\n"
	if out.String() != want {
		t.Fatalf("Unexpected output:\n%q\nwant:\n%q", out.String(), want)
	}

	if _, err := sh.fs.Find("notes", simfs.BlockTypeFile); !errors.Is(err, simfs.ErrNotFound) {
		t.Errorf("Expected notes to be gone, got %v", err)
	}
	attr, err := sh.fs.Stat("report", simfs.BlockTypeFile)
	if err != nil {
		t.Fatalf("Failed to stat report: %v", err)
	}
	if attr.Size != 12000 || len(attr.DataBlocks) != 3 {
		t.Errorf("Expected size 12000 in 3 blocks, got %d in %d", attr.Size, len(attr.DataBlocks))
	}
	if _, err := sh.fs.Find("never", simfs.BlockTypeDirectory); err == nil {
		t.Error("Lines after exit should not run")
	}
}

func TestExecMessages(t *testing.T) {
	tests := []struct {
		name  string
		setup []string
		line  string
		want  string
	}{
		{"unknown verb", nil, "frobnicate a b", "command not found: frobnicate\n"},
		{"before root", nil, "mkdir docs", "  mkdir docs : failed\n"},
		{"duplicate", []string{"root", "mkdir docs"}, "mkdir docs", "  mkdir docs : failed\n"},
		{"missing file", []string{"root"}, "szfil ghost 10", "  szfil ghost 10: failed\n"},
		{"bad size", []string{"root"}, "mkfil a -5", "  mkfil a -5: failed\n"},
		{"success is silent", []string{"root"}, "mkfil a 5KB", ""},
		{"blank line", []string{"root"}, "   \t ", ""},
		{"second root", []string{"root"}, "root", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, out := newShell(t)
			for _, line := range tt.setup {
				sh.Exec(line)
			}
			out.Reset()

			if sh.Exec(tt.line) {
				t.Fatalf("%q should not exit", tt.line)
			}
			if out.String() != tt.want {
				t.Fatalf("Expected %q, got %q", tt.want, out.String())
			}
		})
	}
}

// TestChdirFollowsRename tests that the cursor tracks a renamed directory
func TestChdirFollowsRename(t *testing.T) {
	sh, out := newShell(t)
	for _, line := range []string{"root", "mkdir a", "chdir a", "mkdir b", "chdir b", "mvdir a z"} {
		sh.Exec(line)
	}
	if out.Len() != 0 {
		t.Fatalf("Unexpected output: %q", out.String())
	}

	cur := sh.Cursor()
	if cur.Directory != "b" || cur.Parent != "z" {
		t.Fatalf("Expected cursor b under z, got %+v", cur)
	}

	sh.Exec("chdir ..")
	if cur := sh.Cursor(); cur.Directory != "z" || cur.Parent != "root" {
		t.Fatalf("Expected cursor z under root, got %+v", cur)
	}
	sh.Exec("chdir ..")
	sh.Exec("chdir ..")
	if cur := sh.Cursor(); cur.Directory != "root" || cur.Parent != "" {
		t.Fatalf("Expected cursor at root, got %+v", cur)
	}
}

func TestCall(t *testing.T) {
	sh, _ := newShell(t)
	if _, err := sh.Call("root", "", ""); err != nil {
		t.Fatalf("Failed to format: %v", err)
	}
	if _, err := sh.Call("mkfil", "a", "1"); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	out, err := sh.Call("stat", "a", "")
	if err != nil {
		t.Fatalf("Failed to stat: %v", err)
	}
	if !strings.Contains(out, "size 1, data blocks [") {
		t.Errorf("Unexpected stat output: %q", out)
	}

	out, err = sh.Call("check", "", "")
	if err != nil || out != "clean\n" {
		t.Errorf("Expected clean check, got %q, %v", out, err)
	}

	out, err = sh.Call("repair", "", "")
	if err != nil || out != "nothing to repair\n" {
		t.Errorf("Expected nothing to repair, got %q, %v", out, err)
	}

	if _, err := sh.Call("mkfil", "a", "1"); !errors.Is(err, simfs.ErrNameConflict) {
		t.Errorf("Expected name conflict, got %v", err)
	}
	if _, err := sh.Call("nope", "", ""); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected unknown command, got %v", err)
	}
}

func TestVerbs(t *testing.T) {
	verbs := Verbs()
	for _, want := range []string{"root", "print", "chdir", "mkdir", "rmdir", "mvdir", "mkfil", "rmfil", "mvfil", "szfil", "exit"} {
		found := false
		for _, v := range verbs {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Verb %q missing from %v", want, verbs)
		}
	}
}
