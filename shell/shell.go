// Package shell
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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"simfs"
	"simfs/config"
	"simfs/log_service"
)

const Banner = "Welcome to your file system"

// ErrUnknownCommand is returned by Call for verbs the shell does not know
var ErrUnknownCommand = errors.New("command not found")

type command func(s *Shell, w io.Writer, a1, a2 string) error

var commands = map[string]command{
	"root":   (*Shell).root,
	"print":  (*Shell).print,
	"chdir":  (*Shell).chdir,
	"mkdir":  (*Shell).mkdir,
	"rmdir":  (*Shell).rmdir,
	"mvdir":  (*Shell).mvdir,
	"mkfil":  (*Shell).mkfil,
	"rmfil":  (*Shell).rmfil,
	"mvfil":  (*Shell).mvfil,
	"szfil":  (*Shell).szfil,
	"desc":   (*Shell).desc,
	"stat":   (*Shell).stat,
	"info":   (*Shell).info,
	"check":  (*Shell).check,
	"repair": (*Shell).repair,
}

// Verbs returns every command the shell understands, including exit
func Verbs() []string {
	verbs := make([]string, 0, len(commands)+1)
	for v := range commands {
		verbs = append(verbs, v)
	}
	verbs = append(verbs, "exit")
	sort.Strings(verbs)
	return verbs
}

// Shell reads "cmd arg1 arg2" lines and runs them against one filesystem.
// It owns the working-directory cursor.
type Shell struct {
	fs  *simfs.FS
	cur simfs.Cursor
	out io.Writer
	ls  log_service.LogService
}

func New(fs *simfs.FS, out io.Writer, ls log_service.LogService) *Shell {
	if ls == nil {
		ls = log_service.NopLogService{}
	}
	return &Shell{fs: fs, out: out, ls: ls}
}

// Cursor returns the current working directory
func (s *Shell) Cursor() simfs.Cursor {
	return s.cur
}

// Run prints the banner and executes lines from r until exit or EOF
func (s *Shell) Run(r io.Reader) error {
	fmt.Fprintln(s.out, Banner)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if s.Exec(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// Exec runs one line, printing its output and any failure. It reports
// whether the line asked the shell to exit.
func (s *Shell) Exec(line string) bool {
	cmd, a1, a2, ok := parse(line)
	s.ls.Debug(log_service.LogEvent{Message: fmt.Sprintf(":%s:%s:%s:", cmd, a1, a2)})
	if !ok {
		return false
	}
	if cmd == "exit" {
		return true
	}

	run, known := commands[cmd]
	if !known {
		fmt.Fprintf(s.out, "command not found: %s\n", cmd)
		return false
	}
	if err := run(s, s.out, a1, a2); err != nil {
		s.ls.Debug(log_service.LogEvent{
			Message:  "Command failed",
			Metadata: map[string]any{"cmd": cmd, "kind": simfs.Kind(err), "error": err.Error()},
		})
		fmt.Fprintf(s.out, "  %s %s %s: failed\n", cmd, a1, a2)
	}
	return false
}

// Call runs one verb and returns what it printed
func (s *Shell) Call(cmd, a1, a2 string) (string, error) {
	run, known := commands[cmd]
	if !known {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	var buf bytes.Buffer
	err := run(s, &buf, a1, a2)
	return buf.String(), err
}

// parse splits a line on whitespace into a verb and up to two arguments.
// Extra tokens are ignored. ok is false for a blank line.
func parse(line string) (cmd, a1, a2 string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", "", "", false
	}
	cmd = fields[0]
	if len(fields) > 1 {
		a1 = fields[1]
	}
	if len(fields) > 2 {
		a2 = fields[2]
	}
	return cmd, a1, a2, true
}

// parseSize reads a size argument; a missing size is zero
func parseSize(arg string) (int64, error) {
	if arg == "" {
		return 0, nil
	}
	n, err := config.ParseSize(arg)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: size %q", simfs.ErrInvalidArgument, arg)
	}
	return int64(n), nil
}

func (s *Shell) root(w io.Writer, _, _ string) error {
	if s.fs.Formatted() {
		return nil
	}
	cur, err := s.fs.Format()
	if err != nil {
		return err
	}
	s.cur = cur
	return nil
}

func (s *Shell) print(w io.Writer, _, _ string) error {
	return s.fs.PrintTree(w, s.fs.RootCursor().Directory)
}

func (s *Shell) chdir(w io.Writer, name, _ string) error {
	cur, err := s.fs.ChangeDirectory(s.cur, name)
	if err != nil {
		return err
	}
	s.cur = cur
	return nil
}

func (s *Shell) mkdir(w io.Writer, name, _ string) error {
	_, err := s.fs.MakeDirectory(s.cur, name)
	return err
}

func (s *Shell) rmdir(w io.Writer, name, _ string) error {
	return s.fs.RemoveDirectory(s.cur, name)
}

func (s *Shell) mvdir(w io.Writer, name, newName string) error {
	if err := s.fs.RenameDirectory(name, newName); err != nil {
		return err
	}
	s.cur = s.cur.Renamed(name, newName)
	return nil
}

func (s *Shell) mkfil(w io.Writer, name, size string) error {
	n, err := parseSize(size)
	if err != nil {
		return err
	}
	_, err = s.fs.MakeFile(s.cur, name, n)
	return err
}

func (s *Shell) rmfil(w io.Writer, name, _ string) error {
	return s.fs.RemoveFile(name)
}

func (s *Shell) mvfil(w io.Writer, name, newName string) error {
	return s.fs.RenameFile(name, newName)
}

func (s *Shell) szfil(w io.Writer, name, size string) error {
	n, err := parseSize(size)
	if err != nil {
		return err
	}
	_, err = s.fs.ResizeFile(name, n)
	return err
}

func (s *Shell) desc(w io.Writer, _, _ string) error {
	entries, err := s.fs.Descriptor()
	if err != nil {
		return err
	}
	free, err := s.fs.FreeBlocks()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Disk Descriptor Table:")
	for _, e := range entries {
		fmt.Fprintf(w, "\tIndex %d : %s %s\n", e.Block, e.Type, e.Name)
	}
	fmt.Fprintf(w, "\tFree blocks : %d\n", free)
	return nil
}

// stat describes a directory or, failing that, a file
func (s *Shell) stat(w io.Writer, name, _ string) error {
	if name == "" {
		return fmt.Errorf("stat: %w: missing operand", simfs.ErrInvalidArgument)
	}
	attr, err := s.fs.Stat(name, simfs.BlockTypeDirectory)
	if errors.Is(err, simfs.ErrNotFound) {
		attr, err = s.fs.Stat(name, simfs.BlockTypeFile)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %s at block %d, parent %q\n", attr.Name, attr.Type, attr.Block, attr.Parent)
	if attr.Type == simfs.BlockTypeFile {
		fmt.Fprintf(w, "\tsize %d, data blocks %v\n", attr.Size, attr.DataBlocks)
	} else {
		fmt.Fprintf(w, "\t%d children\n", attr.Children)
	}
	return nil
}

func (s *Shell) info(w io.Writer, _, _ string) error {
	info, err := s.fs.Info()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "fsid %s\n", info.FsID)
	fmt.Fprintf(w, "\tblocks %d of %d bytes, %d free, %d descriptor\n", info.TotalBlocks, info.BlockSize, info.FreeBlocks, info.DescriptorBlocks)
	fmt.Fprintf(w, "\tnames up to %d bytes, %d children per directory, %d data blocks per file\n", info.MaxNameLength, info.DirectoryCapacity, info.FileCapacity)
	fmt.Fprintf(w, "\tparity shards %d\n", info.ParityShards)
	return nil
}

func (s *Shell) check(w io.Writer, _, _ string) error {
	err := s.fs.Check()
	if err == nil {
		fmt.Fprintln(w, "clean")
		return nil
	}
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(w, "\t%s\n", line)
	}
	return err
}

func (s *Shell) repair(w io.Writer, _, _ string) error {
	blocks, err := s.fs.Repair()
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		fmt.Fprintln(w, "nothing to repair")
		return nil
	}
	fmt.Fprintf(w, "repaired blocks %v\n", blocks)
	return nil
}
