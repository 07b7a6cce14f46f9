// Package main
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
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"simfs"
	"simfs/config"
	"simfs/log_service"
	"simfs/shell"
)

type toolArg struct {
	name        string
	description string
	required    bool
}

var (
	nameArg    = toolArg{"name", "Name of the directory or file", true}
	newNameArg = toolArg{"new_name", "New name", true}
	sizeArg    = toolArg{"size", `Declared size, e.g. "12000" or "12KB"`, false}
)

var tools = []struct {
	verb        string
	description string
	args        []toolArg
}{
	{"root", "Format the disk and create the root directory", nil},
	{"print", "Print the directory tree from the root", nil},
	{"chdir", `Change the working directory; ".." moves to the parent`, []toolArg{nameArg}},
	{"mkdir", "Create a directory in the working directory", []toolArg{nameArg}},
	{"rmdir", "Remove a directory of the working directory and everything below it", []toolArg{nameArg}},
	{"mvdir", "Rename a directory", []toolArg{nameArg, newNameArg}},
	{"mkfil", "Create a file of the given size in the working directory", []toolArg{nameArg, sizeArg}},
	{"rmfil", "Remove a file", []toolArg{nameArg}},
	{"mvfil", "Rename a file", []toolArg{nameArg, newNameArg}},
	{"szfil", "Resize a file", []toolArg{nameArg, sizeArg}},
	{"desc", "List the allocated descriptor table entries", nil},
	{"stat", "Describe a directory or file", []toolArg{nameArg}},
	{"info", "Show disk geometry and usage", nil},
	{"check", "Verify descriptor parity and tree consistency", nil},
	{"repair", "Rebuild damaged descriptor blocks from parity", nil},
}

// session serializes tool calls onto one shell
type session struct {
	mu sync.Mutex
	sh *shell.Shell
	ls log_service.LogService
}

func (s *session) handler(verb string, args []toolArg) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		values := make([]string, 2)
		for i, arg := range args {
			v, err := request.RequireString(arg.name)
			if err != nil && arg.required {
				return mcp.NewToolResultError(err.Error()), nil
			}
			values[i] = v
		}

		s.mu.Lock()
		out, err := s.sh.Call(verb, values[0], values[1])
		s.mu.Unlock()

		if err != nil {
			s.ls.Debug(log_service.LogEvent{
				Message:  "Tool failed",
				Metadata: map[string]any{"verb": verb, "kind": simfs.Kind(err), "error": err.Error()},
			})
			return mcp.NewToolResultError(fmt.Sprintf("%s %s: failed: %v", verb, strings.Join(values, " "), err)), nil
		}
		if out == "" {
			out = "ok"
		}
		return mcp.NewToolResultText(out), nil
	}
}

func addTools(s *server.MCPServer, sess *session) {
	for _, t := range tools {
		opts := []mcp.ToolOption{mcp.WithDescription(t.description)}
		for _, arg := range t.args {
			propOpts := []mcp.PropertyOption{mcp.Description(arg.description)}
			if arg.required {
				propOpts = append(propOpts, mcp.Required())
			}
			opts = append(opts, mcp.WithString(arg.name, propOpts...))
		}
		s.AddTool(mcp.NewTool(t.verb, opts...), sess.handler(t.verb, t.args))
	}
}

func main() {
	configPath := flag.String("config", "simfs.yaml", "path to the YAML config, created with defaults if missing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol
	ls, closer, err := cfg.OpenLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	opts, err := cfg.Options()
	if err != nil {
		ls.Error(log_service.LogEvent{Message: "Invalid configuration", Metadata: map[string]any{"error": err.Error()}})
		os.Exit(1)
	}
	opts.Logger = ls

	fs, err := simfs.New(opts)
	if err != nil {
		ls.Error(log_service.LogEvent{Message: "Failed to create filesystem", Metadata: map[string]any{"error": err.Error()}})
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"simfs",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	addTools(s, &session{sh: shell.New(fs, os.Stderr, ls), ls: ls})

	if err := server.ServeStdio(s); err != nil {
		ls.Error(log_service.LogEvent{Message: "Server error", Metadata: map[string]any{"error": err.Error()}})
	}
}
