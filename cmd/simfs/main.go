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
	"flag"
	"fmt"
	"os"

	"simfs"
	"simfs/config"
	"simfs/log_service"
	"simfs/shell"
)

func main() {
	configPath := flag.String("config", "simfs.yaml", "path to the YAML config, created with defaults if missing")
	logLevel := flag.String("log-level", "", "minimum log level (DEBUG, INFO, WARN, ERROR)")
	debug := flag.Bool("debug", false, "log every parsed command and block operation")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *debug {
		cfg.Log.Level = log_service.DebugLevel
	}

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

	sh := shell.New(fs, os.Stdout, ls)
	if err := sh.Run(os.Stdin); err != nil {
		ls.Error(log_service.LogEvent{Message: "Failed to read input", Metadata: map[string]any{"error": err.Error()}})
	}
}
