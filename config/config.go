// Package config
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
package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"simfs"
	"simfs/log_service"
	"simfs/log_service/localdisc"
)

// DiskConfig sizes are datasize strings such as "4000000", "5000" or "4MB"
type DiskConfig struct {
	Size      string `yaml:"size"`
	BlockSize string `yaml:"block_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Dir    string `yaml:"dir"` // empty logs to stderr
	NodeID string `yaml:"node_id"`
}

// Config is the on-disk configuration of a simfs host
type Config struct {
	Disk          DiskConfig `yaml:"disk"`
	MaxNameLength int        `yaml:"max_name_length"`
	ParityShards  int        `yaml:"parity_shards"`
	RootName      string     `yaml:"root_name"`
	Log           LogConfig  `yaml:"log"`
}

// Default returns the stock geometry: a 4,000,000 byte disk of 5000 byte blocks
func Default() *Config {
	return &Config{
		Disk: DiskConfig{
			Size:      "4000000",
			BlockSize: "5000",
		},
		MaxNameLength: simfs.DefaultMaxNameLength,
		ParityShards:  simfs.DefaultParityShards,
		RootName:      simfs.DefaultRootName,
		Log: LogConfig{
			Level:  "INFO",
			NodeID: "simfs",
		},
	}
}

// Load reads the config at path. A missing file is created with the defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory if needed
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ParseSize parses a datasize string into a byte count
func ParseSize(s string) (uint64, error) {
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: size %q: %v", simfs.ErrInvalidArgument, s, err)
	}
	return v.Bytes(), nil
}

// Options converts the config into filesystem options. The block count is
// the disk size divided by the block size, rounded down.
func (c *Config) Options() (simfs.Options, error) {
	size, err := ParseSize(c.Disk.Size)
	if err != nil {
		return simfs.Options{}, fmt.Errorf("disk.size: %w", err)
	}
	bs, err := ParseSize(c.Disk.BlockSize)
	if err != nil {
		return simfs.Options{}, fmt.Errorf("disk.block_size: %w", err)
	}
	if bs == 0 || bs > math.MaxUint32 {
		return simfs.Options{}, fmt.Errorf("disk.block_size: %w: %d", simfs.ErrInvalidArgument, bs)
	}
	if size < bs {
		return simfs.Options{}, fmt.Errorf("disk.size: %w: %d is smaller than one block", simfs.ErrInvalidArgument, size)
	}

	opts := simfs.DefaultOptions()
	opts.BlockSize = uint32(bs)
	opts.TotalBlocks = size / bs
	opts.MaxNameLength = c.MaxNameLength
	opts.ParityShards = c.ParityShards
	if c.RootName != "" {
		opts.RootName = c.RootName
	}
	return opts, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenLogger builds the log service named by the log section. With no
// directory it writes to stderr. The closer releases the log file.
func (c *Config) OpenLogger() (log_service.LogService, io.Closer, error) {
	if c.Log.Dir == "" {
		return log_service.NewWriterLogService(os.Stderr, c.Log.NodeID, c.Log.Level), nopCloser{}, nil
	}
	ls, err := localdisc.NewLocalDiscLogService(c.Log.Dir, c.Log.NodeID, c.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return ls, ls, nil
}
