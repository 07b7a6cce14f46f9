// Package localdisc
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
package localdisc

import (
	"fmt"
	"os"
	"path/filepath"

	"simfs/log_service"
)

// LocalDiscLogService appends events to <logDir>/<nodeID>.log.
type LocalDiscLogService struct {
	*log_service.WriterLogService
	file *os.File
	path string
}

func NewLocalDiscLogService(logDir string, nodeID string, minLogLevel ...string) (*LocalDiscLogService, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(logDir, fmt.Sprintf("%s.log", nodeID))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &LocalDiscLogService{
		WriterLogService: log_service.NewWriterLogService(file, nodeID, minLogLevel...),
		file:             file,
		path:             path,
	}, nil
}

func (ls *LocalDiscLogService) Path() string {
	return ls.path
}

func (ls *LocalDiscLogService) Close() error {
	return ls.file.Close()
}

var _ log_service.LogService = (*LocalDiscLogService)(nil)
