// Package log_service
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
package log_service

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DebugLevel = "DEBUG"
	InfoLevel  = "INFO"
	WarnLevel  = "WARN"
	ErrorLevel = "ERROR"
)

const (
	DebugLevelValue = iota
	InfoLevelValue
	WarnLevelValue
	ErrorLevelValue
)

type LogEvent struct {
	Timestamp time.Time
	NodeID    string
	Message   string
	Metadata  map[string]any
}

type LogService interface {
	Debug(event LogEvent)
	Info(event LogEvent)
	Warn(event LogEvent)
	Error(event LogEvent)
}

// GetLevelValue maps a level name to its ordering; unknown names map to INFO.
func GetLevelValue(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case DebugLevel:
		return DebugLevelValue
	case InfoLevel:
		return InfoLevelValue
	case WarnLevel, "WARNING":
		return WarnLevelValue
	case ErrorLevel:
		return ErrorLevelValue
	default:
		return InfoLevelValue
	}
}

// FormatLog renders one log line. Metadata keys are sorted.
func FormatLog(level string, event LogEvent) string {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var meta strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&meta, " %s=%v", k, event.Metadata[k])
	}

	return fmt.Sprintf("%s [%s] %s: %s%s\n", ts.Format(time.RFC3339), event.NodeID, level, event.Message, meta.String())
}

// WriterLogService writes formatted events to an io.Writer.
type WriterLogService struct {
	mu       sync.Mutex
	w        io.Writer
	nodeID   string
	minLevel int
}

func NewWriterLogService(w io.Writer, nodeID string, minLogLevel ...string) *WriterLogService {
	ls := &WriterLogService{
		w:        w,
		nodeID:   nodeID,
		minLevel: InfoLevelValue,
	}
	if len(minLogLevel) > 0 && minLogLevel[0] != "" {
		ls.SetMinLogLevel(minLogLevel[0])
	}
	return ls
}

func (ls *WriterLogService) SetMinLogLevel(level string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.minLevel = GetLevelValue(level)
}

func (ls *WriterLogService) log(level string, event LogEvent) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if GetLevelValue(level) < ls.minLevel {
		return
	}
	event.NodeID = ls.nodeID
	_, _ = io.WriteString(ls.w, FormatLog(level, event))
}

func (ls *WriterLogService) Debug(event LogEvent) { ls.log(DebugLevel, event) }
func (ls *WriterLogService) Info(event LogEvent)  { ls.log(InfoLevel, event) }
func (ls *WriterLogService) Warn(event LogEvent)  { ls.log(WarnLevel, event) }
func (ls *WriterLogService) Error(event LogEvent) { ls.log(ErrorLevel, event) }

// NopLogService discards every event.
type NopLogService struct{}

func (NopLogService) Debug(LogEvent) {}
func (NopLogService) Info(LogEvent)  {}
func (NopLogService) Warn(LogEvent)  {}
func (NopLogService) Error(LogEvent) {}

var (
	_ LogService = (*WriterLogService)(nil)
	_ LogService = NopLogService{}
)
