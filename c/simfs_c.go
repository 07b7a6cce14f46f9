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
	"C"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"unsafe"

	"simfs"
	"simfs/log_service"
)

// Return codes shared by every int-returning export
const (
	codeOK              = 0
	codeInvalidHandle   = -1
	codeUninitialized   = -2
	codeNotFound        = -3
	codeNameConflict    = -4
	codeInvalidArgument = -5
	codeOutOfSpace      = -6
	codeCorruptState    = -7
	codeUnknown         = -8
)

// handle is one open filesystem together with its working directory.
// Every call on a handle holds its mutex.
type handle struct {
	mu  sync.Mutex
	fs  *simfs.FS
	cur simfs.Cursor
}

var (
	handles      = make(map[int]*handle)
	handlesMutex = &sync.RWMutex{}
	nextID       = 1

	logger log_service.LogService = log_service.NewWriterLogService(os.Stderr, "libsimfs", log_service.WarnLevel)
)

// storeHandle stores a handle and returns its ID
func storeHandle(h *handle) int {
	handlesMutex.Lock()
	defer handlesMutex.Unlock()
	id := nextID
	handles[id] = h
	nextID++
	return id
}

// getHandle retrieves a handle by ID
func getHandle(id int) *handle {
	handlesMutex.RLock()
	defer handlesMutex.RUnlock()
	return handles[id]
}

// removeHandle removes a handle from the map
func removeHandle(id int) {
	handlesMutex.Lock()
	defer handlesMutex.Unlock()
	delete(handles, id)
}

// errorCode maps an error to its return code and logs it
func errorCode(op string, err error) C.int {
	if err == nil {
		return C.int(codeOK)
	}
	logger.Warn(log_service.LogEvent{
		Message:  "Operation failed",
		Metadata: map[string]any{"op": op, "kind": simfs.Kind(err), "error": err.Error()},
	})
	switch {
	case errors.Is(err, simfs.ErrUninitialized):
		return C.int(codeUninitialized)
	case errors.Is(err, simfs.ErrNotFound):
		return C.int(codeNotFound)
	case errors.Is(err, simfs.ErrNameConflict):
		return C.int(codeNameConflict)
	case errors.Is(err, simfs.ErrInvalidArgument):
		return C.int(codeInvalidArgument)
	case errors.Is(err, simfs.ErrOutOfSpace):
		return C.int(codeOutOfSpace)
	case errors.Is(err, simfs.ErrCorruptState):
		return C.int(codeCorruptState)
	default:
		return C.int(codeUnknown)
	}
}

// copyOut copies data into a caller buffer, truncating to its size
func copyOut(data []byte, buffer unsafe.Pointer, bufferSize C.size_t) C.size_t {
	copyLen := len(data)
	if int(bufferSize) < copyLen {
		copyLen = int(bufferSize)
	}
	dst := unsafe.Slice((*byte)(buffer), copyLen)
	copy(dst, data[:copyLen])
	return C.size_t(copyLen)
}

// C API functions

//export simfs_open
func simfs_open(blockSize C.uint, totalBlocks C.ulonglong, maxNameLength C.int, parityShards C.int) C.int {
	opts := simfs.DefaultOptions()
	if blockSize != 0 {
		opts.BlockSize = uint32(blockSize)
	}
	if totalBlocks != 0 {
		opts.TotalBlocks = uint64(totalBlocks)
	}
	if maxNameLength != 0 {
		opts.MaxNameLength = int(maxNameLength)
	}
	if parityShards >= 0 {
		opts.ParityShards = int(parityShards)
	}
	opts.Logger = logger

	fs, err := simfs.New(opts)
	if err != nil {
		return errorCode("open", err)
	}
	cur, err := fs.Format()
	if err != nil {
		return errorCode("open", err)
	}

	return C.int(storeHandle(&handle{fs: fs, cur: cur}))
}

//export simfs_close
func simfs_close(id C.int) C.int {
	if getHandle(int(id)) == nil {
		return C.int(codeInvalidHandle)
	}
	removeHandle(int(id))
	return C.int(codeOK)
}

//export simfs_get_root_block
func simfs_get_root_block(id C.int) C.ulonglong {
	h := getHandle(int(id))
	if h == nil {
		return 0 // block 0 always belongs to the descriptor table
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return C.ulonglong(h.fs.GetRootBlock())
}

//export simfs_chdir
func simfs_chdir(id C.int, name *C.char) C.int {
	h := getHandle(int(id))
	if h == nil {
		return C.int(codeInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, err := h.fs.ChangeDirectory(h.cur, C.GoString(name))
	if err != nil {
		return errorCode("chdir", err)
	}
	h.cur = cur
	return C.int(codeOK)
}

//export simfs_mkdir
func simfs_mkdir(id C.int, name *C.char) C.ulonglong {
	h := getHandle(int(id))
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	block, err := h.fs.MakeDirectory(h.cur, C.GoString(name))
	if err != nil {
		errorCode("mkdir", err)
		return 0
	}
	return C.ulonglong(block)
}

//export simfs_rmdir
func simfs_rmdir(id C.int, name *C.char) C.int {
	h := getHandle(int(id))
	if h == nil {
		return C.int(codeInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return errorCode("rmdir", h.fs.RemoveDirectory(h.cur, C.GoString(name)))
}

//export simfs_mvdir
func simfs_mvdir(id C.int, name *C.char, newName *C.char) C.int {
	h := getHandle(int(id))
	if h == nil {
		return C.int(codeInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	goName, goNewName := C.GoString(name), C.GoString(newName)
	if err := h.fs.RenameDirectory(goName, goNewName); err != nil {
		return errorCode("mvdir", err)
	}
	h.cur = h.cur.Renamed(goName, goNewName)
	return C.int(codeOK)
}

//export simfs_mkfil
func simfs_mkfil(id C.int, name *C.char, size C.longlong) C.ulonglong {
	h := getHandle(int(id))
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	block, err := h.fs.MakeFile(h.cur, C.GoString(name), int64(size))
	if err != nil {
		errorCode("mkfil", err)
		return 0
	}
	return C.ulonglong(block)
}

//export simfs_rmfil
func simfs_rmfil(id C.int, name *C.char) C.int {
	h := getHandle(int(id))
	if h == nil {
		return C.int(codeInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return errorCode("rmfil", h.fs.RemoveFile(C.GoString(name)))
}

//export simfs_mvfil
func simfs_mvfil(id C.int, name *C.char, newName *C.char) C.int {
	h := getHandle(int(id))
	if h == nil {
		return C.int(codeInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return errorCode("mvfil", h.fs.RenameFile(C.GoString(name), C.GoString(newName)))
}

//export simfs_szfil
func simfs_szfil(id C.int, name *C.char, size C.longlong) C.ulonglong {
	h := getHandle(int(id))
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	block, err := h.fs.ResizeFile(C.GoString(name), int64(size))
	if err != nil {
		errorCode("szfil", err)
		return 0
	}
	return C.ulonglong(block)
}

//export simfs_print
func simfs_print(id C.int, buffer unsafe.Pointer, bufferSize C.size_t) C.size_t {
	h := getHandle(int(id))
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf bytes.Buffer
	if err := h.fs.PrintTree(&buf, h.fs.RootCursor().Directory); err != nil {
		errorCode("print", err)
		return 0
	}
	return copyOut(buf.Bytes(), buffer, bufferSize)
}

// simfs_descriptor writes the allocated descriptor entries as a JSON array
//
//export simfs_descriptor
func simfs_descriptor(id C.int, buffer unsafe.Pointer, bufferSize C.size_t) C.size_t {
	h := getHandle(int(id))
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.fs.Descriptor()
	if err != nil {
		errorCode("desc", err)
		return 0
	}
	data, err := json.Marshal(entries)
	if err != nil {
		errorCode("desc", err)
		return 0
	}
	return copyOut(data, buffer, bufferSize)
}

//export simfs_stat
func simfs_stat(id C.int, name *C.char, isDirectory C.int, buffer unsafe.Pointer, bufferSize C.size_t) C.size_t {
	h := getHandle(int(id))
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	typ := simfs.BlockTypeFile
	if isDirectory != 0 {
		typ = simfs.BlockTypeDirectory
	}
	attr, err := h.fs.Stat(C.GoString(name), typ)
	if err != nil {
		errorCode("stat", err)
		return 0
	}
	data, err := json.Marshal(attr)
	if err != nil {
		errorCode("stat", err)
		return 0
	}
	return copyOut(data, buffer, bufferSize)
}

//export simfs_free_blocks
func simfs_free_blocks(id C.int) C.longlong {
	h := getHandle(int(id))
	if h == nil {
		return C.longlong(codeInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	free, err := h.fs.FreeBlocks()
	if err != nil {
		return C.longlong(errorCode("free", err))
	}
	return C.longlong(free)
}

//export simfs_check
func simfs_check(id C.int) C.int {
	h := getHandle(int(id))
	if h == nil {
		return C.int(codeInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return errorCode("check", h.fs.Check())
}

// simfs_repair returns the number of blocks rebuilt, or a negative code
//
//export simfs_repair
func simfs_repair(id C.int) C.int {
	h := getHandle(int(id))
	if h == nil {
		return C.int(codeInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	blocks, err := h.fs.Repair()
	if err != nil {
		return errorCode("repair", err)
	}
	return C.int(len(blocks))
}

// Required to build as a C shared library
func main() {}
