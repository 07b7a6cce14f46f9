// Package disk
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
package disk

import (
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/reedsolomon"
)

const (
	Signature uint32 = 0x53494D46 // SIMF
	Version   uint16 = 1

	MaxSize uint64 = 1 << 32 // largest arena New will allocate, in bytes
)

var (
	ErrInvalidGeometry = errors.New("invalid disk geometry")
	ErrBlockOutOfRange = errors.New("block out of range")
	ErrBlockTooLarge   = errors.New("data larger than block")
	ErrCorrupt         = errors.New("protected region is corrupt")
	ErrUnrecoverable   = errors.New("protected region cannot be reconstructed")
)

// Header is a struct for the disk header
type Header struct {
	Signature       uint32    // Magic number to identify our disk format (SIMF)
	Version         uint16    // Version of the disk format
	FsID            uuid.UUID // Identity stamped when the disk is created
	BlockSize       uint32    // Size of each block in bytes
	TotalBlocks     uint64    // Total number of blocks in the arena
	ProtectedBlocks uint64    // Leading blocks covered by parity shards
	ParityShards    int       // Number of parity shards kept for the protected blocks
	CreatedOn       int64     // Unix timestamp for creation time
}

// Disk is a volatile block arena of TotalBlocks * BlockSize bytes.
// The first ProtectedBlocks blocks are mirrored by Reed-Solomon parity
// held outside the arena, so damage to them can be detected and repaired.
type Disk struct {
	header Header
	data   []byte

	enc    reedsolomon.Encoder // nil when ParityShards is 0
	parity [][]byte
	sums   []uint32 // crc32 of each protected block as of the last seal
}

// CorruptionError lists the protected blocks whose contents no longer match
// the checksums recorded at the last seal.
type CorruptionError struct {
	Blocks       []uint64
	ParityFailed bool
}

func (e *CorruptionError) Error() string {
	if len(e.Blocks) == 0 {
		return fmt.Sprintf("%v: parity shards inconsistent", ErrCorrupt)
	}
	return fmt.Sprintf("%v: blocks %v", ErrCorrupt, e.Blocks)
}

func (e *CorruptionError) Unwrap() error { return ErrCorrupt }

// CheckGeometry reports whether New would accept the geometry, without
// allocating the arena.
func CheckGeometry(blockSize uint32, totalBlocks, protectedBlocks uint64, parityShards int) error {
	_, err := checkGeometry(blockSize, totalBlocks, protectedBlocks, parityShards)
	return err
}

// checkGeometry validates the arena size and builds the parity encoder, nil
// when the geometry asks for no protection.
func checkGeometry(blockSize uint32, totalBlocks, protectedBlocks uint64, parityShards int) (reedsolomon.Encoder, error) {
	if blockSize == 0 || totalBlocks == 0 {
		return nil, fmt.Errorf("%w: block size %d, blocks %d", ErrInvalidGeometry, blockSize, totalBlocks)
	}
	limit := min(MaxSize, uint64(math.MaxInt))
	if totalBlocks > limit/uint64(blockSize) {
		return nil, fmt.Errorf("%w: %d blocks of %d bytes exceed the %d byte limit", ErrInvalidGeometry, totalBlocks, blockSize, limit)
	}
	if protectedBlocks > totalBlocks || parityShards < 0 {
		return nil, fmt.Errorf("%w: %d protected blocks, %d parity shards", ErrInvalidGeometry, protectedBlocks, parityShards)
	}
	if parityShards == 0 || protectedBlocks == 0 {
		return nil, nil
	}

	enc, err := reedsolomon.New(int(protectedBlocks), parityShards)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	// more than 256 shards selects the GF16 codec, which works on whole 64 byte words
	if ext, ok := enc.(reedsolomon.Extensions); ok {
		if m := ext.ShardSizeMultiple(); m > 1 && int(blockSize)%m != 0 {
			return nil, fmt.Errorf("%w: %d protected blocks with %d parity shards need a block size that is a multiple of %d, got %d",
				ErrInvalidGeometry, protectedBlocks, parityShards, m, blockSize)
		}
	}
	return enc, nil
}

// New allocates a zeroed arena. protectedBlocks leading blocks are covered by
// parityShards parity shards; parityShards 0 disables protection.
func New(blockSize uint32, totalBlocks, protectedBlocks uint64, parityShards int) (*Disk, error) {
	enc, err := checkGeometry(blockSize, totalBlocks, protectedBlocks, parityShards)
	if err != nil {
		return nil, err
	}

	d := &Disk{
		header: Header{
			Signature:       Signature,
			Version:         Version,
			FsID:            uuid.New(),
			BlockSize:       blockSize,
			TotalBlocks:     totalBlocks,
			ProtectedBlocks: protectedBlocks,
			ParityShards:    parityShards,
			CreatedOn:       time.Now().Unix(),
		},
		data: make([]byte, uint64(blockSize)*totalBlocks),
	}

	if enc != nil {
		d.enc = enc
		d.parity = make([][]byte, parityShards)
		for i := range d.parity {
			d.parity[i] = make([]byte, blockSize)
		}
		d.sums = make([]uint32, protectedBlocks)
		if err := d.seal(); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Header returns a copy of the disk header
func (d *Disk) Header() Header {
	return d.header
}

func (d *Disk) BlockSize() uint32 {
	return d.header.BlockSize
}

func (d *Disk) TotalBlocks() uint64 {
	return d.header.TotalBlocks
}

// Size returns the arena size in bytes
func (d *Disk) Size() int64 {
	return int64(len(d.data))
}

// ReadBlock returns a copy of block n
func (d *Disk) ReadBlock(n uint64) ([]byte, error) {
	if n >= d.header.TotalBlocks {
		return nil, fmt.Errorf("%w: %d", ErrBlockOutOfRange, n)
	}
	bs := uint64(d.header.BlockSize)
	buf := make([]byte, bs)
	copy(buf, d.data[n*bs:(n+1)*bs])
	return buf, nil
}

// WriteBlock replaces the contents of block n; the remainder of the block
// after len(data) is zeroed.
func (d *Disk) WriteBlock(n uint64, data []byte) error {
	if n >= d.header.TotalBlocks {
		return fmt.Errorf("%w: %d", ErrBlockOutOfRange, n)
	}
	bs := uint64(d.header.BlockSize)
	if uint64(len(data)) > bs {
		return fmt.Errorf("%w: %d > %d", ErrBlockTooLarge, len(data), bs)
	}
	block := d.data[n*bs : (n+1)*bs]
	copy(block, data)
	clear(block[len(data):])

	if n < d.header.ProtectedBlocks {
		return d.seal()
	}
	return nil
}

// ReadAt implements io.ReaderAt over the arena
func (d *Disk) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, fmt.Errorf("%w: offset %d length %d", ErrBlockOutOfRange, off, len(p))
	}
	return copy(p, d.data[off:]), nil
}

// WriteAt implements io.WriterAt over the arena. Writes touching the
// protected region refresh its parity.
func (d *Disk) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, fmt.Errorf("%w: offset %d length %d", ErrBlockOutOfRange, off, len(p))
	}
	n := copy(d.data[off:], p)

	if uint64(off) < d.header.ProtectedBlocks*uint64(d.header.BlockSize) {
		if err := d.seal(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Damage overwrites bytes at off without refreshing parity, the way a media
// fault would. Verify reports the change and Repair can undo it.
func (d *Disk) Damage(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return fmt.Errorf("%w: offset %d length %d", ErrBlockOutOfRange, off, len(p))
	}
	copy(d.data[off:], p)
	return nil
}

// shards returns the protected blocks as views into the arena followed by
// the parity shards.
func (d *Disk) shards() [][]byte {
	bs := uint64(d.header.BlockSize)
	shards := make([][]byte, 0, d.header.ProtectedBlocks+uint64(len(d.parity)))
	for i := uint64(0); i < d.header.ProtectedBlocks; i++ {
		shards = append(shards, d.data[i*bs:(i+1)*bs])
	}
	return append(shards, d.parity...)
}

func (d *Disk) seal() error {
	if d.enc == nil {
		return nil
	}
	shards := d.shards()
	if err := d.enc.Encode(shards); err != nil {
		return fmt.Errorf("failed to encode parity: %w", err)
	}
	for i := range d.sums {
		d.sums[i] = crc32.ChecksumIEEE(shards[i])
	}
	return nil
}

func (d *Disk) damaged() []uint64 {
	var bad []uint64
	shards := d.shards()
	for i, sum := range d.sums {
		if crc32.ChecksumIEEE(shards[i]) != sum {
			bad = append(bad, uint64(i))
		}
	}
	return bad
}

// Verify checks the protected region against its checksums and parity.
// It returns a *CorruptionError when damage is found.
func (d *Disk) Verify() error {
	if d.enc == nil {
		return nil
	}
	bad := d.damaged()
	ok, err := d.enc.Verify(d.shards())
	if err != nil {
		return fmt.Errorf("failed to verify parity: %w", err)
	}
	if len(bad) > 0 || !ok {
		return &CorruptionError{Blocks: bad, ParityFailed: !ok}
	}
	return nil
}

// Repair reconstructs damaged protected blocks from the surviving blocks and
// parity, returning the indices it rewrote.
func (d *Disk) Repair() ([]uint64, error) {
	if d.enc == nil {
		return nil, nil
	}
	bad := d.damaged()
	if len(bad) == 0 {
		// only the parity itself can be stale
		return nil, d.seal()
	}
	if len(bad) > len(d.parity) {
		return nil, fmt.Errorf("%w: %d damaged blocks, %d parity shards", ErrUnrecoverable, len(bad), len(d.parity))
	}

	shards := d.shards()
	work := make([][]byte, len(shards))
	copy(work, shards)
	for _, i := range bad {
		work[i] = nil
	}
	if err := d.enc.ReconstructData(work); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecoverable, err)
	}

	for _, i := range bad {
		copy(shards[i], work[i])
	}
	if bad := d.damaged(); len(bad) > 0 {
		return nil, fmt.Errorf("%w: blocks %v still damaged", ErrUnrecoverable, bad)
	}
	return bad, d.seal()
}
