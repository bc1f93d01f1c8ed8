// Package sario implements the fixed-size, CRC-gated read/write primitives
// a sar archive stream is built from: guaranteed-full reads and writes, and
// a seek-forward-or-discard skip that works whether or not the underlying
// descriptor supports seeking.
package sario

import (
	"hash/crc32"
	"io"

	"golang.org/x/xerrors"
)

// DiscardBufSize is the chunk size used to drain bytes from an unseekable
// stream when Skip can't lseek past them.
const DiscardBufSize = 32 * 1024

// BlockSize is the unit payload bytes are copied in between a file and the
// archive stream.
const BlockSize = 64 * 1024

// Buffer wraps an io.ReadWriteSeeker (or any narrower subset) with the
// guaranteed-full read/write/skip operations the codec needs, optionally
// accumulating an IEEE CRC-32 over every byte that crosses it.
type Buffer struct {
	rw   io.ReadWriter
	seek io.Seeker // nil when the underlying stream can't seek

	crcEnabled bool
	crc        uint32

	discard []byte
}

// New wraps rw. If rw also implements io.Seeker and CRC accumulation is off,
// Skip will use it directly; otherwise Skip falls back to discard reads.
func New(rw io.ReadWriter) *Buffer {
	b := &Buffer{rw: rw}
	if s, ok := rw.(io.Seeker); ok {
		b.seek = s
	}
	return b
}

type writeOnly struct{ io.Writer }

func (writeOnly) Read([]byte) (int, error) { return 0, io.EOF }

type readOnly struct{ io.Reader }

func (readOnly) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

// NewWriteOnly wraps a pure io.Writer, such as a compressor subprocess's
// stdin, for the writer side of the codec.
func NewWriteOnly(w io.Writer) *Buffer {
	b := &Buffer{rw: writeOnly{w}}
	if s, ok := w.(io.Seeker); ok {
		b.seek = s
	}
	return b
}

// NewReadOnly wraps a pure io.Reader, such as a compressor subprocess's
// stdout, for the reader side of the codec.
func NewReadOnly(r io.Reader) *Buffer {
	b := &Buffer{rw: readOnly{r}}
	if s, ok := r.(io.Seeker); ok {
		b.seek = s
	}
	return b
}

// EnableCRC turns on CRC-32 accumulation for subsequent CRCRead/CRCWrite
// calls, starting from the IEEE seed.
func (b *Buffer) EnableCRC() {
	b.crcEnabled = true
	b.crc = 0
}

// ResetCRC restarts the accumulator at the IEEE seed without changing
// whether CRC accumulation is enabled, for use at the start of each new
// record.
func (b *Buffer) ResetCRC() { b.crc = 0 }

// CRC returns the accumulated checksum.
func (b *Buffer) CRC() uint32 { return b.crc }

// ReadExact reads exactly len(p) bytes, looping over short reads. It never
// touches the CRC accumulator: use it for bytes outside the checksummed
// span (e.g. the CRC trailer itself).
func (b *Buffer) ReadExact(p []byte) error {
	if _, err := io.ReadFull(b.rw, p); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return xerrors.Errorf("read error or inconsistent archive: %w", err)
		}
		return xerrors.Errorf("IO read error: %w", err)
	}
	return nil
}

// WriteExact writes all of p in one Write call; a short write surfaces as
// the error io.Writer must return with it.
func (b *Buffer) WriteExact(p []byte) error {
	if _, err := b.rw.Write(p); err != nil {
		return xerrors.Errorf("IO write error: %w", err)
	}
	return nil
}

// CRCRead is ReadExact with the bytes folded into the CRC accumulator when
// CRC mode is enabled.
func (b *Buffer) CRCRead(p []byte) error {
	if err := b.ReadExact(p); err != nil {
		return err
	}
	if b.crcEnabled {
		b.crc = crc32.Update(b.crc, crc32.IEEETable, p)
	}
	return nil
}

// CRCWrite is WriteExact with the bytes folded into the CRC accumulator when
// CRC mode is enabled.
func (b *Buffer) CRCWrite(p []byte) error {
	if b.crcEnabled {
		b.crc = crc32.Update(b.crc, crc32.IEEETable, p)
	}
	return b.WriteExact(p)
}

// CopyIn streams exactly n bytes from src into the buffer's writer in
// BlockSize chunks, folding them into the CRC accumulator when enabled.
func (b *Buffer) CopyIn(src io.Reader, n uint64) error {
	buf := make([]byte, BlockSize)
	for n > 0 {
		chunk := uint64(len(buf))
		if n < chunk {
			chunk = n
		}
		if _, err := io.ReadFull(src, buf[:chunk]); err != nil {
			return xerrors.Errorf("IO read error: %w", err)
		}
		if err := b.CRCWrite(buf[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// CopyOut streams exactly n bytes from the buffer's reader into dst in
// BlockSize chunks, folding them into the CRC accumulator when enabled. If
// dst is nil the bytes are discarded instead of written, matching the
// list-only path.
func (b *Buffer) CopyOut(dst io.Writer, n uint64) error {
	buf := make([]byte, BlockSize)
	for n > 0 {
		chunk := uint64(len(buf))
		if n < chunk {
			chunk = n
		}
		if err := b.CRCRead(buf[:chunk]); err != nil {
			return err
		}
		if dst != nil {
			if _, err := dst.Write(buf[:chunk]); err != nil {
				return xerrors.Errorf("IO write error: %w", err)
			}
		}
		n -= chunk
	}
	return nil
}

// Skip advances n bytes forward. On a seekable stream with CRC accumulation
// off it does so with a relative lseek; otherwise it drains n bytes through
// a fixed discard buffer, DiscardBufSize bytes at a time, folding them into
// the CRC accumulator when enabled, since skipped payload bytes are still
// part of a record's checksummed span during list-only extraction.
func (b *Buffer) Skip(n uint64) error {
	if b.seek != nil && !b.crcEnabled {
		if _, err := b.seek.Seek(int64(n), io.SeekCurrent); err != nil {
			return xerrors.Errorf("IO seek error: %w", err)
		}
		return nil
	}
	if cap(b.discard) < DiscardBufSize {
		b.discard = make([]byte, DiscardBufSize)
	}
	for n > 0 {
		chunk := uint64(len(b.discard))
		if n < chunk {
			chunk = n
		}
		if err := b.CRCRead(b.discard[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
