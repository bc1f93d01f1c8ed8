package sar

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/simplearchiver/sar/internal/compress"
	"github.com/simplearchiver/sar/internal/sarfmt"
	"github.com/simplearchiver/sar/internal/sario"
)

// Reader decodes a sar archive, either materializing it onto disk
// (Extract) or walking it without touching the filesystem (List).
type Reader struct {
	buf      *sario.Buffer
	decompr  io.Closer
	file     *os.File
	opts     Options
	log      logr.Logger
	version  uint8
	flags    uint8
	listOnly bool
}

// Entry describes one decoded record, passed to a List callback.
type Entry struct {
	Path  string
	Link  string // symlink target or hardlink source, when applicable
	Mode  uint16 // archive mode (kind + permission bits)
	Kind  sarfmt.Kind
	UID   uint32
	GID   uint32
	Size  uint64
	Atime time.Time
	Mtime time.Time
	CRC   uint32

	Ignored bool // control/ignore sentinel: entry was dropped by the writer
}

// NewReader opens src for decoding: if opts.Compressor is set, src is
// assumed to hold compressed bytes and is fed into that external
// executable's stdin with -d, with its stdout becoming the archive
// stream; otherwise src is read directly. The header (magic + flags) is
// validated before NewReader returns.
func NewReader(src io.Reader, opts Options) (*Reader, error) {
	r := &Reader{opts: opts, log: effectiveLog(opts.Log)}

	source := src
	if opts.Compressor != "" {
		cr, err := compress.NewReader(opts.Compressor, src)
		if err != nil {
			return nil, xerrors.Errorf("starting decompressor: %w", err)
		}
		r.decompr = cr
		source = cr
	}

	r.buf = sario.NewReadOnly(source)

	var hdr [4]byte
	if err := r.buf.ReadExact(hdr[:]); err != nil {
		return nil, err
	}
	magic := binary.LittleEndian.Uint32(hdr[:])
	version, ok := sarfmt.SplitMagic(magic)
	if !ok {
		return nil, ErrBadMagic
	}
	r.version = version

	var fb [1]byte
	if err := r.buf.ReadExact(fb[:]); err != nil {
		return nil, err
	}
	r.flags = fb[0]
	if sarfmt.HasCRC(r.flags) {
		r.buf.EnableCRC()
	}
	return r, nil
}

// OpenFile opens src for reading, wiring the decompressor (if any) the same
// way NewReader does, and additionally closes the underlying file when the
// returned Reader is closed.
func OpenFile(src string, opts Options) (*Reader, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, xerrors.Errorf("cannot open %q: %w", src, err)
	}
	r, err := NewReader(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// Close waits for an attached decompressor, if any, then closes the
// underlying file if the Reader was built with OpenFile.
func (r *Reader) Close() error {
	var err error
	if r.decompr != nil {
		err = r.decompr.Close()
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Version reports the archive format version from the header.
func (r *Reader) Version() uint8 { return r.version }

// HasCRC and HasNanoTime report which optional fields the archive carries,
// per the header flags.
func (r *Reader) HasCRC() bool      { return sarfmt.HasCRC(r.flags) }
func (r *Reader) HasNanoTime() bool { return sarfmt.HasNanoTime(r.flags) }

// Info renders a short archive summary: format version and which optional
// fields are present.
func (r *Reader) Info() string {
	return fmt.Sprintf("SAR file:\n\tVersion        : %d\n\tHas CRC        : %s\n\tHas nano time  : %s\n",
		r.version, boolWord(r.HasCRC()), boolWord(r.HasNanoTime()))
}

func boolWord(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Extract decodes the archive onto disk, rooted at the current working
// directory. If fn is given, it is invoked for every entry as it is
// materialized, for callers that want to echo progress.
func (r *Reader) Extract(fn ...func(Entry)) error {
	r.listOnly = false
	var cb func(Entry)
	if len(fn) > 0 {
		cb = fn[0]
	}
	return r.walk(cb)
}

// List decodes the archive without touching the filesystem, invoking fn
// for every entry in wire order, including ignore sentinels; end-of-children
// sentinels are not reported.
func (r *Reader) List(fn func(Entry)) error {
	r.listOnly = true
	return r.walk(fn)
}

func (r *Reader) walk(fn func(Entry)) error {
	done := false
	for !done {
		var err error
		done, err = r.step("", fn)
		if err != nil {
			return err
		}
	}
	return nil
}

// step decodes one record rooted at wp (the accumulated working path so
// far) and reports whether it was the end-of-children sentinel closing
// the current directory level.
func (r *Reader) step(wp string, fn func(Entry)) (bool, error) {
	r.buf.ResetCRC()

	var modeBuf [2]byte
	if err := r.buf.CRCRead(modeBuf[:]); err != nil {
		return false, err
	}
	mode := binary.LittleEndian.Uint16(modeBuf[:])
	kind := sarfmt.KindOf(mode)

	if kind == sarfmt.KindCtrl {
		switch mode &^ sarfmt.KindMask {
		case sarfmt.CtrlChild:
			return true, nil
		case sarfmt.CtrlIgnore:
			name, err := r.readName()
			if err != nil {
				return false, err
			}
			path := filepath.Join(wp, name)
			r.log.Info("ignored, not extracted", "path", path)
			if fn != nil {
				fn(Entry{Path: path, Mode: mode, Kind: kind, Ignored: true})
			}
			return false, nil
		}
		return false, xerrors.Errorf("unknown control record %#x", mode)
	}

	if kind == sarfmt.KindHard {
		name, err := r.readName()
		if err != nil {
			return false, err
		}
		path := filepath.Join(wp, name)

		var szBuf [2]byte
		if err := r.buf.CRCRead(szBuf[:]); err != nil {
			return false, err
		}
		size := binary.LittleEndian.Uint16(szBuf[:])
		if uint64(size) > sarfmt.MaxWorkingPath {
			return false, ErrWorkingPath
		}
		linkBuf := make([]byte, size)
		if err := r.buf.CRCRead(linkBuf); err != nil {
			return false, err
		}
		target := string(linkBuf)

		if err := r.readCRCTrailer(path); err != nil {
			return false, err
		}

		if !r.listOnly {
			if err := unix.Link(target, path); err != nil {
				r.log.Info("cannot create hardlink", "path", path, "target", target, "error", err.Error())
			}
		}
		if fn != nil {
			fn(Entry{Path: path, Link: target, Mode: mode, Kind: kind})
		}
		return false, nil
	}

	var nscByte [1]byte
	if err := r.buf.CRCRead(nscByte[:]); err != nil {
		return false, err
	}
	nsc := sarfmt.NodeSizeClass(nscByte[0])

	uid, gid, err := sarfmt.DecodeID(r.buf, nsc.ID())
	if err != nil {
		return false, err
	}
	atime, mtime, err := sarfmt.DecodeTime(r.buf, nsc.Time())
	if err != nil {
		return false, err
	}

	var atimeNs, mtimeNs uint32
	if sarfmt.HasNanoTime(r.flags) {
		var ns [4]byte
		if err := r.buf.CRCRead(ns[:]); err != nil {
			return false, err
		}
		atimeNs = binary.LittleEndian.Uint32(ns[:])
		if err := r.buf.CRCRead(ns[:]); err != nil {
			return false, err
		}
		mtimeNs = binary.LittleEndian.Uint32(ns[:])
	}

	name, err := r.readName()
	if err != nil {
		return false, err
	}
	path := filepath.Join(wp, name)
	if len(path) > sarfmt.MaxWorkingPath {
		return false, ErrPathTooLong
	}
	realMode, _ := sarfmt.ArchiveToMode(mode)

	var size uint64
	var link string

	switch kind {
	case sarfmt.KindReg:
		size, err = r.readRegular(path, nsc.File(), fs.FileMode(realMode&0o7777))
	case sarfmt.KindDir:
		err = r.readDir(path, fs.FileMode(realMode&0o7777))
	case sarfmt.KindLnk:
		link, size, err = r.readSymlink(path, nsc.File())
	case sarfmt.KindFIFO:
		err = r.readFIFO(path, fs.FileMode(realMode&0o7777))
	case sarfmt.KindChr, sarfmt.KindBlk:
		size, err = r.readDevice(path, fs.FileMode(realMode&0o7777), realMode)
	}
	if err != nil {
		return false, err
	}

	if !r.listOnly {
		unix.Lchown(path, int(uid), int(gid))
		if kind != sarfmt.KindLnk {
			os.Chmod(path, fs.FileMode(realMode&0o7777))
		}
		times := []unix.Timespec{
			{Sec: atime, Nsec: int64(atimeNs)},
			{Sec: mtime, Nsec: int64(mtimeNs)},
		}
		unix.UtimesNanoAt(unix.AT_FDCWD, path, times, unix.AT_SYMLINK_NOFOLLOW)
	}

	if err := r.readCRCTrailer(path); err != nil {
		return false, err
	}

	if fn != nil {
		fn(Entry{
			Path: path, Link: link, Mode: mode, Kind: kind,
			UID: uid, GID: gid, Size: size,
			Atime: time.Unix(atime, int64(atimeNs)),
			Mtime: time.Unix(mtime, int64(mtimeNs)),
			CRC:   r.buf.CRC(),
		})
	}

	if kind == sarfmt.KindDir {
		for {
			last, err := r.step(path, fn)
			if err != nil {
				return false, err
			}
			if last {
				break
			}
		}
	}

	return false, nil
}

func (r *Reader) readName() (string, error) {
	var szByte [1]byte
	if err := r.buf.CRCRead(szByte[:]); err != nil {
		return "", err
	}
	size := szByte[0]
	if int(size) > sarfmt.MaxNameLen {
		return "", ErrNodeTooLong
	}
	buf := make([]byte, size)
	if err := r.buf.CRCRead(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (r *Reader) readCRCTrailer(path string) error {
	if !sarfmt.HasCRC(r.flags) {
		return nil
	}
	var b [4]byte
	if err := r.buf.ReadExact(b[:]); err != nil {
		return err
	}
	want := binary.LittleEndian.Uint32(b[:])
	if !r.listOnly && want != r.buf.CRC() {
		r.log.Info("corrupted file", "path", path)
	}
	return nil
}

func readFileSize(src sarfmt.Source, class sarfmt.FileClass) (uint64, error) {
	switch class {
	case sarfmt.FileByte:
		var b [1]byte
		if err := src.CRCRead(b[:]); err != nil {
			return 0, err
		}
		return uint64(b[0]), nil
	case sarfmt.FileKilo:
		var b [2]byte
		if err := src.CRCRead(b[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b[:])), nil
	case sarfmt.FileGiga:
		var b [4]byte
		if err := src.CRCRead(b[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b[:])), nil
	default:
		var b [8]byte
		if err := src.CRCRead(b[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b[:]), nil
	}
}

func (r *Reader) readRegular(path string, class sarfmt.FileClass, mode fs.FileMode) (uint64, error) {
	size, err := readFileSize(r.buf, class)
	if err != nil {
		return 0, err
	}
	if r.listOnly {
		return size, r.buf.Skip(size)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		return 0, xerrors.Errorf("could not open output file %q: %w", path, err)
	}
	defer f.Close()
	return size, r.buf.CopyOut(f, size)
}

func (r *Reader) readDir(path string, mode fs.FileMode) error {
	if r.listOnly {
		return nil
	}
	if err := os.Mkdir(path, mode); err != nil && !os.IsExist(err) {
		r.log.Info("cannot create directory", "path", path, "error", err.Error())
	}
	return nil
}

func (r *Reader) readSymlink(path string, class sarfmt.FileClass) (string, uint64, error) {
	switch class {
	case sarfmt.FileByte, sarfmt.FileKilo:
	default:
		return "", 0, xerrors.Errorf("link size too large for %q: %w", path, ErrLinkTooLarge)
	}
	size, err := readFileSize(r.buf, class)
	if err != nil {
		return "", 0, err
	}
	if size > sarfmt.MaxWorkingPath {
		return "", 0, ErrWorkingPath
	}
	buf := make([]byte, size)
	if err := r.buf.CRCRead(buf); err != nil {
		return "", 0, err
	}
	target := string(buf)
	if !r.listOnly {
		if err := unix.Symlink(target, path); err != nil {
			r.log.Info("cannot create symlink", "path", path, "target", target, "error", err.Error())
		}
	}
	return target, size, nil
}

func (r *Reader) readFIFO(path string, mode fs.FileMode) error {
	if r.listOnly {
		return nil
	}
	if err := unix.Mkfifo(path, uint32(mode)); err != nil {
		r.log.Info("cannot create fifo", "path", path, "error", err.Error())
	}
	return nil
}

func (r *Reader) readDevice(path string, mode fs.FileMode, rawMode uint32) (uint64, error) {
	if r.listOnly {
		return 8, r.buf.Skip(8)
	}
	var b [8]byte
	if err := r.buf.CRCRead(b[:]); err != nil {
		return 0, err
	}
	dev := binary.LittleEndian.Uint64(b[:])
	if err := unix.Mknod(path, rawMode, int(dev)); err != nil {
		return 0, xerrors.Errorf("cannot create device %q: %w", path, err)
	}
	return 8, nil
}
