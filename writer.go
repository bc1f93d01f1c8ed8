package sar

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/renameio"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/simplearchiver/sar/internal/compress"
	"github.com/simplearchiver/sar/internal/hardlink"
	"github.com/simplearchiver/sar/internal/sarfmt"
	"github.com/simplearchiver/sar/internal/sario"
)

// Writer builds a sar archive from one call to Add. Each Add ends with the
// top-level end-of-children sentinel, and Reader stops decoding at the first
// such sentinel, so the tree of a second Add is not read back.
type Writer struct {
	buf       *sario.Buffer
	compr     io.Closer
	pending   *renameio.PendingFile
	opts      Options
	hardlinks *hardlink.Table
	log       logr.Logger
	onEntry   func(Entry)
}

// NewWriter starts a new archive on dst: if opts.Compressor is set, dst
// receives compressed bytes produced by that external executable and the
// uncompressed header/records are piped into its stdin; otherwise dst
// receives the archive stream directly. The header (magic + flags) is
// written before NewWriter returns.
func NewWriter(dst io.Writer, opts Options) (*Writer, error) {
	w := &Writer{
		opts:      opts,
		hardlinks: hardlink.New(),
		log:       effectiveLog(opts.Log),
	}

	target := dst
	if opts.Compressor != "" {
		cw, err := compress.NewWriter(opts.Compressor, dst)
		if err != nil {
			return nil, xerrors.Errorf("starting compressor: %w", err)
		}
		w.compr = cw
		target = cw
	}

	w.buf = sario.NewWriteOnly(target)
	if opts.CRC {
		w.buf.EnableCRC()
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], sarfmt.Magic(sarfmt.FormatVer))
	if err := w.buf.WriteExact(hdr[:]); err != nil {
		return nil, err
	}
	if err := w.buf.WriteExact([]byte{flags(opts)}); err != nil {
		return nil, err
	}
	return w, nil
}

// CreateFile opens dest for writing through a renameio temporary file, so
// a run that fails or is interrupted midway leaves the previous archive at
// dest untouched rather than a truncated replacement. The archive becomes
// visible at dest only once Close returns successfully.
func CreateFile(dest string, opts Options) (*Writer, error) {
	pf, err := renameio.TempFile("", dest)
	if err != nil {
		return nil, xerrors.Errorf("cannot create %q: %w", dest, err)
	}
	w, err := NewWriter(pf, opts)
	if err != nil {
		pf.Cleanup()
		return nil, err
	}
	w.pending = pf
	return w, nil
}

// Close flushes and waits for an attached compressor, if any, then commits
// the destination file opened by CreateFile. For a Writer built with
// NewWriter directly, Close does not touch dst; the caller owns it.
func (w *Writer) Close() error {
	if w.compr != nil {
		if err := w.compr.Close(); err != nil {
			if w.pending != nil {
				w.pending.Cleanup()
			}
			return err
		}
	}
	if w.pending != nil {
		return w.pending.CloseAtomicallyReplace()
	}
	return nil
}

// Add walks sourcePath (a filesystem path, which doubles as the path
// recorded in the archive) and appends it to the archive: one container
// record per leading path component, followed by a full recursive walk of
// the final component, followed by one end-of-children sentinel per path
// component to balance the containers opened above. fn, if given, is called
// once per visited node the same way Reader.Extract/List report entries, so
// a caller can render a verbose create-mode echo with the same renderer it
// uses for list/extract.
func (w *Writer) Add(sourcePath string, fn ...func(Entry)) error {
	if len(fn) > 0 {
		w.onEntry = fn[0]
	}
	abs := strings.HasPrefix(sourcePath, "/")
	clean := filepath.Clean(sourcePath)
	trimmed := strings.TrimPrefix(clean, "/")
	if trimmed == "" || trimmed == "." {
		return xerrors.New("empty path")
	}

	comps := strings.Split(trimmed, "/")
	if len(comps) == 0 {
		return xerrors.New("empty path")
	}

	fsPath := ""
	if abs {
		fsPath = "/"
	}

	for _, comp := range comps[:len(comps)-1] {
		fsPath = filepath.Join(fsPath, comp)
		// A leading container that cannot be stat'ed or read is logged by
		// addNode and skipped, so a missing intermediate directory does not
		// stop the walk of the requested subtree; only fatal errors return.
		if _, _, _, err := w.addNode(fsPath, comp); err != nil {
			return err
		}
	}

	last := comps[len(comps)-1]
	fsPath = filepath.Join(fsPath, last)
	if err := w.recAdd(fsPath, last); err != nil {
		return err
	}

	for range comps {
		if err := w.writeControl(sarfmt.CtrlChild); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) recAdd(fsPath, name string) error {
	_, isDir, skip, err := w.addNode(fsPath, name)
	if err != nil {
		return err
	}
	if skip || !isDir {
		return nil
	}

	entries, err := os.ReadDir(fsPath)
	if err != nil {
		w.log.Info("cannot open", "path", fsPath, "error", err.Error())
		return nil
	}

	for _, e := range entries {
		if err := w.recAdd(filepath.Join(fsPath, e.Name()), e.Name()); err != nil {
			return err
		}
	}

	return w.writeControl(sarfmt.CtrlChild)
}

// addNode stats fsPath, emits its record (or a hardlink back-reference to
// an earlier sighting of the same inode), and reports whether it is a
// directory so the caller knows whether to recurse.
func (w *Writer) addNode(fsPath, name string) (mode uint32, isDir bool, skip bool, err error) {
	if len(fsPath) > sarfmt.MaxWorkingPath {
		return 0, false, false, ErrPathTooLong
	}
	var st unix.Stat_t
	if statErr := unix.Lstat(fsPath, &st); statErr != nil {
		w.log.Info("could not stat", "path", fsPath, "error", statErr.Error())
		return 0, false, true, nil
	}
	if accessErr := unix.Access(fsPath, unix.R_OK); accessErr != nil {
		w.log.Info("cannot open", "path", fsPath, "error", accessErr.Error())
		return 0, false, true, nil
	}

	w.buf.ResetCRC()
	isDir = st.Mode&unix.S_IFMT == unix.S_IFDIR
	archMode := sarfmt.ModeToArchive(st.Mode)

	// Kinds with no archive analogue become a bare ignore sentinel carrying
	// only the entry's name, which is all Reader.step reads back for it.
	if archMode == sarfmt.CtrlModeIgnore {
		if err = w.writeUint16(archMode); err != nil {
			return
		}
		if err = w.writeName(name); err != nil {
			return
		}
		if w.onEntry != nil {
			w.onEntry(Entry{Path: fsPath, Mode: archMode, Kind: sarfmt.KindCtrl, Ignored: true})
		}
		return st.Mode, false, true, nil
	}

	var link string
	if st.Nlink >= 2 && !isDir {
		if target, found := w.hardlinks.Observe(uint64(st.Ino), uint64(st.Dev), uint32(st.Nlink), fsPath); found {
			link = target
			hmode := (archMode & sarfmt.PermMask) | uint16(sarfmt.KindHard)
			if err = w.writeUint16(hmode); err != nil {
				return
			}
			if err = w.writeName(name); err != nil {
				return
			}
			linkBytes := []byte(link)
			if err = w.writeUint16(uint16(len(linkBytes))); err != nil {
				return
			}
			if err = w.buf.CRCWrite(linkBytes); err != nil {
				return
			}
			if err = w.writeCRCTrailer(); err != nil {
				return
			}
			w.display(fsPath, link, st, hmode, w.buf.CRC())
			w.reupdateTime(fsPath, st)
			return st.Mode, false, false, nil
		}
	}

	nsc := sarfmt.ClassifyNode(uint64(st.Size), st.Uid, st.Gid, int64(st.Atim.Sec), int64(st.Mtim.Sec))

	if err = w.writeUint16(archMode); err != nil {
		return
	}
	if err = w.buf.CRCWrite([]byte{uint8(nsc)}); err != nil {
		return
	}
	if err = sarfmt.EncodeID(w.buf, nsc.ID(), st.Uid, st.Gid); err != nil {
		return
	}
	if err = sarfmt.EncodeTime(w.buf, nsc.Time(), int64(st.Atim.Sec), int64(st.Mtim.Sec)); err != nil {
		return
	}
	if w.opts.NanoTime {
		var ns [4]byte
		binary.LittleEndian.PutUint32(ns[:], uint32(st.Atim.Nsec))
		if err = w.buf.CRCWrite(ns[:]); err != nil {
			return
		}
		binary.LittleEndian.PutUint32(ns[:], uint32(st.Mtim.Nsec))
		if err = w.buf.CRCWrite(ns[:]); err != nil {
			return
		}
	}
	if err = w.writeName(name); err != nil {
		return
	}

	switch sarfmt.KindOf(archMode) {
	case sarfmt.KindReg:
		err = w.writeRegular(fsPath, nsc.File(), uint64(st.Size))
	case sarfmt.KindLnk:
		err = w.writeSymlink(fsPath, nsc.File())
	case sarfmt.KindChr, sarfmt.KindBlk:
		err = w.writeDev(uint64(st.Rdev))
	}
	if err != nil {
		return
	}

	if err = w.writeCRCTrailer(); err != nil {
		return
	}

	w.display(fsPath, "", st, archMode, w.buf.CRC())
	w.reupdateTime(fsPath, st)
	return st.Mode, isDir, false, nil
}

func (w *Writer) writeUint16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.buf.CRCWrite(b[:])
}

func (w *Writer) writeControl(sub uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(sarfmt.KindCtrl)|sub)
	return w.buf.WriteExact(b[:])
}

func (w *Writer) writeCRCTrailer() error {
	if !w.opts.CRC {
		return nil
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], w.buf.CRC())
	return w.buf.WriteExact(b[:])
}

func (w *Writer) writeName(name string) error {
	b := []byte(name)
	if len(b) > sarfmt.MaxNameLen {
		trunc := append([]byte(nil), b[:sarfmt.MaxNameLen]...)
		trunc[sarfmt.MaxNameLen-1] = '~'
		w.log.Info("name too long, truncated", "name", name, "truncated", string(trunc))
		if err := w.buf.CRCWrite([]byte{byte(sarfmt.MaxNameLen)}); err != nil {
			return err
		}
		return w.buf.CRCWrite(trunc)
	}
	if err := w.buf.CRCWrite([]byte{byte(len(b))}); err != nil {
		return err
	}
	return w.buf.CRCWrite(b)
}

func (w *Writer) writeRegular(fsPath string, class sarfmt.FileClass, size uint64) error {
	if err := writeFileSize(w.buf, class, size); err != nil {
		return err
	}
	f, err := os.Open(fsPath)
	if err != nil {
		return xerrors.Errorf("cannot open %q: %w", fsPath, err)
	}
	defer f.Close()
	return w.buf.CopyIn(f, size)
}

func (w *Writer) writeSymlink(fsPath string, class sarfmt.FileClass) error {
	target, err := os.Readlink(fsPath)
	if err != nil {
		return xerrors.Errorf("cannot read %q: %w", fsPath, err)
	}
	n := uint64(len(target))
	switch class {
	case sarfmt.FileByte, sarfmt.FileKilo:
		if err := writeFileSize(w.buf, class, n); err != nil {
			return err
		}
	default:
		return xerrors.Errorf("link size too large for %q: %w", fsPath, ErrLinkTooLarge)
	}
	return w.buf.CRCWrite([]byte(target))
}

func (w *Writer) writeDev(rdev uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], rdev)
	return w.buf.CRCWrite(b[:])
}

func writeFileSize(sink sarfmt.Sink, class sarfmt.FileClass, size uint64) error {
	switch class {
	case sarfmt.FileByte:
		return sink.CRCWrite([]byte{byte(size)})
	case sarfmt.FileKilo:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(size))
		return sink.CRCWrite(b[:])
	case sarfmt.FileGiga:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(size))
		return sink.CRCWrite(b[:])
	default:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], size)
		return sink.CRCWrite(b[:])
	}
}

func (w *Writer) reupdateTime(fsPath string, st unix.Stat_t) {
	times := []unix.Timespec{
		{Sec: st.Atim.Sec, Nsec: st.Atim.Nsec},
		{Sec: st.Mtim.Sec, Nsec: st.Mtim.Nsec},
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, fsPath, times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		w.log.V(1).Info("could not restore access time", "path", fsPath, "error", err.Error())
	}
}

// display reports a visited node to the caller-supplied entry callback, the
// same Entry shape Reader.Extract/List reports, so cmd/sar can render the
// create-mode echo with its usual showEntry renderer instead of a bare log
// line.
func (w *Writer) display(path, link string, st unix.Stat_t, archMode uint16, crc uint32) {
	if w.onEntry == nil {
		return
	}
	w.onEntry(Entry{
		Path:  path,
		Link:  link,
		Mode:  archMode,
		Kind:  sarfmt.KindOf(archMode),
		UID:   st.Uid,
		GID:   st.Gid,
		Size:  uint64(st.Size),
		Atime: time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Mtime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		CRC:   crc,
	})
}
