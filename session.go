package sar

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"golang.org/x/xerrors"

	"github.com/simplearchiver/sar/internal/sarfmt"
)

// Options configures a Writer or Reader. The zero value is a valid
// configuration: no CRC, no nanosecond timestamps, no compressor, and a
// stderr logger.
type Options struct {
	// CRC enables a trailing CRC-32 checksum on every non-control record.
	CRC bool

	// NanoTime enables nanosecond atime/mtime fields on every non-control,
	// non-hardlink record.
	NanoTime bool

	// Compressor, when non-empty, names an external executable the
	// archive stream is piped through (Writer) or decompressed through
	// (Reader), found on PATH.
	Compressor string

	// Verbose controls how much detail callers render for each visited
	// entry; the codec itself does not read it.
	Verbose int

	// Log receives per-entry warnings (stat failures, truncated names,
	// CRC mismatches). The zero value falls back to a stderr logger.
	Log logr.Logger
}

func effectiveLog(l logr.Logger) logr.Logger {
	if l.GetSink() == nil {
		return stdr.New(log.New(os.Stderr, "", 0))
	}
	return l
}

// ChangeDirectory changes the process's working directory to dir and
// registers an at-exit hook (see RegisterAtExit) that restores the
// directory the process was in beforehand. It is meant to be called once,
// early, by a -d/--directory CLI flag, before any relative source paths are
// resolved.
func ChangeDirectory(dir string) error {
	prev, err := os.Getwd()
	if err != nil {
		return xerrors.Errorf("cannot determine working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return xerrors.Errorf("cannot chdir to %q: %w", dir, err)
	}
	RegisterAtExit(func() error {
		return os.Chdir(prev)
	})
	return nil
}

func flags(o Options) uint8 {
	var f uint8
	if o.CRC {
		f |= sarfmt.FlagCRC
	}
	if o.NanoTime {
		f |= sarfmt.FlagNanoTime
	}
	return f
}
