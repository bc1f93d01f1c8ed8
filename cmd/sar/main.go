// Command sar creates, extracts, lists, and inspects sar archives.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bgrewell/usage"
	"github.com/go-logr/stdr"
	"github.com/mattn/go-isatty"
	"github.com/theckman/yacspin"

	"github.com/simplearchiver/sar"
)

const version = "0.1.0"

var (
	infoMode    = flag.Bool("i", false, "print archive version and flag summary")
	createMode  = flag.Bool("c", false, "create an archive")
	extractMode = flag.Bool("x", false, "extract an archive")
	listMode    = flag.Bool("t", false, "list archive contents")

	archivePath = flag.String("f", "", "archive path (default: stdin/stdout)")
	directory   = flag.String("d", "", "change to this directory before walking")

	noCRC  = flag.Bool("C", false, "do not emit per-record CRC-32 (create only)")
	noNano = flag.Bool("N", false, "do not emit nanosecond timestamps (create only)")

	explicitCompressor = flag.String("compress", "", "pipe the archive through this executable")
	gzipAlias          = flag.Bool("z", false, "alias for --compress gzip")
	bzip2Alias         = flag.Bool("j", false, "alias for --compress bzip2")
	xzAlias            = flag.Bool("J", false, "alias for --compress xz")
	lzwAlias           = flag.Bool("Z", false, "alias for --compress compress (.Z)")
	lzmaAlias          = flag.Bool("lzma", false, "alias for --compress lzma")
	lzipAlias          = flag.Bool("lzip", false, "alias for --compress lzip")
	lzopAlias          = flag.Bool("lzop", false, "alias for --compress lzop")

	printVersion = flag.Bool("V", false, "print the version and exit")

	verbose verbosity
)

func init() {
	flag.Var(&verbose, "v", "increase verbosity (repeatable)")

	// Long spellings of the options, as listed by buildUsage.
	flag.BoolVar(infoMode, "information", false, "print archive version and flag summary")
	flag.BoolVar(createMode, "create", false, "create an archive")
	flag.BoolVar(extractMode, "extract", false, "extract an archive")
	flag.BoolVar(listMode, "list", false, "list archive contents")
	flag.StringVar(archivePath, "file", "", "archive path (default: stdin/stdout)")
	flag.StringVar(directory, "directory", "", "change to this directory before walking")
	flag.BoolVar(noCRC, "no-crc", false, "do not emit per-record CRC-32 (create only)")
	flag.BoolVar(noNano, "no-nano", false, "do not emit nanosecond timestamps (create only)")
	flag.BoolVar(gzipAlias, "gzip", false, "alias for --compress gzip")
	flag.BoolVar(bzip2Alias, "bzip2", false, "alias for --compress bzip2")
	flag.BoolVar(xzAlias, "xz", false, "alias for --compress xz")
	flag.BoolVar(lzwAlias, "lzw", false, "alias for --compress compress (.Z)")
	flag.Var(&verbose, "verbose", "increase verbosity (repeatable)")
	flag.BoolVar(printVersion, "version", false, "print the version and exit")
}

func buildUsage() *usage.Usage {
	u := usage.NewUsage(
		usage.WithApplicationName("sar"),
		usage.WithApplicationVersion(version),
		usage.WithApplicationDescription("sar creates, extracts, lists, and inspects archives in the sar format: a compact binary archive with optional CRC-32 integrity and nanosecond timestamps."),
	)
	u.AddBooleanOption("i", "information", false, "print archive version and flag summary", "mode", nil)
	u.AddBooleanOption("c", "create", false, "create an archive", "mode", nil)
	u.AddBooleanOption("x", "extract", false, "extract an archive", "mode", nil)
	u.AddBooleanOption("t", "list", false, "list archive contents", "mode", nil)
	u.AddStringOption("f", "file", "", "archive path (default: stdin/stdout)", "modifier", nil)
	u.AddStringOption("d", "directory", "", "change to this directory before walking", "modifier", nil)
	u.AddBooleanOption("C", "no-crc", false, "do not emit per-record CRC-32 (create only)", "modifier", nil)
	u.AddBooleanOption("N", "no-nano", false, "do not emit nanosecond timestamps (create only)", "modifier", nil)
	u.AddStringOption("", "compress", "", "pipe the archive through this executable", "compression", nil)
	u.AddBooleanOption("z", "gzip", false, "alias for --compress gzip", "compression", nil)
	u.AddBooleanOption("j", "bzip2", false, "alias for --compress bzip2", "compression", nil)
	u.AddBooleanOption("J", "xz", false, "alias for --compress xz", "compression", nil)
	u.AddBooleanOption("Z", "lzw", false, "alias for --compress compress (.Z)", "compression", nil)
	u.AddBooleanOption("", "lzma", false, "alias for --compress lzma", "compression", nil)
	u.AddBooleanOption("", "lzip", false, "alias for --compress lzip", "compression", nil)
	u.AddBooleanOption("", "lzop", false, "alias for --compress lzop", "compression", nil)
	u.AddBooleanOption("v", "verbose", false, "increase verbosity (repeatable)", "", nil)
	u.AddBooleanOption("V", "version", false, "print the version and exit", "", nil)
	u.AddBooleanOption("h", "help", false, "show this help message", "", nil)
	return u
}

func main() {
	os.Exit(run())
}

func run() int {
	u := buildUsage()
	flag.Usage = func() { u.PrintUsage() }
	flag.Parse()

	if *printVersion {
		fmt.Println("sar version " + version)
		return 0
	}

	logger := stdr.New(log.New(os.Stderr, "", 0))
	stdr.SetVerbosity(int(verbose))

	sar.HandleInterrupts()
	defer sar.RunAtExit()

	modes := 0
	for _, m := range []bool{*infoMode, *createMode, *extractMode, *listMode} {
		if m {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "sar: exactly one of -i, -c, -x, -t is required")
		u.PrintUsage()
		return 1
	}

	if (*noCRC || *noNano) && !*createMode {
		fmt.Fprintln(os.Stderr, "sar:", sar.ErrCreateOnly)
		return 1
	}

	compressor := resolveCompressor(*explicitCompressor, map[string]bool{
		"gzip":  *gzipAlias,
		"bzip2": *bzip2Alias,
		"xz":    *xzAlias,
		"lzw":   *lzwAlias,
		"lzma":  *lzmaAlias,
		"lzip":  *lzipAlias,
		"lzop":  *lzopAlias,
	})

	opts := sar.Options{
		CRC:        !*noCRC,
		NanoTime:   !*noNano,
		Compressor: compressor,
		Verbose:    int(verbose),
		Log:        logger,
	}

	if *createMode && len(flag.Args()) != 1 {
		fmt.Fprintln(os.Stderr, "sar: -c takes exactly one source path")
		u.PrintUsage()
		return 1
	}

	var err error
	switch {
	case *infoMode:
		err = runInfo(opts)
	case *createMode:
		err = runCreate(opts, flag.Args()[0])
	case *extractMode:
		err = runExtract(opts)
	case *listMode:
		err = runList(opts)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "sar:", err)
		return 1
	}
	return 0
}

// changeDirectory applies -d/--directory, if given, once the archive is
// already open: -f resolves relative paths against the directory the
// process started in, and only the walk that follows should see the new
// working directory.
func changeDirectory() error {
	if *directory == "" {
		return nil
	}
	return sar.ChangeDirectory(*directory)
}

func runInfo(opts sar.Options) error {
	r, err := openReader(opts)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := changeDirectory(); err != nil {
		return err
	}
	fmt.Print(r.Info())
	return nil
}

// runCreate archives exactly one source path, matching the reference
// implementation's single positional SOURCE argument: the resulting stream
// is a single self-terminating tree, not a concatenation of several.
func runCreate(opts sar.Options, path string) error {
	w, err := openWriter(opts)
	if err != nil {
		return err
	}
	if err := changeDirectory(); err != nil {
		w.Close()
		return err
	}

	spin := maybeSpinner(opts, "archiving")
	if spin != nil {
		spin.Start()
	}
	useColor := isatty.IsTerminal(os.Stdout.Fd())
	if err := w.Add(path, func(e sar.Entry) { showEntry(e, opts.Verbose, useColor) }); err != nil {
		if spin != nil {
			spin.StopFail()
		}
		w.Close()
		return err
	}
	if spin != nil {
		spin.Stop()
	}
	return w.Close()
}

func runExtract(opts sar.Options) error {
	r, err := openReader(opts)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := changeDirectory(); err != nil {
		return err
	}

	spin := maybeSpinner(opts, "extracting")
	if spin != nil {
		spin.Start()
	}
	useColor := isatty.IsTerminal(os.Stdout.Fd())
	err = r.Extract(func(e sar.Entry) { showEntry(e, opts.Verbose, useColor) })
	if spin != nil {
		if err != nil {
			spin.StopFail()
		} else {
			spin.Stop()
		}
	}
	return err
}

func runList(opts sar.Options) error {
	r, err := openReader(opts)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := changeDirectory(); err != nil {
		return err
	}

	useColor := isatty.IsTerminal(os.Stdout.Fd())
	return r.List(func(e sar.Entry) {
		showEntry(e, maxInt(opts.Verbose, 1), useColor)
	})
}

func openWriter(opts sar.Options) (*sar.Writer, error) {
	if *archivePath == "" {
		return sar.NewWriter(os.Stdout, opts)
	}
	return sar.CreateFile(*archivePath, opts)
}

func openReader(opts sar.Options) (*sar.Reader, error) {
	if *archivePath == "" {
		return sar.NewReader(os.Stdin, opts)
	}
	return sar.OpenFile(*archivePath, opts)
}

func maybeSpinner(opts sar.Options, suffix string) *yacspin.Spinner {
	if opts.Verbose < 1 || !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " " + suffix,
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
		StopFailMessage: "failed",
	}
	s, err := yacspin.New(cfg)
	if err != nil {
		return nil
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
