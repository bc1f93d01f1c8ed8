// Package compress bridges an archive stream through an external
// compressor subprocess chosen by the caller, rather than linking any
// particular codec into the binary. A Writer pipes archive bytes into the
// compressor's stdin and lets its stdout become the real destination; a
// Reader mirrors that by running the compressor with -d.
package compress

import (
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Writer runs name (with no arguments) as a subprocess, writes archive
// bytes to its stdin, and copies its stdout to dst. Close must be called
// to flush the pipe and wait for the subprocess to exit cleanly.
type Writer struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	group *errgroup.Group
}

// NewWriter starts the compressor and returns a Writer whose Write method
// feeds it. dst receives the compressor's compressed output.
func NewWriter(name string, dst io.Writer) (*Writer, error) {
	cmd := exec.Command(name)
	cmd.Stdout = dst

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, xerrors.Errorf("cannot create pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, xerrors.Errorf("cannot create pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, xerrors.Errorf("cannot execute %q: %w", name, err)
	}

	g := &errgroup.Group{}
	g.Go(func() error {
		_, err := io.Copy(os.Stderr, stderr)
		return err
	})

	return &Writer{cmd: cmd, stdin: stdin, group: g}, nil
}

func (w *Writer) Write(p []byte) (int, error) { return w.stdin.Write(p) }

// Close closes the compressor's stdin, waits for it to exit, and reports a
// nonzero exit status as an error.
func (w *Writer) Close() error {
	if err := w.stdin.Close(); err != nil {
		return xerrors.Errorf("IO write error: %w", err)
	}
	_ = w.group.Wait()
	if err := w.cmd.Wait(); err != nil {
		return xerrors.Errorf("failed to compress: %w", err)
	}
	return nil
}

// Reader runs name -d as a subprocess, feeding it src on its stdin, and
// exposes its decompressed stdout through Read.
type Reader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	group  *errgroup.Group
}

// NewReader starts the decompressor and returns a Reader whose Read method
// drains its stdout. src supplies the compressed bytes fed to its stdin.
func NewReader(name string, src io.Reader) (*Reader, error) {
	cmd := exec.Command(name, "-d")
	cmd.Stdin = src

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, xerrors.Errorf("cannot create pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, xerrors.Errorf("cannot create pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, xerrors.Errorf("cannot execute %q -d: %w", name, err)
	}

	g := &errgroup.Group{}
	g.Go(func() error {
		_, err := io.Copy(os.Stderr, stderr)
		return err
	})

	return &Reader{cmd: cmd, stdout: stdout, group: g}, nil
}

func (r *Reader) Read(p []byte) (int, error) { return r.stdout.Read(p) }

// Close waits for the decompressor to exit and reports a nonzero exit
// status as an error.
func (r *Reader) Close() error {
	_ = r.group.Wait()
	if err := r.cmd.Wait(); err != nil {
		return xerrors.Errorf("failed to decompress: %w", err)
	}
	return nil
}
