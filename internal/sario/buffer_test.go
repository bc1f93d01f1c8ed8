package sario_test

import (
	"bytes"
	"hash/crc32"
	"io"
	"testing"

	"github.com/orcaman/writerseeker"

	"github.com/simplearchiver/sar/internal/sario"
)

func TestReadWriteExact(t *testing.T) {
	var buf bytes.Buffer
	b := sario.New(&buf)
	want := []byte("hello, archive")
	if err := b.WriteExact(want); err != nil {
		t.Fatalf("WriteExact: %v", err)
	}
	got := make([]byte, len(want))
	if err := b.ReadExact(got); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadExact = %q, want %q", got, want)
	}
}

func TestReadExactShortInput(t *testing.T) {
	b := sario.New(bytes.NewBuffer([]byte("ab")))
	if err := b.ReadExact(make([]byte, 5)); err == nil {
		t.Error("ReadExact on short input should fail")
	}
}

func TestCRCAccumulation(t *testing.T) {
	var buf bytes.Buffer
	b := sario.New(&buf)
	b.EnableCRC()

	chunks := [][]byte{[]byte("hello"), []byte(", "), []byte("world")}
	for _, c := range chunks {
		if err := b.CRCWrite(c); err != nil {
			t.Fatalf("CRCWrite: %v", err)
		}
	}

	want := crc32.ChecksumIEEE([]byte("hello, world"))
	if b.CRC() != want {
		t.Errorf("CRC() = %#x, want %#x", b.CRC(), want)
	}
}

func TestResetCRCKeepsCRCEnabled(t *testing.T) {
	b := sario.New(&bytes.Buffer{})
	b.EnableCRC()
	b.CRCWrite([]byte("x"))
	b.ResetCRC()
	if b.CRC() != 0 {
		t.Fatalf("CRC() after ResetCRC = %#x, want 0", b.CRC())
	}
	b.CRCWrite([]byte("y"))
	if want := crc32.ChecksumIEEE([]byte("y")); b.CRC() != want {
		t.Errorf("CRC() after reset+write = %#x, want %#x", b.CRC(), want)
	}
}

func TestCopyInCopyOutRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	b := sario.New(&buf)
	payload := bytes.Repeat([]byte("0123456789"), 10000) // bigger than one BlockSize chunk

	if err := b.CopyIn(bytes.NewReader(payload), uint64(len(payload))); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}

	var out bytes.Buffer
	if err := b.CopyOut(&out, uint64(len(payload))); err != nil {
		t.Fatalf("CopyOut: %v", err)
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Error("CopyOut did not reproduce the bytes written by CopyIn")
	}
}

func TestCopyOutDiscardsWhenDstNil(t *testing.T) {
	var buf bytes.Buffer
	b := sario.New(&buf)
	payload := []byte("discard me")
	if err := b.CopyIn(bytes.NewReader(payload), uint64(len(payload))); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if err := b.CopyOut(nil, uint64(len(payload))); err != nil {
		t.Fatalf("CopyOut(nil): %v", err)
	}
}

// seekWriter adapts writerseeker.WriterSeeker (Write+Seek only) to the
// io.ReadWriter Buffer needs; Skip's seekable branch never calls Read.
type seekWriter struct {
	*writerseeker.WriterSeeker
}

func (seekWriter) Read([]byte) (int, error) { return 0, io.EOF }

func TestSkipSeekable(t *testing.T) {
	ws := &writerseeker.WriterSeeker{}
	b := sario.New(seekWriter{ws})

	if err := b.WriteExact([]byte("AAAA")); err != nil {
		t.Fatalf("WriteExact: %v", err)
	}
	if err := b.Skip(4); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if err := b.WriteExact([]byte("BBBB")); err != nil {
		t.Fatalf("WriteExact: %v", err)
	}

	got, err := io.ReadAll(ws.Reader())
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("AAAA")) || !bytes.HasSuffix(got, []byte("BBBB")) {
		t.Errorf("got %q, want it to start with AAAA and end with BBBB (forward seek landed between them)", got)
	}
	if len(got) < 12 {
		t.Errorf("got %d bytes, want at least 12 (4 written + 4 skipped + 4 written)", len(got))
	}
}

// readSeekOnly adapts a *bytes.Reader (Read+Seek) to the io.ReadWriter
// Buffer needs, so Skip sees a seekable stream and CRC mode alone decides
// which branch it takes.
type readSeekOnly struct {
	*bytes.Reader
}

func (readSeekOnly) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestSkipWithCRCEnabledIgnoresSeekEvenWhenSeekable(t *testing.T) {
	middle := []byte("skip me")
	payload := append(append([]byte("AAAA"), middle...), []byte("BBBB")...)

	b := sario.New(readSeekOnly{bytes.NewReader(payload)})
	b.EnableCRC()

	head := make([]byte, 4)
	if err := b.CRCRead(head); err != nil {
		t.Fatalf("CRCRead head: %v", err)
	}
	if err := b.Skip(uint64(len(middle))); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	tail := make([]byte, 4)
	if err := b.CRCRead(tail); err != nil {
		t.Fatalf("CRCRead tail: %v", err)
	}
	if string(head) != "AAAA" || string(tail) != "BBBB" {
		t.Fatalf("head/tail = %q/%q, want AAAA/BBBB", head, tail)
	}

	// A blind Seek would never have read the skipped bytes, so the CRC
	// would only cover "AAAA"+"BBBB". A real running CRC-32 can only be
	// correct if Skip actually read and folded in the skipped bytes
	// despite the stream being seekable.
	want := crc32.ChecksumIEEE(payload)
	if b.CRC() != want {
		t.Errorf("CRC() = %#x, want %#x (Skip must discard-read, not seek, once CRC is enabled)", b.CRC(), want)
	}
}

func TestSkipUnseekable(t *testing.T) {
	pr, pw := io.Pipe()
	b := sario.NewReadOnly(pr)

	payload := append(bytes.Repeat([]byte{'x'}, 40000), []byte("tail")...)
	go func() {
		pw.Write(payload)
		pw.Close()
	}()

	if err := b.Skip(40000); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	got := make([]byte, 4)
	if err := b.ReadExact(got); err != nil {
		t.Fatalf("ReadExact after Skip: %v", err)
	}
	if string(got) != "tail" {
		t.Errorf("ReadExact after Skip = %q, want %q", got, "tail")
	}
}
