package sarfmt_test

import (
	"bytes"
	"testing"

	"github.com/simplearchiver/sar/internal/sarfmt"
	"github.com/simplearchiver/sar/internal/sario"
)

func TestIDCodecRoundTrip(t *testing.T) {
	cases := []struct{ uid, gid uint32 }{
		{0, 0},
		{1000, 1000},
		{42, 42},
		{1042, 1042},
		{0, 42},
		{1000, 1042},
		{40000, 40000},
		{10, 20},
		{1010, 1020},
		{10, 40000},
		{40000, 10},
		{70000, 70000},
		{40000, 50000},
		{40000, 1 << 20},
		{1 << 20, 40000},
		{1 << 20, 1 << 21},
	}
	for _, c := range cases {
		class := sarfmt.ClassifyID(c.uid, c.gid)
		var buf bytes.Buffer
		b := sario.New(&buf)
		if err := sarfmt.EncodeID(b, class, c.uid, c.gid); err != nil {
			t.Fatalf("EncodeID(%d, %d): %v", c.uid, c.gid, err)
		}
		gotUID, gotGID, err := sarfmt.DecodeID(b, class)
		if err != nil {
			t.Fatalf("DecodeID(%d, %d): %v", c.uid, c.gid, err)
		}
		if gotUID != c.uid || gotGID != c.gid {
			t.Errorf("round trip (%d,%d) via %v = (%d,%d)", c.uid, c.gid, class, gotUID, gotGID)
		}
		if buf.Len() != 0 {
			t.Errorf("expected EncodeID/DecodeID to consume exactly what was written for %v, %d bytes left", class, buf.Len())
		}
	}
}

func TestTimeCodecRoundTrip(t *testing.T) {
	const maxInt32 = int64(1)<<31 - 1
	cases := []struct{ atime, mtime int64 }{
		{1600000000, 1600000000},
		{1 << 34, 1 << 34},
		{1600000000, 1600000001},
		{maxInt32 + 1, 2000},
	}
	for _, c := range cases {
		class := sarfmt.ClassifyTime(c.atime, c.mtime)
		var buf bytes.Buffer
		b := sario.New(&buf)
		if err := sarfmt.EncodeTime(b, class, c.atime, c.mtime); err != nil {
			t.Fatalf("EncodeTime(%d, %d): %v", c.atime, c.mtime, err)
		}
		gotA, gotM, err := sarfmt.DecodeTime(b, class)
		if err != nil {
			t.Fatalf("DecodeTime(%d, %d): %v", c.atime, c.mtime, err)
		}
		if gotA != c.atime || gotM != c.mtime {
			t.Errorf("round trip (%d,%d) via %v = (%d,%d)", c.atime, c.mtime, class, gotA, gotM)
		}
	}
}
