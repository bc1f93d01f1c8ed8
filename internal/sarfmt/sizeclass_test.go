package sarfmt_test

import (
	"testing"

	"github.com/simplearchiver/sar/internal/sarfmt"
)

func TestClassifyFileSize(t *testing.T) {
	cases := []struct {
		size uint64
		want sarfmt.FileClass
	}{
		{0, sarfmt.FileByte},
		{255, sarfmt.FileByte},
		{256, sarfmt.FileKilo},
		{65535, sarfmt.FileKilo},
		{65536, sarfmt.FileGiga},
		{1 << 32, sarfmt.FileHuge},
	}
	for _, c := range cases {
		if got := sarfmt.ClassifyFileSize(c.size); got != c.want {
			t.Errorf("ClassifyFileSize(%d) = %v, want %v", c.size, got, c.want)
		}
	}
}

func TestClassifyID(t *testing.T) {
	cases := []struct {
		uid, gid uint32
		want     sarfmt.IDClass
	}{
		{0, 0, sarfmt.IDRootRoot},
		{1000, 1000, sarfmt.IDUserUser},
		{42, 42, sarfmt.IDSameRootByte},
		{1042, 1042, sarfmt.IDSameUserByte},
		{0, 42, sarfmt.IDRootByte},
		{1000, 1042, sarfmt.IDUserByte},
		{40000, 40000, sarfmt.IDSameKilo},
		{10, 20, sarfmt.IDBothByte},
		{1010, 1020, sarfmt.IDBothUserByte},
		{10, 40000, sarfmt.IDByteKilo},
		{40000, 10, sarfmt.IDKiloByte},
		{70000, 70000, sarfmt.IDSameGiga},
		{40000, 50000, sarfmt.IDBothKilo},
		{40000, 1 << 20, sarfmt.IDKiloGiga},
		{1 << 20, 40000, sarfmt.IDGigaKilo},
		{1 << 20, 1 << 21, sarfmt.IDBothGiga},
	}
	for _, c := range cases {
		if got := sarfmt.ClassifyID(c.uid, c.gid); got != c.want {
			t.Errorf("ClassifyID(%d, %d) = %v, want %v", c.uid, c.gid, got, c.want)
		}
	}
}

func TestClassifyIDTieBreaks(t *testing.T) {
	// (0,0) must win over same-root-byte, and (1000,1000) over same-user-byte.
	if got := sarfmt.ClassifyID(0, 0); got != sarfmt.IDRootRoot {
		t.Errorf("(0,0) classified as %v, want IDRootRoot", got)
	}
	if got := sarfmt.ClassifyID(1000, 1000); got != sarfmt.IDUserUser {
		t.Errorf("(1000,1000) classified as %v, want IDUserUser", got)
	}
}

func TestClassifyTime(t *testing.T) {
	const maxInt32 = int64(1)<<31 - 1
	cases := []struct {
		atime, mtime int64
		want         sarfmt.TimeClass
	}{
		{1000, 1000, sarfmt.TimeSame32},
		{1 << 34, 1 << 34, sarfmt.TimeSame64},
		{1000, 2000, sarfmt.TimeBoth32},
		{maxInt32 + 1, 2000, sarfmt.TimeBoth64},
	}
	for _, c := range cases {
		if got := sarfmt.ClassifyTime(c.atime, c.mtime); got != c.want {
			t.Errorf("ClassifyTime(%d, %d) = %v, want %v", c.atime, c.mtime, got, c.want)
		}
	}
}

func TestNodeSizeClassRoundTrip(t *testing.T) {
	nsc := sarfmt.ClassifyNode(70000, 1010, 1020, 1600000000, 1600000001)
	if nsc.File() != sarfmt.FileGiga {
		t.Errorf("File() = %v, want FileGiga", nsc.File())
	}
	if nsc.ID() != sarfmt.IDBothUserByte {
		t.Errorf("ID() = %v, want IDBothUserByte", nsc.ID())
	}
	if nsc.Time() != sarfmt.TimeBoth32 {
		t.Errorf("Time() = %v, want TimeBoth32", nsc.Time())
	}
}

func TestIDClassWidths(t *testing.T) {
	all := []sarfmt.IDClass{
		sarfmt.IDRootRoot, sarfmt.IDUserUser, sarfmt.IDSameRootByte, sarfmt.IDSameUserByte,
		sarfmt.IDRootByte, sarfmt.IDUserByte, sarfmt.IDSameKilo, sarfmt.IDBothByte,
		sarfmt.IDBothUserByte, sarfmt.IDByteKilo, sarfmt.IDKiloByte, sarfmt.IDSameGiga,
		sarfmt.IDBothKilo, sarfmt.IDKiloGiga, sarfmt.IDGigaKilo, sarfmt.IDBothGiga,
	}
	for _, c := range all {
		if w := c.Width(); w < 0 {
			t.Errorf("IDClass(%#x).Width() = %d, want >= 0", uint8(c), w)
		}
	}
}
