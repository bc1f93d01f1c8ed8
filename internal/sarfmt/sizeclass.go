package sarfmt

import "math"

// FileClass selects the width used to encode a file/symlink-target size.
type FileClass uint8

const (
	FileByte FileClass = 0x0 // <= 255
	FileKilo FileClass = 0x1 // <= 65535
	FileGiga FileClass = 0x2 // <= 2^32-1
	FileHuge FileClass = 0x3 // <= 2^64-1

	fileMask uint8 = 0x3
)

// ClassifyFileSize picks the smallest FileClass that can hold size.
func ClassifyFileSize(size uint64) FileClass {
	switch {
	case size <= math.MaxUint8:
		return FileByte
	case size <= math.MaxUint16:
		return FileKilo
	case size <= math.MaxUint32:
		return FileGiga
	default:
		return FileHuge
	}
}

// IDClass selects the packing used to encode a (uid, gid) pair. The sixteen
// values below must be tried in exactly this order: each predicate assumes
// every earlier one has already failed, which is what makes the packing
// canonical between encoder and decoder.
type IDClass uint8

const (
	IDRootRoot      IDClass = 0x0  // (0,0), 0 bytes
	IDUserUser      IDClass = 0x4  // (1000,1000), 0 bytes
	IDSameRootByte  IDClass = 0x8  // uid==gid<=255, 1 byte
	IDSameUserByte  IDClass = 0xc  // uid==gid, 1000<=uid<=1255, 1 byte (+1000 offset)
	IDRootByte      IDClass = 0x10 // uid==0, gid<=255, 1 byte
	IDUserByte      IDClass = 0x14 // uid==1000, 1000<=gid<=1255, 1 byte (+1000 offset)
	IDSameKilo      IDClass = 0x18 // uid==gid<=65535, 2 bytes
	IDBothByte      IDClass = 0x1c // uid<=255 && gid<=255, 2 bytes
	IDBothUserByte  IDClass = 0x20 // 1000<=uid,gid<=1255, 2 bytes (+1000 offset each)
	IDByteKilo      IDClass = 0x24 // uid<=255, gid<=65535, 3 bytes
	IDKiloByte      IDClass = 0x28 // uid<=65535, gid<=255, 3 bytes
	IDSameGiga      IDClass = 0x2c // uid==gid<=2^32-1, 4 bytes
	IDBothKilo      IDClass = 0x30 // uid,gid<=65535, 4 bytes
	IDKiloGiga      IDClass = 0x34 // uid<=65535, gid<=2^32-1, 6 bytes
	IDGigaKilo      IDClass = 0x38 // uid<=2^32-1, gid<=65535, 6 bytes
	IDBothGiga      IDClass = 0x3c // uid,gid<=2^32-1, 8 bytes
	idMask          uint8   = 0x3c
)

// ClassifyID picks the canonical IDClass for (uid, gid), evaluated in the
// exact tie-break order below: (0,0) beats same-root-byte; (1000,1000)
// beats same-user-byte.
func ClassifyID(uid, gid uint32) IDClass {
	switch {
	case uid == 0 && gid == 0:
		return IDRootRoot
	case uid == 1000 && gid == 1000:
		return IDUserUser
	case uid == gid && uid <= math.MaxUint8:
		return IDSameRootByte
	case uid == gid && uid >= 1000 && uid <= 1000+math.MaxUint8:
		return IDSameUserByte
	case uid == 0 && gid <= math.MaxUint8:
		return IDRootByte
	case uid == 1000 && gid >= 1000 && gid <= 1000+math.MaxUint8:
		return IDUserByte
	case uid == gid && uid <= math.MaxUint16:
		return IDSameKilo
	case uid <= math.MaxUint8 && gid <= math.MaxUint8:
		return IDBothByte
	case uid >= 1000 && gid >= 1000 && uid <= 1000+math.MaxUint8 && gid <= 1000+math.MaxUint8:
		return IDBothUserByte
	case uid <= math.MaxUint8 && gid <= math.MaxUint16:
		return IDByteKilo
	case uid <= math.MaxUint16 && gid <= math.MaxUint8:
		return IDKiloByte
	case uid == gid:
		return IDSameGiga
	case uid <= math.MaxUint16 && gid <= math.MaxUint16:
		return IDBothKilo
	case uid <= math.MaxUint16:
		return IDKiloGiga
	case gid <= math.MaxUint16:
		return IDGigaKilo
	default:
		return IDBothGiga
	}
}

// TimeClass selects the width used to encode the atime/mtime pair.
type TimeClass uint8

const (
	TimeSame32 TimeClass = 0x00 // atime==mtime, fits int32, 4 bytes
	TimeSame64 TimeClass = 0x40 // atime==mtime, 8 bytes
	TimeBoth32 TimeClass = 0x80 // atime!=mtime, both fit int32, 8 bytes
	TimeBoth64 TimeClass = 0xc0 // atime!=mtime, 16 bytes

	timeMask uint8 = 0xc0
)

func fitsInt32(v int64) bool { return int64(int32(v)) == v }

// ClassifyTime picks the canonical TimeClass for (atime, mtime).
func ClassifyTime(atime, mtime int64) TimeClass {
	switch {
	case atime == mtime && fitsInt32(atime):
		return TimeSame32
	case atime == mtime:
		return TimeSame64
	case fitsInt32(atime) && fitsInt32(mtime):
		return TimeBoth32
	default:
		return TimeBoth64
	}
}

// NodeSizeClass is the single byte packing FileClass, IDClass and TimeClass
// for one node record.
type NodeSizeClass uint8

// Pack combines the three sub-classes into their one-byte wire
// representation.
func Pack(f FileClass, i IDClass, t TimeClass) NodeSizeClass {
	return NodeSizeClass(uint8(f)&fileMask | uint8(i)&idMask | uint8(t)&timeMask)
}

// File, ID and Time extract the three sub-fields back out of a packed byte.
func (c NodeSizeClass) File() FileClass { return FileClass(uint8(c) & fileMask) }
func (c NodeSizeClass) ID() IDClass     { return IDClass(uint8(c) & idMask) }
func (c NodeSizeClass) Time() TimeClass { return TimeClass(uint8(c) & timeMask) }

// ClassifyNode computes the canonical size-class byte for one node's
// attributes, as used by the writer before emitting a record.
func ClassifyNode(size uint64, uid, gid uint32, atime, mtime int64) NodeSizeClass {
	return Pack(ClassifyFileSize(size), ClassifyID(uid, gid), ClassifyTime(atime, mtime))
}

// Width reports the number of wire bytes a size class occupies.
func (c IDClass) Width() int {
	switch c {
	case IDRootRoot, IDUserUser:
		return 0
	case IDSameRootByte, IDSameUserByte, IDRootByte, IDUserByte:
		return 1
	case IDSameKilo, IDBothByte, IDBothUserByte:
		return 2
	case IDByteKilo, IDKiloByte:
		return 3
	case IDSameGiga, IDBothKilo:
		return 4
	case IDKiloGiga, IDGigaKilo:
		return 6
	case IDBothGiga:
		return 8
	default:
		return -1
	}
}

func (c FileClass) Width() int {
	switch c {
	case FileByte:
		return 1
	case FileKilo:
		return 2
	case FileGiga:
		return 4
	default:
		return 8
	}
}

func (c TimeClass) Width() int {
	switch c {
	case TimeSame32:
		return 4
	case TimeSame64:
		return 8
	case TimeBoth32:
		return 8
	default:
		return 16
	}
}
