package sarfmt

import "encoding/binary"

// Sink and Source are the minimal CRC-gated write/read operations a stream
// must expose for the id/time codecs below. internal/sario's Buffer
// satisfies both by method signature alone, so reader and writer share
// exactly one definition of each field layout instead of each re-deriving
// it from the size-class byte.
type Sink interface {
	CRCWrite([]byte) error
}

type Source interface {
	CRCRead([]byte) error
}

// EncodeID writes a (uid, gid) pair packed according to class.
func EncodeID(w Sink, class IDClass, uid, gid uint32) error {
	var buf [4]byte
	switch class {
	case IDRootRoot, IDUserUser:
		return nil
	case IDSameRootByte:
		return w.CRCWrite([]byte{byte(uid)})
	case IDSameUserByte:
		return w.CRCWrite([]byte{byte(uid - 1000)})
	case IDRootByte:
		return w.CRCWrite([]byte{byte(gid)})
	case IDUserByte:
		return w.CRCWrite([]byte{byte(gid - 1000)})
	case IDSameKilo:
		binary.LittleEndian.PutUint16(buf[:2], uint16(uid))
		return w.CRCWrite(buf[:2])
	case IDBothByte:
		if err := w.CRCWrite([]byte{byte(uid)}); err != nil {
			return err
		}
		return w.CRCWrite([]byte{byte(gid)})
	case IDBothUserByte:
		if err := w.CRCWrite([]byte{byte(uid - 1000)}); err != nil {
			return err
		}
		return w.CRCWrite([]byte{byte(gid - 1000)})
	case IDByteKilo:
		if err := w.CRCWrite([]byte{byte(uid)}); err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(buf[:2], uint16(gid))
		return w.CRCWrite(buf[:2])
	case IDKiloByte:
		binary.LittleEndian.PutUint16(buf[:2], uint16(uid))
		if err := w.CRCWrite(buf[:2]); err != nil {
			return err
		}
		return w.CRCWrite([]byte{byte(gid)})
	case IDSameGiga:
		binary.LittleEndian.PutUint32(buf[:4], uid)
		return w.CRCWrite(buf[:4])
	case IDBothKilo:
		binary.LittleEndian.PutUint16(buf[:2], uint16(uid))
		if err := w.CRCWrite(buf[:2]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(buf[:2], uint16(gid))
		return w.CRCWrite(buf[:2])
	case IDKiloGiga:
		binary.LittleEndian.PutUint16(buf[:2], uint16(uid))
		if err := w.CRCWrite(buf[:2]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(buf[:4], gid)
		return w.CRCWrite(buf[:4])
	case IDGigaKilo:
		binary.LittleEndian.PutUint32(buf[:4], uid)
		if err := w.CRCWrite(buf[:4]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(buf[:2], uint16(gid))
		return w.CRCWrite(buf[:2])
	default: // IDBothGiga
		binary.LittleEndian.PutUint32(buf[:4], uid)
		if err := w.CRCWrite(buf[:4]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(buf[:4], gid)
		return w.CRCWrite(buf[:4])
	}
}

// DecodeID is the inverse of EncodeID.
func DecodeID(r Source, class IDClass) (uid, gid uint32, err error) {
	var b1 [1]byte
	var b2 [2]byte
	var b4 [4]byte

	switch class {
	case IDRootRoot:
		return 0, 0, nil
	case IDUserUser:
		return 1000, 1000, nil
	case IDSameRootByte:
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		uid = uint32(b1[0])
		gid = uid
		return
	case IDSameUserByte:
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		uid = uint32(b1[0]) + 1000
		gid = uid
		return
	case IDRootByte:
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		gid = uint32(b1[0])
		return 0, gid, nil
	case IDUserByte:
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		gid = uint32(b1[0]) + 1000
		return 1000, gid, nil
	case IDSameKilo:
		if err = r.CRCRead(b2[:]); err != nil {
			return
		}
		uid = uint32(binary.LittleEndian.Uint16(b2[:]))
		gid = uid
		return
	case IDBothByte:
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		uid = uint32(b1[0])
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		gid = uint32(b1[0])
		return
	case IDBothUserByte:
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		uid = uint32(b1[0]) + 1000
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		gid = uint32(b1[0]) + 1000
		return
	case IDByteKilo:
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		uid = uint32(b1[0])
		if err = r.CRCRead(b2[:]); err != nil {
			return
		}
		gid = uint32(binary.LittleEndian.Uint16(b2[:]))
		return
	case IDKiloByte:
		if err = r.CRCRead(b2[:]); err != nil {
			return
		}
		uid = uint32(binary.LittleEndian.Uint16(b2[:]))
		if err = r.CRCRead(b1[:]); err != nil {
			return
		}
		gid = uint32(b1[0])
		return
	case IDSameGiga:
		if err = r.CRCRead(b4[:]); err != nil {
			return
		}
		uid = binary.LittleEndian.Uint32(b4[:])
		gid = uid
		return
	case IDBothKilo:
		if err = r.CRCRead(b2[:]); err != nil {
			return
		}
		uid = uint32(binary.LittleEndian.Uint16(b2[:]))
		if err = r.CRCRead(b2[:]); err != nil {
			return
		}
		gid = uint32(binary.LittleEndian.Uint16(b2[:]))
		return
	case IDKiloGiga:
		if err = r.CRCRead(b2[:]); err != nil {
			return
		}
		uid = uint32(binary.LittleEndian.Uint16(b2[:]))
		if err = r.CRCRead(b4[:]); err != nil {
			return
		}
		gid = binary.LittleEndian.Uint32(b4[:])
		return
	case IDGigaKilo:
		if err = r.CRCRead(b4[:]); err != nil {
			return
		}
		uid = binary.LittleEndian.Uint32(b4[:])
		if err = r.CRCRead(b2[:]); err != nil {
			return
		}
		gid = uint32(binary.LittleEndian.Uint16(b2[:]))
		return
	default: // IDBothGiga
		if err = r.CRCRead(b4[:]); err != nil {
			return
		}
		uid = binary.LittleEndian.Uint32(b4[:])
		if err = r.CRCRead(b4[:]); err != nil {
			return
		}
		gid = binary.LittleEndian.Uint32(b4[:])
		return
	}
}

// EncodeTime writes an (atime, mtime) pair packed according to class.
func EncodeTime(w Sink, class TimeClass, atime, mtime int64) error {
	var buf [8]byte
	switch class {
	case TimeSame32:
		binary.LittleEndian.PutUint32(buf[:4], uint32(int32(atime)))
		return w.CRCWrite(buf[:4])
	case TimeSame64:
		binary.LittleEndian.PutUint64(buf[:8], uint64(atime))
		return w.CRCWrite(buf[:8])
	case TimeBoth32:
		binary.LittleEndian.PutUint32(buf[:4], uint32(int32(atime)))
		if err := w.CRCWrite(buf[:4]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(buf[:4], uint32(int32(mtime)))
		return w.CRCWrite(buf[:4])
	default: // TimeBoth64
		binary.LittleEndian.PutUint64(buf[:8], uint64(atime))
		if err := w.CRCWrite(buf[:8]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(buf[:8], uint64(mtime))
		return w.CRCWrite(buf[:8])
	}
}

// DecodeTime is the inverse of EncodeTime.
func DecodeTime(r Source, class TimeClass) (atime, mtime int64, err error) {
	var buf [8]byte
	switch class {
	case TimeSame32:
		if err = r.CRCRead(buf[:4]); err != nil {
			return
		}
		atime = int64(int32(binary.LittleEndian.Uint32(buf[:4])))
		mtime = atime
		return
	case TimeSame64:
		if err = r.CRCRead(buf[:8]); err != nil {
			return
		}
		atime = int64(binary.LittleEndian.Uint64(buf[:8]))
		mtime = atime
		return
	case TimeBoth32:
		if err = r.CRCRead(buf[:4]); err != nil {
			return
		}
		atime = int64(int32(binary.LittleEndian.Uint32(buf[:4])))
		if err = r.CRCRead(buf[:4]); err != nil {
			return
		}
		mtime = int64(int32(binary.LittleEndian.Uint32(buf[:4])))
		return
	default: // TimeBoth64
		if err = r.CRCRead(buf[:8]); err != nil {
			return
		}
		atime = int64(binary.LittleEndian.Uint64(buf[:8]))
		if err = r.CRCRead(buf[:8]); err != nil {
			return
		}
		mtime = int64(binary.LittleEndian.Uint64(buf[:8]))
		return
	}
}
