package sarfmt

import "golang.org/x/sys/unix"

// ModeToArchive translates a raw POSIX st_mode value into an archive mode.
// Kinds without an archive analogue (sockets, etc.) translate to the
// control/ignore sentinel rather than failing: the writer emits that
// sentinel and silently drops the entry.
func ModeToArchive(mode uint32) uint16 {
	var kind Kind
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		kind = KindReg
	case unix.S_IFDIR:
		kind = KindDir
	case unix.S_IFLNK:
		kind = KindLnk
	case unix.S_IFIFO:
		kind = KindFIFO
	case unix.S_IFBLK:
		kind = KindBlk
	case unix.S_IFCHR:
		kind = KindChr
	default:
		return CtrlModeIgnore
	}

	archMode := uint16(kind)
	if mode&unix.S_ISUID != 0 {
		archMode |= PermSUID
	}
	if mode&unix.S_ISGID != 0 {
		archMode |= PermSGID
	}
	if mode&unix.S_ISVTX != 0 {
		archMode |= PermSVTX
	}
	if mode&unix.S_IRUSR != 0 {
		archMode |= PermRUSR
	}
	if mode&unix.S_IWUSR != 0 {
		archMode |= PermWUSR
	}
	if mode&unix.S_IXUSR != 0 {
		archMode |= PermXUSR
	}
	if mode&unix.S_IRGRP != 0 {
		archMode |= PermRGRP
	}
	if mode&unix.S_IWGRP != 0 {
		archMode |= PermWGRP
	}
	if mode&unix.S_IXGRP != 0 {
		archMode |= PermXGRP
	}
	if mode&unix.S_IROTH != 0 {
		archMode |= PermROTH
	}
	if mode&unix.S_IWOTH != 0 {
		archMode |= PermWOTH
	}
	if mode&unix.S_IXOTH != 0 {
		archMode |= PermXOTH
	}
	return archMode
}

// ArchiveToMode is the inverse of ModeToArchive. ok is false for an archive
// kind with no POSIX analogue (control/hardlink records), matching the "-1"
// sentinel of the original uint162mode.
func ArchiveToMode(archMode uint16) (mode uint32, ok bool) {
	switch KindOf(archMode) {
	case KindReg:
		mode = unix.S_IFREG
	case KindDir:
		mode = unix.S_IFDIR
	case KindLnk:
		mode = unix.S_IFLNK
	case KindFIFO:
		mode = unix.S_IFIFO
	case KindBlk:
		mode = unix.S_IFBLK
	case KindChr:
		mode = unix.S_IFCHR
	default:
		return 0, false
	}

	if archMode&PermSUID != 0 {
		mode |= unix.S_ISUID
	}
	if archMode&PermSGID != 0 {
		mode |= unix.S_ISGID
	}
	if archMode&PermSVTX != 0 {
		mode |= unix.S_ISVTX
	}
	if archMode&PermRUSR != 0 {
		mode |= unix.S_IRUSR
	}
	if archMode&PermWUSR != 0 {
		mode |= unix.S_IWUSR
	}
	if archMode&PermXUSR != 0 {
		mode |= unix.S_IXUSR
	}
	if archMode&PermRGRP != 0 {
		mode |= unix.S_IRGRP
	}
	if archMode&PermWGRP != 0 {
		mode |= unix.S_IWGRP
	}
	if archMode&PermXGRP != 0 {
		mode |= unix.S_IXGRP
	}
	if archMode&PermROTH != 0 {
		mode |= unix.S_IROTH
	}
	if archMode&PermWOTH != 0 {
		mode |= unix.S_IWOTH
	}
	if archMode&PermXOTH != 0 {
		mode |= unix.S_IXOTH
	}
	return mode, true
}
