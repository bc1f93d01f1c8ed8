package main

import (
	"fmt"
	"os/user"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/simplearchiver/sar"
	"github.com/simplearchiver/sar/internal/sarfmt"
)

var (
	userNames  = map[uint32]string{}
	groupNames = map[uint32]string{}

	dirColor  = color.New(color.FgBlue, color.Bold).SprintFunc()
	lnkColor  = color.New(color.FgCyan).SprintFunc()
	devColor  = color.New(color.FgYellow).SprintFunc()
	hardColor = color.New(color.FgMagenta).SprintFunc()
)

func lookupUser(uid uint32) string {
	if name, ok := userNames[uid]; ok {
		return name
	}
	name := strconv.FormatUint(uint64(uid), 10)
	if u, err := user.LookupId(name); err == nil {
		name = u.Username
	}
	userNames[uid] = name
	return name
}

func lookupGroup(gid uint32) string {
	if name, ok := groupNames[gid]; ok {
		return name
	}
	name := strconv.FormatUint(uint64(gid), 10)
	if g, err := user.LookupGroupId(name); err == nil {
		name = g.Name
	}
	groupNames[gid] = name
	return name
}

func kindGlyph(k sarfmt.Kind) byte {
	switch k {
	case sarfmt.KindDir:
		return 'd'
	case sarfmt.KindLnk:
		return 'l'
	case sarfmt.KindFIFO:
		return 'p'
	case sarfmt.KindBlk:
		return 'b'
	case sarfmt.KindChr:
		return 'c'
	default:
		return '-'
	}
}

// permString renders the 9 rwx bits of mode ls -l style, folding in the
// set-uid/set-gid/sticky bits as the usual s/S and t/T overlays.
func permString(mode uint16) string {
	bits := [9]struct {
		mask uint16
		ch   byte
	}{
		{sarfmt.PermRUSR, 'r'}, {sarfmt.PermWUSR, 'w'}, {sarfmt.PermXUSR, 'x'},
		{sarfmt.PermRGRP, 'r'}, {sarfmt.PermWGRP, 'w'}, {sarfmt.PermXGRP, 'x'},
		{sarfmt.PermROTH, 'r'}, {sarfmt.PermWOTH, 'w'}, {sarfmt.PermXOTH, 'x'},
	}
	out := make([]byte, 9)
	for i, b := range bits {
		if mode&b.mask != 0 {
			out[i] = b.ch
		} else {
			out[i] = '-'
		}
	}
	overlay := func(idx int, set bool, lower, upper byte) {
		if !set {
			return
		}
		if out[idx] == 'x' {
			out[idx] = lower
		} else {
			out[idx] = upper
		}
	}
	overlay(2, mode&sarfmt.PermSUID != 0, 's', 'S')
	overlay(5, mode&sarfmt.PermSGID != 0, 's', 'S')
	overlay(8, mode&sarfmt.PermSVTX != 0, 't', 'T')
	return string(out)
}

func colorizeMode(s string, k sarfmt.Kind) string {
	switch k {
	case sarfmt.KindDir:
		return dirColor(s)
	case sarfmt.KindLnk:
		return lnkColor(s)
	case sarfmt.KindBlk, sarfmt.KindChr:
		return devColor(s)
	case sarfmt.KindHard:
		return hardColor(s)
	default:
		return s
	}
}

// showEntry renders one decoded entry per the verbosity levels: 0 prints
// nothing (the caller shouldn't even call this), 1 is a bare path, 2 adds
// an ls -l-style row, 3 appends the CRC when present, 4 shows both atime
// and mtime instead of just mtime.
func showEntry(e sar.Entry, verboseLevel int, useColor bool) {
	if verboseLevel <= 0 {
		return
	}
	if e.Ignored {
		fmt.Printf("ignored: %s\n", e.Path)
		return
	}
	if verboseLevel == 1 {
		fmt.Println(e.Path)
		return
	}

	glyph := string(kindGlyph(e.Kind)) + permString(e.Mode)
	if useColor {
		glyph = colorizeMode(glyph, e.Kind)
	}

	ts := e.Mtime.Format("2006-01-02 15:04:05")
	if verboseLevel >= 4 {
		ts = "atime=" + e.Atime.Format("2006-01-02 15:04:05") + " mtime=" + ts
	}

	var extra strings.Builder
	switch e.Kind {
	case sarfmt.KindLnk:
		extra.WriteString(" -> " + e.Link)
	case sarfmt.KindHard:
		extra.WriteString(" => " + e.Link)
	}
	if verboseLevel >= 3 && e.CRC != 0 {
		fmt.Fprintf(&extra, " {%08x}", e.CRC)
	}

	fmt.Printf("%s %-8s %-8s %10d %s %s%s\n",
		glyph, lookupUser(e.UID), lookupGroup(e.GID), e.Size, ts, e.Path, extra.String())
}
