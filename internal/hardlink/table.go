// Package hardlink implements the writer's hardlink reconciliation table:
// the first time an (inode, device) pair is seen its path is recorded, and
// every subsequent sighting is reported as a hardlink back to that path
// until the file's remaining link count is exhausted.
package hardlink

// BlockSize is the number of slots the table grows by when it runs out of
// room.
const BlockSize = 1024

type slot struct {
	ino, dev uint64
	links    int64
	path     string
	used     bool
}

// Table is a writer's hardlink reconciliation table. The zero value is not
// ready for use; call New.
type Table struct {
	slots []slot
}

// New returns a table pre-sized to one growth block, matching the eager
// allocation the writer performs up front.
func New() *Table {
	return &Table{slots: make([]slot, BlockSize)}
}

// Observe records a sighting of a file with the given inode, device and
// POSIX link count at path. If the (inode, device) pair was seen before,
// it returns the path first recorded for it and true; the remaining link
// count is decremented, and the slot is freed once it reaches one (the last
// link has now been seen). If the
// pair is new, it is recorded under path and Observe returns ("", false).
func (t *Table) Observe(ino, dev uint64, nlink uint32, path string) (target string, found bool) {
	nullIdx := -1

	for i := len(t.slots) - 1; i >= 0; i-- {
		s := &t.slots[i]
		if !s.used {
			nullIdx = i
			continue
		}
		if s.ino == ino && s.dev == dev {
			target = s.path
			s.links--
			if s.links <= 1 {
				s.used = false
				s.path = ""
			}
			return target, true
		}
	}

	if nullIdx < 0 {
		t.slots = append(t.slots, make([]slot, BlockSize)...)
		nullIdx = len(t.slots) - 1
	}

	t.slots[nullIdx] = slot{ino: ino, dev: dev, links: int64(nlink), path: path, used: true}
	return "", false
}

// Reset clears every slot without shrinking the underlying allocation.
func (t *Table) Reset() {
	for i := range t.slots {
		t.slots[i] = slot{}
	}
}
