package blob

import "fmt"

// Table is an ordered sequence of blob Infos. Each Node's chunk references a
// blob by position in this table (spec.md §3 "BlobTable"). Positions are
// stable for the duration of a single merge.
type Table struct {
	blobs    []Info
	position map[string]int // blob_id -> position
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{position: make(map[string]int)}
}

// Len returns the number of blobs currently in the table.
func (t *Table) Len() int { return len(t.blobs) }

// Blobs returns the table's blobs in table order. The returned slice must
// not be mutated by the caller.
func (t *Table) Blobs() []Info { return t.blobs }

// Position returns the table position of blobID, and whether it is present.
func (t *Table) Position(blobID string) (int, bool) {
	p, ok := t.position[blobID]
	return p, ok
}

// Append adds info to the end of the table under its BlobID, recording its
// position. It is the caller's responsibility to have already checked
// !Position(info.BlobID) to avoid duplicates (spec.md P2); Append panics on a
// duplicate blob_id to surface a merger bug immediately rather than silently
// producing an invalid table.
func (t *Table) Append(info Info) int {
	if _, exists := t.position[info.BlobID]; exists {
		panic(fmt.Sprintf("blob: duplicate blob_id %q appended to table", info.BlobID))
	}
	pos := len(t.blobs)
	t.blobs = append(t.blobs, info)
	t.position[info.BlobID] = pos
	return pos
}

// EnsureAppended appends info if its blob_id is not already present, and
// returns its (possibly pre-existing) position. This is the "otherwise leave
// existing entry untouched" branch of spec.md §4.H step 3c.
func (t *Table) EnsureAppended(info Info) int {
	if pos, ok := t.position[info.BlobID]; ok {
		return pos
	}
	return t.Append(info)
}

// At returns the Info at position pos.
func (t *Table) At(pos int) (Info, bool) {
	if pos < 0 || pos >= len(t.blobs) {
		return Info{}, false
	}
	return t.blobs[pos], true
}
