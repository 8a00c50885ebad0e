package history

// Timeline is the ordered sequence of image versions for a working session
// together with the playhead marking the active image. Appending is the only
// way entries join the timeline; navigation moves the playhead without
// mutating entries.
//
// The active image is tracked separately from the playhead so that the
// gallery's delete path can clear the canvas without rewriting the timeline.
//
// Timeline is not safe for concurrent use; the owning session serializes
// access.
type Timeline struct {
	entries  []*Version
	playhead int
	active   *Version
}

// NewTimeline returns an empty timeline with the playhead parked at -1.
func NewTimeline() *Timeline {
	return &Timeline{playhead: -1}
}

// Append discards any entries beyond the current playhead, appends v, moves
// the playhead to the new tail, and makes v the active image. Redoable
// states are gone once a new version is produced.
func (t *Timeline) Append(v *Version) {
	t.entries = append(t.entries[:t.playhead+1], v)
	t.playhead = len(t.entries) - 1
	t.active = v
}

// Undo moves the playhead one step back and activates that entry. It
// reports whether a move was possible; at the boundary it is a no-op.
func (t *Timeline) Undo() bool {
	if !t.CanUndo() {
		return false
	}
	t.playhead--
	t.active = t.entries[t.playhead]
	return true
}

// Redo moves the playhead one step forward and activates that entry. It
// reports whether a move was possible; at the boundary it is a no-op.
func (t *Timeline) Redo() bool {
	if !t.CanRedo() {
		return false
	}
	t.playhead++
	t.active = t.entries[t.playhead]
	return true
}

// JumpTo re-points the playhead at the entry matching v's ID without
// truncating anything. A version not present in the timeline (for example
// one loaded out of band) is appended instead.
func (t *Timeline) JumpTo(v *Version) {
	for i, e := range t.entries {
		if e.ID == v.ID {
			t.playhead = i
			t.active = e
			return
		}
	}
	t.Append(v)
}

// Reset clears all entries, parks the playhead at -1 and clears the active
// image. Used when the user explicitly clears the canvas.
func (t *Timeline) Reset() {
	t.entries = nil
	t.playhead = -1
	t.active = nil
}

// ClearActive clears the active image without touching entries or playhead.
// Used by the delete path when no gallery image remains.
func (t *Timeline) ClearActive() {
	t.active = nil
}

// CanUndo reports whether an earlier entry exists.
func (t *Timeline) CanUndo() bool {
	return t.playhead > 0
}

// CanRedo reports whether a later entry exists.
func (t *Timeline) CanRedo() bool {
	return t.playhead < len(t.entries)-1
}

// Active returns the active image, or nil when the canvas is empty.
func (t *Timeline) Active() *Version {
	return t.active
}

// Playhead returns the current playhead index, or -1 when empty.
func (t *Timeline) Playhead() int {
	return t.playhead
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entry sequence, oldest first. The versions
// themselves are shared; they are immutable.
func (t *Timeline) Entries() []*Version {
	if len(t.entries) == 0 {
		return nil
	}
	out := make([]*Version, len(t.entries))
	copy(out, t.entries)
	return out
}
