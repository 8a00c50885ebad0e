package history

// Collection is the session-wide set of all produced and uploaded images
// backing the gallery and export views. It is ordered newest first and is
// independent of the Timeline: deleting from the collection never rewrites
// timeline entries.
//
// Collection is not safe for concurrent use; the owning session serializes
// access.
type Collection struct {
	images []*Version
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Add inserts v at the front, so the newest image lists first.
func (c *Collection) Add(v *Version) {
	c.images = append([]*Version{v}, c.images...)
}

// Get returns the version with the given ID, if present.
func (c *Collection) Get(id string) (*Version, bool) {
	for _, v := range c.images {
		if v.ID == id {
			return v, true
		}
	}
	return nil, false
}

// All returns a copy of the collection, newest first.
func (c *Collection) All() []*Version {
	if len(c.images) == 0 {
		return nil
	}
	out := make([]*Version, len(c.images))
	copy(out, c.images)
	return out
}

// ByKind returns the versions with the given provenance kind, newest first.
func (c *Collection) ByKind(kind Kind) []*Version {
	var out []*Version
	for _, v := range c.images {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// Select returns the versions matching the given IDs, in collection order.
// Unknown IDs are skipped.
func (c *Collection) Select(ids []string) []*Version {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*Version
	for _, v := range c.images {
		if want[v.ID] {
			out = append(out, v)
		}
	}
	return out
}

// Remove deletes the versions with the given IDs and reports how many were
// removed. Versions already recorded in a timeline are unaffected there.
func (c *Collection) Remove(ids []string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := c.images[:0]
	removed := 0
	for _, v := range c.images {
		if drop[v.ID] {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	c.images = kept
	return removed
}

// First returns the newest image, or nil when the collection is empty.
func (c *Collection) First() *Version {
	if len(c.images) == 0 {
		return nil
	}
	return c.images[0]
}

// Len returns the number of images.
func (c *Collection) Len() int {
	return len(c.images)
}
