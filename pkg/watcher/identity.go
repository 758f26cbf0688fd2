package watcher

import "os"

// maxIdentities bounds the number of remembered file identities.
const maxIdentities = 4096

type identityEntry struct {
	info os.FileInfo
	seq  uint64
}

type identityOrder struct {
	path string
	seq  uint64
}

// identities remembers the identity of recently seen files so that a RENAME
// can be matched with the CREATE of the same file. The oldest entry is
// evicted first once the limit is reached.
type identities struct {
	max    int
	seq    uint64
	byPath map[string]identityEntry
	order  []identityOrder
}

func newIdentities(limit int) *identities {
	return &identities{
		max:    limit,
		byPath: make(map[string]identityEntry),
	}
}

// put records info for path, replacing any earlier identity.
func (c *identities) put(path string, info os.FileInfo) {
	c.seq++
	c.byPath[path] = identityEntry{info: info, seq: c.seq}
	c.order = append(c.order, identityOrder{path: path, seq: c.seq})

	for len(c.byPath) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		if e, ok := c.byPath[oldest.path]; ok && e.seq == oldest.seq {
			delete(c.byPath, oldest.path)
		}
	}

	// Drop order records whose entry was replaced or taken.
	if len(c.order) > 2*c.max {
		live := make([]identityOrder, 0, len(c.byPath))
		for _, o := range c.order {
			if e, ok := c.byPath[o.path]; ok && e.seq == o.seq {
				live = append(live, o)
			}
		}
		c.order = live
	}
}

// take removes and returns the identity recorded for path, or nil.
func (c *identities) take(path string) os.FileInfo {
	e, ok := c.byPath[path]
	if !ok {
		return nil
	}
	delete(c.byPath, path)
	return e.info
}

func (c *identities) size() int {
	return len(c.byPath)
}
