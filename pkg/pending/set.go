// Package pending holds the set of paths that changed but have not been
// dispatched yet.
//
// The set is the only shared mutable structure between the capture side
// (many concurrent notification callbacks) and the single dispatch worker.
// Keys are spread over independently locked shards, so Add and Remove on
// different paths rarely contend and Snapshot never holds more than one
// shard lock at a time.
//
// Every Add stamps the entry with a fresh generation number, even when the
// path was already pending. A dispatcher that publishes before removing can
// therefore use RemoveIfUnchanged to avoid dropping a change that arrived
// while the publish was in flight.
package pending

import (
	"hash/maphash"
	"sort"
	"sync"
	"sync/atomic"
)

const defaultShards = 32

type shard struct {
	mu    sync.RWMutex
	items map[string]uint64
}

// Set is a concurrent, deduplicating set of paths.
//
// The zero value is not usable; create sets with New.
type Set struct {
	seed   maphash.Seed
	shards []*shard
	seq    atomic.Uint64
	size   atomic.Int64
}

// New creates an empty set.
func New() *Set {
	return NewWithShards(defaultShards)
}

// NewWithShards creates an empty set with n shards (minimum 1).
func NewWithShards(n int) *Set {
	if n < 1 {
		n = 1
	}

	s := &Set{
		seed:   maphash.MakeSeed(),
		shards: make([]*shard, n),
	}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[string]uint64)}
	}
	return s
}

func (s *Set) shardFor(path string) *shard {
	h := maphash.String(s.seed, path)
	return s.shards[h%uint64(len(s.shards))]
}

// Add marks path as pending. It returns true if the path was newly inserted
// and false if it was already pending; in both cases the entry's generation
// is advanced.
func (s *Set) Add(path string) bool {
	sh := s.shardFor(path)
	gen := s.seq.Add(1)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, exists := sh.items[path]
	sh.items[path] = gen
	if !exists {
		s.size.Add(1)
	}
	return !exists
}

// Remove deletes path. It returns true only for the caller that actually
// removed it; a false result means another caller already claimed the path
// or it was never pending.
func (s *Set) Remove(path string) bool {
	sh := s.shardFor(path)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.items[path]; !exists {
		return false
	}
	delete(sh.items, path)
	s.size.Add(-1)
	return true
}

// RemoveIfUnchanged deletes path only if its generation still equals gen.
// It returns false if the path is gone or was re-added since gen was read.
func (s *Set) RemoveIfUnchanged(path string, gen uint64) bool {
	sh := s.shardFor(path)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, exists := sh.items[path]
	if !exists || current != gen {
		return false
	}
	delete(sh.items, path)
	s.size.Add(-1)
	return true
}

// Generation returns the generation stamped by the most recent Add of path.
func (s *Set) Generation(path string) (uint64, bool) {
	sh := s.shardFor(path)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	gen, ok := sh.items[path]
	return gen, ok
}

// Contains reports whether path is pending.
func (s *Set) Contains(path string) bool {
	_, ok := s.Generation(path)
	return ok
}

// Len returns the number of pending paths.
func (s *Set) Len() int {
	return int(s.size.Load())
}

// Snapshot returns the pending paths, sorted. The result is a copy taken one
// shard at a time; it may already be stale when the caller reads it.
func (s *Set) Snapshot() []string {
	paths := make([]string, 0, s.Len())

	for _, sh := range s.shards {
		sh.mu.RLock()
		for p := range sh.items {
			paths = append(paths, p)
		}
		sh.mu.RUnlock()
	}

	sort.Strings(paths)
	return paths
}
