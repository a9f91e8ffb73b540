package gns

import (
	"hash/maphash"
	"sync"
)

// shardCount is the number of independent lock domains the primary index
// is split across. Readers and writers of keys in different shards never
// contend, which is the property a point-lookup index actually needs;
// plain sync.RWMutex shards get there without a lock-free map
// dependency.
const shardCount = 64

type shard struct {
	mu   sync.RWMutex
	rows map[PrimaryIndexKey]*Row
}

// ShardedIndex is the model's primary index.
type ShardedIndex struct {
	seed   maphash.Seed
	shards [shardCount]*shard
}

// NewShardedIndex builds an empty primary index.
func NewShardedIndex() *ShardedIndex {
	idx := &ShardedIndex{seed: maphash.MakeSeed()}
	for i := range idx.shards {
		idx.shards[i] = &shard{rows: make(map[PrimaryIndexKey]*Row)}
	}
	return idx
}

func (idx *ShardedIndex) shardFor(k PrimaryIndexKey) *shard {
	var h maphash.Hash
	h.SetSeed(idx.seed)
	h.WriteByte(byte(k.Tag))
	_, _ = h.Write(u64bytes(k.u64))
	_, _ = h.WriteString(k.str)
	return idx.shards[h.Sum64()%shardCount]
}

func u64bytes(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

// Get returns the row at k, if present.
func (idx *ShardedIndex) Get(k PrimaryIndexKey) (*Row, bool) {
	s := idx.shardFor(k)
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[k]
	return r, ok
}

// Insert unconditionally sets the row at k, replacing any existing row.
func (idx *ShardedIndex) Insert(k PrimaryIndexKey, r *Row) {
	s := idx.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[k] = r
}

// Delete removes the row at k, if present.
func (idx *ShardedIndex) Delete(k PrimaryIndexKey) {
	s := idx.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, k)
}

// GetOrInsert returns the existing row at k, or inserts and returns make()
// if absent.
func (idx *ShardedIndex) GetOrInsert(k PrimaryIndexKey, make func() *Row) (*Row, bool) {
	s := idx.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[k]; ok {
		return r, true
	}
	r := make()
	s.rows[k] = r
	return r, false
}

// Len returns the total row count across all shards.
func (idx *ShardedIndex) Len() int {
	n := 0
	for _, s := range idx.shards {
		s.mu.RLock()
		n += len(s.rows)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for every row in the index. fn must not mutate the index.
func (idx *ShardedIndex) Range(fn func(PrimaryIndexKey, *Row) bool) {
	for _, s := range idx.shards {
		s.mu.RLock()
		for k, r := range s.rows {
			if !fn(k, r) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}
