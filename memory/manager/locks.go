package manager

import (
	"hash/fnv"
	"sync"
)

// shardedLocks gives every memory id its own effective mutex without
// allocating one per id: ids hash (FNV-1a) onto a fixed number of shard
// mutexes. Lock ordering discipline: callers take the per-id shard lock
// before touching any store-internal lock, and never hold a shard lock
// across an embedding provider call.
type shardedLocks struct {
	shards []sync.Mutex
}

func newShardedLocks(n int) *shardedLocks {
	if n <= 0 {
		n = 64
	}
	return &shardedLocks{shards: make([]sync.Mutex, n)}
}

func (s *shardedLocks) shardFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *shardedLocks) Lock(id string)   { s.shardFor(id).Lock() }
func (s *shardedLocks) Unlock(id string) { s.shardFor(id).Unlock() }
