package session

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// MemoryStore is an in-process Store split across lock-striped shards.
// Expired records are dropped lazily on access and by Sweep.
type MemoryStore struct {
	shards [shardCount]memoryShard
	now    func() time.Time
}

type memoryShard struct {
	mu      sync.Mutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	sess     Session
	deadline time.Time
}

// NewMemoryStore constructs a MemoryStore. A nil clock uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	s := &MemoryStore{now: now}
	for i := range s.shards {
		s.shards[i].records = make(map[string]memoryRecord)
	}
	return s
}

func (s *MemoryStore) Put(_ context.Context, sess Session, ttl time.Duration) error {
	sh := s.shard(sess.ID)
	sh.mu.Lock()
	sh.records[sess.ID] = memoryRecord{sess: sess, deadline: s.now().Add(ttl)}
	sh.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	return s.read(id, false)
}

func (s *MemoryStore) Take(_ context.Context, id string) (Session, error) {
	return s.read(id, true)
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	sh := s.shard(id)
	sh.mu.Lock()
	delete(sh.records, id)
	sh.mu.Unlock()
	return nil
}

// Sweep removes every expired record and reports how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, rec := range sh.records {
			if !rec.deadline.After(now) {
				delete(sh.records, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len counts live and not yet swept records.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}
	return n
}

func (s *MemoryStore) read(id string, remove bool) (Session, error) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec, ok := sh.records[id]
	if !ok {
		return Session{}, ErrNoSession
	}
	if !rec.deadline.After(s.now()) {
		delete(sh.records, id)
		return Session{}, ErrNoSession
	}
	if remove {
		delete(sh.records, id)
	}
	return rec.sess, nil
}

func (s *MemoryStore) shard(id string) *memoryShard {
	return &s.shards[xxhash.Sum64String(id)%shardCount]
}
