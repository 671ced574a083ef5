package kidauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"hash/fnv"
	"sync"
	"time"
)

// CodeStore holds the short-lived one-time login codes issued during the
// second login step. At most one code is live per account; issuing a new
// one supersedes any previous code.
//
// Verify consumes the code on success so it can never be replayed. A
// mismatched code must leave the stored entry in place.
type CodeStore interface {
	// Issue stores code for accountID with the given lifetime, replacing
	// any code previously issued to that account.
	Issue(ctx context.Context, accountID, code string, ttl time.Duration) error

	// Verify checks code against the live entry for accountID and deletes
	// the entry on match. Missing, expired, or mismatched codes fail with
	// [ErrCodeInvalid].
	Verify(ctx context.Context, accountID, code string) error

	// Clear drops any live code for accountID. Clearing an absent entry
	// is not an error.
	Clear(ctx context.Context, accountID string) error
}

const memoryCodeShards = 32

type memoryCodeEntry struct {
	secretHash [32]byte
	expiresAt  time.Time
}

type memoryCodeShard struct {
	mu      sync.Mutex
	entries map[string]memoryCodeEntry
}

// MemoryCodeStore is an in-process CodeStore for single-node deployments
// and tests. Entries are sharded across independently locked maps so
// concurrent logins for different accounts do not contend.
type MemoryCodeStore struct {
	shards [memoryCodeShards]*memoryCodeShard
	now    func() time.Time
}

// NewMemoryCodeStore returns an empty in-process store.
func NewMemoryCodeStore() *MemoryCodeStore {
	s := &MemoryCodeStore{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &memoryCodeShard{entries: make(map[string]memoryCodeEntry)}
	}
	return s
}

func (s *MemoryCodeStore) shard(accountID string) *memoryCodeShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return s.shards[h.Sum32()%memoryCodeShards]
}

func (s *MemoryCodeStore) Issue(ctx context.Context, accountID, code string, ttl time.Duration) error {
	if accountID == "" || code == "" {
		return ErrMissingField
	}
	if ttl <= 0 {
		return ErrCodeInvalid
	}

	shard := s.shard(accountID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.entries[accountID] = memoryCodeEntry{
		secretHash: sha256.Sum256([]byte(code)),
		expiresAt:  s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryCodeStore) Verify(ctx context.Context, accountID, code string) error {
	if accountID == "" || code == "" {
		return ErrCodeInvalid
	}

	shard := s.shard(accountID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[accountID]
	if !ok {
		return ErrCodeInvalid
	}
	if s.now().After(entry.expiresAt) {
		delete(shard.entries, accountID)
		return ErrCodeInvalid
	}

	provided := sha256.Sum256([]byte(code))
	if subtle.ConstantTimeCompare(entry.secretHash[:], provided[:]) != 1 {
		// Entry survives a mismatch so the user can retry within the TTL.
		return ErrCodeInvalid
	}

	delete(shard.entries, accountID)
	return nil
}

func (s *MemoryCodeStore) Clear(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}

	shard := s.shard(accountID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.entries, accountID)
	return nil
}

// Sweep removes expired entries across all shards and reports how many
// were dropped. Expired entries are otherwise removed lazily on Verify,
// so calling Sweep is optional.
func (s *MemoryCodeStore) Sweep() int {
	now := s.now()
	removed := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		for id, entry := range shard.entries {
			if now.After(entry.expiresAt) {
				delete(shard.entries, id)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}
