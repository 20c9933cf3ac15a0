// Package memory provides in-memory token storage for pqcall.
package memory

import "sync"

// DigestSet is a concurrent-safe set of token lookup digests.
type DigestSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewDigestSet creates an empty set.
func NewDigestSet() *DigestSet {
	return &DigestSet{
		items: make(map[string]struct{}),
	}
}

// Add adds a digest to the set.
func (s *DigestSet) Add(digest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[digest] = struct{}{}
}

// Remove removes a digest from the set.
func (s *DigestSet) Remove(digest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, digest)
}

// Len reports the set size.
func (s *DigestSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Values returns a snapshot of the set's members.
func (s *DigestSet) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := make([]string, 0, len(s.items))
	for digest := range s.items {
		values = append(values, digest)
	}
	return values
}

// UserIndex maps user ids to the digests of their tokens.
type UserIndex struct {
	mu    sync.RWMutex
	users map[string]*DigestSet
}

// NewUserIndex creates an empty index.
func NewUserIndex() *UserIndex {
	return &UserIndex{
		users: make(map[string]*DigestSet),
	}
}

// Add records a digest under a user, creating the set on first use.
func (i *UserIndex) Add(userID, digest string) {
	i.mu.Lock()
	set, ok := i.users[userID]
	if !ok {
		set = NewDigestSet()
		i.users[userID] = set
	}
	i.mu.Unlock()
	set.Add(digest)
}

// Remove drops a digest from a user's set, discarding the set when it
// empties.
func (i *UserIndex) Remove(userID, digest string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	set, ok := i.users[userID]
	if !ok {
		return
	}
	set.Remove(digest)
	if set.Len() == 0 {
		delete(i.users, userID)
	}
}

// Digests returns a snapshot of a user's token digests.
func (i *UserIndex) Digests(userID string) []string {
	i.mu.RLock()
	set, ok := i.users[userID]
	i.mu.RUnlock()
	if !ok {
		return nil
	}
	return set.Values()
}

// Users reports how many users hold at least one token.
func (i *UserIndex) Users() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.users)
}
