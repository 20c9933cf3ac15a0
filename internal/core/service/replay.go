package service

import (
	"container/list"
	"sync"
	"time"
)

// MessageCache is an LRU cache of recently processed message ids, used
// for anti-replay protection on the signaling channel. Entries expire
// after the TTL; once full, the least recently seen id is evicted.
type MessageCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
}

type messageEntry struct {
	messageID string
	seenAt    time.Time
}

// NewMessageCache creates a cache with the given capacity and TTL.
func NewMessageCache(capacity int, ttl time.Duration) *MessageCache {
	return &MessageCache{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Contains reports whether a message id has been seen and is not
// expired. A hit refreshes the entry's LRU position.
func (c *MessageCache) Contains(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[messageID]
	if !exists {
		return false
	}
	entry := elem.Value.(*messageEntry)
	if time.Since(entry.seenAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.items, messageID)
		return false
	}
	c.order.MoveToFront(elem)
	return true
}

// Add records a message id as seen. Validation checks Contains first
// and calls Add only once a message fully verifies, under the channel
// lock, so a corrected retransmission of a rejected id can still pass.
func (c *MessageCache) Add(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(messageID)
}

func (c *MessageCache) addLocked(messageID string) {
	if elem, exists := c.items[messageID]; exists {
		elem.Value.(*messageEntry).seenAt = time.Now()
		c.order.MoveToFront(elem)
		return
	}

	c.cleanupExpiredLocked()
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*messageEntry).messageID)
	}

	elem := c.order.PushFront(&messageEntry{
		messageID: messageID,
		seenAt:    time.Now(),
	})
	c.items[messageID] = elem
}

func (c *MessageCache) cleanupExpiredLocked() int {
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		entry := elem.Value.(*messageEntry)
		if time.Since(entry.seenAt) <= c.ttl {
			break
		}
		prev := elem.Prev()
		c.order.Remove(elem)
		delete(c.items, entry.messageID)
		removed++
		elem = prev
	}
	return removed
}

// Prune drops expired entries and returns how many were removed.
func (c *MessageCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanupExpiredLocked()
}

// Size reports the number of cached ids, expired entries included.
func (c *MessageCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear empties the cache.
func (c *MessageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}
