package storage

import "sync"

// KeySet tracks stored book ids.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewKeySet creates a KeySet with the given estimated capacity.
func NewKeySet(estimatedCapacity int) *KeySet {
	return &KeySet{keys: make(map[string]struct{}, estimatedCapacity)}
}

// Contains returns true if id has been added.
func (k *KeySet) Contains(id string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[id]
	return ok
}

// Add records id and reports whether it was new.
func (k *KeySet) Add(id string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[id]; ok {
		return false
	}
	k.keys[id] = struct{}{}
	return true
}

// Len returns the number of ids.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}
