package config

import "sync"

// Store holds the current configuration snapshot and guards access with a
// RWMutex so a watcher can swap it while readers use it.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore initialises a store with a copy of the given configuration.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cloneConfig(cfg)}
}

// Current returns a defensive copy of the current configuration.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneConfig(s.cfg)
}

// Replace swaps in a new configuration snapshot.
func (s *Store) Replace(cfg Config) {
	snapshot := cloneConfig(cfg)

	s.mu.Lock()
	s.cfg = snapshot
	s.mu.Unlock()
}
