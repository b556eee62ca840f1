// Package memory provides an in-process index store. It backs the test
// suites and works as a fallback backend when neither redis nor sqlite is
// configured; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
)

type Store struct {
	mu     sync.RWMutex
	values map[string]string
	keys   []string // sorted
}

func New() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; !exists {
		i := sort.SearchStrings(s.keys, key)
		s.keys = append(s.keys, "")
		copy(s.keys[i+1:], s.keys[i:])
		s.keys[i] = key
	}
	s.values[key] = value
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; !exists {
		return nil
	}
	delete(s.values, key)
	i := sort.SearchStrings(s.keys, key)
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	return nil
}

func (s *Store) Scan(ctx context.Context, start string, reverse bool, fn func(key, value string) (bool, error)) error {
	s.mu.RLock()
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	values := make(map[string]string, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	s.mu.RUnlock()

	if reverse {
		// First key <= start, then descending.
		i := sort.SearchStrings(keys, start)
		if i == len(keys) || keys[i] > start {
			i--
		}
		for ; i >= 0; i-- {
			cont, err := fn(keys[i], values[keys[i]])
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	}

	for i := sort.SearchStrings(keys, start); i < len(keys); i++ {
		cont, err := fn(keys[i], values[keys[i]])
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
