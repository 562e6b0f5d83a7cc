package store

import (
	"context"
	"sync"
)

// MemoryStore keeps encoded slots in memory. Values are round-tripped through
// the codec so callers never share memory with the store.
type MemoryStore struct {
	mu    sync.Mutex
	codec Codec
	slots map[string][]byte

	// FailSave, when set, is returned by every Save. Tests use it to
	// exercise write-failure paths.
	FailSave error
}

// NewMemoryStore returns an empty JSON-backed memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codec: JSONCodec{}, slots: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, slot string, v any) error {
	s.mu.Lock()
	b, ok := s.slots[slot]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return s.codec.Unmarshal(b, v)
}

func (s *MemoryStore) Save(_ context.Context, slot string, v any) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	s.mu.Lock()
	fail := s.FailSave
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	b, err := s.codec.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.slots[slot] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, slot string) error {
	s.mu.Lock()
	delete(s.slots, slot)
	s.mu.Unlock()
	return nil
}

// SetFailSave toggles the injected write failure.
func (s *MemoryStore) SetFailSave(err error) {
	s.mu.Lock()
	s.FailSave = err
	s.mu.Unlock()
}

// Has reports whether slot has been written.
func (s *MemoryStore) Has(slot string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[slot]
	return ok
}
