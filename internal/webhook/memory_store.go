package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*EventRecord
}

// NewMemoryStore constructs an in-memory event store for tests.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]*EventRecord)}
}

func key(provider, reference string) string {
	return provider + ":" + reference
}

func (s *memoryStore) RecordIfNew(_ context.Context, provider, reference string, payload []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[key(provider, reference)]; exists {
		return false, nil
	}
	s.records[key(provider, reference)] = &EventRecord{
		ID:        uuid.NewString(),
		Provider:  provider,
		Reference: reference,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	return true, nil
}

func (s *memoryStore) MarkProcessed(_ context.Context, provider, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[key(provider, reference)]; ok {
		record.Processed = true
	}
	return nil
}
