package saga_test

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/jcmexdev/sagastore/internal/saga"
)

// memStore is a map-backed saga.Store. InTx stages writes on copies and swaps
// them in only on success, which gives the same all-or-nothing behaviour as a
// SQL transaction.
type memStore struct {
	mu      sync.Mutex
	blobs   map[uuid.UUID]string
	headers map[uuid.UUID]map[string]string

	// failOn makes the named Tx operation fail with failErr.
	failOn  string
	failErr error
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{
		blobs:   make(map[uuid.UUID]string),
		headers: make(map[uuid.UUID]map[string]string),
	}
}

func (m *memStore) LoadBlob(_ context.Context, id uuid.UUID) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return "", false, m.loadErr
	}
	b, ok := m.blobs[id]
	return b, ok, nil
}

func (m *memStore) LoadHeaders(_ context.Context, id uuid.UUID) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]string)
	maps.Copy(out, m.headers[id])
	return out, nil
}

func (m *memStore) InTx(_ context.Context, fn func(tx saga.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		store:   m,
		blobs:   maps.Clone(m.blobs),
		headers: make(map[uuid.UUID]map[string]string, len(m.headers)),
	}
	for id, h := range m.headers {
		tx.headers[id] = maps.Clone(h)
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.blobs, m.headers = tx.blobs, tx.headers
	return nil
}

func (m *memStore) headerRows(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.headers[id])
}

type memTx struct {
	store   *memStore
	blobs   map[uuid.UUID]string
	headers map[uuid.UUID]map[string]string
}

func (tx *memTx) fail(op string) error {
	if tx.store.failOn == op {
		return tx.store.failErr
	}
	return nil
}

func (tx *memTx) UpsertBlob(_ context.Context, id uuid.UUID, blob string) error {
	if err := tx.fail("UpsertBlob"); err != nil {
		return err
	}
	tx.blobs[id] = blob
	return nil
}

func (tx *memTx) UpsertHeader(_ context.Context, id uuid.UUID, key, value string) error {
	if err := tx.fail("UpsertHeader"); err != nil {
		return err
	}
	if tx.headers[id] == nil {
		tx.headers[id] = make(map[string]string)
	}
	tx.headers[id][key] = value
	return nil
}

func (tx *memTx) DeleteBlob(_ context.Context, id uuid.UUID) error {
	if err := tx.fail("DeleteBlob"); err != nil {
		return err
	}
	delete(tx.blobs, id)
	return nil
}

func (tx *memTx) DeleteHeaders(_ context.Context, id uuid.UUID) error {
	if err := tx.fail("DeleteHeaders"); err != nil {
		return err
	}
	delete(tx.headers, id)
	return nil
}
