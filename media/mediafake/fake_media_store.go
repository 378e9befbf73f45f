package mediafake

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-account-service/media"
)

const baseURL = "memory://media/"

var _ media.Store = (*FakeMediaStore)(nil)

// FakeMediaStore keeps uploaded files in memory.
type FakeMediaStore struct {
	objects map[string][]byte
	lock    sync.RWMutex
	// FailUploads makes every Upload return this error when set.
	FailUploads error
}

func NewFakeMediaStore() *FakeMediaStore {
	return &FakeMediaStore{objects: make(map[string][]byte)}
}

func (m *FakeMediaStore) Upload(_ context.Context, upload media.Upload) (string, error) {
	if m.FailUploads != nil {
		return "", m.FailUploads
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", fmt.Errorf("[FakeMediaStore.Upload] reading body: %w", err)
	}

	key := media.ObjectKey(upload.Folder, upload.Filename, time.Now())
	m.lock.Lock()
	defer m.lock.Unlock()
	m.objects[key] = data
	return baseURL + key, nil
}

func (m *FakeMediaStore) Delete(_ context.Context, reference string) (bool, error) {
	key, ok := strings.CutPrefix(reference, baseURL)
	if !ok {
		return false, nil
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, exists := m.objects[key]; !exists {
		return false, nil
	}
	delete(m.objects, key)
	return true, nil
}

// Get returns the stored bytes behind reference.
func (m *FakeMediaStore) Get(reference string) ([]byte, bool) {
	key, ok := strings.CutPrefix(reference, baseURL)
	if !ok {
		return nil, false
	}
	m.lock.RLock()
	defer m.lock.RUnlock()
	data, exists := m.objects[key]
	return data, exists
}

// Len returns the number of stored objects.
func (m *FakeMediaStore) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.objects)
}
