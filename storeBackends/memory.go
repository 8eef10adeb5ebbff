package storebackends

import (
	"context"
	"strings"
	"sync"
	"time"

	"fileconv/storage"
)

type memObject struct {
	data     []byte
	meta     map[string]string
	modified time.Time
}

// Memory is an in-process backend for tests and local development
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock stamps every Put with now() instead of the wall clock
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{objects: make(map[string]memObject), now: now}
}

func (m *Memory) Put(ctx context.Context, key string, data []byte, meta map[string]string) error {
	obj := memObject{
		data:     append([]byte(nil), data...),
		meta:     make(map[string]string, len(meta)),
		modified: m.now(),
	}
	for k, v := range meta {
		obj.meta[k] = v
	}

	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()
	return nil
}

func (m *Memory) Head(ctx context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	meta := make(map[string]string, len(obj.meta))
	for k, v := range obj.meta {
		meta[k] = v
	}
	return meta, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.RLock()
	var objs []storage.ObjectInfo
	for k, obj := range m.objects {
		if strings.HasPrefix(k, prefix) {
			objs = append(objs, storage.ObjectInfo{Key: k, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}
	m.mu.RUnlock()

	sortObjects(objs)
	return objs, nil
}

// Len reports how many objects are held
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
