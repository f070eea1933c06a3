package upload

import (
	"bytes"
	"sort"
	"sync"
)

// Memory implements a simple in-memory version of a store. It is intended
// mainly for testing.
type Memory struct {
	m       sync.RWMutex
	objects map[string]Object
}

// Object is an uploaded object held by a Memory store.
type Object struct {
	Data     []byte
	Metadata map[string]string
}

var (
	// ensure Memory satisfies the Store interface
	_ Store = &Memory{}
)

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

// Create returns a writer which stores the object once closed.
func (ms *Memory) Create(bucket, key string, meta map[string]string) (ObjectWriter, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	m := make(map[string]string, len(meta))
	for k, v := range meta {
		m[k] = v
	}
	return &memWriter{parent: ms, name: bucket + "/" + key, meta: m}, nil
}

// Get returns the object stored in bucket under key.
func (ms *Memory) Get(bucket, key string) (Object, bool) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	obj, ok := ms.objects[bucket+"/"+key]
	return obj, ok
}

// Keys lists every object as "bucket/key", sorted.
func (ms *Memory) Keys() []string {
	var result []string
	ms.m.RLock()
	for k := range ms.objects {
		result = append(result, k)
	}
	ms.m.RUnlock()
	sort.Strings(result)
	return result
}

type memWriter struct {
	bytes.Buffer
	parent *Memory
	name   string
	meta   map[string]string
	done   bool
}

func (w *memWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	w.parent.m.Lock()
	w.parent.objects[w.name] = Object{Data: w.Bytes(), Metadata: w.meta}
	w.parent.m.Unlock()
	return nil
}

func (w *memWriter) Abort() error {
	w.done = true
	w.Reset()
	return nil
}
