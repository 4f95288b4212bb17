package sbmark

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// memStorage is an in-memory StorageInterface. The reported duration of a
// download is fixed per object so tests can check which sample got which.
type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	duration map[string]time.Duration
	failOn   string
	failErr  error
	listErr  error
	gets     int
}

func newMemStorage(objects map[string]string) *memStorage {
	m := &memStorage{
		objects:  map[string][]byte{},
		duration: map[string]time.Duration{},
	}
	i := 1
	for _, key := range sortedKeys(objects) {
		m.objects[key] = []byte(objects[key])
		m.duration[key] = time.Duration(i) * time.Millisecond
		i++
	}
	return m
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *memStorage) ListObjects(ctx context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStorage) GetObject(ctx context.Context, key string, dst io.Writer) (Latency, error) {
	m.mu.Lock()
	m.gets++
	data, ok := m.objects[key]
	d := m.duration[key]
	m.mu.Unlock()

	if key == m.failOn {
		return Latency{}, m.failErr
	}
	if !ok {
		return Latency{}, fmt.Errorf("no such key %s", key)
	}
	n, err := dst.Write(data)
	return Latency{Bytes: int64(n), FirstByte: d / 2, LastByte: d}, err
}

func (m *memStorage) PutObject(ctx context.Context, key string, localPath string) (Latency, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return Latency{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return Latency{Bytes: int64(len(data)), LastByte: time.Millisecond}, nil
}

func (m *memStorage) getCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}
