package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// --- Mocks ---

// mockReader は remoteio.InputReader のテスト用モックなのだ。
type mockReader struct {
	mu     sync.Mutex
	files  map[string][]byte
	opened []string
}

func (m *mockReader) Open(ctx context.Context, filePath string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, filePath)
	data, ok := m.files[filePath]
	if !ok {
		return nil, fmt.Errorf("not found: %s: %w", filePath, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockReader) List(ctx context.Context, path string, callback func(filePath string) error) error {
	return nil
}

var _ remoteio.InputReader = (*mockReader)(nil)
