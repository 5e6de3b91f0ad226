package workflow

import (
	"context"
	"sync"

	"github.com/shouni/gemini-image-editor/pkg/domain"
)

// --- Mocks ---

// mockGenerator は generator.ImageGenerator のテスト用モックなのだ。
type mockGenerator struct {
	mu           sync.Mutex
	calls        int
	lastImages   []domain.UploadedImage
	lastPrompt   string
	generateFunc func(ctx context.Context) (*domain.GenerationResult, error)
}

func (m *mockGenerator) Generate(ctx context.Context, images []domain.UploadedImage, prompt string) (*domain.GenerationResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastImages = images
	m.lastPrompt = prompt
	fn := m.generateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return &domain.GenerationResult{Data: []byte("foo"), MimeType: "image/png"}, nil
}

func (m *mockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func img(name string) domain.UploadedImage {
	return domain.UploadedImage{Name: name, Data: []byte(name), MimeType: "image/png"}
}
