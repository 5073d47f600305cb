package batch

import (
	"context"
	"sync"

	"github.com/shouni/photoshoot-kit/pkg/domain"
)

// --- Mocks ---

type mockGenerator struct {
	mu sync.Mutex

	// 呼び出し順に記録された指示テキスト
	instructions []string
	textCalls    []string

	generateFunc func(call int, payload domain.GenerationPayload) (*domain.ImageArtifact, error)
	textFunc     func(instruction string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, payload domain.GenerationPayload, attempts int) (*domain.ImageArtifact, error) {
	m.mu.Lock()
	call := len(m.instructions)
	m.instructions = append(m.instructions, payload.Instruction)
	m.mu.Unlock()

	if m.generateFunc != nil {
		return m.generateFunc(call, payload)
	}
	return &domain.ImageArtifact{Data: []byte("generated"), MimeType: domain.MimeTypePNG}, nil
}

func (m *mockGenerator) GenerateText(ctx context.Context, instruction string, attempts int) (string, error) {
	m.mu.Lock()
	m.textCalls = append(m.textCalls, instruction)
	m.mu.Unlock()

	if m.textFunc != nil {
		return m.textFunc(instruction)
	}
	return "mock style", nil
}

type mockFetcher struct {
	data []byte
	err  error
}

func (m *mockFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return m.data, m.err
}
