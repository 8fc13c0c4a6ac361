// Package mock provides a models.Converter for tests.
package mock

import (
	"context"
	"sync"

	"github.com/docmark/docmark/internal/convert"
	"github.com/docmark/docmark/pkg/models"
)

// MockConverter satisfies models.Converter for testing. Safe for
// concurrent use.
type MockConverter struct {
	Name_       string
	ConvertFunc func(ctx context.Context, input models.ConversionInput) (*models.ConversionResult, error)

	mu    sync.Mutex
	calls []models.ConversionInput
}

func (m *MockConverter) Name() string { return m.Name_ }

func (m *MockConverter) Convert(ctx context.Context, input models.ConversionInput) (*models.ConversionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, input)
	m.mu.Unlock()
	if m.ConvertFunc != nil {
		return m.ConvertFunc(ctx, input)
	}
	return &models.ConversionResult{Markdown: "# mock"}, nil
}

// Calls returns every input seen so far, in order.
func (m *MockConverter) Calls() []models.ConversionInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ConversionInput(nil), m.calls...)
}

// NewMockConverter returns a MockConverter with a sensible default response.
func NewMockConverter() *MockConverter {
	return &MockConverter{
		Name_: "mock",
		ConvertFunc: func(_ context.Context, input models.ConversionInput) (*models.ConversionResult, error) {
			return &models.ConversionResult{
				Markdown:     "# Converted\n\nmock output",
				SourceFormat: string(input.Kind),
			}, nil
		},
	}
}

// NewFailingConverter returns a MockConverter that always returns the given error.
func NewFailingConverter(err error) *MockConverter {
	return &MockConverter{
		Name_: "mock-failing",
		ConvertFunc: func(_ context.Context, _ models.ConversionInput) (*models.ConversionResult, error) {
			return nil, err
		},
	}
}

// NewTimeoutConverter returns a MockConverter that blocks until context is cancelled.
func NewTimeoutConverter() *MockConverter {
	return &MockConverter{
		Name_: "mock-timeout",
		ConvertFunc: func(ctx context.Context, _ models.ConversionInput) (*models.ConversionResult, error) {
			<-ctx.Done()
			return nil, convert.ErrConversionTimeout
		},
	}
}

// Compile-time check that MockConverter implements Converter.
var _ models.Converter = (*MockConverter)(nil)
