package images

import (
	"context"
	"fmt"
)

// MockProvider implements Provider for testing purposes.
type MockProvider struct {
	photos []Photo
	err    error
	// LastQuery records the most recent search query for assertions.
	LastQuery string
}

// NewMockProvider creates a mock provider returning the given photos.
func NewMockProvider(photos ...Photo) *MockProvider {
	return &MockProvider{photos: photos}
}

// NewFailingMockProvider creates a mock provider whose searches always fail.
func NewFailingMockProvider(msg string) *MockProvider {
	return &MockProvider{err: fmt.Errorf("%s", msg)}
}

// Name returns the name of this provider.
func (m *MockProvider) Name() string {
	return "Mock"
}

// SearchPhotos returns the canned photos or error.
func (m *MockProvider) SearchPhotos(ctx context.Context, query string) ([]Photo, error) {
	m.LastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.photos, nil
}
