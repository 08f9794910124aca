package artwork

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chainMockSource struct {
	name   string
	images []Image
	err    error
}

func (m *chainMockSource) Name() string { return m.name }
func (m *chainMockSource) Artwork(_ context.Context, _ string) ([]Image, error) {
	return m.images, m.err
}

func TestChain_FirstSuccess(t *testing.T) {
	s1 := &chainMockSource{name: "caa", images: []Image{{ID: "from-caa"}}}
	s2 := &chainMockSource{name: "archive", images: []Image{{ID: "from-archive"}}}

	images, err := NewChain([]Source{s1, s2}, testLogger()).Artwork(context.Background(), "rel")
	require.NoError(t, err)
	assert.Equal(t, "from-caa", images[0].ID)
}

func TestChain_FallbackOnNotFound(t *testing.T) {
	s1 := &chainMockSource{name: "caa", err: ErrNotFound}
	s2 := &chainMockSource{name: "archive", images: []Image{{ID: "from-archive"}}}

	images, err := NewChain([]Source{s1, s2}, testLogger()).Artwork(context.Background(), "rel")
	require.NoError(t, err)
	assert.Equal(t, "from-archive", images[0].ID)
}

func TestChain_FallbackOnServiceError(t *testing.T) {
	s1 := &chainMockSource{name: "caa", err: &ServiceError{URL: "u", StatusCode: 503}}
	s2 := &chainMockSource{name: "archive", images: []Image{{ID: "from-archive"}}}

	images, err := NewChain([]Source{s1, s2}, testLogger()).Artwork(context.Background(), "rel")
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestChain_AllNotFound(t *testing.T) {
	s1 := &chainMockSource{name: "caa", err: ErrNotFound}
	s2 := &chainMockSource{name: "archive"}

	_, err := NewChain([]Source{s1, s2}, testLogger()).Artwork(context.Background(), "rel")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChain_ServiceErrorWinsOverNotFound(t *testing.T) {
	s1 := &chainMockSource{name: "caa", err: &ServiceError{URL: "u", StatusCode: 500}}
	s2 := &chainMockSource{name: "archive", err: ErrNotFound}

	_, err := NewChain([]Source{s1, s2}, testLogger()).Artwork(context.Background(), "rel")
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 500, svcErr.StatusCode)
}

func TestChain_Name(t *testing.T) {
	c := NewChain([]Source{&chainMockSource{name: "caa"}, &chainMockSource{name: "archive"}}, testLogger())
	assert.Equal(t, "caa+archive", c.Name())
}
