package artwork

import (
	"context"
	"errors"
	"strings"

	"mbart/internal/logger"
)

// Chain tries multiple sources in order, returning images from the first
// one that has any. It reports ErrNotFound only if every source did.
type Chain struct {
	sources []Source
	logger  *logger.Logger
}

// NewChain creates a Chain that queries sources in order.
func NewChain(sources []Source, log *logger.Logger) *Chain {
	return &Chain{sources: sources, logger: log}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (c *Chain) Artwork(ctx context.Context, releaseID string) ([]Image, error) {
	var lastErr error
	for _, s := range c.sources {
		images, err := s.Artwork(ctx, releaseID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("source %s failed for %s: %v", s.Name(), releaseID, err)
			if lastErr == nil || !errors.Is(err, ErrNotFound) {
				lastErr = err
			}
			continue
		}
		if len(images) > 0 {
			return images, nil
		}
	}

	if lastErr == nil {
		return nil, ErrNotFound
	}
	return nil, lastErr
}
