package metadata

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/paperstack-io/paperstack/internal/core"
	"github.com/paperstack-io/paperstack/internal/models"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 2 * time.Second
)

// Service wraps a MetadataProvider with the retry policy for transient model
// failures: a fixed attempt budget with a linearly growing wait between
// attempts (baseDelay × attempt number). Non-transient failures surface
// immediately and the last observed error is returned on exhaustion; there
// is no fallback to empty metadata.
type Service struct {
	provider  core.MetadataProvider
	attempts  int
	baseDelay time.Duration
	sleep     func(time.Duration)
	log       *zap.Logger
}

var _ core.MetadataProvider = (*Service)(nil)

func NewService(provider core.MetadataProvider, attempts int, log *zap.Logger) *Service {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &Service{
		provider:  provider,
		attempts:  attempts,
		baseDelay: defaultBaseDelay,
		sleep:     time.Sleep,
		log:       log,
	}
}

func (s *Service) ExtractMetadata(ctx context.Context, text string) (*models.DocumentMetadata, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		md, err := s.provider.ExtractMetadata(ctx, text)
		if err == nil {
			return md, nil
		}
		lastErr = err

		if !errors.Is(err, core.ErrTransient) {
			break
		}
		if attempt == s.attempts {
			break
		}

		wait := s.baseDelay * time.Duration(attempt)
		s.log.Warn("metadata extraction failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		s.sleep(wait)
	}
	return nil, lastErr
}
