package metrics

import (
	"context"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/logger"
	"codeberg.org/mutker/nepcollector/internal/series"
)

type service struct {
	repo Repository
	cfg  Config
}

// NewService validates cfg and opens the metrics store behind it.
func NewService(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create metrics repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Str("timezone", cfg.location().String()).
		Msg("Metrics service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Put(ctx context.Context, point series.Point) (Outcome, error) {
	select {
	case <-ctx.Done():
		return 0, errors.New().Wrap(ErrOperationTimeout, ctx.Err())
	default:
		return s.repo.Put(ctx, point)
	}
}

func (s *service) List(ctx context.Context) ([]StoredMetric, error) {
	select {
	case <-ctx.Done():
		return nil, errors.New().Wrap(ErrOperationTimeout, ctx.Err())
	default:
		return s.repo.List(ctx)
	}
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}
