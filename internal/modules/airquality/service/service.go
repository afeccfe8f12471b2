package service

import (
	"log/slog"
	"sync"

	"airquality-server/internal/modules/airquality/analysis"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/types"
)

type modelKey struct {
	hash   uint64
	target types.Column
}

// Service hands out the current dataset and caches fitted models per
// (dataset content hash, target column).
type Service struct {
	repository repository.DatasetRepository
	logger     *slog.Logger

	mu     sync.Mutex
	hash   uint64
	models map[modelKey]*analysis.Model
}

func NewService(repository repository.DatasetRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repository: repository,
		logger:     logger,
		models:     make(map[modelKey]*analysis.Model),
	}
}

func (s *Service) Dataset() (*types.Dataset, error) {
	return s.repository.Load()
}

// Model returns the regression of target on the two other columns, fitting it
// on first use for this dataset content.
func (s *Service) Model(ds *types.Dataset, target types.Column) (*analysis.Model, error) {
	key := modelKey{hash: ds.Hash, target: target}

	s.mu.Lock()
	if s.hash != ds.Hash {
		clear(s.models)
		s.hash = ds.Hash
	}
	if m, ok := s.models[key]; ok {
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()

	features, err := analysis.FeaturesFor(target)
	if err != nil {
		return nil, err
	}
	m, err := analysis.Fit(ds, target, features)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("model fitted",
		"target", target,
		"rows", m.N,
		"r2", m.R2,
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hash == ds.Hash {
		s.models[key] = m
	}
	return m, nil
}

// ColumnSummary pairs a column with its summary or the reason it has none.
type ColumnSummary struct {
	Column  types.Column
	Summary analysis.SummaryStats
	Err     error
}

// Summaries summarises every column; per-column failures are reported, not returned.
func (s *Service) Summaries(ds *types.Dataset) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(types.Columns))
	for _, c := range types.Columns {
		sum, err := analysis.Summarize(ds, c)
		out = append(out, ColumnSummary{Column: c, Summary: sum, Err: err})
	}
	return out
}
