package mock

import (
	"context"

	"github.com/fwojciec/entrel"
)

var _ entrel.Analyzer = (*Analyzer)(nil)

// Analyzer is a mock implementation of entrel.Analyzer.
type Analyzer struct {
	AnalyzeFn func(ctx context.Context, url string) (*entrel.Analysis, error)
}

func (a *Analyzer) Analyze(ctx context.Context, url string) (*entrel.Analysis, error) {
	return a.AnalyzeFn(ctx, url)
}

var _ entrel.AnalysisService = (*AnalysisService)(nil)

// AnalysisService is a mock implementation of entrel.AnalysisService.
type AnalysisService struct {
	CreateAnalysisFn   func(ctx context.Context, a *entrel.Analysis) error
	FindAnalysisByIDFn func(ctx context.Context, id string) (*entrel.Analysis, error)
	FindAnalysesFn     func(ctx context.Context, filter entrel.AnalysisFilter) ([]*entrel.Analysis, error)
	DeleteAnalysisFn   func(ctx context.Context, id string) error
}

func (s *AnalysisService) CreateAnalysis(ctx context.Context, a *entrel.Analysis) error {
	return s.CreateAnalysisFn(ctx, a)
}

func (s *AnalysisService) FindAnalysisByID(ctx context.Context, id string) (*entrel.Analysis, error) {
	return s.FindAnalysisByIDFn(ctx, id)
}

func (s *AnalysisService) FindAnalyses(ctx context.Context, filter entrel.AnalysisFilter) ([]*entrel.Analysis, error) {
	return s.FindAnalysesFn(ctx, filter)
}

func (s *AnalysisService) DeleteAnalysis(ctx context.Context, id string) error {
	return s.DeleteAnalysisFn(ctx, id)
}
