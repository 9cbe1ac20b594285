package entrel

import (
	"context"
	"time"
)

// Analysis records one run of the extraction pipeline for a URL.
type Analysis struct {
	ID          string      `json:"id"`
	SourceURL   string      `json:"sourceUrl"`
	Provider    string      `json:"provider"`
	Model       string      `json:"model"`
	Extraction  *Extraction `json:"extraction"`
	Tokens      int         `json:"tokens"`
	Truncated   bool        `json:"truncated"`
	FetchError  string      `json:"fetchError,omitempty"`
	ContentHash string      `json:"contentHash"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Validate returns an error if the analysis contains invalid fields.
func (a *Analysis) Validate() error {
	if a.SourceURL == "" {
		return Errorf(EINVALID, "analysis source URL required")
	}
	if a.Extraction == nil {
		return Errorf(EINVALID, "analysis extraction required")
	}
	return nil
}

// Analyzer runs the fetch, normalize, truncate, extract pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*Analysis, error)
}

// AnalysisService represents a service for managing recorded analyses.
type AnalysisService interface {
	// CreateAnalysis records a new analysis.
	CreateAnalysis(ctx context.Context, a *Analysis) error

	// FindAnalysisByID retrieves an analysis by ID.
	// Returns ENOTFOUND if the analysis does not exist.
	FindAnalysisByID(ctx context.Context, id string) (*Analysis, error)

	// FindAnalyses retrieves analyses matching the filter, newest first.
	FindAnalyses(ctx context.Context, filter AnalysisFilter) ([]*Analysis, error)

	// DeleteAnalysis permanently removes an analysis.
	// Returns ENOTFOUND if the analysis does not exist.
	DeleteAnalysis(ctx context.Context, id string) error
}

// AnalysisFilter represents a filter for FindAnalyses.
type AnalysisFilter struct {
	ID        *string `json:"id"`
	SourceURL *string `json:"sourceUrl"`

	// Entity matches analyses that found an entity with this name,
	// ignoring case.
	Entity *string `json:"entity"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
