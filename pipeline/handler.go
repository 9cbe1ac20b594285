package pipeline

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fwojciec/entrel"
)

// URLParameter is the query parameter holding the page to analyze.
const URLParameter = "url"

// Handler adapts an Analyzer to the serverless invocation shape.
type Handler struct {
	Analyzer entrel.Analyzer
}

// NewHandler creates a new Handler.
func NewHandler(analyzer entrel.Analyzer) *Handler {
	return &Handler{Analyzer: analyzer}
}

// Handle analyzes the page named by the url query parameter and returns a
// 200 response whose body is the extraction as JSON. Any failure the
// analyzer does not absorb is returned as an error.
func (h *Handler) Handle(ctx context.Context, event entrel.Event) (*entrel.Response, error) {
	analysis, err := h.Analyzer.Analyze(ctx, event.QueryParameters[URLParameter])
	if err != nil {
		return nil, err
	}

	extraction := analysis.Extraction
	if extraction == nil {
		extraction = entrel.NewExtraction()
	}
	body, err := json.Marshal(extraction)
	if err != nil {
		return nil, err
	}

	return &entrel.Response{StatusCode: http.StatusOK, Body: string(body)}, nil
}

// StatusCode maps an error from Handle to an HTTP status.
func StatusCode(err error) int {
	switch entrel.ErrorCode(err) {
	case "":
		return http.StatusOK
	case entrel.EINVALID:
		return http.StatusBadRequest
	case entrel.ENOTFOUND:
		return http.StatusNotFound
	case entrel.EUNAVAILABLE:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
