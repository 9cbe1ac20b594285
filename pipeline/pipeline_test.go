package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/mock"
	"github.com/fwojciec/entrel/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordTokenizer splits text after every space so tests can reason about
// token counts.
func wordTokenizer() *mock.Tokenizer {
	return &mock.Tokenizer{
		TokenizeFn: func(_ context.Context, text string) ([]string, error) {
			return strings.SplitAfter(text, " "), nil
		},
	}
}

// passthroughConverter returns its input unchanged.
func passthroughConverter() *mock.Converter {
	return &mock.Converter{
		ConvertFn: func(html string) (string, error) { return html, nil },
	}
}

func staticFetcher(html string) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(context.Context, string) (string, error) { return html, nil },
	}
}

func aliceExtraction() *entrel.Extraction {
	return &entrel.Extraction{
		Entities: []entrel.Entity{
			{ID: 1, Name: "Alice", Type: entrel.EntityPerson},
			{ID: 2, Name: "Acme Corp", Type: entrel.EntityOrganization},
		},
		Relationships: []entrel.Relationship{
			{Entity1ID: 1, Entity2ID: 2, Description: "works at"},
		},
	}
}

func newAnalyzer(fetcher entrel.Fetcher, extractor entrel.Extractor) *pipeline.Analyzer {
	return &pipeline.Analyzer{
		Fetcher:   fetcher,
		Converter: passthroughConverter(),
		Tokenizer: wordTokenizer(),
		Extractor: extractor,
		Provider:  "openai",
		Model:     "gpt-4-1106-preview",
		Now:       func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Parallel()

	t.Run("extracts entities from the fetched page", func(t *testing.T) {
		t.Parallel()

		var gotText string
		extractor := &mock.Extractor{
			ExtractFn: func(_ context.Context, text string) (*entrel.Extraction, error) {
				gotText = text
				return aliceExtraction(), nil
			},
		}

		a := newAnalyzer(staticFetcher("Alice works at Acme Corp."), extractor)
		analysis, err := a.Analyze(context.Background(), "https://example.com/about")

		require.NoError(t, err)
		assert.Equal(t, "Alice works at Acme Corp.", gotText)
		assert.Equal(t, aliceExtraction(), analysis.Extraction)
		assert.Equal(t, "https://example.com/about", analysis.SourceURL)
		assert.Equal(t, "openai", analysis.Provider)
		assert.Equal(t, "gpt-4-1106-preview", analysis.Model)
		assert.Equal(t, 5, analysis.Tokens)
		assert.False(t, analysis.Truncated)
		assert.Empty(t, analysis.FetchError)
		assert.Equal(t, pipeline.ComputeHash("Alice works at Acme Corp."), analysis.ContentHash)
		assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), analysis.CreatedAt)
	})

	t.Run("degrades fetch failure to empty content", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				return "", entrel.Errorf(entrel.EUNAVAILABLE, "HTTP 404 Not Found for https://example.com/missing")
			},
		}
		extractor := &mock.Extractor{
			ExtractFn: func(_ context.Context, text string) (*entrel.Extraction, error) {
				assert.Empty(t, text)
				return entrel.NewExtraction(), nil
			},
		}

		a := newAnalyzer(fetcher, extractor)
		a.Logger = slog.New(slog.NewTextHandler(&buf, nil))
		analysis, err := a.Analyze(context.Background(), "https://example.com/missing")

		require.NoError(t, err)
		assert.Empty(t, analysis.Extraction.Entities)
		assert.Empty(t, analysis.Extraction.Relationships)
		assert.Contains(t, analysis.FetchError, "HTTP 404")
		assert.Contains(t, buf.String(), "fetch failed")
	})

	t.Run("degrades missing url to empty content", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				t.Fatal("fetch should not be called")
				return "", nil
			},
		}
		extractor := &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return entrel.NewExtraction(), nil
			},
		}

		a := newAnalyzer(fetcher, extractor)
		analysis, err := a.Analyze(context.Background(), "")

		require.NoError(t, err)
		assert.Equal(t, entrel.NewExtraction(), analysis.Extraction)
		assert.Contains(t, analysis.FetchError, "url parameter required")
	})

	t.Run("strict mode returns fetch failure", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				return "", entrel.Errorf(entrel.EUNAVAILABLE, "HTTP 500")
			},
		}
		extractor := &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				t.Fatal("extract should not be called")
				return nil, nil
			},
		}

		a := newAnalyzer(fetcher, extractor)
		a.Strict = true
		_, err := a.Analyze(context.Background(), "https://example.com/")

		require.Error(t, err)
		assert.Equal(t, entrel.EUNAVAILABLE, entrel.ErrorCode(err))
	})

	t.Run("strict mode rejects invalid url", func(t *testing.T) {
		t.Parallel()

		a := newAnalyzer(staticFetcher(""), &mock.Extractor{})
		a.Strict = true
		_, err := a.Analyze(context.Background(), "ftp://example.com/file")

		require.Error(t, err)
		assert.Equal(t, entrel.EINVALID, entrel.ErrorCode(err))
	})

	t.Run("truncates text to the token budget", func(t *testing.T) {
		t.Parallel()

		var gotText string
		extractor := &mock.Extractor{
			ExtractFn: func(_ context.Context, text string) (*entrel.Extraction, error) {
				gotText = text
				return entrel.NewExtraction(), nil
			},
		}

		a := newAnalyzer(staticFetcher("one two three four five"), extractor)
		a.TokenBudget = 3
		analysis, err := a.Analyze(context.Background(), "https://example.com/")

		require.NoError(t, err)
		assert.Equal(t, "one two three ", gotText)
		assert.Equal(t, 3, analysis.Tokens)
		assert.True(t, analysis.Truncated)
	})

	t.Run("defaults the budget to the context window less the reserve", func(t *testing.T) {
		t.Parallel()

		var gotText string
		extractor := &mock.Extractor{
			ExtractFn: func(_ context.Context, text string) (*entrel.Extraction, error) {
				gotText = text
				return entrel.NewExtraction(), nil
			},
		}

		a := newAnalyzer(staticFetcher(strings.Repeat("word ", 130_000)), extractor)
		analysis, err := a.Analyze(context.Background(), "https://example.com/long")

		require.NoError(t, err)
		assert.Equal(t, 126_000, analysis.Tokens)
		assert.True(t, analysis.Truncated)
		assert.Equal(t, strings.Repeat("word ", 126_000), gotText)
	})

	t.Run("keeps text at exactly the default budget", func(t *testing.T) {
		t.Parallel()

		var gotText string
		extractor := &mock.Extractor{
			ExtractFn: func(_ context.Context, text string) (*entrel.Extraction, error) {
				gotText = text
				return entrel.NewExtraction(), nil
			},
		}

		text := strings.TrimSuffix(strings.Repeat("word ", 126_000), " ")
		a := newAnalyzer(staticFetcher(text), extractor)
		analysis, err := a.Analyze(context.Background(), "https://example.com/long")

		require.NoError(t, err)
		assert.Equal(t, 126_000, analysis.Tokens)
		assert.False(t, analysis.Truncated)
		assert.Equal(t, text, gotText)
	})

	t.Run("propagates extractor errors", func(t *testing.T) {
		t.Parallel()

		extractor := &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return nil, entrel.Errorf(entrel.EINTERNAL, "malformed model response: unexpected EOF")
			},
		}

		a := newAnalyzer(staticFetcher("Alice"), extractor)
		_, err := a.Analyze(context.Background(), "https://example.com/")

		require.Error(t, err)
		assert.Equal(t, entrel.EINTERNAL, entrel.ErrorCode(err))
		assert.Contains(t, err.Error(), "extract")
	})

	t.Run("propagates converter errors", func(t *testing.T) {
		t.Parallel()

		a := newAnalyzer(staticFetcher("<p>"), &mock.Extractor{})
		a.Converter = &mock.Converter{
			ConvertFn: func(string) (string, error) {
				return "", entrel.Errorf(entrel.EINVALID, "failed to parse HTML")
			},
		}
		_, err := a.Analyze(context.Background(), "https://example.com/")

		require.Error(t, err)
		assert.Equal(t, entrel.EINVALID, entrel.ErrorCode(err))
	})

	t.Run("uses main content when found", func(t *testing.T) {
		t.Parallel()

		var converted string
		a := newAnalyzer(staticFetcher("<nav>menu</nav><article>Alice</article>"), &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return entrel.NewExtraction(), nil
			},
		})
		a.ContentExtractor = &mock.ContentExtractor{
			ExtractFn: func(string) (*entrel.ContentResult, error) {
				return &entrel.ContentResult{ContentHTML: "<article>Alice</article>"}, nil
			},
		}
		a.Converter = &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				converted = html
				return html, nil
			},
		}

		_, err := a.Analyze(context.Background(), "https://example.com/")

		require.NoError(t, err)
		assert.Equal(t, "<article>Alice</article>", converted)
	})

	t.Run("falls back to full page when main content extraction fails", func(t *testing.T) {
		t.Parallel()

		var converted string
		a := newAnalyzer(staticFetcher("<p>Alice</p>"), &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return entrel.NewExtraction(), nil
			},
		})
		a.ContentExtractor = &mock.ContentExtractor{
			ExtractFn: func(string) (*entrel.ContentResult, error) {
				return nil, errors.New("no article")
			},
		}
		a.Converter = &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				converted = html
				return html, nil
			},
		}

		_, err := a.Analyze(context.Background(), "https://example.com/")

		require.NoError(t, err)
		assert.Equal(t, "<p>Alice</p>", converted)
	})

	t.Run("records analysis", func(t *testing.T) {
		t.Parallel()

		var recorded *entrel.Analysis
		a := newAnalyzer(staticFetcher("Alice works at Acme Corp."), &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return aliceExtraction(), nil
			},
		})
		a.Analyses = &mock.AnalysisService{
			CreateAnalysisFn: func(_ context.Context, analysis *entrel.Analysis) error {
				recorded = analysis
				analysis.ID = "a-1"
				return nil
			},
		}

		analysis, err := a.Analyze(context.Background(), "https://example.com/")

		require.NoError(t, err)
		require.NotNil(t, recorded)
		assert.Equal(t, "a-1", analysis.ID)
	})

	t.Run("ignores recording failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		a := newAnalyzer(staticFetcher("Alice"), &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return aliceExtraction(), nil
			},
		})
		a.Logger = slog.New(slog.NewTextHandler(&buf, nil))
		a.Analyses = &mock.AnalysisService{
			CreateAnalysisFn: func(context.Context, *entrel.Analysis) error {
				return errors.New("disk full")
			},
		}

		analysis, err := a.Analyze(context.Background(), "https://example.com/")

		require.NoError(t, err)
		assert.Equal(t, aliceExtraction(), analysis.Extraction)
		assert.Contains(t, buf.String(), "disk full")
	})

	t.Run("waits for host limiter", func(t *testing.T) {
		t.Parallel()

		var host string
		a := newAnalyzer(staticFetcher("Alice"), &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return entrel.NewExtraction(), nil
			},
		})
		a.Limiter = &mock.HostLimiter{
			WaitFn: func(_ context.Context, h string) error {
				host = h
				return nil
			},
		}

		_, err := a.Analyze(context.Background(), "https://news.example.com:8443/story")

		require.NoError(t, err)
		assert.Equal(t, "news.example.com:8443", host)
	})

	t.Run("retries fetch with configured delays", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				attempts++
				if attempts < 3 {
					return "", entrel.Errorf(entrel.EUNAVAILABLE, "HTTP 503")
				}
				return "Alice", nil
			},
		}
		var gotText string
		a := newAnalyzer(fetcher, &mock.Extractor{
			ExtractFn: func(_ context.Context, text string) (*entrel.Extraction, error) {
				gotText = text
				return entrel.NewExtraction(), nil
			},
		})
		a.RetryDelays = []time.Duration{time.Millisecond, time.Millisecond}

		analysis, err := a.Analyze(context.Background(), "https://example.com/")

		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, "Alice", gotText)
		assert.Empty(t, analysis.FetchError)
	})
}
