package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/mock"
	entrelslog "github.com/fwojciec/entrel/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("logs counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return &entrel.Extraction{
					Entities: []entrel.Entity{
						{ID: 1, Name: "Alice", Type: entrel.EntityPerson},
						{ID: 2, Name: "Acme Corp", Type: entrel.EntityOrganization},
					},
					Relationships: []entrel.Relationship{
						{Entity1ID: 1, Entity2ID: 2, Description: "works at"},
					},
				}, nil
			},
		}

		ext := entrelslog.NewLoggingExtractor(inner, logger)
		x, err := ext.Extract(context.Background(), "Alice works at Acme Corp.")

		require.NoError(t, err)
		assert.Len(t, x.Entities, 2)
		output := buf.String()
		assert.Contains(t, output, "msg=extract")
		assert.Contains(t, output, "chars=25")
		assert.Contains(t, output, "entities=2")
		assert.Contains(t, output, "relationships=1")
		assert.NotContains(t, output, "level=WARN")
	})

	t.Run("warns about inconsistent output without changing it", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		want := &entrel.Extraction{
			Entities: []entrel.Entity{{ID: 1, Name: "Acme", Type: "company"}},
			Relationships: []entrel.Relationship{
				{Entity1ID: 1, Entity2ID: 7, Description: "owns"},
			},
		}
		inner := &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return want, nil
			},
		}

		ext := entrelslog.NewLoggingExtractor(inner, logger)
		x, err := ext.Extract(context.Background(), "Acme")

		require.NoError(t, err)
		assert.Same(t, want, x)
		output := buf.String()
		assert.Contains(t, output, "level=WARN")
		assert.Contains(t, output, "unknown type")
		assert.Contains(t, output, "unknown entity 7")
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Extractor{
			ExtractFn: func(context.Context, string) (*entrel.Extraction, error) {
				return nil, errors.New("rate limited")
			},
		}

		ext := entrelslog.NewLoggingExtractor(inner, logger)
		_, err := ext.Extract(context.Background(), "text")

		require.Error(t, err)
		assert.Contains(t, buf.String(), "err=\"rate limited\"")
		assert.Contains(t, buf.String(), "entities=0")
	})
}
