//go:build integration

package gemini_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractor_Integration_ReturnsEntities(t *testing.T) {
	t.Parallel()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	require.NoError(t, err)

	ext := gemini.NewExtractor(client, "")
	x, err := ext.Extract(ctx, "Jane Roe is the chief executive officer of Acme Corp.")

	require.NoError(t, err)
	require.NotEmpty(t, x.Entities)
	assert.Empty(t, x.Inspect())

	types := map[entrel.EntityType]bool{}
	for _, e := range x.Entities {
		types[e.Type] = true
	}
	assert.True(t, types[entrel.EntityPerson])
	assert.True(t, types[entrel.EntityOrganization])
}
