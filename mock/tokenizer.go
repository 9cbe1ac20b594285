package mock

import (
	"context"

	"github.com/fwojciec/entrel"
)

var _ entrel.Tokenizer = (*Tokenizer)(nil)

// Tokenizer is a mock implementation of entrel.Tokenizer.
type Tokenizer struct {
	TokenizeFn func(ctx context.Context, text string) ([]string, error)
}

func (t *Tokenizer) Tokenize(ctx context.Context, text string) ([]string, error) {
	return t.TokenizeFn(ctx, text)
}
