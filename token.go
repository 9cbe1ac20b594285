package entrel

import (
	"context"
	"strings"
)

// Context window defaults for the target model.
const (
	DefaultContextWindow  = 128_000
	DefaultReservedTokens = 2_000
)

// TokenBudget returns the number of tokens available for page text after
// reserving room for the prompt and the response.
func TokenBudget(window, reserved int) int {
	if budget := window - reserved; budget > 0 {
		return budget
	}
	return 0
}

// Tokenizer splits text into the target model's tokens.
type Tokenizer interface {
	// Tokenize returns the text of each token in order.
	// Concatenating the tokens reproduces the input.
	Tokenize(ctx context.Context, text string) ([]string, error)
}

// Truncation is the outcome of fitting text into a token budget.
type Truncation struct {
	Text      string
	Tokens    int
	Truncated bool
}

// Truncate keeps the first limit tokens of text. The cut is a hard prefix
// and may fall mid-sentence. Text within the limit is returned unchanged.
func Truncate(ctx context.Context, tok Tokenizer, text string, limit int) (*Truncation, error) {
	if limit < 0 {
		return nil, Errorf(EINVALID, "negative token limit %d", limit)
	}
	if text == "" {
		return &Truncation{}, nil
	}

	tokens, err := tok.Tokenize(ctx, text)
	if err != nil {
		return nil, err
	}

	if len(tokens) <= limit {
		return &Truncation{Text: text, Tokens: len(tokens)}, nil
	}

	return &Truncation{
		Text:      strings.Join(tokens[:limit], ""),
		Tokens:    limit,
		Truncated: true,
	}, nil
}
