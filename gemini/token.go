package gemini

import (
	"context"
	"strconv"
	"strings"

	"github.com/fwojciec/entrel"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ entrel.Tokenizer = (*Tokenizer)(nil)

// Tokenizer splits text using the local Gemini SentencePiece tokenizer.
type Tokenizer struct {
	tok *tokenizer.LocalTokenizer
}

// NewTokenizer creates a new Tokenizer for the given model.
// A model without a local tokenizer returns EINVALID; a tokenizer model that
// cannot be downloaded returns EUNAVAILABLE.
func NewTokenizer(model string) (*Tokenizer, error) {
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		if strings.HasSuffix(err.Error(), "is not supported") {
			return nil, entrel.Errorf(entrel.EINVALID, "no tokenizer for model %q", model)
		}
		return nil, entrel.Errorf(entrel.EUNAVAILABLE, "load tokenizer for %q: %v", model, err)
	}
	return &Tokenizer{tok: tok}, nil
}

// Tokenize returns the text of each token in text.
func (t *Tokenizer) Tokenize(ctx context.Context, text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	result, err := t.tok.ComputeTokens([]*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	})
	if err != nil {
		return nil, err
	}

	var pieces []string
	for _, info := range result.TokensInfo {
		for _, tok := range info.Tokens {
			pieces = append(pieces, DecodePiece(string(tok)))
		}
	}
	return pieces, nil
}

// DecodePiece maps a SentencePiece token back to the text it covers.
// Word boundary markers become spaces and byte fallback tokens such as
// "<0x0A>" become the raw byte.
func DecodePiece(piece string) string {
	if len(piece) == 6 && strings.HasPrefix(piece, "<0x") && piece[5] == '>' {
		if b, err := strconv.ParseUint(piece[3:5], 16, 8); err == nil {
			return string([]byte{byte(b)})
		}
	}
	return strings.ReplaceAll(piece, "▁", " ")
}
