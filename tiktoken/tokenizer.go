// Package tiktoken tokenizes text for OpenAI models using tiktoken-go.
package tiktoken

import (
	"context"
	"strings"

	"github.com/fwojciec/entrel"
	"github.com/pkoukk/tiktoken-go"
)

var _ entrel.Tokenizer = (*Tokenizer)(nil)

// Tokenizer splits text with the byte-pair encoding of an OpenAI model.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer creates a Tokenizer using the encoding of the given model.
// A model tiktoken does not know returns EINVALID; an encoding that cannot
// be loaded, usually because its ranks could not be downloaded, returns
// EUNAVAILABLE.
func NewTokenizer(model string) (*Tokenizer, error) {
	name, ok := EncodingName(model)
	if !ok {
		return nil, entrel.Errorf(entrel.EINVALID, "no tokenizer for model %q", model)
	}
	return newTokenizer(name, tiktoken.GetEncoding)
}

// NewTokenizerForEncoding creates a Tokenizer for a named encoding such as
// "cl100k_base".
func NewTokenizerForEncoding(name string) (*Tokenizer, error) {
	return newTokenizer(name, tiktoken.GetEncoding)
}

// EncodingName returns the name of the encoding tiktoken uses for model.
func EncodingName(model string) (string, bool) {
	if name, ok := tiktoken.MODEL_TO_ENCODING[model]; ok {
		return name, true
	}
	for prefix, name := range tiktoken.MODEL_PREFIX_TO_ENCODING {
		if strings.HasPrefix(model, prefix) {
			return name, true
		}
	}
	return "", false
}

// loadable lists the encodings tiktoken-go can build.
var loadable = map[string]bool{
	tiktoken.MODEL_O200K_BASE:  true,
	tiktoken.MODEL_CL100K_BASE: true,
	tiktoken.MODEL_P50K_BASE:   true,
	tiktoken.MODEL_P50K_EDIT:   true,
	tiktoken.MODEL_R50K_BASE:   true,
}

func newTokenizer(name string, get func(string) (*tiktoken.Tiktoken, error)) (*Tokenizer, error) {
	if !loadable[name] {
		return nil, entrel.Errorf(entrel.EINVALID, "unknown encoding %q", name)
	}
	enc, err := get(name)
	if err != nil {
		return nil, entrel.Errorf(entrel.EUNAVAILABLE, "load encoding %q: %v", name, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Tokenize returns the text of each token in text. Special token markers
// are treated as ordinary text. A token may hold a partial UTF-8 sequence;
// joining all tokens restores the input.
func (t *Tokenizer) Tokenize(ctx context.Context, text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	ids := t.enc.EncodeOrdinary(text)
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = t.enc.Decode([]int{id})
	}
	return pieces, nil
}
