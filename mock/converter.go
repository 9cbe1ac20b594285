package mock

import "github.com/fwojciec/entrel"

var _ entrel.Converter = (*Converter)(nil)

// Converter is a mock implementation of entrel.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
