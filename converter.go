package entrel

// Converter converts HTML to text suitable for a language model.
type Converter interface {
	// Convert transforms HTML content into text without line wrapping.
	// Empty input yields empty output.
	Convert(html string) (string, error)
}
