// Package gemini implements entity extraction and tokenization for Google
// Gemini models.
package gemini

import (
	"context"

	"github.com/fwojciec/entrel"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Ensure Extractor implements entrel.Extractor at compile time.
var _ entrel.Extractor = (*Extractor)(nil)

// Extractor implements entrel.Extractor using Google Gemini.
type Extractor struct {
	client *genai.Client
	model  string
}

// NewExtractor creates a new Extractor. An empty model selects DefaultModel.
func NewExtractor(client *genai.Client, model string) *Extractor {
	if model == "" {
		model = DefaultModel
	}
	return &Extractor{client: client, model: model}
}

// Model returns the model name sent with each request.
func (e *Extractor) Model() string {
	return e.model
}

// Extract asks Gemini for the entities and relationships in text.
func (e *Extractor) Extract(ctx context.Context, text string) (*entrel.Extraction, error) {
	// The API rejects requests with empty parts.
	if text == "" {
		return entrel.NewExtraction(), nil
	}
	if e.client == nil {
		return nil, entrel.Errorf(entrel.EINTERNAL, "gemini client not configured")
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		BuildConfig(),
	)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, entrel.Errorf(entrel.EINTERNAL, "gemini returned nil result")
	}

	return entrel.ParseExtraction([]byte(result.Text()))
}

// BuildConfig returns the GenerateContentConfig for extraction requests.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: entrel.SystemPrompt}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   BuildSchema(),
	}
}

// BuildSchema describes the JSON object the model must return.
func BuildSchema() *genai.Schema {
	entity := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":   {Type: genai.TypeInteger},
			"name": {Type: genai.TypeString},
			"type": {
				Type: genai.TypeString,
				Enum: []string{string(entrel.EntityPerson), string(entrel.EntityOrganization)},
			},
		},
		Required:         []string{"id", "name", "type"},
		PropertyOrdering: []string{"id", "name", "type"},
	}
	relationship := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"entity1_id":  {Type: genai.TypeInteger},
			"entity2_id":  {Type: genai.TypeInteger},
			"description": {Type: genai.TypeString},
		},
		Required:         []string{"entity1_id", "entity2_id", "description"},
		PropertyOrdering: []string{"entity1_id", "entity2_id", "description"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"entities":      {Type: genai.TypeArray, Items: entity},
			"relationships": {Type: genai.TypeArray, Items: relationship},
		},
		Required:         []string{"entities", "relationships"},
		PropertyOrdering: []string{"entities", "relationships"},
	}
}
