package entrel

import "context"

// SystemPrompt instructs the model to extract entities and relationships as
// a JSON object.
const SystemPrompt = `You will be provided with text from a web page that might include names of people or organizations (entities). Your task is to extract a list of entities and any relationships between them. Return the list of entities in a JSON array under the key 'entities'. Each entity should have the following fields: id, name, type. The id field should increment starting from 1. The type field's value should be either 'person' or 'organization'. Return the list of relationships in a JSON array under the key 'relationships'. Each relationship should have the following fields: entity1_id, entity2_id, and description. The entity1_id and entity2_id fields are the ids of the related entities from the 'entities' array. The description field should be a very concise description of the relationship between the two entities. If no entities are mentioned in the text then set 'entities' equal to an empty array. If no relationships are mentioned in the text then set 'relationships' equal to an empty array.`

// Extractor asks a language model for the entities and relationships in text.
type Extractor interface {
	// Extract sends one request to the model and parses its JSON answer.
	// API failures and malformed responses are returned as errors.
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// ContentResult holds the main content found in an HTML page.
type ContentResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, ads) has been removed.
	ContentHTML string
}

// ContentExtractor extracts main content from HTML pages, removing boilerplate.
type ContentExtractor interface {
	Extract(html string) (*ContentResult, error)
}
