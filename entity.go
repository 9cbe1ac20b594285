package entrel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EntityType classifies an entity.
type EntityType string

// Entity types the model is asked to produce.
const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
)

// Entity is a person or organization mentioned in source text.
// IDs are assigned by the model, sequentially starting at 1.
type Entity struct {
	ID   int        `json:"id"`
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// Relationship is a described connection between two entities.
type Relationship struct {
	Entity1ID   int    `json:"entity1_id"`
	Entity2ID   int    `json:"entity2_id"`
	Description string `json:"description"`
}

// Extraction is the structured result returned by the model.
//
// An Extraction parsed from model output keeps the model's JSON object and
// marshals it back verbatim, unknown keys included. Entities and
// Relationships are a typed view of that object, decoded leniently, for
// inspection, indexing and display.
type Extraction struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`

	raw json.RawMessage
}

// NewExtraction returns an extraction with no entities and no relationships.
func NewExtraction() *Extraction {
	return &Extraction{
		Entities:      []Entity{},
		Relationships: []Relationship{},
	}
}

// ParseExtraction decodes model output into an Extraction.
// The output must be a JSON object; nothing else about it is validated.
// Missing or null entities and relationships keys become empty arrays so the
// result always serializes as JSON arrays rather than null.
func ParseExtraction(data []byte) (*Extraction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, Errorf(EINTERNAL, "empty model response")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, Errorf(EINTERNAL, "malformed model response: %v", err)
	}
	if obj == nil {
		return nil, Errorf(EINTERNAL, "malformed model response: null")
	}

	raw := json.RawMessage(data)
	filledEntities := fillEmptyArray(obj, "entities")
	filledRelationships := fillEmptyArray(obj, "relationships")
	if filledEntities || filledRelationships {
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, Errorf(EINTERNAL, "encode model response: %v", err)
		}
		raw = b
	}

	return &Extraction{
		Entities:      parseEntities(obj["entities"]),
		Relationships: parseRelationships(obj["relationships"]),
		raw:           raw,
	}, nil
}

// MarshalJSON returns the model's object when the extraction was parsed from
// model output, and the typed fields otherwise.
func (x Extraction) MarshalJSON() ([]byte, error) {
	if x.raw != nil {
		return x.raw, nil
	}
	type typed Extraction
	t := typed(x)
	if t.Entities == nil {
		t.Entities = []Entity{}
	}
	if t.Relationships == nil {
		t.Relationships = []Relationship{}
	}
	return json.Marshal(t)
}

// UnmarshalJSON decodes an extraction the same way ParseExtraction does.
func (x *Extraction) UnmarshalJSON(data []byte) error {
	parsed, err := ParseExtraction(data)
	if err != nil {
		return err
	}
	*x = *parsed
	return nil
}

// fillEmptyArray sets obj[key] to [] if it is missing or null and reports
// whether it did.
func fillEmptyArray(obj map[string]json.RawMessage, key string) bool {
	v, ok := obj[key]
	if ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return false
	}
	obj[key] = json.RawMessage("[]")
	return true
}

// parseEntities decodes the entities the view understands. Elements that
// are not objects are skipped; fields of the wrong type are left zero.
func parseEntities(data json.RawMessage) []Entity {
	var items []map[string]json.RawMessage
	_ = json.Unmarshal(data, &items)

	entities := make([]Entity, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entities = append(entities, Entity{
			ID:   lenientInt(item["id"]),
			Name: lenientString(item["name"]),
			Type: EntityType(lenientString(item["type"])),
		})
	}
	return entities
}

// parseRelationships decodes relationships like parseEntities.
func parseRelationships(data json.RawMessage) []Relationship {
	var items []map[string]json.RawMessage
	_ = json.Unmarshal(data, &items)

	relationships := make([]Relationship, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		relationships = append(relationships, Relationship{
			Entity1ID:   lenientInt(item["entity1_id"]),
			Entity2ID:   lenientInt(item["entity2_id"]),
			Description: lenientString(item["description"]),
		})
	}
	return relationships
}

// lenientInt accepts integral JSON numbers, including 1.0, and numeric
// strings. Anything else is 0.
func lenientInt(data json.RawMessage) int {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return 0
	}
	switch v := v.(type) {
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && n == math.Trunc(n) {
			return int(n)
		}
	}
	return 0
}

// lenientString returns data as a string, or the JSON text of any
// non-string value.
func lenientString(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	if bytes.Equal(data, []byte("null")) {
		return ""
	}
	return string(data)
}

// Inspect reports consistency problems in the extraction: ids that are not
// sequential from 1, unknown entity types, and relationships referencing
// missing entities. It never modifies the extraction.
func (x *Extraction) Inspect() []string {
	if x == nil {
		return nil
	}

	var problems []string
	ids := make(map[int]bool, len(x.Entities))
	for i, e := range x.Entities {
		if ids[e.ID] {
			problems = append(problems, fmt.Sprintf("duplicate entity id %d", e.ID))
		}
		ids[e.ID] = true

		if e.ID != i+1 {
			problems = append(problems, fmt.Sprintf("entity %q has id %d, want %d", e.Name, e.ID, i+1))
		}
		if e.Type != EntityPerson && e.Type != EntityOrganization {
			problems = append(problems, fmt.Sprintf("entity %q has unknown type %q", e.Name, e.Type))
		}
	}

	for _, r := range x.Relationships {
		if !ids[r.Entity1ID] {
			problems = append(problems, fmt.Sprintf("relationship references unknown entity %d", r.Entity1ID))
		}
		if !ids[r.Entity2ID] {
			problems = append(problems, fmt.Sprintf("relationship references unknown entity %d", r.Entity2ID))
		}
	}

	return problems
}
