// Package entrel extracts people, organizations, and the relationships
// between them from web pages using a hosted language model.
//
// A single invocation fetches a URL, converts the HTML to plain text,
// truncates the text to the model's context window, and asks the model for a
// JSON description of the entities it finds.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., openai/, goquery/, sqlite/).
package entrel
