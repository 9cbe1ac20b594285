package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/fwojciec/entrel"
)

var (
	headingColor = color.New(color.Bold)
	personColor  = color.New(color.FgCyan)
	orgColor     = color.New(color.FgYellow)
	faintColor   = color.New(color.Faint)
	warnColor    = color.New(color.FgRed)
)

// printAnalysis writes a human-readable rendering of an analysis.
func printAnalysis(w io.Writer, a *entrel.Analysis) {
	if a.SourceURL != "" {
		headingColor.Fprintln(w, a.SourceURL)
	}
	if a.Model != "" {
		faintColor.Fprintf(w, "%s/%s, %d tokens", a.Provider, a.Model, a.Tokens)
		if a.Truncated {
			faintColor.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
	if a.FetchError != "" {
		warnColor.Fprintf(w, "fetch failed: %s\n", a.FetchError)
	}

	x := a.Extraction
	if x == nil {
		x = entrel.NewExtraction()
	}

	fmt.Fprintln(w)
	headingColor.Fprintf(w, "Entities (%d)\n", len(x.Entities))
	names := make(map[int]string, len(x.Entities))
	for _, e := range x.Entities {
		names[e.ID] = e.Name
		fmt.Fprintf(w, "  %3d  %s  ", e.ID, e.Name)
		typeColor(e.Type).Fprintln(w, e.Type)
	}

	fmt.Fprintln(w)
	headingColor.Fprintf(w, "Relationships (%d)\n", len(x.Relationships))
	for _, r := range x.Relationships {
		fmt.Fprintf(w, "  %s -> %s: %s\n", entityName(names, r.Entity1ID), entityName(names, r.Entity2ID), r.Description)
	}
}

// printSummary writes one history line for an analysis.
func printSummary(w io.Writer, a *entrel.Analysis) {
	var entities, relationships int
	if a.Extraction != nil {
		entities = len(a.Extraction.Entities)
		relationships = len(a.Extraction.Relationships)
	}
	faintColor.Fprintf(w, "%s  %s  ", a.ID, a.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "%s  %d entities, %d relationships\n", a.SourceURL, entities, relationships)
}

func typeColor(t entrel.EntityType) *color.Color {
	if t == entrel.EntityOrganization {
		return orgColor
	}
	return personColor
}

// entityName resolves a relationship endpoint, falling back to the raw id
// when the model referenced an entity it did not list.
func entityName(names map[int]string, id int) string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}
