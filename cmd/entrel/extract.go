package main

import (
	"fmt"

	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/pipeline"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	if c.Format == "text" {
		analysis, err := deps.Analyzer.Analyze(deps.Ctx, c.URL)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", entrel.ErrorMessage(err))
			return err
		}
		printAnalysis(deps.Stdout, analysis)
		return nil
	}

	event := entrel.Event{QueryParameters: map[string]string{pipeline.URLParameter: c.URL}}
	resp, err := pipeline.NewHandler(deps.Analyzer).Handle(deps.Ctx, event)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", entrel.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, resp.Body)
	return nil
}
