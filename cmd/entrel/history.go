package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/entrel"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	filter := entrel.AnalysisFilter{Limit: c.Limit, Offset: c.Offset}
	if c.URL != "" {
		filter.SourceURL = &c.URL
	}
	if c.Entity != "" {
		filter.Entity = &c.Entity
	}

	analyses, err := deps.Analyses.FindAnalyses(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", entrel.ErrorMessage(err))
		return err
	}

	if len(analyses) == 0 {
		fmt.Fprintln(deps.Stdout, "No analyses found. Use 'entrel extract --save' to record one.")
		return nil
	}

	for _, a := range analyses {
		printSummary(deps.Stdout, a)
	}
	return nil
}

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	analysis, err := deps.Analyses.FindAnalysisByID(deps.Ctx, c.ID)
	if err != nil {
		if entrel.ErrorCode(err) == entrel.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: analysis %q not found. Use 'entrel history' to see recorded analyses.\n", c.ID)
		} else {
			fmt.Fprintf(deps.Stderr, "error: %s\n", entrel.ErrorMessage(err))
		}
		return err
	}

	if c.Format == "json" {
		data, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(deps.Stdout, string(data))
		return nil
	}

	printAnalysis(deps.Stdout, analysis)
	return nil
}

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return entrel.Errorf(entrel.EINVALID, "use --force to confirm deletion")
	}

	if err := deps.Analyses.DeleteAnalysis(deps.Ctx, c.ID); err != nil {
		if entrel.ErrorCode(err) == entrel.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: analysis %q not found. Use 'entrel history' to see recorded analyses.\n", c.ID)
		} else {
			fmt.Fprintf(deps.Stderr, "error: %s\n", entrel.ErrorMessage(err))
		}
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted analysis %s\n", c.ID)
	return nil
}
