package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/entrel"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	Analyzer entrel.Analyzer
	Analyses entrel.AnalysisService
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool   `short:"v" help:"Enable debug logging"`
	DB      string `name:"db" env:"ENTREL_DB" help:"History database path (default: ~/.entrel/entrel.db)"`

	Extract ExtractCmd `cmd:"" help:"Extract entities and relationships from a web page"`
	Serve   ServeCmd   `cmd:"" help:"Serve the extraction endpoint over HTTP"`
	History HistoryCmd `cmd:"" help:"List recorded analyses"`
	Show    ShowCmd    `cmd:"" help:"Show a recorded analysis"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a recorded analysis"`
}

// AnalyzeFlags configure the fetch, convert, truncate, extract pipeline.
type AnalyzeFlags struct {
	Provider    string        `short:"P" enum:"openai,gemini" default:"openai" env:"ENTREL_PROVIDER" help:"Model provider (openai, gemini)"`
	Model       string        `short:"m" env:"ENTREL_MODEL" help:"Model name (default depends on provider)"`
	OpenAIKey   string        `name:"openai-api-key" env:"OPENAI_API_KEY" help:"OpenAI API key"`
	GeminiKey   string        `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
	Browser     bool          `short:"b" help:"Render pages in headless Chrome"`
	Chrome      string        `env:"ENTREL_CHROME" help:"Chrome or Chromium executable for --browser"`
	Timeout     time.Duration `short:"t" default:"10s" help:"Fetch timeout per page"`
	MainContent string        `enum:"none,trafilatura,readability" default:"none" help:"Narrow the page to its main content before conversion (none, trafilatura, readability)"`
	Markdown    bool          `help:"Convert pages to markdown instead of plain text"`
	Strict      bool          `help:"Fail when the page cannot be fetched instead of analyzing empty text"`
	Retries     int           `default:"0" help:"Fetch retries with exponential backoff"`
	HostRPS     float64       `name:"host-rps" default:"0" help:"Maximum fetches per second per host (0 disables)"`
	Budget      int           `default:"0" help:"Token budget for page text (0 uses the model context window)"`
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	URL    string `arg:"" help:"Page URL"`
	Format string `short:"f" enum:"json,text" default:"json" help:"Output format (json, text)"`
	Save   bool   `short:"s" help:"Record the analysis in the history database"`

	AnalyzeFlags `embed:""`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr      string `default:":8080" env:"ENTREL_ADDR" help:"Listen address"`
	NoHistory bool   `help:"Do not record analyses or expose the history endpoints"`

	AnalyzeFlags `embed:""`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	URL    string `short:"u" help:"Only analyses of this URL"`
	Entity string `short:"e" help:"Only analyses that found this entity name"`
	Limit  int    `short:"n" default:"20" help:"Maximum analyses to list"`
	Offset int    `default:"0" help:"Analyses to skip"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID     string `arg:"" help:"Analysis ID"`
	Format string `short:"f" enum:"json,text" default:"text" help:"Output format (json, text)"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	ID    string `arg:"" help:"Analysis ID"`
	Force bool   `help:"Confirm deletion"`
}
