package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/entrel"
	"github.com/fwojciec/entrel/gemini"
	"github.com/fwojciec/entrel/goquery"
	"github.com/fwojciec/entrel/htmltomarkdown"
	entrelhttp "github.com/fwojciec/entrel/http"
	"github.com/fwojciec/entrel/openai"
	"github.com/fwojciec/entrel/pipeline"
	"github.com/fwojciec/entrel/readability"
	"github.com/fwojciec/entrel/rod"
	entrelslog "github.com/fwojciec/entrel/slog"
	"github.com/fwojciec/entrel/sqlite"
	"github.com/fwojciec/entrel/tiktoken"
	"github.com/fwojciec/entrel/trafilatura"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	// A missing .env file is not an error.
	_ = godotenv.Load()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Fetcher used by the analyzer, closed with the program.
	Fetcher entrel.Fetcher
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var firstErr error
	if m.Fetcher != nil {
		if err := m.Fetcher.Close(); err != nil {
			firstErr = err
		}
	}
	if m.DB != nil {
		if err := m.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("entrel"),
		kong.Description("Extract people, organizations, and their relationships from web pages"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'entrel --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	deps.Logger = newLogger(stderr, cli.Verbose)
	if cli.DB != "" {
		m.DBPath = cli.DB
	}
	defer m.Close()

	needsDB := cmd == "history" || cmd == "show" || cmd == "delete" ||
		(cmd == "extract" && cli.Extract.Save) ||
		(cmd == "serve" && !cli.Serve.NoHistory)
	if needsDB {
		m.DB = sqlite.NewDB(m.DBPath)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set ENTREL_DB to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
		}
		deps.Analyses = sqlite.NewAnalysisService(m.DB)
	}

	switch cmd {
	case "extract":
		var recorder entrel.AnalysisService
		if cli.Extract.Save {
			recorder = deps.Analyses
		}
		analyzer, err := m.newAnalyzer(ctx, &cli.Extract.AnalyzeFlags, recorder, deps.Logger, stderr)
		if err != nil {
			return err
		}
		deps.Analyzer = analyzer
	case "serve":
		analyzer, err := m.newAnalyzer(ctx, &cli.Serve.AnalyzeFlags, deps.Analyses, deps.Logger, stderr)
		if err != nil {
			return err
		}
		deps.Analyzer = analyzer
	}

	return kongCtx.Run(deps)
}

// newAnalyzer wires the pipeline described by flags.
func (m *Main) newAnalyzer(ctx context.Context, flags *AnalyzeFlags, analyses entrel.AnalysisService, logger *slog.Logger, stderr io.Writer) (entrel.Analyzer, error) {
	extractor, model, err := newExtractor(ctx, flags, stderr)
	if err != nil {
		return nil, err
	}

	tokenizer, err := newTokenizer(flags.Provider, model, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}

	var fetcher entrel.Fetcher
	if flags.Browser {
		f, err := rod.NewFetcher(
			rod.WithFetchTimeout(flags.Timeout),
			rod.WithBrowserBin(flags.Chrome),
			rod.WithLogger(logger),
		)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = f
	} else {
		fetcher = entrelhttp.NewFetcher(entrelhttp.WithTimeout(flags.Timeout))
	}
	m.Fetcher = fetcher

	var converter entrel.Converter = goquery.NewConverter()
	if flags.Markdown {
		converter = htmltomarkdown.NewConverter()
	}

	a := &pipeline.Analyzer{
		Fetcher:     entrelslog.NewLoggingFetcher(fetcher, logger),
		Converter:   converter,
		Tokenizer:   tokenizer,
		Extractor:   entrelslog.NewLoggingExtractor(extractor, logger),
		Analyses:    analyses,
		RetryDelays: pipeline.DefaultRetryDelays(flags.Retries),
		TokenBudget: flags.Budget,
		Provider:    flags.Provider,
		Model:       model,
		Strict:      flags.Strict,
		Logger:      logger,
	}

	switch flags.MainContent {
	case "trafilatura":
		a.ContentExtractor = trafilatura.NewExtractor()
	case "readability":
		a.ContentExtractor = readability.NewExtractor()
	}

	if flags.HostRPS > 0 {
		a.Limiter = pipeline.NewHostLimiter(flags.HostRPS)
	}

	return entrelslog.NewLoggingAnalyzer(a, logger), nil
}

// newExtractor creates the model client for the selected provider and
// returns it with the resolved model name.
func newExtractor(ctx context.Context, flags *AnalyzeFlags, stderr io.Writer) (entrel.Extractor, string, error) {
	switch flags.Provider {
	case "gemini":
		if flags.GeminiKey == "" {
			fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
			return nil, "", fmt.Errorf("GEMINI_API_KEY not set")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  flags.GeminiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return nil, "", fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		e := gemini.NewExtractor(client, flags.Model)
		return e, e.Model(), nil
	default:
		if flags.OpenAIKey == "" {
			fmt.Fprintln(stderr, "OPENAI_API_KEY environment variable not set. Get an API key at https://platform.openai.com/api-keys")
			return nil, "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		e := openai.NewExtractor(openai.WithAPIKey(flags.OpenAIKey), openai.WithModel(flags.Model))
		return e, e.Model(), nil
	}
}

// fallbackEncoding is used for OpenAI models unknown to tiktoken.
const fallbackEncoding = "cl100k_base"

// newTokenizer returns the tokenizer matching the provider's model. Models
// the local tokenizers do not know fall back to a close relative; failures
// to load a known tokenizer are returned.
func newTokenizer(provider, model string, logger *slog.Logger) (entrel.Tokenizer, error) {
	if provider == "gemini" {
		tok, err := gemini.NewTokenizer(model)
		if err == nil {
			return tok, nil
		}
		if entrel.ErrorCode(err) != entrel.EINVALID {
			return nil, err
		}
		logger.Warn("no local tokenizer for model, using default", "model", model, "fallback", gemini.DefaultModel)
		fallback, err := gemini.NewTokenizer(gemini.DefaultModel)
		if err != nil {
			return nil, err
		}
		return fallback, nil
	}

	tok, err := tiktoken.NewTokenizer(model)
	if err == nil {
		return tok, nil
	}
	if entrel.ErrorCode(err) != entrel.EINVALID {
		return nil, err
	}
	logger.Warn("no tiktoken encoding for model, using default", "model", model, "fallback", fallbackEncoding)
	fallback, err := tiktoken.NewTokenizerForEncoding(fallbackEncoding)
	if err != nil {
		return nil, err
	}
	return fallback, nil
}

// newLogger returns a text logger on w. Only warnings and errors are
// logged unless verbose is set.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "entrel.db"
	}
	dir := filepath.Join(home, ".entrel")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "entrel.db")
}
