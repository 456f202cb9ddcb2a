package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/rh1/sitetools/internal/models"
	"github.com/rh1/sitetools/internal/types"
	cfgPkg "github.com/rh1/sitetools/pkg/config"
	"github.com/rh1/sitetools/pkg/llm"
	"github.com/rh1/sitetools/pkg/precompute"
	"github.com/rh1/sitetools/pkg/processor"
	"github.com/rh1/sitetools/pkg/search"
	"github.com/rh1/sitetools/pkg/store"
)

type Options struct {
	ConfigPath string
	DocsDir    string
	Output     string
	Provider   string
	Model      string
	OllamaURL  string
	DBUrl      string
	Query      string
	Limit      int
	Threshold  float64

	// set holds the names of flags given on the command line.
	set map[string]bool
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	config, err := loadConfig(opts)
	if err != nil {
		log.Fatal(err)
	}

	if errs := config.Validate(); len(errs) > 0 {
		color.Red("Invalid configuration:")
		for _, e := range errs {
			color.Red("  - %s", e)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.Query != "" {
		err = runQuery(ctx, config, opts.Query)
	} else {
		err = run(ctx, config)
	}
	if err != nil {
		stop()
		log.Fatal(err)
	}
}

func parseFlags(args []string) (Options, error) {
	var opts Options
	fs := flag.NewFlagSet("embeddings", flag.ContinueOnError)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to config file (default: embeddings.yaml if present)")
	fs.StringVar(&opts.DocsDir, "docs-dir", "", "Directory holding the source documents")
	fs.StringVar(&opts.Output, "out", "", "Output JSON file")
	fs.StringVar(&opts.Provider, "provider", "", "Embedding provider: ollama, openai or hash")
	fs.StringVar(&opts.Model, "model", "", "Embedding model")
	fs.StringVar(&opts.OllamaURL, "ollama-url", "", "Embedding server URL")
	fs.StringVar(&opts.DBUrl, "db-url", "", "PostgreSQL connection string; also upserts into pgvector")
	fs.StringVar(&opts.Query, "query", "", "Search the precomputed embeddings instead of generating them")
	fs.IntVar(&opts.Limit, "limit", 0, "Maximum search results")
	fs.Float64Var(&opts.Threshold, "threshold", 0, "Minimum cosine similarity for search results")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// loadConfig reads the config file and applies flags given on the command
// line on top of it.
func loadConfig(opts Options) (*cfgPkg.Config, error) {
	config, err := cfgPkg.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	set := opts.set

	if set["provider"] && !strings.EqualFold(opts.Provider, config.Embedding.Provider) {
		config.Embedding.Provider = strings.ToLower(opts.Provider)
		config.Embedding.Model = ""
		config.Embedding.BaseURL = ""
	}
	if set["model"] {
		config.Embedding.Model = opts.Model
	}
	if set["ollama-url"] {
		config.Embedding.BaseURL = opts.OllamaURL
	}
	if set["docs-dir"] {
		config.DocumentsDir = opts.DocsDir
	}
	if set["out"] {
		config.Output = opts.Output
	}
	if set["db-url"] {
		config.Database.URL = opts.DBUrl
	}
	if set["limit"] {
		config.Search.MaxResults = opts.Limit
	}
	if set["threshold"] {
		config.Search.Threshold = opts.Threshold
	}

	cfgPkg.ApplyDefaults(config)
	return config, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func newEmbedder(config *cfgPkg.Config) (*llm.Embedder, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  config.Embedding.Provider,
		Model:     config.Embedding.Model,
		BaseURL:   config.Embedding.BaseURL,
		APIKey:    config.Embedding.APIKey,
		BatchSize: config.Embedding.BatchSize,
		Dimension: config.Embedding.Dimension,
		RateLimit: config.Embedding.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return embedder, nil
}

// openStore opens the configured vector store. Tests replace it.
var openStore = func(ctx context.Context, config *cfgPkg.Config) (types.RecordStore, error) {
	vectorStore, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString:  config.Database.URL,
		TableName:   config.Database.TableName,
		VectorDim:   config.Database.VectorDim,
		BatchSize:   config.Database.BatchSize,
		SearchLimit: config.Search.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	return vectorStore, nil
}

func run(ctx context.Context, config *cfgPkg.Config) error {
	embedder, err := newEmbedder(config)
	if err != nil {
		return err
	}
	color.Cyan("Loading embedding model (%s: %s)...", embedder.Provider(), embedder.Config.Model)

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    config.Processor.ChunkSize,
		ChunkOverlap: *config.Processor.ChunkOverlap,
	})

	bar := getProgressBar(len(config.Documents), "Processing documents...")
	pre, err := precompute.NewWithConfig(precompute.PrecomputeConfig{
		DocumentsDir: config.DocumentsDir,
		Documents:    config.Documents,
		Chunker:      chunker,
		Embed:        embedder.Func(),
		OnDocument: func(doc models.Document, chunks int) {
			bar.Describe(color.BlueString("Processing %s: generating embeddings for %d chunks...", doc.Spec.File, chunks))
			bar.Add(1)
		},
		OnMissing: func(spec models.DocumentSpec, path string) {
			bar.Add(1)
			color.Yellow("\nWarning: File not found: %s", path)
		},
	})
	if err != nil {
		return err
	}

	records, err := pre.Run(ctx)
	if err != nil {
		return err
	}
	bar.Finish()

	if err := precompute.WriteJSON(config.Output, records); err != nil {
		return err
	}
	color.Green("\n✓ Generated %d embeddings", len(records))
	fmt.Printf("Saved to: %s\n", config.Output)

	if config.Database.URL == "" {
		return nil
	}

	vectorStore, err := openStore(ctx, config)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	spinner := getSpinner("Storing in vector database...")
	err = vectorStore.Store(ctx, records)
	spinner.Finish()
	if err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}
	color.Green("\n✓ Stored %d embeddings in table %s", len(records), config.Database.TableName)

	return nil
}

func runQuery(ctx context.Context, config *cfgPkg.Config, query string) error {
	embedder, err := newEmbedder(config)
	if err != nil {
		return err
	}

	spinner := getSpinner("Searching embeddings...")
	results, err := searchRecords(ctx, config, embedder, query)
	spinner.Finish()
	fmt.Print("\n")
	if err != nil {
		return err
	}

	if len(results) == 0 {
		color.Yellow("No matches for %q", query)
		return nil
	}

	heading := color.New(color.FgCyan, color.Bold).PrintfFunc()
	for i, r := range results {
		heading("%d. %s (%s) %.3f\n", i+1, r.Title(), r.ID, r.Similarity)
		fmt.Printf("   %s\n\n", snippet(r.Text, 240))
	}
	return nil
}

// searchRecords ranks against pgvector when a database is configured and
// against the JSON file otherwise. Without a query embedding it falls back
// to keyword scoring over the JSON records.
func searchRecords(ctx context.Context, config *cfgPkg.Config, embedder types.Embedder, query string) ([]search.Result, error) {
	vec, embedErr := embedder.EmbedQuery(ctx, query)

	if config.Database.URL != "" && embedErr == nil {
		vectorStore, err := openStore(ctx, config)
		if err != nil {
			return nil, err
		}
		defer vectorStore.Close()

		records, err := vectorStore.Query(ctx, vec, config.Search.MaxResults)
		if err != nil {
			return nil, fmt.Errorf("failed to query vector store: %w", err)
		}
		return search.New(records).Search(vec, search.SearchOptions{
			Threshold:  config.Search.Threshold,
			MaxResults: config.Search.MaxResults,
		}), nil
	}

	records, err := precompute.ReadJSON(config.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	index := search.New(records)

	if embedErr != nil {
		if errors.Is(embedErr, context.Canceled) {
			return nil, embedErr
		}
		color.Yellow("\nWarning: query embedding failed (%v), using keyword search", embedErr)
		return index.KeywordSearch(query, config.Search.MaxResults), nil
	}

	return index.Search(vec, search.SearchOptions{
		Threshold:  config.Search.Threshold,
		MaxResults: config.Search.MaxResults,
	}), nil
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
