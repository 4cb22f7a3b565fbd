package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/glossy/internal/intent"
	"github.com/ashureev/glossy/internal/knowledge"
	"github.com/ashureev/glossy/internal/search"
)

// App holds the flags shared by every command.
type App struct {
	EnginesFile  string
	KnowledgeURL string
	Timeout      time.Duration
	Offline      bool
	Verbose      bool

	// lookup overrides the knowledge client in tests.
	lookup intent.KnowledgeLookup
}

// NewApp creates the CLI application with default settings.
func NewApp() *App {
	return &App{
		KnowledgeURL: knowledge.DefaultBaseURL,
		Timeout:      5 * time.Second,
	}
}

// CreateRootCommand creates and configures the root command.
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "glossy",
		Short: "Glossy assistant from the command line",
		Long: `glossy answers chat input the same way the page assistant does, evaluates
arithmetic, and builds search URLs from the engine catalog.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&app.EnginesFile, "engines", "", "Search engine catalog YAML (built-in when empty)")
	rootCmd.PersistentFlags().StringVar(&app.KnowledgeURL, "knowledge-url", app.KnowledgeURL, "Knowledge summary API base URL")
	rootCmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", app.Timeout, "Knowledge lookup timeout")
	rootCmd.PersistentFlags().BoolVar(&app.Offline, "offline", false, "Skip knowledge lookups")
	rootCmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log pipeline decisions to stderr")

	app.addAskCommand(rootCmd)
	app.addCalcCommand(rootCmd)
	app.addEnginesCommand(rootCmd)
	app.addHealthCommand(rootCmd)

	return rootCmd
}

func (app *App) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if app.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (app *App) catalog() (*search.Catalog, error) {
	return search.LoadCatalog(app.EnginesFile)
}

func (app *App) resolver(logger *slog.Logger) (*intent.Resolver, error) {
	if app.lookup != nil {
		return intent.NewResolver(app.lookup, logger), nil
	}
	if app.Offline {
		return intent.NewResolver(nil, logger), nil
	}
	client, err := knowledge.NewClient(knowledge.Config{
		BaseURL: app.KnowledgeURL,
		Timeout: app.Timeout,
	}, nil, logger)
	if err != nil {
		return nil, err
	}
	return intent.NewResolver(client, logger), nil
}
