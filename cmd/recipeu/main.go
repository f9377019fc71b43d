// Command recipeu runs the conversational recipe assistant backend.
//
// Usage:
//
//	recipeu serve --config config.yaml
//	recipeu version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/recipeu/agent/pkg/chat"
	"github.com/recipeu/agent/pkg/config"
	"github.com/recipeu/agent/pkg/databases"
	"github.com/recipeu/agent/pkg/embedders"
	"github.com/recipeu/agent/pkg/llms"
	"github.com/recipeu/agent/pkg/logger"
	"github.com/recipeu/agent/pkg/search"
	"github.com/recipeu/agent/pkg/server"
	"github.com/recipeu/agent/pkg/store"
	"github.com/recipeu/agent/pkg/websearch"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the chat server."`

	Config   string `short:"c" help:"Path to config file." type:"path" default:"config.yaml"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:""`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("recipeu version %s\n", version)
	return nil
}

// ServeCmd starts the websocket chat server.
type ServeCmd struct {
	Port int `help:"Port to listen on (overrides config)." default:"0"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel), os.Stderr)
	log := logger.Get()

	llm, err := llms.NewProvider(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create llm provider: %w", err)
	}
	defer llm.Close()

	embedder, err := embedders.NewClovaEmbedder(&cfg.Embedder)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	vector, err := databases.NewMilvusStore(&cfg.Vector)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer vector.Close()

	var reranker *search.Reranker
	if cfg.Rerank.Enabled {
		reranker, err = search.NewReranker(&cfg.Rerank)
		if err != nil {
			return fmt.Errorf("failed to create reranker: %w", err)
		}
	}
	recipes := search.NewRecipeStore(embedder, vector, reranker, cfg.Vector.Collection, log)

	web, err := websearch.New(&cfg.WebSearch)
	if err != nil {
		return fmt.Errorf("failed to create web search service: %w", err)
	}

	var chatStore chat.ChatStore
	var history server.ChatHistory
	if cfg.MySQL.Enabled() {
		mysqlStore, err := store.New(cfg.MySQL.DSN(), log)
		if err != nil {
			return fmt.Errorf("failed to connect to mysql: %w", err)
		}
		defer mysqlStore.Close()
		chatStore = mysqlStore
		history = mysqlStore
	} else {
		log.Warn("mysql not configured, chat persistence disabled")
	}

	classifier := chat.NewClassifier(llm, log)
	extractor := chat.NewExtractor(llm, log)
	modifier := chat.NewModifier(llm, extractor, log)
	pipeline := chat.NewPipeline(llm, recipes, web, cfg.Chat.TopK, log)
	controller := chat.NewController(classifier, pipeline, modifier, chatStore,
		cfg.Chat.Deadline(), cfg.Chat.HistoryWindow, log)

	srv := server.New(cfg.Server.Address(), controller, history, cfg.Server.AllowedOrigins, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Start(groupCtx)
	})
	return group.Wait()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("recipeu"),
		kong.Description("Conversational recipe assistant backend."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
