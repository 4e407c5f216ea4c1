package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docpilot/internal/audit"
	"github.com/ziadkadry99/docpilot/internal/db"
	"github.com/ziadkadry99/docpilot/internal/documents"
	"github.com/ziadkadry99/docpilot/internal/embeddings"
	"github.com/ziadkadry99/docpilot/internal/llm"
	"github.com/ziadkadry99/docpilot/internal/notifications"
	"github.com/ziadkadry99/docpilot/internal/planner"
	"github.com/ziadkadry99/docpilot/internal/spanedit"
	"github.com/ziadkadry99/docpilot/internal/vectordb"
	"github.com/ziadkadry99/docpilot/internal/workspace"
)

// app bundles the collaborators shared by the long-running commands.
type app struct {
	db      *db.DB
	audit   *audit.Store
	notifs  *notifications.Store
	index   *vectordb.ChromemStore
	service *workspace.Service
}

func (a *app) Close() error {
	return a.db.Close()
}

// openApp wires the workspace service from cfg. The LLM provider and the
// search index are optional: when they cannot be created the service runs
// without them and the dependent operations report themselves unavailable.
func openApp(ctx context.Context) (*app, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	docs, err := documents.NewStore(database, cfg.DocumentsDir(), logger.Named("documents"))
	if err != nil {
		database.Close()
		return nil, err
	}

	a := &app{
		db:     database,
		audit:  audit.NewStore(database),
		notifs: notifications.NewStore(database),
	}

	var plan *planner.Planner
	if provider, err := createLLMProviderFromConfig(); err != nil {
		logger.Warn("LLM features disabled", zap.Error(err))
	} else {
		plan = planner.New(provider, cfg.Model, planner.WithLogger(logger.Named("planner")))
	}

	var (
		index    vectordb.VectorStore
		indexDir string
	)
	if store, err := openIndex(ctx); err != nil {
		logger.Warn("search disabled", zap.Error(err))
	} else {
		a.index = store
		index = store
		indexDir = cfg.IndexDir()
	}

	a.service = workspace.New(workspace.Config{
		Documents: docs,
		Audit:     a.audit,
		Planner:   plan,
		Index:     index,
		Notifier:  notifications.NewDispatcher(a.notifs, logger.Named("notifications")),
		IndexDir:  indexDir,
		Editor: spanedit.Options{
			MaxReplacements: cfg.MaxReplacements,
			AllowDegraded:   cfg.AllowDegraded,
		},
		Logger: logger.Named("workspace"),
	})
	return a, nil
}

// createLLMProviderFromConfig creates an LLM provider, rate limited when
// rate_limit_rpm is set.
func createLLMProviderFromConfig() (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM), nil
}

// openIndex creates the paragraph index and loads its persisted state.
func openIndex(ctx context.Context) (*vectordb.ChromemStore, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	embedder, err := embeddings.New(string(provider), cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	dir := cfg.IndexDir()
	if _, err := os.Stat(filepath.Join(dir, vectordb.ExportFile)); errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err := store.Load(ctx, dir); err != nil {
		return nil, fmt.Errorf("loading index from %s: %w", dir, err)
	}
	return store, nil
}

// cliActor attributes CLI edits to the local user.
func cliActor() workspace.Actor {
	id := os.Getenv("USER")
	if id == "" {
		id = "cli"
	}
	return workspace.Actor{Type: audit.ActorUser, ID: id}
}
