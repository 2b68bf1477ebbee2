// Package app provides application initialization and dependency wiring.
//
// App is the container that holds all application components: Genkit and
// its embedder, the vector and conversation stores, the Drive source, and
// the indexing and question-answering pipelines built on top of them.
package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/drivechat/drivechat/internal/chunker"
	"github.com/drivechat/drivechat/internal/config"
	"github.com/drivechat/drivechat/internal/conversation"
	"github.com/drivechat/drivechat/internal/drive"
	"github.com/drivechat/drivechat/internal/extract"
	"github.com/drivechat/drivechat/internal/log"
	"github.com/drivechat/drivechat/internal/rag"
	"github.com/drivechat/drivechat/internal/vector"
)

// App is the application container.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	VectorStore   *vector.Memory
	Conversations conversation.Store
	Source        *drive.Client

	Engine  *rag.Engine
	Indexer *rag.Indexer

	Logger log.Logger
}

// Setup creates and initializes the application. The Drive client is
// only created when an access token is configured; callers that need it
// should validate the config with ValidateServe first.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	a := &App{
		Config:        cfg,
		Genkit:        g,
		Embedder:      embedder,
		VectorStore:   vector.NewMemory(),
		Conversations: conversation.NewMemory(),
		Logger:        logger,
	}

	if cfg.DriveAccessToken != "" {
		source, err := drive.NewClient(ctx, cfg.DriveAccessToken, cfg.DriveFolderID, logger)
		if err != nil {
			return nil, fmt.Errorf("creating drive client: %w", err)
		}
		a.Source = source
	}

	a.Engine = rag.NewEngine(g, embedder, a.VectorStore, cfg.ModelName, cfg.TopK, logger)

	ch := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
		chunker.WithMinLength(cfg.MinChunkLength),
	)

	// Avoid a typed-nil Source inside the interface when no token is set.
	var source rag.Source
	if a.Source != nil {
		source = a.Source
	}
	a.Indexer = rag.NewIndexer(source, extract.New(logger), ch, embedder, a.VectorStore, logger)

	return a, nil
}
