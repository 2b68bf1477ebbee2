package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drivechat/drivechat/internal/app"
	"github.com/drivechat/drivechat/internal/config"
)

var indexCmd = &cobra.Command{
	Use:   "index [fileID...]",
	Short: "Index Drive documents and report chunk counts",
	Long: `index downloads the given Drive files (or every indexable file in the
configured folder when no IDs are given), extracts their text and runs
the chunking and embedding pipeline, reporting per-file results.

The index is held in memory, so this command is a pipeline dry run: it
verifies Drive access, extraction and embedding before starting serve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(parent context.Context, fileIDs []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := initLogger(cfg.LogJSON)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	if len(fileIDs) == 0 {
		files, err := a.Source.ListFiles(ctx)
		if err != nil {
			return fmt.Errorf("listing files: %w", err)
		}
		if len(files) == 0 {
			fmt.Println("no indexable files found")
			return nil
		}
		for _, f := range files {
			fileIDs = append(fileIDs, f.ID)
		}
	}

	var failed int
	for _, id := range fileIDs {
		result, err := a.Indexer.Index(ctx, id)
		if err != nil {
			failed++
			logger.Error("indexing failed", "file_id", id, "error", err)
			continue
		}
		fmt.Printf("%s: %d chunks\n", result.FileName, result.ChunksProcessed)
	}

	totalChunks, uniqueDocs := a.VectorStore.Stats()
	fmt.Printf("indexed %d documents, %d chunks total\n", uniqueDocs, totalChunks)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(fileIDs))
	}
	return nil
}
