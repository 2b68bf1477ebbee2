// Package cmd implements the drivechat CLI: the HTTP server, the
// one-shot indexing command, and version reporting.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/drivechat/drivechat/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "drivechat",
	Short: "RAG chat service over Google Drive documents",
	Long: `drivechat indexes documents from a Google Drive folder, embeds their
text, and answers questions over HTTP with citations back to the source
documents.

Run "drivechat serve" to start the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the process logger and installs it as the slog
// default. Log level is controlled by the DEBUG environment variable.
func initLogger(jsonFormat bool) log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}

	logger := log.NewWithWriter(os.Stderr, log.Config{Level: level, JSON: jsonFormat})
	slog.SetDefault(logger)
	return logger
}
