package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/paralegal/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "paralegalctl",
		Usage:   "Ask questions about and ingest legal documents",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (default: config/$ENV.yaml)",
				EnvVars: []string{"PARALEGAL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question over the indexed documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full response as JSON",
					},
					&cli.BoolFlag{
						Name:  "contexts",
						Usage: "Print the excerpts handed to the model",
					},
				},
			},
			{
				Name:    "namespaces",
				Aliases: []string{"ls"},
				Usage:   "List indexed namespaces",
				Action:  namespacesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only list namespaces starting with prefix",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Embed and store JSON Lines chunk files, one namespace per file",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "namespace",
						Aliases: []string{"n"},
						Usage:   "Namespace for a single file (default: the file's base name)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent embedding workers (default: from config)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Chunks per embedding request (default: from config)",
					},
				},
			},
			{
				Name:   "health",
				Usage:  "Check Redis and provider connectivity",
				Action: healthCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
