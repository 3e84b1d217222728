package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/paralegal/internal/config"
	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	paralegal "github.com/kailas-cloud/paralegal/pkg/sdk"
)

var errQuestionRequired = errors.New("question is required")

func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load(config.GetEnv())
}

// clientOptions maps the service configuration onto SDK options.
func clientOptions(cfg config.Config, logger *slog.Logger) []paralegal.Option {
	opts := []paralegal.Option{
		paralegal.WithRedis(cfg.Database.Addrs[0], cfg.Database.Password),
		paralegal.WithKeyPrefix(cfg.Storage.KeyPrefix),
		paralegal.WithOpenAIEmbedding(paralegal.Provider{
			Name:    cfg.Embedding.Name,
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		}, cfg.Embedding.Dimensions),
		paralegal.WithOpenAIGeneration(paralegal.Provider{
			Name:    cfg.Generation.Name,
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
		}),
		paralegal.WithSystemPrompt(cfg.Generation.SystemPrompt),
		paralegal.WithSampling(cfg.Generation.MaxTokens, cfg.Generation.Temperature),
		paralegal.WithHNSW(cfg.Storage.HNSWM, cfg.Storage.HNSWEFConstruct),
		paralegal.WithRetrieval(paralegal.RetrievalOptions{
			KeywordTopK:       cfg.Retrieval.KeywordTopK,
			VectorTopK:        cfg.Retrieval.VectorTopK,
			FusedTopK:         cfg.Retrieval.FusedTopK,
			MaxParallelism:    cfg.Retrieval.MaxParallelism,
			EnumerateBatch:    cfg.Retrieval.EnumerateBatch,
			EmbedTimeout:      config.Seconds(cfg.Timeouts.EmbeddingSec),
			QueryTimeout:      config.Seconds(cfg.Timeouts.VectorQuerySec),
			EnumerateTimeout:  config.Seconds(cfg.Timeouts.EnumerateSec),
			GenerationTimeout: config.Seconds(cfg.Timeouts.GenerationSec),
		}),
		paralegal.WithIngest(cfg.Ingest.Workers, cfg.Ingest.BatchSize),
		paralegal.WithLogger(logger),
	}
	if cfg.Embedding.QueryInstruction != "" {
		opts = append(opts, paralegal.WithQueryInstruction(cfg.Embedding.QueryInstruction))
	}
	return opts
}

func openClient(ctx context.Context, c *cli.Context, extra ...paralegal.Option) (*paralegal.Client, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	client, err := paralegal.New(ctx, append(clientOptions(cfg, slog.Default()), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return client, nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errQuestionRequired
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	client, err := openClient(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Chat(ctx, question)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp) //nolint:wrapcheck // stdout
	}
	printAnswer(c.App.Writer, resp, c.Bool("contexts"))
	return nil
}

func printAnswer(w io.Writer, resp paralegal.ChatResponse, contexts bool) {
	fmt.Fprintln(w, resp.Answer)

	if len(resp.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for i, s := range resp.Sources {
			if s.Page > 0 {
				fmt.Fprintf(w, "  [%d] %s (page %d)\n", i+1, s.File, s.Page)
			} else {
				fmt.Fprintf(w, "  [%d] %s\n", i+1, s.File)
			}
		}
	}
	if contexts && len(resp.Contexts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Excerpts:")
		for i, ctx := range resp.Contexts {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, ctx)
		}
	}
	for _, warning := range resp.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func namespacesCommand(c *cli.Context) error {
	client, err := openClient(c.Context, c)
	if err != nil {
		return err
	}
	defer client.Close()

	nss, err := client.Namespaces(c.Context)
	if err != nil {
		return err
	}
	return printNamespaces(c.App.Writer, nss, c.String("prefix"))
}

func printNamespaces(w io.Writer, nss []paralegal.Namespace, prefix string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMESPACE\tVECTORS")
	for _, ns := range nss {
		if !strings.HasPrefix(ns.Name, prefix) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\n", ns.Name, ns.VectorCount)
	}
	return tw.Flush() //nolint:wrapcheck // stdout
}

// ingestTarget pairs a file with the namespace it is written to.
type ingestTarget struct {
	path      string
	namespace string
}

func ingestTargets(files []string, ns string) ([]ingestTarget, error) {
	if len(files) == 0 {
		return nil, errors.New("at least one file is required")
	}
	if ns != "" && len(files) > 1 {
		return nil, errors.New("--namespace applies to a single file")
	}

	targets := make([]ingestTarget, 0, len(files))
	for _, f := range files {
		name := ns
		if name == "" {
			name = namespace.FromFile(strings.TrimSuffix(f, filepath.Ext(f)))
		}
		if err := namespace.Validate(name); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		targets = append(targets, ingestTarget{path: f, namespace: name})
	}
	if dup := duplicateNamespace(targets); dup != "" {
		return nil, fmt.Errorf("two files map to namespace %q", dup)
	}
	return targets, nil
}

func duplicateNamespace(targets []ingestTarget) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.namespace
	}
	slices.Sort(names)
	for i := 1; i < len(names); i++ {
		if names[i] == names[i-1] {
			return names[i]
		}
	}
	return ""
}

func ingestCommand(c *cli.Context) error {
	targets, err := ingestTargets(c.Args().Slice(), c.String("namespace"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	var extra []paralegal.Option
	if c.IsSet("workers") || c.IsSet("batch-size") {
		extra = append(extra, paralegal.WithIngest(c.Int("workers"), c.Int("batch-size")))
	}
	client, err := openClient(ctx, c, extra...)
	if err != nil {
		return err
	}
	defer client.Close()

	var result *multierror.Error
	for _, t := range targets {
		if err := ingestFile(ctx, c.App.Writer, client, t); err != nil {
			result = multierror.Append(result, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return result.ErrorOrNil()
}

func ingestFile(ctx context.Context, w io.Writer, client *paralegal.Client, t ingestTarget) error {
	f, err := os.Open(filepath.Clean(t.path))
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	res, err := client.Ingest(ctx, t.namespace, f)
	fmt.Fprintf(w, "%s -> %s: %d stored, %d failed, %d skipped, %d embedding tokens in %s\n",
		t.path, t.namespace, res.Processed, res.Failed, res.Skipped, res.EmbeddingTokens,
		res.Duration.Round(time.Millisecond))
	if err != nil {
		return fmt.Errorf("ingest %s: %w", t.path, err)
	}
	if res.Failed > 0 {
		return fmt.Errorf("ingest %s: %d chunks failed", t.path, res.Failed)
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	client, err := openClient(c.Context, c)
	if err != nil {
		return err
	}
	defer client.Close()

	h := client.Health(c.Context)
	fmt.Fprintf(c.App.Writer, "status: %s\n", h.Status)
	for _, name := range h.Components() {
		fmt.Fprintf(c.App.Writer, "  %s: %s\n", name, h.Checks[name])
	}
	if !h.OK() {
		return cli.Exit("", 1)
	}
	return nil
}
