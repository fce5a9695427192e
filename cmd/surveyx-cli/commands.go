package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"yashubustudio/surveyx/internal/mcpserver"
	"yashubustudio/surveyx/internal/server"
	"yashubustudio/surveyx/nco"
)

func loadConfig(c *cli.Context) (nco.Config, error) {
	cfg, err := nco.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if c.IsSet("lookup") {
		cfg.Data.LookupPath = strings.TrimSpace(c.String("lookup"))
	}
	if c.IsSet("survey") {
		cfg.Data.SurveyCtl = strings.TrimSpace(c.String("survey"))
	}
	return cfg, nil
}

func openService(ctx context.Context, cfg nco.Config, logger *slog.Logger, requireLookup bool) (*nco.Service, error) {
	embedder, err := newEmbedder(cfg.Embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	svc, err := nco.NewService(embedder, cfg, logger)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("init service: %w", err)
	}
	if _, err := svc.LoadLookupFile(ctx, cfg.Data.LookupPath); err != nil {
		if requireLookup {
			svc.Close()
			return nil, fmt.Errorf("load lookup: %w", err)
		}
		logger.Warn("starting without lookup table", "path", cfg.Data.LookupPath, "error", err)
	}
	return svc, nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a job title is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	topK := c.Int("top-k")
	if topK < 0 || topK > cfg.Search.MaxTopK {
		return fmt.Errorf("--top-k must be between 1 and %d", cfg.Search.MaxTopK)
	}
	logger := slog.Default()
	svc, err := openService(c.Context, cfg, logger, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.Search(c.Context, query, topK)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			r.Entry.Label,
			r.Entry.Code,
			fmt.Sprintf("%.3f", r.FinalScore),
			fmt.Sprintf("%.3f", r.SemanticScore),
			fmt.Sprintf("%.3f", r.LexicalScore),
		}
	}
	printTable(c.App.Writer, []string{"#", "occupation_title", "nco_code", "final", "semantic", "lexical"}, rows)
	return nil
}

func matchCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()
	ds, err := nco.LoadSurveyPath(cfg.Data.SurveyCtl)
	if err != nil {
		return fmt.Errorf("load survey: %w", err)
	}
	entries, err := nco.LoadLookupTable(cfg.Data.LookupPath, nco.LookupOptions{
		TitleColumn: cfg.Data.TitleColumn,
		CodeColumn:  cfg.Data.CodeColumn,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("load lookup: %w", err)
	}
	threshold := cfg.Match.Threshold
	if c.IsSet("threshold") {
		threshold = c.Float64("threshold")
		if threshold < 0 || threshold > 100 {
			return fmt.Errorf("--threshold must be between 0 and 100, got %g", threshold)
		}
	}
	matcher := nco.NewBatchMatcher(
		nco.WithThreshold(threshold),
		nco.WithWorkers(cfg.Match.Workers),
		nco.WithMatchLogger(logger),
	)
	enriched, results, err := matcher.EnrichDataset(c.Context, ds, c.String("title-column"), entries)
	if err != nil {
		return fmt.Errorf("match: %w", err)
	}
	output := c.String("output")
	if err := writeDataset(output, enriched, c.App.Writer); err != nil {
		return err
	}
	matched := 0
	for _, r := range results {
		if r.Matched {
			matched++
		}
	}
	fmt.Fprintf(c.App.Writer, "matched %d of %d rows (threshold %.0f), wrote %s\n", matched, len(results), matcher.Threshold(), output)
	return nil
}

func filterCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ds, err := nco.LoadSurveyPath(cfg.Data.SurveyCtl)
	if err != nil {
		return fmt.Errorf("load survey: %w", err)
	}
	filtered, err := ds.FilterContains(c.String("column"), c.String("value"))
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	shown := filtered
	if limit := c.Int("limit"); limit > 0 {
		shown = filtered.Head(limit)
	}
	printTable(c.App.Writer, shown.Columns, shown.Rows)
	fmt.Fprintf(c.App.Writer, "%d of %d rows match\n", filtered.Len(), ds.Len())
	return nil
}

func exportCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ds, err := nco.LoadSurveyPath(cfg.Data.SurveyCtl)
	if err != nil {
		return fmt.Errorf("load survey: %w", err)
	}
	return writeDataset(c.String("output"), ds, c.App.Writer)
}

func writeDataset(path string, ds *nco.Dataset, stdout io.Writer) error {
	if path == "-" {
		return ds.WriteCSV(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := ds.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	svc, err := openService(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	if c.Bool("watch") || cfg.Data.WatchLookup {
		watcher, err := nco.WatchLookup(ctx, svc, cfg.Data.LookupPath, nco.WatchOptions{Logger: logger})
		if err != nil {
			return fmt.Errorf("watch lookup: %w", err)
		}
		defer watcher.Close()
	}

	api := server.NewAPI(svc, cfg.Data.SurveyCtl, logger)
	return server.Serve(ctx, cfg.Server.Addr, server.NewRouter(api), logger)
}

func mcpCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	svc, err := openService(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	survey, err := nco.LoadSurveyPath(cfg.Data.SurveyCtl)
	if err != nil {
		logger.Warn("survey unavailable", "path", cfg.Data.SurveyCtl, "error", err)
		survey = nil
	}
	srv, err := mcpserver.NewServer(svc, survey, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
