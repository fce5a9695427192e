package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"yashubustudio/surveyx/nco"
)

// newEmbedder is replaced in tests.
var newEmbedder = func(cfg nco.EmbedderConfig, logger *slog.Logger) (nco.Embedder, error) {
	return nco.NewEmbedder(cfg, logger)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("surveyx-cli: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "surveyx-cli",
		Usage: "Explore survey data and classify job titles against the NCO lookup table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to surveyx.toml (missing file uses defaults)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Rank occupations for a job title with hybrid scoring",
				ArgsUsage: "TITLE",
				Action:    searchCommand,
				Flags: []cli.Flag{
					lookupFlag(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of occupations to show (default from config)",
					},
				},
			},
			{
				Name:   "match",
				Usage:  "Add nco_code to every survey row whose title matches the lookup table",
				Action: matchCommand,
				Flags: []cli.Flag{
					surveyFlag(),
					lookupFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "CSV file to write the enriched dataset to",
						Value:   "MOCK_DATA_with_NCO.csv",
					},
					&cli.StringFlag{
						Name:  "title-column",
						Usage: "Column name or #index holding job titles (auto-detected when empty)",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum fuzzy score (0-100) to accept a match (default from config)",
					},
				},
			},
			{
				Name:   "filter",
				Usage:  "Show survey rows whose column contains a value",
				Action: filterCommand,
				Flags: []cli.Flag{
					surveyFlag(),
					&cli.StringFlag{
						Name:     "column",
						Usage:    "Column name or #index to search",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "value",
						Usage:    "Case-insensitive substring to look for",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum rows to print (0 prints all)",
						Value: 20,
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write the survey dataset as CSV",
				Action: exportCommand,
				Flags: []cli.Flag{
					surveyFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination file, - for stdout",
						Value:   "survey_data.csv",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					surveyFlag(),
					lookupFlag(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default from config)",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Rebuild the index when the lookup file changes",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP tool server over stdio",
				Action: mcpCommand,
				Flags: []cli.Flag{
					surveyFlag(),
					lookupFlag(),
				},
			},
		},
	}
}

func lookupFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "lookup",
		Usage: "Lookup CSV with occupation titles and NCO codes (default from config)",
	}
}

func surveyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "survey",
		Aliases: []string{"s"},
		Usage:   "Survey .ctl descriptor or CSV file (default from config)",
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

	// stdout carries command output and the MCP stream.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
