package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/docdustry/internal"
	"github.com/starford/docdustry/internal/spam"
	pkgconfig "github.com/starford/docdustry/pkg/config"
)

var version = "dev"

// loadConfig reads the config file when present and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if sources := cmd.StringSlice("source"); len(sources) > 0 {
		cfg.Site.Sources = sources
	}
	if out := cmd.String("output"); out != "" {
		cfg.Site.Output = out
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// action adapts an entry point to a cli action.
func action(run func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

func spamAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output := cmd.Args().First()
	if output == "" {
		return fmt.Errorf("spam: output directory argument is required")
	}
	opts := spam.Options{
		Dirs:     int(cmd.Int("dirs")),
		Files:    int(cmd.Int("files")),
		Includes: cmd.Bool("includes"),
	}
	return internal.Spam(ctx, output, opts, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:    "docdustry",
		Usage:   "Static documentation generator with transclusion, listings and live preview",
		Version: version,
		Action:  action(internal.Generate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringSliceFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Source root, repeatable (overrides config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (overrides config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "gen",
				Usage:  "Generate the static site",
				Action: action(internal.Generate),
			},
			{
				Name:   "gen-db",
				Usage:  "Persist the resolved corpus to SQLite",
				Action: action(internal.GenerateDB),
			},
			{
				Name:   "serve",
				Usage:  "Serve the site with live rebuilds, the REST API and metrics",
				Action: action(internal.Serve),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the persisted corpus over MCP on stdio",
				Action: action(internal.ServeMCP),
			},
			{
				Name:      "spam",
				Usage:     "Generate a synthetic Markdown corpus",
				ArgsUsage: "<output-dir>",
				Action:    spamAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "dirs", Value: 10, Usage: "Number of directories"},
					&cli.IntFlag{Name: "files", Value: 100, Usage: "Files per directory"},
					&cli.BoolFlag{Name: "includes", Usage: "Chain files in each directory with transclusions"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
