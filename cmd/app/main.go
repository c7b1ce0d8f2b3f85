package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/wikifeed/internal"
	pkgconfig "github.com/starford/wikifeed/pkg/config"
)

var version = "dev"

type runFunc func(ctx context.Context, opts ...internal.Option) error

// action loads the config and hands it to run. A missing config file is
// fine; the defaults are used.
func action(run runFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if wiki := cmd.String("wiki"); wiki != "" {
			cfg.Wiki.Path = wiki
			cfg.Repo.Path = wiki
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
			internal.WithOutput(os.Stdout),
		}

		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "wikifeed",
		Usage:   "Turns a git-hosted Markdown wiki into a ranked feed of dashboard cards",
		Version: version,
		Action:  action(internal.Run),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "wiki",
				Aliases: []string{"w"},
				Usage:   "Wiki directory, overriding wiki.path and repo.path",
				Sources: cli.EnvVars("WIKIFEED_WIKI_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: action(internal.Run),
			},
			{
				Name:   "timeline",
				Usage:  "Print the ranked card timeline",
				Action: action(internal.RunTimeline),
			},
			{
				Name:   "sync",
				Usage:  "Pull the wiki repository once and print the result",
				Action: action(internal.RunSync),
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: action(internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
