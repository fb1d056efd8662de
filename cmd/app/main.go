package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/tuannvm/viwoods-obsidian/internal"
	pkgconfig "github.com/tuannvm/viwoods-obsidian/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfPresent(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func importOne(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("usage: import <file.note>")
	}
	summary, err := internal.ImportOnce(ctx, cfg, file)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d new, %d modified, %d unchanged, %d deleted, %d errors\n",
		summary.BookName, len(summary.NewPages), len(summary.ModifiedPages),
		len(summary.UnchangedPages), len(summary.DeletedPages), len(summary.Errors))
	return nil
}

func scanOnce(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	changes, err := internal.ScanOnce(ctx, cfg)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Println("no changes detected")
		return nil
	}
	for _, ch := range changes {
		fmt.Printf("%s: %s\n", ch.ChangeType, ch.FileName)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, cfg)
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "viwoods",
		Usage:  "Import Viwoods .note files into durable images, SVG stroke renderings, and audio, with incremental re-sync",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import a single .note file and exit",
				ArgsUsage: "<file.note>",
				Action:    importOne,
				Flags:     []cli.Flag{configFlag},
			},
			{
				Name:   "scan",
				Usage:  "Scan the source folder once, import detected changes, and exit",
				Action: scanOnce,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve importer tools over MCP stdio",
				Action: serveMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
