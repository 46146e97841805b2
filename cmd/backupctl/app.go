package main

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/backupctl/internal/config"
	"github.com/andresuchdata/backupctl/internal/metrics"
	"github.com/andresuchdata/backupctl/internal/service"
	"github.com/andresuchdata/backupctl/pkg/logger"
	"github.com/urfave/cli/v2"
)

func newConfigFlag(cfg *config.Config) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Realms file (TOML, or YAML with a .yaml/.yml extension)",
		Value:   cfg.App.ConfigFile,
		EnvVars: []string{"CONFIG_FILE"},
	}
}

func newNameFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "name",
		Aliases:  []string{"n"},
		Usage:    "Realm name",
		Required: required,
	}
}

func newExchangeDirFlag(cfg *config.Config) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "exchange-dir",
		Aliases: []string{"d"},
		Usage:   "Local directory backups are pushed from and pulled to",
		Value:   cfg.App.ExchangeDir,
		EnvVars: []string{"EXCHANGE_DIR"},
	}
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:    "backupctl",
		Usage:   "Push, pull and inspect backups stored in S3 realms",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Value:   cfg.Log.Level,
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (console or json)",
				Value:   cfg.Log.Format,
				EnvVars: []string{"LOG_FORMAT"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Configure(c.String("log-format"), c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "stat",
				Usage: "Show size, file count and latest backup of one or every realm",
				Flags: []cli.Flag{
					newNameFlag(false),
					newConfigFlag(cfg),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print JSON instead of a table",
					},
				},
				Action: func(c *cli.Context) error {
					return runStat(c, cfg)
				},
			},
			{
				Name:  "push",
				Usage: "Upload a backup file from the exchange directory",
				Flags: []cli.Flag{
					newNameFlag(true),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "File name inside the exchange directory",
						Required: true,
					},
					newExchangeDirFlag(cfg),
					newConfigFlag(cfg),
					&cli.BoolFlag{
						Name:  "clean",
						Usage: "Remove the local file after a successful upload",
					},
				},
				Action: func(c *cli.Context) error {
					return runPush(c, cfg)
				},
			},
			{
				Name:  "pull",
				Usage: "Download the realm's backup into the exchange directory",
				Flags: []cli.Flag{
					newNameFlag(true),
					newExchangeDirFlag(cfg),
					newConfigFlag(cfg),
					&cli.BoolFlag{
						Name:  "newest",
						Usage: "Pick the most recently modified backup instead of the last listed",
					},
				},
				Action: func(c *cli.Context) error {
					return runPull(c, cfg)
				},
			},
			{
				Name:  "server",
				Usage: "Serve realm metrics over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Aliases: []string{"l"},
						Usage:   "Address to listen on",
						Value:   cfg.Server.Listen,
						EnvVars: []string{"LISTEN"},
					},
					newConfigFlag(cfg),
				},
				Action: func(c *cli.Context) error {
					return runServer(c, cfg)
				},
			},
			{
				Name:  "openapi",
				Usage: "Print the OpenAPI document of the HTTP server",
				Action: func(c *cli.Context) error {
					return runOpenAPI(c)
				},
			},
		},
	}
}

func newRealmService(c *cli.Context, cfg *config.Config) (*service.RealmService, error) {
	path := strings.TrimSpace(c.String("config"))
	if path == "" {
		return nil, fmt.Errorf("no realms file given: set --config or CONFIG_FILE")
	}
	aggregator := metrics.New(metrics.Options{
		Timeout:     cfg.Stat.Timeout,
		Concurrency: cfg.Stat.Concurrency,
		Logger:      logger.Log,
	})
	return service.NewRealmService(path, aggregator), nil
}

func exchangeDir(c *cli.Context) (string, error) {
	dir := strings.TrimSpace(c.String("exchange-dir"))
	if dir == "" {
		return "", fmt.Errorf("no exchange directory given: set --exchange-dir or EXCHANGE_DIR")
	}
	return dir, nil
}
