package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/andresuchdata/backupctl/internal/api"
	"github.com/andresuchdata/backupctl/internal/api/openapi"
	"github.com/andresuchdata/backupctl/internal/config"
	"github.com/andresuchdata/backupctl/internal/service"
	"github.com/andresuchdata/backupctl/pkg/logger"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/gosuri/uitable"
	"github.com/urfave/cli/v2"
)

func runStat(c *cli.Context, cfg *config.Config) error {
	svc, err := newRealmService(c, cfg)
	if err != nil {
		return err
	}

	stats, err := svc.Stat(c.Context, c.String("name"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(c.App.Writer, statTable(stats, time.Now()))
	}

	failed := 0
	for _, s := range stats {
		if s.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d realms could not be read", failed, len(stats))
	}
	return nil
}

func statTable(stats []service.RealmStat, now time.Time) string {
	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("REALM", "FILES", "SIZE", "LATEST", "AGE", "ERROR")
	for _, s := range stats {
		if s.Error != "" {
			table.AddRow(s.Realm, "-", "-", "-", "-", s.Error)
			continue
		}
		latest, age := "-", "-"
		if !s.Latest.IsZero() {
			latest = s.Latest.UTC().Format(time.RFC3339)
			age = humanize.RelTime(s.Latest, now, "ago", "from now")
		}
		table.AddRow(
			s.Realm,
			humanize.Comma(int64(s.TotalCount)),
			humanize.IBytes(uint64(s.TotalSize)),
			latest,
			age,
			"",
		)
	}
	return table.String()
}

func runPush(c *cli.Context, cfg *config.Config) error {
	svc, err := newRealmService(c, cfg)
	if err != nil {
		return err
	}
	dir, err := exchangeDir(c)
	if err != nil {
		return err
	}

	res, err := svc.Push(c.Context, c.String("name"), dir, c.String("file"), c.Bool("clean"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "pushed %s to %s (%s)\n", res.File, res.Realm, humanize.IBytes(uint64(res.Size)))
	return nil
}

func runPull(c *cli.Context, cfg *config.Config) error {
	svc, err := newRealmService(c, cfg)
	if err != nil {
		return err
	}
	dir, err := exchangeDir(c)
	if err != nil {
		return err
	}

	path, err := svc.Pull(c.Context, c.String("name"), dir, c.Bool("newest"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, path)
	return nil
}

func runOpenAPI(c *cli.Context) error {
	data, err := openapi.JSON(version)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func runServer(c *cli.Context, cfg *config.Config) error {
	svc, err := newRealmService(c, cfg)
	if err != nil {
		return err
	}

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(&api.Services{RealmService: svc}, api.Options{
		Version:        version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:         c.String("listen"),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return serve(c.Context, srv, svc.ConfigPath())
}

// serve runs srv until it fails or ctx is cancelled, then shuts it down
// gracefully.
func serve(ctx context.Context, srv *http.Server, configPath string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("listen", srv.Addr).Str("config", configPath).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Log.Info().Msg("Shutting down server...")

	// The server gets 5 seconds to finish in-flight scrapes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info().Msg("Server exiting")
	return nil
}
