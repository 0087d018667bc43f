// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/poiesic/memvault"
	"github.com/poiesic/memvault/backfill"
	"github.com/poiesic/memvault/config"
	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/envelope"
	"github.com/poiesic/memvault/search"
	"github.com/poiesic/memvault/server"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "memvault",
		Usage: "Encrypted notes with cited question answering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (optional when the environment is complete)",
				Value:   "memvault.yaml",
				EnvVars: []string{"MEMVAULT_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Override the configured HTTP port",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from one owner's notes",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "owner",
						Aliases:  []string{"o"},
						Usage:    "Owner whose notes are searched",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Print the extracted filters and per-note score breakdown",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Boost notes carrying this tag (repeatable)",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Only notes created on or after this date (YYYY-MM-DD or RFC3339)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Only notes created on or before this date (YYYY-MM-DD or RFC3339)",
					},
				},
			},
			{
				Name:   "backfill",
				Usage:  "Encrypt note bodies stored before encryption was enabled",
				Action: backfillCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Count eligible notes without writing",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of notes to process in each batch",
						Value: backfill.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent encryption workers",
						Value: backfill.DefaultConfig().Workers,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N notes",
						Value: backfill.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for each store write",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "keygen",
				Usage:  "Print a new random master key (base64)",
				Action: keygenCommand,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if err := config.LoadOptional(c.String("config"), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openVault(cfg *config.Config) (*memvault.Vault, error) {
	key, err := cfg.Crypto.Key()
	if err != nil {
		return nil, err
	}
	opts := []memvault.VaultOption{memvault.WithAIConfig(cfg.AI.Provider())}
	if cfg.Store.InMemory {
		opts = append(opts, memvault.WithInMemoryStore())
	}
	return memvault.NewVault(cfg.Store.Path, key, opts...)
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if port := c.Int("port"); port != 0 {
		cfg.App.HTTP.Port = port
	}

	vault, err := openVault(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	defer vault.Close()

	opts := []server.Option{server.WithAskTimeout(cfg.App.HTTP.AskTimeout)}
	if cfg.Auth.AuthEnabled() {
		opts = append(opts, server.WithAuthToken(cfg.Auth.Token))
	}
	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: server.New(vault.Notes(), vault.Synthesizer(), opts...),
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("question is required")
	}

	base, err := baseFilters(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	vault, err := openVault(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	defer vault.Close()

	var monitor search.Monitor
	if c.Bool("explain") {
		monitor = newExplainMonitor(c.App.Writer)
	}

	owner := core.OwnerID(c.String("owner"))
	ans, err := vault.Synthesizer().AskMonitored(c.Context, owner, question, base, monitor)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintln(out, ans.AnswerText)
	if len(ans.Citations) > 0 {
		fmt.Fprintln(out, "\nCitations:")
		for _, cit := range ans.Citations {
			fmt.Fprintf(out, "  [M-%s] %s (%.3f)\n", cit.ID, cit.Title, cit.Score)
		}
	}
	if ans.Withheld > 0 {
		fmt.Fprintf(out, "\n%d note(s) could not be decrypted and were left out.\n", ans.Withheld)
	}
	return nil
}

func baseFilters(c *cli.Context) (*search.Filters, error) {
	f := &search.Filters{Tags: c.StringSlice("tag")}
	for _, bound := range []struct {
		flag   string
		target **time.Time
		endDay bool
	}{
		{"from", &f.DateFrom, false},
		{"to", &f.DateTo, true},
	} {
		raw := c.String(bound.flag)
		if raw == "" {
			continue
		}
		t, err := parseDate(raw, bound.endDay)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", bound.flag, err)
		}
		*bound.target = &t
	}
	return f, nil
}

// parseDate accepts RFC3339 or a bare date. A bare upper bound covers the
// whole day.
func parseDate(raw string, endDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return t, nil
}

func backfillCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	vault, err := openVault(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	defer vault.Close()

	b, err := vault.NewBackfiller(&backfill.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Workers:        c.Int("workers"),
		DryRun:         c.Bool("dry-run"),
	}, c.App.ErrWriter)
	if err != nil {
		return err
	}

	_, err = b.Run(c.Context)
	return err
}

func keygenCommand(c *cli.Context) error {
	key, err := envelope.GenerateMasterKey()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, key)
	return nil
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
