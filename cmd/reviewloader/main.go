// Copyright 2025 Openshelf Labs
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/openshelf/reviewloader"
	"github.com/openshelf/reviewloader/ai"
	"github.com/openshelf/reviewloader/ai/huggingface"
	"github.com/openshelf/reviewloader/ai/openai"
	"github.com/openshelf/reviewloader/store"
	"github.com/openshelf/reviewloader/store/pgstore"
)

func main() {
	app := &cli.App{
		Name:   "reviewloader",
		Usage:  "Load product metadata and reviews into Postgres with embeddings",
		Before: setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "load",
				Usage:  "Load metadata and reviews in one run",
				Action: loadCommand,
				Flags:  loadFlags(true, true),
			},
			{
				Name:   "load-metadata",
				Usage:  "Load only the product metadata file",
				Action: loadCommand,
				Flags:  loadFlags(true, false),
			},
			{
				Name:   "load-reviews",
				Usage:  "Load only the reviews file (metadata must already be loaded)",
				Action: loadCommand,
				Flags:  loadFlags(false, true),
			},
			{
				Name:   "embed-text",
				Usage:  "Embed a single text and print the vector, for checking an engine",
				Action: embedTextCommand,
				Flags:  embeddingFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadFlags(metadata, reviews bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "db-url",
			Usage: "Postgres connection URL (empty uses PG* environment variables)",
		},
		&cli.BoolFlag{
			Name:  "skip-missing-metadata",
			Usage: "Skip reviews whose parent_asin has no metadata row instead of failing the shard",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of records to embed and commit per transaction",
			Value: 256,
		},
		&cli.Int64Flag{
			Name:  "test",
			Usage: "Cap records read per file (0 = no cap), for quick trial runs",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of shards and concurrent workers",
			Value: 1,
		},
		&cli.IntSliceFlag{
			Name:  "device",
			Usage: "Device ids to pin shards to (repeatable, round-robin)",
		},
		&cli.StringSliceFlag{
			Name:  "embedding-hosts",
			Usage: "Per-device embedding service URLs (repeatable, round-robin)",
		},
		&cli.IntFlag{
			Name:  "max-shard-retries",
			Usage: "How many times a failed shard is relaunched",
			Value: 2,
		},
		&cli.StringFlag{
			Name:  "checkpoint-db",
			Usage: "BadgerDB directory for resume cursors (empty disables resume)",
		},
		&cli.Float64Flag{
			Name:  "write-rate",
			Usage: "Cap committed batches per second (0 = unlimited)",
		},
	}
	if metadata {
		flags = append(flags, &cli.StringFlag{
			Name:     "metadata",
			Usage:    "Product metadata JSON-lines file",
			Required: !reviews,
		})
	}
	if reviews {
		flags = append(flags, &cli.StringFlag{
			Name:     "reviews",
			Usage:    "User reviews JSON-lines file",
			Required: !metadata,
		})
	}
	return append(flags, embeddingFlags()...)
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-backend",
			Usage: "Embedding backend (openai, huggingface)",
			Value: ai.BackendOpenAI,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "nomic-embed-text",
		},
		&cli.StringFlag{
			Name:  "embedding-token",
			Usage: "API token for the embedding service",
			Value: "none",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Vector width committed to the store",
			Value: 768,
		},
	}
}

func embeddingConfig(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithBackend(c.String("embedding-backend")),
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithToken(c.String("embedding-token")),
		ai.WithDimension(c.Int("dimension")),
	)
}

func loadCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metadataPath := c.String("metadata")
	reviewsPath := c.String("reviews")
	if metadataPath == "" && reviewsPath == "" {
		return fmt.Errorf("at least one of --metadata or --reviews is required")
	}
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	policy := store.PolicyStrict
	if c.Bool("skip-missing-metadata") {
		policy = store.PolicyResilient
	}

	st, err := pgstore.New(ctx, pgstore.Config{
		ConnString: c.String("db-url"),
		Policy:     policy,
		WriteRate:  c.Float64("write-rate"),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer st.Close()

	loader, err := reviewloader.NewLoader(&reviewloader.Config{
		MetadataPath:    metadataPath,
		ReviewsPath:     reviewsPath,
		Workers:         c.Int("workers"),
		Devices:         c.IntSlice("device"),
		EmbeddingHosts:  c.StringSlice("embedding-hosts"),
		BatchSize:       c.Int("batch-size"),
		MaxRecords:      c.Int64("test"),
		MaxShardRetries: c.Int("max-shard-retries"),
		CheckpointPath:  c.String("checkpoint-db"),
		Embedding:       embeddingConfig(c),
	}, st, reviewloader.WithProgressWriter(os.Stderr))
	if err != nil {
		return err
	}
	defer loader.Close()

	report, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, report.Summary())
	if !report.Succeeded() {
		return cli.Exit("one or more shards failed after exhausting retries", 1)
	}
	return nil
}

func embedTextCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: embed-text <text>")
	}

	cfg := embeddingConfig(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid embedding configuration: %w", err)
	}

	var embedder ai.Embedder
	var err error
	switch cfg.Backend {
	case ai.BackendHuggingFace:
		embedder, err = huggingface.NewEmbedder(cfg)
	default:
		embedder, err = openai.NewEmbedder(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	vector, err := embedder.EmbedText(context.Background(), c.Args().First())
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	fmt.Printf("dimension: %d\n", len(vector))
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	fmt.Println(strings.Join(parts, ","))
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
