package main

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findStringFlag(flags []cli.Flag, name string) *cli.StringFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func TestLoadFlags(t *testing.T) {
	t.Run("load requires neither path flag statically", func(t *testing.T) {
		flags := loadFlags(true, true)
		metadata := findStringFlag(flags, "metadata")
		reviews := findStringFlag(flags, "reviews")
		require.NotNil(t, metadata)
		require.NotNil(t, reviews)
		assert.False(t, metadata.Required)
		assert.False(t, reviews.Required)
	})

	t.Run("load-metadata requires the metadata path", func(t *testing.T) {
		flags := loadFlags(true, false)
		metadata := findStringFlag(flags, "metadata")
		require.NotNil(t, metadata)
		assert.True(t, metadata.Required)
		assert.Nil(t, findStringFlag(flags, "reviews"))
	})

	t.Run("load-reviews requires the reviews path", func(t *testing.T) {
		flags := loadFlags(false, true)
		reviews := findStringFlag(flags, "reviews")
		require.NotNil(t, reviews)
		assert.True(t, reviews.Required)
		assert.Nil(t, findStringFlag(flags, "metadata"))
	})

	t.Run("embedding-host has default value", func(t *testing.T) {
		host := findStringFlag(embeddingFlags(), "embedding-host")
		require.NotNil(t, host)
		assert.Equal(t, "http://localhost:11434/v1", host.Value)
	})
}

func TestLoadCommandRequiresAPath(t *testing.T) {
	app := &cli.App{
		Name: "reviewloader",
		Commands: []*cli.Command{
			{Name: "load", Action: loadCommand, Flags: loadFlags(true, true)},
		},
	}

	err := app.Run([]string{"reviewloader", "load"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--metadata or --reviews")
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app := &cli.App{
		Name:   "reviewloader",
		Before: setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Action: func(c *cli.Context) error { return nil },
	}

	assert.NoError(t, app.Run([]string{"reviewloader", "--log-level", "debug"}))
	assert.Error(t, app.Run([]string{"reviewloader", "--log-level", "loud"}))
}
