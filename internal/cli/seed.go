package cli

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/app"
	"github.com/gmpapad/phronesis-engine/internal/config"
	"github.com/gmpapad/phronesis-engine/internal/content"
	"github.com/gmpapad/phronesis-engine/internal/infra/fs"
	"github.com/gmpapad/phronesis-engine/internal/infra/postgres"
)

//go:embed seed/*.json
var seedFS embed.FS

// NewSeedCmd loads the starter perspectives. Seeding is idempotent:
// documents are upserted by slug, so re-running replaces rather than
// duplicates.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the starter perspective documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var writer app.DocumentWriter
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		writer = postgres.NewDocumentStore(db)
	} else {
		dir := cfg.Content.Dir
		if dir == "" {
			dir = "content"
		}
		writer = fs.NewLoader(dir, zap.NewNop().Sugar())
	}

	entries, err := seedFS.ReadDir("seed")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		raw, err := seedFS.ReadFile("seed/" + entry.Name())
		if err != nil {
			return err
		}
		if err := content.ValidateForIngestion(raw); err != nil {
			return fmt.Errorf("seed document %s: %w", entry.Name(), err)
		}
		var doc struct {
			Slug string `json:"slug"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("seed document %s: %w", entry.Name(), err)
		}
		slug := doc.Slug
		if slug == "" {
			slug = strings.TrimSuffix(entry.Name(), ".json")
		}
		if err := writer.UpsertDocument(ctx, slug, raw); err != nil {
			return err
		}
		log.Printf("seeded perspective %s", slug)
	}
	return nil
}
