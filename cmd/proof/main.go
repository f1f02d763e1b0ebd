package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yungbote/unwrapped-proof/internal/config"
	"github.com/yungbote/unwrapped-proof/internal/data/db"
	"github.com/yungbote/unwrapped-proof/internal/data/repos/contribution"
	"github.com/yungbote/unwrapped-proof/internal/platform/envutil"
	"github.com/yungbote/unwrapped-proof/internal/platform/gcs"
	"github.com/yungbote/unwrapped-proof/internal/platform/logger"
	"github.com/yungbote/unwrapped-proof/internal/proof"
	"github.com/yungbote/unwrapped-proof/internal/publish"
	"github.com/yungbote/unwrapped-proof/internal/spotify"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("proof run failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log, err := logger.New(envutil.String("LOG_MODE", "production"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	settings, err := config.Load(log)
	if err != nil {
		return err
	}

	ctx := context.Background()

	pg, err := db.NewPostgresService(settings.PostgresDSN, log)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		return err
	}

	bucket, err := gcs.NewBucketService(ctx, log)
	if err != nil {
		return err
	}
	defer bucket.Close()

	client := spotify.NewClient(settings.SpotifyAPIURL, settings.SpotifyToken, log)
	collector := spotify.NewCollector(client, spotify.CollectorConfig{
		Budget:       settings.FetchBudget,
		MaxPages:     settings.FetchMaxPages,
		PageLimit:    settings.PageLimit,
		CursorMaxAge: settings.CursorMaxAge,
	}, log)

	runner := proof.NewRunner(
		client,
		collector,
		contribution.NewLedgerRepo(pg.DB(), log),
		publish.NewPublisher(bucket, log),
		proof.Params{
			DLPID:                 settings.DLPID,
			FileID:                settings.FileID,
			FileURL:               settings.FileURL,
			JobID:                 settings.JobID,
			OwnerAddress:          settings.OwnerAddress,
			MaxPoints:             settings.MaxPoints,
			EncryptionKey:         settings.EncryptionKey,
			EncryptedRefreshToken: settings.EncryptedRefreshToken,
		},
		log,
	)

	response, err := runner.Generate(ctx)
	if err != nil {
		return err
	}

	if err := writeResults(settings.OutputDir, response); err != nil {
		return err
	}

	log.Info("proof run complete",
		"score", response.Score,
		"total_points", response.Attributes.TotalPoints,
		"differential_points", response.Attributes.DifferentialPoints,
		"valid", response.Valid,
	)
	return nil
}

// writeResults drops the response document where the enclave harness picks
// it up.
func writeResults(outputDir string, response any) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	body, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	path := filepath.Join(outputDir, "results.json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
