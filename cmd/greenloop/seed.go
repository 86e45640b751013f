package main

import (
	"context"
	"fmt"

	"greenloop/internal/db"
	"greenloop/internal/seed"
	"greenloop/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with development fixtures",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		partyRepo := store.NewPartyRepository(pool)
		postRepo := store.NewPostRepository(pool)
		pickupRepo := store.NewPickupRepository(pool)
		supportRepo := store.NewSupportRepository(pool)

		logrus.Info("Seeding fixtures...")
		result, err := seed.Run(ctx, partyRepo, postRepo, pickupRepo, supportRepo)
		if err != nil {
			return fmt.Errorf("failed to seed fixtures: %w", err)
		}

		pp.Print(result)

		logrus.Info("Fixtures seeded successfully")

		return nil
	},
}
