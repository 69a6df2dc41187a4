// Command seed fills the database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/middleware"
	"agora/internal/seed"

	"gorm.io/gorm"
)

func main() {
	defaults := seed.DefaultOptions()
	opts := defaults

	flag.IntVar(&opts.Users, "users", defaults.Users, "Number of users to create")
	flag.IntVar(&opts.Posts, "posts", defaults.Posts, "Number of posts to create")
	flag.IntVar(&opts.MaxComments, "max-comments", defaults.MaxComments, "Maximum comments per approved post")
	flag.Float64Var(&opts.ApprovedRatio, "approved", defaults.ApprovedRatio, "Share of content that is approved")
	flag.Float64Var(&opts.VoteRatio, "vote-ratio", defaults.VoteRatio, "Probability that a user votes on visible content")
	flag.Int64Var(&opts.Seed, "seed", 0, "Random seed (0 uses the clock)")
	flag.BoolVar(&opts.FastHash, "fast-hash", false, "Hash passwords at minimum bcrypt cost")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Generate or validate without writing")
	shouldClean := flag.Bool("clean", true, "Delete existing rows before seeding")
	scenario := flag.String("scenario", "", "Apply a YAML scenario instead of generated data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	var db *gorm.DB
	if !opts.DryRun {
		db, err = database.ConnectWithOptions(cfg, true)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer func() { _ = sqlDB.Close() }()
		}
	}

	s, err := seed.NewSeeder(db, opts)
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var sum *seed.Summary
	if *scenario != "" {
		sc, err := seed.LoadScenario(*scenario)
		if err != nil {
			log.Fatalf("Invalid scenario: %v", err)
		}
		sum, err = s.ApplyScenario(ctx, sc)
		if err != nil {
			log.Fatalf("Scenario seeding failed: %v", err)
		}
	} else {
		sum, err = s.SeedCommunity(ctx)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Seeded users=%d posts=%d comments=%d votes=%d likes=%d (dry-run=%t)",
		sum.Users, sum.Posts, sum.Comments, sum.Votes, sum.Likes, opts.DryRun)
	if *scenario == "" {
		log.Printf("All generated users have the password: %s", seed.DefaultPassword)
	}
}
