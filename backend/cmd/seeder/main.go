package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"catprep/backend/cache"
	"catprep/backend/config"
	"catprep/backend/seed"
	"catprep/backend/services"
	"catprep/backend/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	var file string
	var dryRun bool
	flag.StringVar(&file, "file", cfg.SeedFile, "seed YAML file")
	flag.BoolVar(&dryRun, "dry-run", false, "parse the file and print what it contains")
	flag.Parse()

	parsed, err := seed.Load(file)
	if err != nil {
		fmt.Printf("load %s: %v\n", file, err)
		os.Exit(1)
	}
	if dryRun {
		fmt.Printf("%s: %d subjects, %d admins, %d questions\n", file, len(parsed.Subjects), len(parsed.Admins), len(parsed.Questions))
		return
	}

	logger, err := utils.InitLogger(cfg.LogMode)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal("database init failed", "error", err)
	}

	// Listings cached by a running server must not outlive the seed.
	var catalogCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		r, err := cache.NewRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, cached listings expire on their own", "error", err)
		} else {
			defer r.Close()
			catalogCache = r
		}
	}

	selector := services.NewSelector(db, nil)
	seeder := &seed.Seeder{
		Catalog: services.NewCatalogService(db, catalogCache, selector, cfg, logger),
		Users:   services.NewUserService(db, cfg, logger),
		Log:     logger,
	}
	report, err := seeder.Apply(context.Background(), parsed)
	if err != nil {
		if details := utils.DetailsOf(err); details != nil {
			logger.Error("seed rejected", "error", err, "details", details)
			os.Exit(1)
		}
		logger.Fatal("seed failed", "error", err)
	}
	fmt.Printf("subjects +%d, topics +%d, questions +%d (%d already present), admins +%d\n",
		report.SubjectsCreated, report.TopicsCreated, report.QuestionsImported, report.QuestionsSkipped, report.UsersImported)
}
