package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nseflow/config"
	"nseflow/logger"
	"nseflow/scraper"
	"nseflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	mode := flag.String("mode", "continuous", "Run mode: once or continuous")
	interval := flag.Int("interval", 15, "Minutes between cycles in continuous mode")
	dataFile := flag.String("file", "", "Dataset file path (overrides configuration)")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if *dataFile != "" {
		cfg.Dataset.File = *dataFile
	}

	if *mode != "once" && *mode != "continuous" {
		log.WithFields(logger.Fields{"mode": *mode}).Error("mode must be once or continuous")
		os.Exit(1)
	}
	if *interval <= 0 {
		log.WithFields(logger.Fields{"interval": *interval}).Error("interval must be positive")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Nseflow.Name,
		"version": cfg.Nseflow.Version,
		"mode":    *mode,
		"file":    cfg.Dataset.File,
	}).Info("starting nseflow")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, cfg.Nseflow.Name, cfg.Logging.DashboardName)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	store := writer.NewStore(cfg.Dataset.File)

	var archiver *writer.Archiver
	if cfg.Archive.Enabled {
		archiver, err = writer.NewArchiver(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create archiver")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("archiving disabled; skipping S3 snapshots")
	}

	s := scraper.NewScraper(cfg, store, archiver)

	switch *mode {
	case "once":
		if err := s.RunCycle(ctx); err != nil {
			log.WithError(err).Error("collection cycle failed")
			os.Exit(1)
		}
	case "continuous":
		err := s.RunContinuous(ctx, time.Duration(*interval)*time.Minute)
		if err != nil && err != context.Canceled {
			log.WithError(err).Error("continuous collection failed")
			os.Exit(1)
		}
	}

	log.Info("nseflow stopped")
}
