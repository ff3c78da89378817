package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"justdial-scraper/config"
	"justdial-scraper/models"
	"justdial-scraper/scraper/justdial"
	"justdial-scraper/services"
	"justdial-scraper/sources"
	"justdial-scraper/storage"
	"justdial-scraper/ui"
	"justdial-scraper/utils"
)

// browserWarmup gives a freshly started browser time to settle.
const browserWarmup = 2 * time.Second

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := utils.NewFileLogger(cfg.LogFile, cfg.Debug)
	if err != nil {
		logger = utils.NewLogger()
		logger.SetDebug(cfg.Debug)
		logger.Warn("Logging to console only: %v", err)
	}
	defer logger.Close()

	locations, err := sources.ReadLocations(cfg.InputFile, logger)
	if errors.Is(err, sources.ErrTemplateCreated) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		logger.Error("No URLs to process. Please edit %s and add URLs.", cfg.InputFile)
		return nil
	}

	logger.Info("=== Justdial scraper starting ===")
	logger.Info("Config: pages: %d | chunk size: %d | max scrolls: %d | output: %s",
		len(locations), cfg.ChunkSize, cfg.MaxScrolls, cfg.OutputDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := justdial.NewChromeSession(justdial.ChromeOptions{
		ProfileDir: cfg.ProfileDir,
		ChromeBin:  cfg.ChromeBin,
		UserAgent:  cfg.UserAgent,
		Headless:   cfg.Headless,
	}, logger)
	if err != nil {
		logger.Error("Failed to start the browser session: %v", err)
		return err
	}
	defer session.Close()
	time.Sleep(browserWarmup)

	checkpoints, err := storage.NewCheckpointWriter(cfg.OutputDir, cfg.OutputPrefix, logger)
	if err != nil {
		logger.Error("Failed to prepare output directory: %v", err)
		return err
	}

	gate := justdial.NewLoginGate(session, justdial.TerminalPrompter{}, cfg.LoginAttempts, logger)
	resolver := justdial.NewResolver(justdial.ResolverConfig{
		BaseURL:   cfg.ResolverURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.ResolveTimeout,
		DelayMin:  cfg.ResolveDelayMin,
		DelayMax:  cfg.ResolveDelayMax,
	}, logger)

	s := justdial.New(scraperConfig(cfg), session, gate, resolver, checkpoints, logger)
	s.SetProgress(ui.NewResolveProgress())

	results, reports := s.Run(ctx, locations)
	records := results.Records()

	if len(records) == 0 {
		logger.Warn("No data collected across all URLs.")
	} else if path, err := checkpoints.WriteFinal(records); err != nil {
		logger.Error("Final output not written: %v", err)
	} else {
		logger.Info("Saved %d records to %s", len(records), path)
	}

	summarised := records
	if cfg.PostgresEnabled && len(records) > 0 {
		pg, err := storage.NewPostgresWriter(cfg.DSN(), logger)
		if err != nil {
			logger.Error("[postgres] %v", err)
		} else {
			summarised = mirrorRecords(pg, records, logger)
		}
	}

	summary := services.NewSummaryService(logger)
	summary.Print(summary.Generate(summarised, reports))
	return nil
}

func scraperConfig(cfg *config.Config) justdial.ScraperConfig {
	return justdial.ScraperConfig{
		PageLoadDelay: cfg.PageLoadDelay,
		PageGapMin:    cfg.PageGapMin,
		PageGapMax:    cfg.PageGapMax,
		ChunkSize:     cfg.ChunkSize,
		Acquire: justdial.AcquireConfig{
			ScrollPixels:   cfg.ScrollPixels,
			ScrollStep:     cfg.ScrollStep,
			ScrollPauseMin: cfg.ScrollPauseMin,
			ScrollPauseMax: cfg.ScrollPauseMax,
			SettleDelay:    cfg.SettleDelay,
			MaxScrolls:     cfg.MaxScrolls,
			StableSamples:  cfg.StableSamples,
		},
	}
}

// mirrorRecords writes the final records to store and reads this run's rows
// back, so the summary reflects what was persisted. Any failure falls back to
// the in-memory records; the CSV output is already on disk.
func mirrorRecords(store storage.RecordStore, records []models.Record, logger *utils.Logger) []models.Record {
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("[postgres] close: %v", err)
		}
	}()

	if err := store.Write(records); err != nil {
		logger.Error("[postgres] Write failed: %v", err)
		return records
	}
	stored, err := store.FetchAll()
	if err != nil {
		logger.Warn("[postgres] Read back failed, summarising in-memory records: %v", err)
		return records
	}

	inRun := make(map[string]struct{}, len(records))
	for _, r := range records {
		inRun[r.ItemID] = struct{}{}
	}
	var out []models.Record
	for _, r := range stored {
		if _, ok := inRun[r.ItemID]; ok {
			out = append(out, r)
		}
	}
	logger.Info("[postgres] Stored %d records (table contacts now holds %d)", len(out), len(stored))
	if len(out) == 0 {
		return records
	}
	return out
}
