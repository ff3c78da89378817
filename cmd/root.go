package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"justdial-scraper/config"
)

var (
	flagConfig     string
	flagEnvFile    string
	flagDebug      bool
	flagInput      string
	flagOutput     string
	flagProfile    string
	flagChunkSize  int
	flagMaxScrolls int
	flagHeadless   bool
	flagPostgres   bool
)

var rootCmd = &cobra.Command{
	Use:          "justdial-scraper",
	Short:        "Collect Justdial listings and resolve their WhatsApp numbers",
	SilenceUsage: true,
	RunE:         runScrape,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "optional YAML config file")
	pf.StringVar(&flagEnvFile, "env-file", "", "dotenv file to load (default .env)")
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")
	pf.StringVar(&flagInput, "input", "", "file with one Justdial search URL per line")
	pf.StringVar(&flagOutput, "output", "", "directory for chunk, page and final files")
	pf.StringVar(&flagProfile, "profile", "", "Chrome user data dir holding the logged-in session")
	pf.IntVar(&flagChunkSize, "chunk-size", 0, "write a partial file every N resolved records")
	pf.IntVar(&flagMaxScrolls, "max-scrolls", 0, "hard cap on scroll iterations per page")
	pf.BoolVar(&flagHeadless, "headless", false, "run Chrome headless")
	pf.BoolVar(&flagPostgres, "postgres", false, "also upsert final records into PostgreSQL")
}

// loadConfig merges defaults, files, environment and the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := config.Options{
		ConfigFile: flagConfig,
		EnvFile:    flagEnvFile,
		InputFile:  flagInput,
		OutputDir:  flagOutput,
		ProfileDir: flagProfile,
		ChunkSize:  flagChunkSize,
		MaxScrolls: flagMaxScrolls,
		Debug:      flagDebug,
		Postgres:   flagPostgres,
	}
	if cmd.Flags().Changed("headless") {
		headless := flagHeadless
		opts.Headless = &headless
	}
	return config.Load(opts)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
