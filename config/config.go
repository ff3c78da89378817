package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

// Config holds all application configuration. Values come from defaults,
// an optional YAML file, the .env file / environment and CLI flags, in that
// order of increasing priority.
type Config struct {
	InputFile    string `yaml:"input_file"`
	OutputDir    string `yaml:"output_dir"`
	OutputPrefix string `yaml:"output_prefix"`
	LogFile      string `yaml:"log_file"`
	Debug        bool   `yaml:"debug"`

	ProfileDir    string `yaml:"profile_dir"`
	ChromeBin     string `yaml:"chrome_bin"`
	Headless      bool   `yaml:"headless"`
	UserAgent     string `yaml:"user_agent"`
	LoginAttempts int    `yaml:"login_attempts"`

	PageLoadDelay time.Duration `yaml:"page_load_delay"`
	PageGapMin    time.Duration `yaml:"page_gap_min"`
	PageGapMax    time.Duration `yaml:"page_gap_max"`

	ScrollPixels   int           `yaml:"scroll_pixels"`
	ScrollStep     int           `yaml:"scroll_step"`
	ScrollPauseMin time.Duration `yaml:"scroll_pause_min"`
	ScrollPauseMax time.Duration `yaml:"scroll_pause_max"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	MaxScrolls     int           `yaml:"max_scrolls"`
	StableSamples  int           `yaml:"stable_samples"`

	ResolverURL     string        `yaml:"resolver_url"`
	ResolveDelayMin time.Duration `yaml:"resolve_delay_min"`
	ResolveDelayMax time.Duration `yaml:"resolve_delay_max"`
	ResolveTimeout  time.Duration `yaml:"resolve_timeout"`
	ChunkSize       int           `yaml:"chunk_size"`

	PostgresEnabled  bool   `yaml:"postgres_enabled"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`
}

// Options carries explicit CLI overrides. Zero values mean "not set".
type Options struct {
	ConfigFile string
	EnvFile    string
	InputFile  string
	OutputDir  string
	ProfileDir string
	ChunkSize  int
	MaxScrolls int
	Debug      bool
	Headless   *bool
	Postgres   bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		InputFile:    "justdial_urls.txt",
		OutputDir:    "./output",
		OutputPrefix: "justdial_whatsapp",
		LogFile:      "scraper.log",

		ProfileDir:    "./chrome_profiless",
		UserAgent:     defaultUserAgent,
		LoginAttempts: 3,

		PageLoadDelay: 3 * time.Second,
		PageGapMin:    1000 * time.Millisecond,
		PageGapMax:    2500 * time.Millisecond,

		ScrollPixels:   600,
		ScrollStep:     50,
		ScrollPauseMin: 100 * time.Millisecond,
		ScrollPauseMax: 200 * time.Millisecond,
		SettleDelay:    1500 * time.Millisecond,
		MaxScrolls:     200,
		StableSamples:  3,

		ResolverURL:     "https://www.justdial.com/webmain/cwaxp.php",
		ResolveDelayMin: 250 * time.Millisecond,
		ResolveDelayMax: 600 * time.Millisecond,
		ResolveTimeout:  10 * time.Second,
		ChunkSize:       25,

		PostgresHost:    "localhost",
		PostgresPort:    "5432",
		PostgresUser:    "scraper",
		PostgresDB:      "justdial",
		PostgresSSLMode: "disable",
	}
}

// Load builds the effective configuration.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if err := loadYAML(opts.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] could not read %s: %v", envFile, err)
	}

	applyEnv(cfg)
	applyOptions(cfg, opts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.InputFile = getEnv("INPUT_FILE", c.InputFile)
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	c.OutputPrefix = getEnv("OUTPUT_PREFIX", c.OutputPrefix)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.Debug = getEnvBool("DEBUG", c.Debug)

	c.ProfileDir = getEnv("CHROME_PROFILE_DIR", c.ProfileDir)
	c.ChromeBin = getEnv("CHROME_BIN", c.ChromeBin)
	c.Headless = getEnvBool("HEADLESS", c.Headless)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.LoginAttempts = getEnvInt("LOGIN_ATTEMPTS", c.LoginAttempts)

	c.PageLoadDelay = getEnvMillis("PAGE_LOAD_DELAY_MS", c.PageLoadDelay)
	c.PageGapMin = getEnvMillis("PAGE_GAP_MIN_MS", c.PageGapMin)
	c.PageGapMax = getEnvMillis("PAGE_GAP_MAX_MS", c.PageGapMax)

	c.ScrollPixels = getEnvInt("SCROLL_PIXELS", c.ScrollPixels)
	c.ScrollStep = getEnvInt("SCROLL_STEP", c.ScrollStep)
	c.ScrollPauseMin = getEnvMillis("SCROLL_PAUSE_MIN_MS", c.ScrollPauseMin)
	c.ScrollPauseMax = getEnvMillis("SCROLL_PAUSE_MAX_MS", c.ScrollPauseMax)
	c.SettleDelay = getEnvMillis("SETTLE_DELAY_MS", c.SettleDelay)
	c.MaxScrolls = getEnvInt("MAX_SCROLLS", c.MaxScrolls)
	c.StableSamples = getEnvInt("STABLE_SAMPLES", c.StableSamples)

	c.ResolverURL = getEnv("RESOLVER_URL", c.ResolverURL)
	c.ResolveDelayMin = getEnvMillis("RESOLVE_DELAY_MIN_MS", c.ResolveDelayMin)
	c.ResolveDelayMax = getEnvMillis("RESOLVE_DELAY_MAX_MS", c.ResolveDelayMax)
	c.ResolveTimeout = getEnvMillis("RESOLVE_TIMEOUT_MS", c.ResolveTimeout)
	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)

	c.PostgresEnabled = getEnvBool("POSTGRES_ENABLED", c.PostgresEnabled)
	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)
}

func applyOptions(c *Config, o Options) {
	if o.InputFile != "" {
		c.InputFile = o.InputFile
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
	if o.ProfileDir != "" {
		c.ProfileDir = o.ProfileDir
	}
	if o.ChunkSize != 0 {
		c.ChunkSize = o.ChunkSize
	}
	if o.MaxScrolls != 0 {
		c.MaxScrolls = o.MaxScrolls
	}
	if o.Debug {
		c.Debug = true
	}
	if o.Headless != nil {
		c.Headless = *o.Headless
	}
	if o.Postgres {
		c.PostgresEnabled = true
	}
}

// Validate rejects unusable values and swaps inverted delay ranges.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.MaxScrolls <= 0 {
		return fmt.Errorf("config: max scrolls must be positive, got %d", c.MaxScrolls)
	}
	if c.ScrollStep <= 0 {
		return fmt.Errorf("config: scroll step must be positive, got %d", c.ScrollStep)
	}
	if strings.TrimSpace(c.ResolverURL) == "" {
		return fmt.Errorf("config: resolver url is empty")
	}
	if c.LoginAttempts < 0 {
		c.LoginAttempts = 0
	}
	switch {
	case c.StableSamples < 0:
		c.StableSamples = 0
	case c.StableSamples == 1:
		c.StableSamples = 2
	}

	swap := func(min, max *time.Duration) {
		if *max < *min {
			*min, *max = *max, *min
		}
	}
	swap(&c.PageGapMin, &c.PageGapMax)
	swap(&c.ScrollPauseMin, &c.ScrollPauseMax)
	swap(&c.ResolveDelayMin, &c.ResolveDelayMax)
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}
