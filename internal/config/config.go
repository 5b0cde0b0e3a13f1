package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at process
// start and passed explicitly to every component constructor.
type Config struct {
	Gemini     Gemini     `mapstructure:"gemini"`
	Retry      Retry      `mapstructure:"retry"`
	Store      Store      `mapstructure:"store"`
	Images     Images     `mapstructure:"images"`
	Articles   Articles   `mapstructure:"articles"`
	Watch      Watch      `mapstructure:"watch"`
	Transcript Transcript `mapstructure:"transcript"`
	Logging    Logging    `mapstructure:"logging"`
}

// Gemini holds the language model configuration.
type Gemini struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int32         `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Retry holds the backoff policy applied to language model calls.
type Retry struct {
	Attempts   int           `mapstructure:"attempts"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	Multiplier float64       `mapstructure:"multiplier"`
}

// Store holds the article store locations and backup retention.
type Store struct {
	File            string `mapstructure:"file"`
	BackupDir       string `mapstructure:"backup_dir"`
	BackupRetention int    `mapstructure:"backup_retention"`
}

// Images holds the image search configuration.
type Images struct {
	Enabled          bool              `mapstructure:"enabled"`
	AccessKey        string            `mapstructure:"access_key"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	FallbackURL      string            `mapstructure:"fallback_url"`
	CategoryDefaults map[string]string `mapstructure:"category_defaults"`
}

// Articles holds the closed category set and its default.
type Articles struct {
	Categories      []string `mapstructure:"categories"`
	DefaultCategory string   `mapstructure:"default_category"`
}

// Watch holds the input directory lifecycle configuration.
type Watch struct {
	InputDir        string        `mapstructure:"input_dir"`
	ProcessedDir    string        `mapstructure:"processed_dir"`
	FailedDir       string        `mapstructure:"failed_dir"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	StabilityWindow time.Duration `mapstructure:"stability_window"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// Transcript holds the input validation thresholds.
type Transcript struct {
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
}

// Logging holds logging configuration.
type Logging struct {
	Level string `mapstructure:"level"`
}

// Load reads the configuration file (if present), applies defaults and
// environment overrides, and returns an immutable Config value. A missing
// config file is not an error; defaults apply.
func Load(cfgFile string) (*Config, error) {
	// Load .env file if it exists (for local development).
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".castpress")
	}

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Credentials come from the environment only, never from the config file.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
	if key := os.Getenv("UNSPLASH_ACCESS_KEY"); key != "" {
		cfg.Images.AccessKey = key
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("gemini.max_tokens", 4096)
	viper.SetDefault("gemini.temperature", 0.7)
	viper.SetDefault("gemini.timeout", "120s")

	viper.SetDefault("retry.attempts", 3)
	viper.SetDefault("retry.base_delay", "2s")
	viper.SetDefault("retry.multiplier", 2.0)

	viper.SetDefault("store.file", "data/posts.json")
	viper.SetDefault("store.backup_dir", "data/backups")
	viper.SetDefault("store.backup_retention", 10)

	viper.SetDefault("images.enabled", true)
	viper.SetDefault("images.timeout", "15s")
	viper.SetDefault("images.fallback_url", "https://images.unsplash.com/photo-1478737270239-2f02b77fc618?w=800&h=400&fit=crop")
	viper.SetDefault("images.category_defaults", map[string]string{
		"Technology": "https://images.unsplash.com/photo-1518770660439-4636190af475?w=800&h=400&fit=crop",
		"Business":   "https://images.unsplash.com/photo-1507679799987-c73779587ccf?w=800&h=400&fit=crop",
		"Culture":    "https://images.unsplash.com/photo-1499364615650-ec38552f4f34?w=800&h=400&fit=crop",
		"Science":    "https://images.unsplash.com/photo-1532094349884-543bc11b234d?w=800&h=400&fit=crop",
		"Health":     "https://images.unsplash.com/photo-1505751172876-fa1923c5c528?w=800&h=400&fit=crop",
	})

	viper.SetDefault("articles.categories", []string{"Technology", "Business", "Culture", "Science", "Health"})
	viper.SetDefault("articles.default_category", "Technology")

	viper.SetDefault("watch.input_dir", "transcripts/incoming")
	viper.SetDefault("watch.processed_dir", "transcripts/processed")
	viper.SetDefault("watch.failed_dir", "transcripts/failed")
	viper.SetDefault("watch.settle_delay", "2s")
	viper.SetDefault("watch.stability_window", "2s")
	viper.SetDefault("watch.poll_interval", "500ms")

	viper.SetDefault("transcript.min_length", 100)
	viper.SetDefault("transcript.max_length", 100000)

	viper.SetDefault("logging.level", "info")
}
