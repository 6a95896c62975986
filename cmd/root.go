package cmd

import (
	"log"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/filtering"
	"github.com/jevancousins/jobhunter/internal/notion"
	"github.com/jevancousins/jobhunter/internal/scoring"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobhunter"
)

type Config struct {
	Search      *SearchConfig    `mapstructure:"search"`
	Scrape      *ScrapeConfig    `mapstructure:"scrape"`
	Scoring     *ScoringConfig   `mapstructure:"scoring"`
	AI          *AIConfig        `mapstructure:"ai"`
	Notion      *NotionConfig    `mapstructure:"notion"`
	Filters     filtering.Config `mapstructure:"filters"`
	OutputDir   string           `mapstructure:"output-dir"`
	Schedule    *ScheduleConfig  `mapstructure:"schedule"`
	RedisURL    string           `mapstructure:"redis-url"`
	DatabaseURL string           `mapstructure:"database-url"`
}

// SearchConfig holds the fallback search terms used when the workspace has
// no active criteria.
type SearchConfig struct {
	Keywords  []string `mapstructure:"keywords"`
	Locations []string `mapstructure:"locations"`
}

type ScrapeConfig struct {
	Delay     time.Duration `mapstructure:"delay"`
	Jitter    time.Duration `mapstructure:"jitter"`
	MaxJobs   int           `mapstructure:"max-jobs"`
	Sources   []string      `mapstructure:"sources"`
	Browser   bool          `mapstructure:"browser"`
	ChromeBin string        `mapstructure:"chrome-bin"`
	WTTJLang  string        `mapstructure:"wttj-lang"`
}

type ScoringConfig struct {
	scoring.Thresholds `mapstructure:",squash"`
	ProfileFile        string   `mapstructure:"profile-file"`
	Goals              string   `mapstructure:"goals"`
	Dealbreakers       []string `mapstructure:"dealbreakers"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile      string `mapstructure:"api-key-file"`
	Model           string `mapstructure:"model"`
	MaxOutputTokens int    `mapstructure:"max-output-tokens"`
	MaxLogLength    int    `mapstructure:"max-log-length"`
}

type NotionConfig struct {
	TokenFile        string `mapstructure:"token-file"`
	notion.Databases `mapstructure:",squash"`
}

type ScheduleConfig struct {
	Discover string        `mapstructure:"discover"`
	Process  string        `mapstructure:"process"`
	LockTTL  time.Duration `mapstructure:"lock-ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobhunter discovers job postings, scores them against your profile and tracks them in Notion",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"notion.token-file":      "NOTION_TOKEN_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"database-url":           "DATABASE_URL",
		"redis-url":              "REDIS_URL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("scrape.delay", "2s")
	viper.SetDefault("scrape.jitter", "1s")
	viper.SetDefault("scrape.max-jobs", 100)
	viper.SetDefault("scrape.sources", []string{"linkedin", "indeed", "wttj"})
	viper.SetDefault("scrape.browser", true)
	viper.SetDefault("scrape.wttj-lang", "en")
	viper.SetDefault("scoring.min-score", scoring.DefaultMinScore)
	viper.SetDefault("scoring.strong-match", scoring.DefaultStrongMatch)
	viper.SetDefault("scoring.profile-file", "data/master_cv.json")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	viper.SetDefault("ai.gemini.max-output-tokens", 1500)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("output-dir", "output")
	viper.SetDefault("schedule.discover", "0 7 * * *")
	viper.SetDefault("schedule.process", "@every 15m")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobhunter.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Variables from .env must be visible before viper resolves bindings.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config the file is optional and defaults apply.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "decoding config")
	}
	if config == nil {
		config = &Config{}
	}
	if config.Search == nil {
		config.Search = &SearchConfig{}
	}
	if config.Scrape == nil {
		config.Scrape = &ScrapeConfig{}
	}
	if config.Scoring == nil {
		config.Scoring = &ScoringConfig{}
	}
	if config.Notion == nil {
		config.Notion = &NotionConfig{}
	}
	if config.Schedule == nil {
		config.Schedule = &ScheduleConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}
