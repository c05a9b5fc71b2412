package config

import (
	"math"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyFile        = "API_KEY"
	DefaultOutputDir         = "data"
	DefaultRequestsPerMinute = 40
	DefaultMaxPlayers        = 100
	DefaultMaxGamesPerPlayer = 20
	DefaultMaxAttempts       = 5
	DefaultTimeGap           = 2 * time.Second
)

// Environment variables that override the built-in defaults before flags are parsed.
const (
	EnvAPIKeyFile  = "CRAWLER_API_KEY_FILE"
	EnvOutputDir   = "CRAWLER_OUTPUT_DIR"
	EnvDatabaseURL = "CRAWLER_DATABASE_URL"
	EnvWebhookURL  = "CRAWLER_WEBHOOK_URL"
)

var ErrMissingAPIKey = errors.New("api key not available")

// CrawlConfig holds every knob of a single crawl run.
type CrawlConfig struct {
	League    League
	Region    Region
	QueueType QueueType

	RequestsPerMinute int           `validate:"gte=1"`
	TimeGap           time.Duration `validate:"gte=0"`
	MaxAttempts       int           `validate:"gte=1"`
	MaxPlayers        int           `validate:"gte=0"`
	MaxGamesPerPlayer int           `validate:"gte=0"`

	OutputDir  string `validate:"required"`
	APIKeyFile string `validate:"required"`

	// Optional extras
	RecentOnly  bool
	Gzip        bool
	CheckKey    bool
	DatabaseURL string
	WebhookURL  string `validate:"omitempty,url"`
}

// Default returns a configuration with the crawler's defaults. Region has no default.
func Default() CrawlConfig {
	return CrawlConfig{
		League:            LeagueChallenger,
		QueueType:         QueueRankedSolo,
		RequestsPerMinute: DefaultRequestsPerMinute,
		TimeGap:           DefaultTimeGap,
		MaxAttempts:       DefaultMaxAttempts,
		MaxPlayers:        DefaultMaxPlayers,
		MaxGamesPerPlayer: DefaultMaxGamesPerPlayer,
		OutputDir:         DefaultOutputDir,
		APIKeyFile:        DefaultAPIKeyFile,
	}
}

// FromEnv returns Default() with environment overrides applied.
func FromEnv() CrawlConfig {
	cfg := Default()
	cfg.APIKeyFile = getEnv(EnvAPIKeyFile, cfg.APIKeyFile)
	cfg.OutputDir = getEnv(EnvOutputDir, cfg.OutputDir)
	cfg.DatabaseURL = getEnv(EnvDatabaseURL, "")
	cfg.WebhookURL = getEnv(EnvWebhookURL, "")
	return cfg
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enum membership and numeric bounds.
func (c CrawlConfig) Validate() error {
	if _, err := ParseLeague(string(c.League)); err != nil {
		return err
	}
	if _, err := ParseRegion(string(c.Region)); err != nil {
		return err
	}
	if _, err := ParseQueueType(string(c.QueueType)); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Newf("invalid %s: %v does not satisfy %s", fe.Field(), fe.Value(), fe.Tag())
		}
		return errors.Wrap(err, "validate config")
	}
	return nil
}

// PacingDelay is the pause applied after every request attempt:
// ceil(requestsPerMinute / 60) seconds plus the configured gap.
func (c CrawlConfig) PacingDelay() time.Duration {
	return PacingDelay(c.RequestsPerMinute, c.TimeGap)
}

func PacingDelay(requestsPerMinute int, gap time.Duration) time.Duration {
	secs := math.Ceil(float64(requestsPerMinute) / 60.0)
	return time.Duration(secs)*time.Second + gap
}

// LoadAPIKey reads the key file and trims trailing whitespace.
func LoadAPIKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "read api key file %s", path), ErrMissingAPIKey)
	}
	key := strings.TrimRight(string(data), " \t\r\n")
	if key == "" {
		return "", errors.Wrapf(ErrMissingAPIKey, "api key file %s is empty", path)
	}
	return key, nil
}

// LoadEnv loads the first .env file found among the candidate paths.
// It returns the path that was loaded, or "" when none exists.
func LoadEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = []string{".env", "../.env", "../../.env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if val := strings.Trim(os.Getenv(key), "\""); val != "" {
		return val
	}
	return fallback
}
