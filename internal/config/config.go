package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is a typed snapshot of the viper settings.
type Config struct {
	Log       LogConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	Narration NarrationConfig
	Relay     RelayConfig
	Playback  PlaybackConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type CatalogConfig struct {
	Timeout         time.Duration
	GoogleBooksKey  string
	UserAgent       string
	OpenLibraryRate float64
	Language        string
}

type CacheConfig struct {
	Dir    string
	MaxAge time.Duration
}

type NarrationConfig struct {
	Order       []string
	Timeout     time.Duration
	Voice       string
	RelayURL    string
	RelayKey    string
	GeminiKey   string
	GeminiModel string
}

type RelayConfig struct {
	Addr          string
	Backend       string
	ElevenLabsKey string
	Language      string
	RateLimit     float64
	Burst         int
	Timeout       time.Duration
	TrustProxy    bool
}

type PlaybackConfig struct {
	Output  string
	Speaker string
	Grace   time.Duration
}

// Init loads .env, the optional booknest.yaml and environment overrides.
// An explicit file must exist; the default search paths may be empty.
func Init(file string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	SetDefaults()

	viper.SetEnvPrefix("BOOKNEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Provider credentials keep their conventional names.
	_ = viper.BindEnv("narration.gemini.key", "BOOKNEST_NARRATION_GEMINI_KEY", "GEMINI_API_KEY")
	_ = viper.BindEnv("relay.elevenlabs.key", "BOOKNEST_RELAY_ELEVENLABS_KEY", "ELEVENLABS_API_KEY")
	_ = viper.BindEnv("catalog.google.key", "BOOKNEST_CATALOG_GOOGLE_KEY", "GOOGLE_BOOKS_API_KEY")

	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("booknest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.booknest")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func SetDefaults() {
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("catalog.timeout", 15*time.Second)
	viper.SetDefault("catalog.google.key", "")
	viper.SetDefault("catalog.useragent", "booknest/1.0 (https://github.com/booknest/booknest)")
	viper.SetDefault("catalog.openlibrary.rps", 1.0)
	viper.SetDefault("catalog.language", "English")

	viper.SetDefault("cache.dir", DefaultCacheDir())
	viper.SetDefault("cache.maxage", 7*24*time.Hour)

	viper.SetDefault("narration.order", []string{"relay", "gemini", "local"})
	viper.SetDefault("narration.timeout", 30*time.Second)
	viper.SetDefault("narration.voice", "feminina")
	viper.SetDefault("narration.relay.url", "")
	viper.SetDefault("narration.relay.key", "")
	viper.SetDefault("narration.gemini.key", "")
	viper.SetDefault("narration.gemini.model", "gemini-2.5-flash-preview-tts")

	viper.SetDefault("relay.addr", ":8787")
	viper.SetDefault("relay.backend", "elevenlabs")
	viper.SetDefault("relay.elevenlabs.key", "")
	viper.SetDefault("relay.language", "pt-BR")
	viper.SetDefault("relay.ratelimit", 5.0)
	viper.SetDefault("relay.burst", 10)
	viper.SetDefault("relay.timeout", 30*time.Second)
	viper.SetDefault("relay.trustproxy", false)

	viper.SetDefault("playback.output", "auto")
	viper.SetDefault("playback.speaker", "auto")
	viper.SetDefault("playback.grace", 100*time.Millisecond)
}

func Load() Config {
	return Config{
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
		Catalog: CatalogConfig{
			Timeout:         viper.GetDuration("catalog.timeout"),
			GoogleBooksKey:  viper.GetString("catalog.google.key"),
			UserAgent:       viper.GetString("catalog.useragent"),
			OpenLibraryRate: viper.GetFloat64("catalog.openlibrary.rps"),
			Language:        viper.GetString("catalog.language"),
		},
		Cache: CacheConfig{
			Dir:    viper.GetString("cache.dir"),
			MaxAge: viper.GetDuration("cache.maxage"),
		},
		Narration: NarrationConfig{
			Order:       viper.GetStringSlice("narration.order"),
			Timeout:     viper.GetDuration("narration.timeout"),
			Voice:       viper.GetString("narration.voice"),
			RelayURL:    viper.GetString("narration.relay.url"),
			RelayKey:    viper.GetString("narration.relay.key"),
			GeminiKey:   viper.GetString("narration.gemini.key"),
			GeminiModel: viper.GetString("narration.gemini.model"),
		},
		Relay: RelayConfig{
			Addr:          viper.GetString("relay.addr"),
			Backend:       viper.GetString("relay.backend"),
			ElevenLabsKey: viper.GetString("relay.elevenlabs.key"),
			Language:      viper.GetString("relay.language"),
			RateLimit:     viper.GetFloat64("relay.ratelimit"),
			Burst:         viper.GetInt("relay.burst"),
			Timeout:       viper.GetDuration("relay.timeout"),
			TrustProxy:    viper.GetBool("relay.trustproxy"),
		},
		Playback: PlaybackConfig{
			Output:  viper.GetString("playback.output"),
			Speaker: viper.GetString("playback.speaker"),
			Grace:   viper.GetDuration("playback.grace"),
		},
	}
}

// SetupLogging applies the log level and format to the standard logrus
// logger.
func SetupLogging(c LogConfig) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	logrus.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unsupported log format %q", c.Format)
	}
	return nil
}

// DefaultCacheDir returns the user cache directory for booknest, falling
// back to the home directory and then the working directory.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "booknest")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".booknest", "cache")
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, "cache")
	}
	return "cache"
}
