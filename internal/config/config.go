package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"era-photobooth/internal/apperr"
)

const (
	SceneStoreFile   = "file"
	SceneStoreValkey = "valkey"
	SceneStoreMemory = "memory"

	ShareFormatPNG  = "png"
	ShareFormatWebP = "webp"
)

type Config struct {
	GeminiAPIKey      string
	GeminiModel       string
	GenerationTimeout time.Duration

	LogLevel string
	Debug    bool

	PreferIPv4  bool
	HTTPTimeout time.Duration
	WebAddr     string

	AssetsDir      string
	ThemesFile     string
	SceneStore     string
	SceneStorePath string
	ValkeyAddr     string

	DetectorURL   string
	DetectorModel string

	MaxAttempts  int
	RetryBackoff time.Duration

	UsageEndpoint  string
	ShareUploadURL string
	ShareFormat    string

	TelegramToken       string
	TelegramShareChatID int64
	TelegramAlertChatID int64

	OperatorJWTSecret string
}

func Load() (Config, error) {
	cfg := Config{
		GeminiModel:       strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.5-flash-image")),
		GenerationTimeout: time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 90)) * time.Second,
		LogLevel:          strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:             getEnvBool("DEBUG", false),
		PreferIPv4:        getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 120)) * time.Second,
		WebAddr:           getEnv("WEB_ADDR", ":8080"),
		AssetsDir:         getEnv("ASSETS_DIR", "./assets"),
		ThemesFile:        getEnv("THEMES_FILE", ""),
		SceneStore:        strings.ToLower(getEnv("SCENE_STORE", SceneStoreFile)),
		SceneStorePath:    getEnv("SCENE_STORE_PATH", "./data/last_scenes.json"),
		DetectorURL:       getEnv("DETECTOR_URL", ""),
		DetectorModel:     getEnv("DETECTOR_MODEL", "llava"),
		MaxAttempts:       getEnvInt("MAX_ATTEMPTS", 3),
		RetryBackoff:      time.Duration(getEnvInt("RETRY_BACKOFF_MS", 500)) * time.Millisecond,
		UsageEndpoint:     getEnv("USAGE_ENDPOINT", ""),
		ShareUploadURL:    getEnv("SHARE_UPLOAD_URL", "https://qr-web-api.vercel.app/upload"),
		ShareFormat:       strings.ToLower(getEnv("SHARE_FORMAT", ShareFormatPNG)),
	}

	cfg.TelegramShareChatID = getEnvInt64("TELEGRAM_SHARE_CHAT_ID", 0)
	cfg.TelegramAlertChatID = getEnvInt64("TELEGRAM_ALERT_CHAT_ID", 0)

	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.OperatorJWTSecret = strings.TrimSpace(os.Getenv("OPERATOR_JWT_SECRET"))

	// An unset VALKEY_ADDR gets the local default; an explicitly blank one
	// is an error when the valkey store is selected.
	valkeyAddr, valkeySet := os.LookupEnv("VALKEY_ADDR")
	cfg.ValkeyAddr = strings.TrimSpace(valkeyAddr)
	if !valkeySet {
		cfg.ValkeyAddr = "127.0.0.1:6379"
	}

	switch {
	case cfg.GeminiAPIKey == "":
		return Config{}, apperr.Configuration("config.Load", "GEMINI_API_KEY is required")
	case cfg.SceneStore != SceneStoreFile && cfg.SceneStore != SceneStoreValkey && cfg.SceneStore != SceneStoreMemory:
		return Config{}, apperr.Configuration("config.Load", "SCENE_STORE must be file, valkey or memory, got %q", cfg.SceneStore)
	case cfg.SceneStore == SceneStoreValkey && cfg.ValkeyAddr == "":
		return Config{}, apperr.Configuration("config.Load", "VALKEY_ADDR is required when SCENE_STORE=valkey")
	case cfg.ShareFormat != ShareFormatPNG && cfg.ShareFormat != ShareFormatWebP:
		return Config{}, apperr.Configuration("config.Load", "SHARE_FORMAT must be png or webp, got %q", cfg.ShareFormat)
	}

	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 90 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 120 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}

	return cfg, nil
}

// TelegramEnabled reports whether a bot token and at least one chat are set.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && (c.TelegramShareChatID != 0 || c.TelegramAlertChatID != 0)
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
