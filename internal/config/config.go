package config

import (
	"fmt"
	"time"

	"super_clicker/internal/logger"
	"super_clicker/internal/moderation"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the API server configuration.
type Config struct {
	AppPort          string  `env:"APP_PORT" envDefault:"8080"`
	DatabaseURL      string  `env:"DATABASE_URL,notEmpty"`
	BotToken         string  `env:"BOT_TOKEN,notEmpty"`
	JWTSecret        string  `env:"JWT_SECRET,notEmpty"`
	AdminTelegramIDs []int64 `env:"ADMIN_TELEGRAM_IDS" envSeparator:","` // tg ids через запятую
	AdminBotEnabled  bool    `env:"ADMIN_BOT_ENABLED"`
	DevMode          bool    `env:"DEV_MODE"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON"`

	Redis          RedisConfig   `envPrefix:"REDIS_"`
	RecordCacheTTL time.Duration `env:"RECORD_CACHE_TTL" envDefault:"30s"`

	// Rate limits
	APIRateLimit   int           `env:"API_RATE_LIMIT" envDefault:"120"`
	APIRateWindow  time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
	SaveRateLimit  int           `env:"SAVE_RATE_LIMIT" envDefault:"600"`
	SaveRateWindow time.Duration `env:"SAVE_RATE_WINDOW" envDefault:"1m"`

	// Cleanup of abandoned low-level accounts
	InactiveCleanupAfter time.Duration `env:"INACTIVE_CLEANUP_AFTER" envDefault:"720h"`
	CleanupMaxLevel      int           `env:"CLEANUP_MAX_LEVEL" envDefault:"5"`

	Tunables Tunables
}

type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// Tunables are the moderation and economy constants shared by the server and the player client.
type Tunables struct {
	MaxWarnings           int           `env:"MAX_WARNINGS" envDefault:"2"`
	EscalationBanDuration time.Duration `env:"ESCALATION_BAN_DURATION" envDefault:"168h"`
	AutoBanDuration       time.Duration `env:"AUTO_BAN_DURATION" envDefault:"168h"`
	ReconcileInterval     time.Duration `env:"RECONCILE_INTERVAL" envDefault:"60s"`

	CheatMinClickInterval time.Duration `env:"CHEAT_MIN_CLICK_INTERVAL" envDefault:"50ms"`
	CheatDecayInterval    time.Duration `env:"CHEAT_DECAY_INTERVAL" envDefault:"1s"`
	CheatMaxSuspicious    int           `env:"CHEAT_MAX_SUSPICIOUS" envDefault:"10"`
	CheatCoinsCeiling     int64         `env:"CHEAT_COINS_CEILING" envDefault:"1000000"`
	CheatCoinsMinLevel    int           `env:"CHEAT_COINS_MIN_LEVEL" envDefault:"10"`
	CheatMaxClickPower    int64         `env:"CHEAT_MAX_CLICK_POWER" envDefault:"1000"`

	OfflineEarningCap  time.Duration `env:"OFFLINE_EARNING_CAP" envDefault:"24h"`
	OfflineEarningRate float64       `env:"OFFLINE_EARNING_RATE" envDefault:"0.01"` // монет в секунду за уровень
}

// Moderation returns the engine configuration.
func (t Tunables) Moderation() moderation.Config {
	return moderation.Config{
		MaxWarnings:           t.MaxWarnings,
		EscalationBanDuration: t.EscalationBanDuration,
		AutoBanDuration:       t.AutoBanDuration,
	}
}

// Thresholds returns the cheat detector thresholds.
func (t Tunables) Thresholds() moderation.Thresholds {
	return moderation.Thresholds{
		MinClickInterval: t.CheatMinClickInterval,
		DecayInterval:    t.CheatDecayInterval,
		MaxSuspicious:    t.CheatMaxSuspicious,
		CoinsCeiling:     t.CheatCoinsCeiling,
		CoinsMinLevel:    t.CheatCoinsMinLevel,
		MaxClickPower:    t.CheatMaxClickPower,
	}
}

// PlayerConfig configures the headless player client.
type PlayerConfig struct {
	APIURL      string `env:"API_URL" envDefault:"http://localhost:8080"`
	APIToken    string `env:"API_TOKEN"`
	LocalDBPath string `env:"LOCAL_DB_PATH" envDefault:"clicker.db"`
	PlayerID    int64  `env:"PLAYER_ID,notEmpty"`
	PlayerName  string `env:"PLAYER_NAME" envDefault:"Player"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON"`

	Tunables Tunables
}

// IsAdmin reports whether the telegram id is listed in ADMIN_TELEGRAM_IDS.
func (c *Config) IsAdmin(tgID int64) bool {
	for _, id := range c.AdminTelegramIDs {
		if id == tgID {
			return true
		}
	}
	return false
}

// Parse reads the server configuration from the environment.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Tunables.MaxWarnings <= 0 {
		return nil, fmt.Errorf("MAX_WARNINGS must be positive, got %d", cfg.Tunables.MaxWarnings)
	}
	return &cfg, nil
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// LoadTunables reads only the moderation and economy tunables.
func LoadTunables() (Tunables, error) {
	_ = godotenv.Load()

	var t Tunables
	if err := env.Parse(&t); err != nil {
		return Tunables{}, fmt.Errorf("parse env: %w", err)
	}
	return t, nil
}

// LoadPlayer reads the player client configuration.
func LoadPlayer() (*PlayerConfig, error) {
	_ = godotenv.Load()

	var cfg PlayerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
