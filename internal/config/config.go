// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// а godotenv подтягивает локальный .env, если он есть.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную
	// ID группового чата, где начисляются очки за сообщения
	EconomyChatID int64 `envconfig:"ECONOMY_CHAT_ID" required:"true"`

	// --- Database ---
	// Дефолт "postgres" (имя сервиса в docker-compose), для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"melbot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`
	// Адрес служебного HTTP (/healthz, /metrics). Пусто - не поднимаем.
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":9090"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight          int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`
	AdminSessionTTL   time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`

	// --- Economy ---
	EconomyMessageCooldown    time.Duration `envconfig:"ECONOMY_MESSAGE_COOLDOWN" default:"60s"`
	EconomyPointsPerMessage   int64         `envconfig:"ECONOMY_POINTS_PER_MESSAGE" default:"1"`
	EconomyLeaderboardSize    int           `envconfig:"ECONOMY_LEADERBOARD_SIZE" default:"10"`
	EconomyLeaderboardRoster  bool          `envconfig:"ECONOMY_LEADERBOARD_ROSTER_ONLY" default:"true"`
	LedgerAggregationSchedule string        `envconfig:"LEDGER_AGGREGATION_SCHEDULE" default:"@every 24h"`
	LedgerAggregationLag      time.Duration `envconfig:"LEDGER_AGGREGATION_LAG" default:"24h"`

	// --- Gamble ---
	GambleLimit     int64   `envconfig:"GAMBLE_LIMIT" default:"1000"`
	GambleWinChance float64 `envconfig:"GAMBLE_WIN_CHANCE" default:"0.45"`

	// --- Blackjack ---
	BlackjackMinBet         int64         `envconfig:"BLACKJACK_MIN_BET" default:"10"`
	BlackjackMaxBet         int64         `envconfig:"BLACKJACK_MAX_BET" default:"1000"`
	BlackjackPayout         string        `envconfig:"BLACKJACK_PAYOUT_MULTIPLIER" default:"2"`
	BlackjackSessionTimeout time.Duration `envconfig:"BLACKJACK_SESSION_TIMEOUT" default:"10m"`
	BlackjackSweepSchedule  string        `envconfig:"BLACKJACK_SWEEP_SCHEDULE" default:"@every 10m"`

	// --- Gacha ---
	GachaPullPrice    int64   `envconfig:"GACHA_PULL_PRICE" default:"160"`
	GachaFiveStarRate float64 `envconfig:"GACHA_FIVE_STAR_RATE" default:"0.006"`
	GachaFiveStarSoft int     `envconfig:"GACHA_FIVE_STAR_SOFT_PITY" default:"50"`
	GachaFiveStarPity int     `envconfig:"GACHA_FIVE_STAR_PITY" default:"70"`
	GachaFourStarRate float64 `envconfig:"GACHA_FOUR_STAR_RATE" default:"0.051"`
	GachaFourStarPity int     `envconfig:"GACHA_FOUR_STAR_PITY" default:"10"`

	// --- Assets (Google Drive + Redis-кэш листинга) ---
	GDriveFolderID       string        `envconfig:"GDRIVE_FOLDER_ID"`
	GoogleServiceAccount string        `envconfig:"GOOGLE_SERVICE_ACCOUNT"`
	RedisAddr            string        `envconfig:"REDIS_ADDR"`
	RedisPassword        string        `envconfig:"REDIS_PASSWORD"`
	RedisDB              int           `envconfig:"REDIS_DB" default:"0"`
	AssetCacheTTL        time.Duration `envconfig:"ASSET_CACHE_TTL" default:"10m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureShopEnabled      bool `envconfig:"FEATURE_SHOP_ENABLED" default:"true"`
	FeatureGambleEnabled    bool `envconfig:"FEATURE_GAMBLE_ENABLED" default:"true"`
	FeatureBlackjackEnabled bool `envconfig:"FEATURE_BLACKJACK_ENABLED" default:"true"`
	FeatureGachaEnabled     bool `envconfig:"FEATURE_GACHA_ENABLED" default:"true"`
}

// TestConfig - настройки интеграционных тестов.
type TestConfig struct {
	TestPostgresDSN string `envconfig:"TEST_POSTGRES_DSN" required:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location возвращает часовой пояс приложения (UTC+3, если tzdata нет).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// IsAdmin проверяет, входит ли пользователь в ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.EconomyChatID == 0 {
		return fmt.Errorf("ECONOMY_CHAT_ID не задан или равен 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.EconomyMessageCooldown < 0 || c.EconomyPointsPerMessage < 0 {
		return fmt.Errorf("ECONOMY_MESSAGE_COOLDOWN и ECONOMY_POINTS_PER_MESSAGE не могут быть отрицательными")
	}
	if c.LedgerAggregationLag <= 0 {
		return fmt.Errorf("LEDGER_AGGREGATION_LAG должен быть > 0")
	}
	if c.GambleLimit <= 0 || c.GambleWinChance < 0 || c.GambleWinChance > 1 {
		return fmt.Errorf("некорректные GAMBLE_LIMIT/GAMBLE_WIN_CHANCE")
	}
	if c.BlackjackMinBet <= 0 || c.BlackjackMaxBet < c.BlackjackMinBet {
		return fmt.Errorf("некорректные BLACKJACK_MIN_BET/BLACKJACK_MAX_BET")
	}
	if m, err := strconv.ParseFloat(c.BlackjackPayout, 64); err != nil || m < 1 {
		return fmt.Errorf("BLACKJACK_PAYOUT_MULTIPLIER должен быть числом >= 1")
	}
	if c.BlackjackSessionTimeout <= 0 {
		return fmt.Errorf("BLACKJACK_SESSION_TIMEOUT должен быть > 0")
	}
	if c.GachaPullPrice <= 0 {
		return fmt.Errorf("GACHA_PULL_PRICE должен быть > 0")
	}
	if c.GachaFiveStarRate <= 0 || c.GachaFiveStarRate >= 1 || c.GachaFourStarRate < 0 || c.GachaFourStarRate >= 1 {
		return fmt.Errorf("шансы гачи должны быть в диапазоне (0, 1)")
	}
	if c.GachaFiveStarSoft <= 0 || c.GachaFiveStarPity <= c.GachaFiveStarSoft || c.GachaFourStarPity <= 0 {
		return fmt.Errorf("некорректные пороги гаранта: нужно 0 < soft < hard")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения в структуру Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadTest читает настройки интеграционных тестов.
func LoadTest() (*TestConfig, error) {
	_ = godotenv.Load()

	var cfg TestConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
