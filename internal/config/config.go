package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Exchange  ExchangeConfig
	Trading   TradingConfig
	Assistant AssistantConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ExchangeConfig - настройки клиента биржи
type ExchangeConfig struct {
	BaseURL        string
	APIKey         string
	SecretKey      string
	RequestTimeout time.Duration // таймаут одного запроса к бирже
	RateLimit      float64       // запросов в секунду
	RateBurst      float64       // допустимый всплеск запросов
}

// TradingConfig - торговые параметры и пороги риск-контроля
type TradingConfig struct {
	Symbols []string // отслеживаемые символы

	// Размер позиции
	FixedFraction     float64 // доля капитала при методе "fixed"
	MaxDrawdownPerDay float64 // верхняя граница доли Келли

	// Фильтры сигналов
	MinVolume24h   float64 // минимальный 24h объём для участия в ранжировании
	RSIThreshold   float64 // RSI выше порога - символ дисквалифицирован
	RSIPeriod      int     // период RSI
	CandleInterval string  // гранулярность свечей (например, "15m")
	CandleLimit    int     // глубина окна свечей

	// Автоторговля
	AutoScoreThreshold float64 // минимальный trend score для автовхода
	AutoEntryBufferPct float64 // буфер цены входа от последнего close, %
	AutoSLPct          float64 // stop loss от цены входа, %
	AutoTPPct          float64 // take profit от цены входа, %
	AutoWinRate        float64 // оценка винрейта для Келли
	AutoWinLossRatio   float64 // оценка payoff ratio для Келли
	SizingMethod       string  // "fixed" или "kelly"

	// Периодические циклы
	RiskInterval      time.Duration // цикл риск-очистки
	AutoTradeInterval time.Duration // цикл автоторговли

	// Пороги отмены ордеров
	CleanupVolThreshold float64       // волатильность (%), выше которой ордер отменяется
	CleanupMaxAge       time.Duration // максимальный возраст открытого ордера

	// TTL кэшей рыночных данных
	TickerTTL time.Duration
	EquityTTL time.Duration
}

// AssistantConfig - настройки клиента внешнего completion-сервиса
type AssistantConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
}

// SecurityConfig - настройки безопасности API
type SecurityConfig struct {
	// bcrypt-хэш токена для write-эндпоинтов (ручные сделки)
	APITokenHash string
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "autotrader"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Exchange: ExchangeConfig{
			BaseURL:        getEnv("EXCHANGE_BASE_URL", "https://api.binance.com"),
			APIKey:         getEnv("EXCHANGE_API_KEY", ""),
			SecretKey:      getEnv("EXCHANGE_SECRET_KEY", ""),
			RequestTimeout: getEnvAsDuration("EXCHANGE_TIMEOUT", 10*time.Second),
			RateLimit:      getEnvAsFloat("EXCHANGE_RATE_LIMIT", 10),
			RateBurst:      getEnvAsFloat("EXCHANGE_RATE_BURST", 20),
		},
		Trading: TradingConfig{
			Symbols: splitCSV(getEnv("TRADING_SYMBOLS", "BTCUSDT,ETHUSDT,BNBUSDT,SOLUSDT,XRPUSDT")),

			FixedFraction:     getEnvAsFloat("FIXED_FRACTION", 0.05),
			MaxDrawdownPerDay: getEnvAsFloat("MAX_DRAWDOWN_PER_DAY", 0.05),

			MinVolume24h:   getEnvAsFloat("MIN_VOL24H", 1000000),
			RSIThreshold:   getEnvAsFloat("RSI_THRESH", 70),
			RSIPeriod:      getEnvAsInt("RSI_PERIOD", 14),
			CandleInterval: getEnv("CANDLE_INTERVAL", "15m"),
			CandleLimit:    getEnvAsInt("CANDLE_LIMIT", 96),

			AutoScoreThreshold: getEnvAsFloat("AUTO_SCORE_THRESH", 50),
			AutoEntryBufferPct: getEnvAsFloat("AUTO_ENTRY_BUFFER_PCT", 0.1),
			AutoSLPct:          getEnvAsFloat("AUTO_SL_PCT", 2.0),
			AutoTPPct:          getEnvAsFloat("AUTO_TP_PCT", 4.0),
			AutoWinRate:        getEnvAsFloat("AUTO_WIN_RATE", 0.55),
			AutoWinLossRatio:   getEnvAsFloat("AUTO_WIN_LOSS_RATIO", 2.0),
			SizingMethod:       getEnv("SIZING_METHOD", "fixed"),

			RiskInterval:      getEnvAsDuration("RISK_INTERVAL", 5*time.Minute),
			AutoTradeInterval: getEnvAsDuration("AUTOTRADE_INTERVAL", 15*time.Minute),

			CleanupVolThreshold: getEnvAsFloat("CLEANUP_VOL_THRESHOLD", 8.0),
			CleanupMaxAge:       getEnvAsDuration("CLEANUP_MAX_AGE", 120*time.Minute),

			TickerTTL: getEnvAsDuration("TICKER_TTL", 60*time.Second),
			EquityTTL: getEnvAsDuration("EQUITY_TTL", 30*time.Second),
		},
		Assistant: AssistantConfig{
			BaseURL:        getEnv("ASSISTANT_BASE_URL", ""),
			APIKey:         getEnv("ASSISTANT_API_KEY", ""),
			Model:          getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
			RequestTimeout: getEnvAsDuration("ASSISTANT_TIMEOUT", 30*time.Second),
		},
		Security: SecurityConfig{
			APITokenHash: getEnv("API_TOKEN_HASH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет диапазоны критичных параметров
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	t := &c.Trading

	if len(t.Symbols) == 0 {
		return fmt.Errorf("TRADING_SYMBOLS must contain at least one symbol")
	}

	// Доли капитала должны лежать в (0, 1]
	if t.FixedFraction <= 0 || t.FixedFraction > 1 {
		return fmt.Errorf("FIXED_FRACTION must be in (0, 1], got %v", t.FixedFraction)
	}
	if t.MaxDrawdownPerDay <= 0 || t.MaxDrawdownPerDay > 1 {
		return fmt.Errorf("MAX_DRAWDOWN_PER_DAY must be in (0, 1], got %v", t.MaxDrawdownPerDay)
	}

	if t.RSIThreshold <= 0 || t.RSIThreshold > 100 {
		return fmt.Errorf("RSI_THRESH must be in (0, 100], got %v", t.RSIThreshold)
	}
	if t.RSIPeriod < 2 {
		return fmt.Errorf("RSI_PERIOD must be at least 2, got %d", t.RSIPeriod)
	}
	if t.CandleLimit <= t.RSIPeriod {
		return fmt.Errorf("CANDLE_LIMIT must exceed RSI_PERIOD, got %d", t.CandleLimit)
	}

	if t.SizingMethod != "fixed" && t.SizingMethod != "kelly" {
		return fmt.Errorf("SIZING_METHOD must be \"fixed\" or \"kelly\", got %q", t.SizingMethod)
	}

	// Периоды циклов должны быть положительными
	if t.RiskInterval <= 0 {
		return fmt.Errorf("RISK_INTERVAL must be positive, got %v", t.RiskInterval)
	}
	if t.AutoTradeInterval <= 0 {
		return fmt.Errorf("AUTOTRADE_INTERVAL must be positive, got %v", t.AutoTradeInterval)
	}
	if t.CleanupMaxAge <= 0 {
		return fmt.Errorf("CLEANUP_MAX_AGE must be positive, got %v", t.CleanupMaxAge)
	}
	if t.CleanupVolThreshold <= 0 {
		return fmt.Errorf("CLEANUP_VOL_THRESHOLD must be positive, got %v", t.CleanupVolThreshold)
	}

	if t.TickerTTL <= 0 || t.EquityTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive, got ticker=%v equity=%v", t.TickerTTL, t.EquityTTL)
	}

	if c.Exchange.RequestTimeout <= 0 {
		return fmt.Errorf("EXCHANGE_TIMEOUT must be positive, got %v", c.Exchange.RequestTimeout)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// splitCSV разбирает список символов через запятую, отбрасывая пустые элементы
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
