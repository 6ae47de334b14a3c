package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP server
	ServerAddr string
	APIKey     string
	DevMode    bool

	// Chain state RPC
	RPCUrl       string
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RPCRateLimit float64 // requests per second against the RPC endpoint

	// Engine addresses and modes
	ProgramID       string
	AggregatorID    string
	TreasuryWallet  string
	ConfigAuthority string
	AuthorityMode   string // "direct" or "mediated"
	Encoding        string // "full" or "indexed"

	// Default fee rates (basis points), used when initializing a fresh config
	TreasuryFeeBps   uint16
	ReflectionFeeBps uint16

	// Event sinks
	RedisAddr          string
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string
}

func Load() *Config {
	return &Config{
		ServerAddr: getEnv("RACEPUMP_ADDR", ":8090"),
		APIKey:     getEnv("RACEPUMP_API_KEY", ""),
		DevMode:    getBoolEnv("RACEPUMP_DEV_MODE", false),

		RPCUrl:       getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),
		RPCRateLimit: getFloatEnv("RPC_RATE_LIMIT", 5),

		ProgramID:       getEnv("RACEPUMP_PROGRAM_ID", ""),
		AggregatorID:    getEnv("RACEPUMP_AGGREGATOR_ID", ""),
		TreasuryWallet:  getEnv("RACEPUMP_TREASURY_WALLET", ""),
		ConfigAuthority: getEnv("RACEPUMP_CONFIG_AUTHORITY", ""),
		AuthorityMode:   getEnv("RACEPUMP_AUTHORITY_MODE", "mediated"),
		Encoding:        getEnv("RACEPUMP_ENCODING", "indexed"),

		TreasuryFeeBps:   getBpsEnv("RACEPUMP_TREASURY_FEE_BPS", 20),
		ReflectionFeeBps: getBpsEnv("RACEPUMP_REFLECTION_FEE_BPS", 0),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "racepump"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBpsEnv(key string, defaultVal uint16) uint16 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseUint(val, 10, 16); err == nil {
			return uint16(i)
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
