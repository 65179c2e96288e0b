package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Rates sources accepted in RATES_SOURCE.
const (
	RatesSourceChain     = "chain"
	RatesSourceCoinGecko = "coingecko"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	EthRPCURL             string
	Network               string
	NetworksFile          string
	DatabaseURL           string
	RatesSource           string
	CoinGeckoURL          string
	CoinGeckoDelay        time.Duration
	CoinGeckoRetryMax     int
	DepotSubgraphURL      string
	IndexerRetryMax       int
	IndexerRetryBaseDelay time.Duration
	GovHubURL             string
	GovSignerKey          string
	RatesStaleThreshold   time.Duration
	RatesWorkerInterval   time.Duration
	QueryCacheTTL         time.Duration
	ExportWallet          string
	ExportSheetID         string
	GoogleCredentialsJSON string
	ExportWorkerInterval  time.Duration
	HTTPPort              string
	AdminAPIKey           string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		EthRPCURL:             envOrDefaultWarn("ETH_RPC_URL", ""),
		Network:               envOrDefault("NETWORK", "mainnet"),
		NetworksFile:          envOrDefault("NETWORKS_FILE", ""),
		DatabaseURL:           envOrDefaultWarn("DATABASE_URL", ""),
		RatesSource:           envOneOf("RATES_SOURCE", RatesSourceChain, RatesSourceChain, RatesSourceCoinGecko),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:        envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax:     envOrDefaultInt("COINGECKO_RETRY_MAX", 5),
		DepotSubgraphURL:      envOrDefault("DEPOT_SUBGRAPH_URL", "https://api.thegraph.com/subgraphs/name/synthetixio-team/synthetix-depot"),
		IndexerRetryMax:       envOrDefaultInt("INDEXER_RETRY_MAX", 5),
		IndexerRetryBaseDelay: envOrDefaultDuration("INDEXER_RETRY_BASE_DELAY", 2*time.Second),
		GovHubURL:             envOrDefault("GOV_HUB_URL", "https://hub.snapshot.page"),
		GovSignerKey:          envOrDefault("GOV_SIGNER_KEY", ""),
		RatesStaleThreshold:   envOrDefaultDuration("RATES_STALE_THRESHOLD", 2*time.Hour),
		RatesWorkerInterval:   envOrDefaultDuration("RATES_WORKER_INTERVAL", 5*time.Minute),
		QueryCacheTTL:         envOrDefaultDuration("QUERY_CACHE_TTL", 30*time.Second),
		ExportWallet:          envOrDefault("EXPORT_WALLET", ""),
		ExportSheetID:         envOrDefault("EXPORT_SHEET_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
		ExportWorkerInterval:  envOrDefaultDuration("EXPORT_WORKER_INTERVAL", 24*time.Hour),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
	}
}

// ExportEnabled reports whether the periodic sheet export is configured.
func (c Config) ExportEnabled() bool {
	return c.ExportWallet != "" && c.ExportSheetID != "" && c.GoogleCredentialsJSON != ""
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOneOf(key, defaultVal string, allowed ...string) string {
	v := envOrDefault(key, defaultVal)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	slog.Warn("unsupported env var value, using default", "key", key, "value", v, "default", defaultVal)
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
