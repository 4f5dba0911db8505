package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Price feed kinds.
const (
	FeedMock    = "mock"
	FeedBinance = "binance"
)

// ErrInvalidConfig wraps every configuration fault found by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds environment-driven settings for the trigger engine.
type Config struct {
	Port     string
	GRPCPort string

	// Price feed
	PriceFeed      string // "mock" or "binance"
	Symbols        []string
	BinanceAPIKey  string
	BinanceTestnet bool
	MockStartPrice float64
	MockStep       float64
	MockInterval   time.Duration

	// Engine
	HistoryCapacity int
	TickBuffer      int
	SeedFile        string

	// Persistence and audit
	DBPath            string
	EnablePersistence bool
	AuditLogPath      string

	// NATS bridge (disabled when URL is empty)
	NATSURL           string
	NATSSubjectPrefix string

	// Paper execution
	EnablePaperExecutor bool
	PaperFeeRate        float64 // decimal (e.g. 0.001 = 10 bps)
	PaperSlippageBps    float64
	PaperWorkers        int

	// Auth
	JWTSecret string

	// Localization
	Language string // "en" or "zh"
}

// Load reads environment variables (optionally via .env files) into Config.
func Load(envFiles ...string) (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("grpc_port", "9090")
	v.SetDefault("price_feed", FeedMock)
	v.SetDefault("symbols", "")
	v.SetDefault("binance_testnet", false)
	v.SetDefault("mock_start_price", 100.0)
	v.SetDefault("mock_step", 0.5)
	v.SetDefault("mock_interval_ms", 1000)
	v.SetDefault("history_capacity", 1000)
	v.SetDefault("tick_buffer", 1024)
	v.SetDefault("db_path", "./data/triggers.db")
	v.SetDefault("enable_persistence", true)
	v.SetDefault("audit_log_path", "./data/audit.log")
	v.SetDefault("nats_subject_prefix", "triggers")
	v.SetDefault("enable_paper_executor", true)
	v.SetDefault("paper_fee_rate", 0.001)
	v.SetDefault("paper_slippage_bps", 5.0)
	v.SetDefault("paper_workers", 4)
	v.SetDefault("jwt_secret", "dev-secret")
	v.SetDefault("language", "en")

	return &Config{
		Port:                v.GetString("port"),
		GRPCPort:            v.GetString("grpc_port"),
		PriceFeed:           strings.ToLower(strings.TrimSpace(v.GetString("price_feed"))),
		Symbols:             splitAndTrim(v.GetString("symbols")),
		BinanceAPIKey:       v.GetString("binance_api_key"),
		BinanceTestnet:      v.GetBool("binance_testnet"),
		MockStartPrice:      v.GetFloat64("mock_start_price"),
		MockStep:            v.GetFloat64("mock_step"),
		MockInterval:        time.Duration(v.GetInt("mock_interval_ms")) * time.Millisecond,
		HistoryCapacity:     v.GetInt("history_capacity"),
		TickBuffer:          v.GetInt("tick_buffer"),
		SeedFile:            v.GetString("seed_file"),
		DBPath:              v.GetString("db_path"),
		EnablePersistence:   v.GetBool("enable_persistence"),
		AuditLogPath:        v.GetString("audit_log_path"),
		NATSURL:             v.GetString("nats_url"),
		NATSSubjectPrefix:   v.GetString("nats_subject_prefix"),
		EnablePaperExecutor: v.GetBool("enable_paper_executor"),
		PaperFeeRate:        v.GetFloat64("paper_fee_rate"),
		PaperSlippageBps:    v.GetFloat64("paper_slippage_bps"),
		PaperWorkers:        v.GetInt("paper_workers"),
		JWTSecret:           v.GetString("jwt_secret"),
		Language:            v.GetString("language"),
	}, nil
}

// Validate reports configuration faults that must stop start-up before the
// evaluation loop subscribes.
func (c *Config) Validate() error {
	var errs []error
	switch c.PriceFeed {
	case FeedMock:
	case FeedBinance:
		if strings.TrimSpace(c.BinanceAPIKey) == "" {
			errs = append(errs, fmt.Errorf("%w: BINANCE_API_KEY is required for the binance feed", ErrInvalidConfig))
		}
		if len(c.Symbols) == 0 {
			errs = append(errs, fmt.Errorf("%w: SYMBOLS is required for the binance feed", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown PRICE_FEED %q", ErrInvalidConfig, c.PriceFeed))
	}
	if c.HistoryCapacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: HISTORY_CAPACITY must be > 0", ErrInvalidConfig))
	}
	if c.TickBuffer <= 0 {
		errs = append(errs, fmt.Errorf("%w: TICK_BUFFER must be > 0", ErrInvalidConfig))
	}
	if c.EnablePaperExecutor && c.PaperWorkers <= 0 {
		errs = append(errs, fmt.Errorf("%w: PAPER_WORKERS must be > 0", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
