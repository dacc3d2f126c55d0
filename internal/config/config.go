package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/openoutcry/botrunner/internal/domain"
)

// Config holds all runtime configuration for the bot runner.
type Config struct {
	Port     int
	LogLevel string

	// Seed drives order id allocation; a fixed seed makes a run's ids
	// reproducible.
	Seed int64

	Instruments   int
	MaxOpenOrders int
	PositionLimit int64
	PnLLimit      float64
	RatePerSecond float64
	RateBurst     float64

	// SnapshotPath, when set, makes strategies dump their book replica
	// after every applied event.
	SnapshotPath string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	seed, err := getInt64("SEED", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid SEED: %w", err)
	}

	instruments, err := getInt("INSTRUMENTS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid INSTRUMENTS: %w", err)
	}
	if instruments < 1 || instruments > domain.NumInstruments {
		return nil, fmt.Errorf("invalid INSTRUMENTS: %d, must be 1-%d", instruments, domain.NumInstruments)
	}

	maxOpenOrders, err := getInt("MAX_OPEN_ORDERS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_OPEN_ORDERS: %w", err)
	}
	if maxOpenOrders < 0 {
		return nil, fmt.Errorf("invalid MAX_OPEN_ORDERS: %d, must not be negative", maxOpenOrders)
	}

	positionLimit, err := getInt64("POSITION_LIMIT", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid POSITION_LIMIT: %w", err)
	}
	if positionLimit < 0 {
		return nil, fmt.Errorf("invalid POSITION_LIMIT: %d, must not be negative", positionLimit)
	}

	pnlLimit, err := getFloat("PNL_LIMIT", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid PNL_LIMIT: %w", err)
	}
	if pnlLimit < 0 {
		return nil, fmt.Errorf("invalid PNL_LIMIT: %v, must not be negative", pnlLimit)
	}

	ratePerSecond, err := getFloat("RATE_PER_SECOND", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_PER_SECOND: %w", err)
	}
	if ratePerSecond < 0 {
		return nil, fmt.Errorf("invalid RATE_PER_SECOND: %v, must not be negative", ratePerSecond)
	}

	rateBurst, err := getFloat("RATE_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_BURST: %w", err)
	}
	if rateBurst < 0 {
		return nil, fmt.Errorf("invalid RATE_BURST: %v, must not be negative", rateBurst)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		Seed:            seed,
		Instruments:     instruments,
		MaxOpenOrders:   maxOpenOrders,
		PositionLimit:   positionLimit,
		PnLLimit:        pnlLimit,
		RatePerSecond:   ratePerSecond,
		RateBurst:       rateBurst,
		SnapshotPath:    getStr("SNAPSHOT_PATH", ""),
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
