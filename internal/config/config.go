package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// DataPath is the absolute path to the CSV file.
	// Set via DATA_PATH (relative paths are resolved against the process working directory at startup).
	DataPath       string
	DataDelimiter  rune
	DataTimeColumn string
	// DataTimeLayout is a Go reference-time layout for the timestamp column.
	DataTimeLayout string
	// DataWatch enables fsnotify invalidation of the dataset cache.
	DataWatch bool

	UILocale    string
	ChartWidth  int
	ChartHeight int
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	dataPath := strings.TrimSpace(os.Getenv("DATA_PATH"))
	if dataPath == "" {
		dataPath = "data/qualiteair.csv"
	}
	dataPath, err = filepath.Abs(dataPath)
	if err != nil {
		return Config{}, fmt.Errorf("DATA_PATH %q: %w", dataPath, err)
	}

	// Not trimmed: a tab is a valid delimiter.
	delimStr := os.Getenv("DATA_DELIMITER")
	if delimStr == "" {
		delimStr = ";"
	}
	delim, size := utf8.DecodeRuneInString(delimStr)
	if size != len(delimStr) || delim == utf8.RuneError || delim == '"' || delim == '\r' || delim == '\n' {
		return Config{}, fmt.Errorf("invalid DATA_DELIMITER %q (expected a single character)", delimStr)
	}

	timeColumn := strings.TrimSpace(os.Getenv("DATA_TIME_COLUMN"))
	if timeColumn == "" {
		timeColumn = "DATE/HEURE"
	}

	timeLayout := strings.TrimSpace(os.Getenv("DATA_TIME_LAYOUT"))
	if timeLayout == "" {
		timeLayout = time.RFC3339
	}

	watchStr := strings.TrimSpace(os.Getenv("DATA_WATCH"))
	if watchStr == "" {
		watchStr = "true"
	}
	watch, err := strconv.ParseBool(watchStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DATA_WATCH %q: %w", watchStr, err)
	}

	locale := strings.TrimSpace(os.Getenv("UI_LOCALE"))
	if locale == "" {
		locale = "fr"
	}
	if _, err := language.Parse(locale); err != nil {
		return Config{}, fmt.Errorf("invalid UI_LOCALE %q: %w", locale, err)
	}

	width, err := parsePositiveInt("CHART_WIDTH", "800")
	if err != nil {
		return Config{}, err
	}
	height, err := parsePositiveInt("CHART_HEIGHT", "400")
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:         appEnv,
		LogLevel:       level,
		HTTPAddr:       httpAddr,
		DataPath:       dataPath,
		DataDelimiter:  delim,
		DataTimeColumn: timeColumn,
		DataTimeLayout: timeLayout,
		DataWatch:      watch,
		UILocale:       locale,
		ChartWidth:     width,
		ChartHeight:    height,
	}, nil
}

func parsePositiveInt(name, def string) (int, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		s = def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s %q (must be > 0)", name, s)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
