package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvBaseURL      = "AZATHOTH_BASE_URL"
	EnvTuning       = "AZATHOTH_TUNING"
	EnvLogFile      = "AZATHOTH_LOG_FILE"
	EnvLogLevel     = "AZATHOTH_LOG_LEVEL"
	EnvMetricsAddr  = "AZATHOTH_METRICS_ADDR"
	EnvTraceDir     = "AZATHOTH_TRACE_DIR"
	EnvStartupDelay = "AZATHOTH_STARTUP_DELAY"
	EnvHTTPTimeout  = "AZATHOTH_HTTP_TIMEOUT"
	EnvLLMBackend   = "AZATHOTH_LLM_BACKEND"
	EnvLLMModel     = "AZATHOTH_LLM_MODEL"
	EnvOllamaHost   = "OLLAMA_HOST"
)

// Settings are the process-level knobs that come from the environment.
type Settings struct {
	BaseURL      string
	TuningPath   string
	LogFile      string
	LogLevel     string
	MetricsAddr  string
	TraceDir     string
	StartupDelay time.Duration
	HTTPTimeout  time.Duration
	LLMBackend   string
	LLMModel     string
	OllamaHost   string
}

func DefaultSettings() Settings {
	return Settings{
		BaseURL:     "http://localhost:8080",
		LogFile:     "azathoth.log",
		LogLevel:    "info",
		HTTPTimeout: 15 * time.Second,
	}
}

// LoadDotEnv loads a .env file when one exists. A missing file is fine.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// SettingsFromEnv overlays environment variables on DefaultSettings.
// Malformed durations are ignored.
func SettingsFromEnv() Settings {
	s := DefaultSettings()
	setString(&s.BaseURL, EnvBaseURL)
	setString(&s.TuningPath, EnvTuning)
	setString(&s.LogFile, EnvLogFile)
	setString(&s.LogLevel, EnvLogLevel)
	setString(&s.MetricsAddr, EnvMetricsAddr)
	setString(&s.TraceDir, EnvTraceDir)
	setDuration(&s.StartupDelay, EnvStartupDelay)
	setDuration(&s.HTTPTimeout, EnvHTTPTimeout)
	setString(&s.LLMBackend, EnvLLMBackend)
	setString(&s.LLMModel, EnvLLMModel)
	setString(&s.OllamaHost, EnvOllamaHost)
	return s
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return
	}
	*dst = d
}
