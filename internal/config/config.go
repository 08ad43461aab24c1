package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-cact-kit/pkg/config"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultDBPath    = "cact_data.db"
	DefaultOutputDir = config.DefaultOutputDir
)

// Config はアプリケーション全体の環境設定（APIキーや保存先）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	RequestTimeout   time.Duration
	ImageTimeout     time.Duration
	RateInterval     time.Duration
	DBPath           string
	OutputDir        string
	RulesFile        string
	ShareCommand     string

	Options RunOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
// GEMINI_API_KEY が無ければ旧名の VITE_GEMINI_TOKEN も受け付けます。
func LoadConfig() *Config {
	apiKey := envutil.GetEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = envutil.GetEnv("VITE_GEMINI_TOKEN", "")
	}

	return &Config{
		GeminiAPIKey:     strings.TrimSpace(apiKey),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", config.DefaultGeminiModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", config.DefaultImageModel),
		RequestTimeout:   durationEnv("REQUEST_TIMEOUT", config.DefaultRequestTimeout),
		ImageTimeout:     durationEnv("IMAGE_TIMEOUT", config.DefaultImageTimeout),
		RateInterval:     durationEnv("RATE_INTERVAL", config.DefaultRateInterval),
		DBPath:           envutil.GetEnv("CACT_DB_PATH", DefaultDBPath),
		OutputDir:        envutil.GetEnv("CACT_OUTPUT_DIR", DefaultOutputDir),
		RulesFile:        envutil.GetEnv("CACT_RULES_FILE", ""),
		ShareCommand:     envutil.GetEnv("CACT_SHARE_COMMAND", ""),
	}
}

// durationEnv は "90s" のような値を読み取り、解釈できなければ既定値を使うのだ。
func durationEnv(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("環境変数の値を解釈できないため既定値を使います", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

// KitConfig は CLI の設定をライブラリの Config に変換します。
func (c *Config) KitConfig() config.Config {
	kc := config.NewConfig(c.GeminiAPIKey)
	kc.GeminiModel = c.GeminiModel
	kc.ImageModel = c.GeminiImageModel
	kc.RequestTimeout = c.RequestTimeout
	kc.ImageTimeout = c.ImageTimeout
	kc.RateInterval = c.RateInterval
	kc.OutputDir = c.OutputDir
	kc.RulesFile = c.RulesFile
	kc.ShareCommand = c.ShareCommand

	if c.Options.RulesFile != "" {
		kc.RulesFile = c.Options.RulesFile
	}
	if c.Options.OutputDir != "" {
		kc.OutputDir = c.Options.OutputDir
	}
	if c.Options.Model != "" {
		kc.GeminiModel = c.Options.Model
	}
	if c.Options.ImageModel != "" {
		kc.ImageModel = c.Options.ImageModel
	}
	return kc
}

// RunOptions は CLI フラグから渡される実行時のパラメータなのだ。
type RunOptions struct {
	Verbose    bool   // --verbose
	RulesFile  string // --rules
	OutputDir  string // --output-dir
	Model      string // --model
	ImageModel string // --image-model

	// assess / portrait / export
	SelfieFile string // --selfie
	Character  string // --character
	Topic      string // --topic
	ResultID   string // --id: 保存済みの結果を指定
	Share      bool   // --share
	Prefetch   bool   // --prefetch
}
