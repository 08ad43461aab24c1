package config

import (
	"fmt"
	"time"
)

// デフォルト値の定義
const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultImageModel     = "gemini-2.5-flash-image"
	DefaultRequestTimeout = 60 * time.Second
	DefaultImageTimeout   = 90 * time.Second
	DefaultRateInterval   = 2 * time.Second
	DefaultRateBurst      = 2
	DefaultTemperature    = float32(0.7)
	DefaultJPEGQuality    = 90
	DefaultOutputDir      = "output"
)

// Config は CACT キットの各コンポーネントを動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey string
	GeminiModel  string
	ImageModel   string
	Temperature  float32

	// --- Rate & Timeout ---
	RateInterval   time.Duration
	RateBurst      int
	RequestTimeout time.Duration // テキスト補完 1 回あたり
	ImageTimeout   time.Duration // 画像生成 1 回あたり

	// --- Output Settings ---
	JPEGQuality int
	OutputDir   string
	// ShareCommand は共有に使う OS コマンド。空なら常にダウンロードなのだ
	ShareCommand string

	// --- Rules ---
	// RulesFile が空なら埋め込みのルールを使います
	RulesFile string
}

// NewConfig はデフォルト値に API キーだけをセットした Config を返すのだ。
func NewConfig(apiKey string) Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = apiKey
	return cfg
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		GeminiModel:    DefaultGeminiModel,
		ImageModel:     DefaultImageModel,
		Temperature:    DefaultTemperature,
		RateInterval:   DefaultRateInterval,
		RateBurst:      DefaultRateBurst,
		RequestTimeout: DefaultRequestTimeout,
		ImageTimeout:   DefaultImageTimeout,
		JPEGQuality:    DefaultJPEGQuality,
		OutputDir:      DefaultOutputDir,
	}
}

// Validate は必須項目と値域をチェックするのだ。
func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY が設定されていません")
	}
	if c.GeminiModel == "" || c.ImageModel == "" {
		return fmt.Errorf("モデル名が設定されていません")
	}
	if c.RequestTimeout <= 0 || c.ImageTimeout <= 0 {
		return fmt.Errorf("タイムアウトは正の値である必要があります")
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("RateBurst は 1 以上である必要があります: %d", c.RateBurst)
	}
	return nil
}
