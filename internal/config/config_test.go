package config

import (
	"testing"
	"time"
)

func TestLoadConfig_APIKeyFallback(t *testing.T) {
	t.Run("GEMINI_API_KEY が優先されること", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "primary")
		t.Setenv("VITE_GEMINI_TOKEN", "legacy")
		if got := LoadConfig().GeminiAPIKey; got != "primary" {
			t.Errorf("期待値 primary, 実際 %q", got)
		}
	})

	t.Run("VITE_GEMINI_TOKEN にフォールバックするのだ", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("VITE_GEMINI_TOKEN", "legacy")
		if got := LoadConfig().GeminiAPIKey; got != "legacy" {
			t.Errorf("期待値 legacy, 実際 %q", got)
		}
	})
}

func TestLoadConfig_Durations(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "15s")
	t.Setenv("RATE_INTERVAL", "not-a-duration")
	cfg := LoadConfig()
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("REQUEST_TIMEOUT が反映されていないのだ: %s", cfg.RequestTimeout)
	}
	if cfg.RateInterval != 2*time.Second {
		t.Errorf("不正な値の場合は既定値のはずなのだ: %s", cfg.RateInterval)
	}
}

func TestKitConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("CACT_OUTPUT_DIR", "env-out")
	cfg := LoadConfig()
	cfg.Options.OutputDir = "flag-out"
	cfg.Options.RulesFile = "rules.yaml"

	kc := cfg.KitConfig()
	if kc.OutputDir != "flag-out" || kc.RulesFile != "rules.yaml" {
		t.Errorf("フラグが環境変数より優先されていないのだ: %+v", kc)
	}
	if err := kc.Validate(); err != nil {
		t.Errorf("検証に失敗しました: %v", err)
	}
}
