package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-cact-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// assessCmd は、対話形式で診断を行い、結果を保存するのだ。
var assessCmd = &cobra.Command{
	Use:         "assess",
	Short:       "クイズに答えて性格診断を実行しますなのだ。",
	Annotations: requiresAI(),
	RunE:        assessCommand,
}

func init() {
	assessCmd.Flags().BoolVar(&opts.Prefetch, "prefetch", false, "結果表示後に全トピックのアドバイスとキャラクターを先に取得するのだ。")
	assessCmd.Flags().StringVar(&opts.SelfieFile, "selfie", "", "肖像画に使う自撮り画像のパスなのだ。")
}

func assessCommand(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	slog.Info("診断を開始するのだ！", "text_model", cfg.KitConfig().GeminiModel, "db", cfg.DBPath)

	if err := pipeline.ExecuteAssess(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("診断中にエラーが発生したのだ: %w", err)
	}
	return nil
}
