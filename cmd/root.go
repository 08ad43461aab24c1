package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-cact-kit/internal/config"

	"github.com/spf13/cobra"
)

const appName = "cact"

// annotationRequiresAI は Gemini API を使うコマンドに付ける注釈なのだ。
const annotationRequiresAI = "requires-ai"

// opts は全コマンドで共有する実行時オプションなのだ。
var opts config.RunOptions

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "CACT Gue Banget: AIによる性格診断を端末で実行するのだ。",
	Long: `20問のクイズに答えると、MBTI・気質・HEXACO・HSP を統合したプロフィールを生成するのだ。
結果からアドバイス、似ているキャラクター、キャラクター肖像画、シェア用カードを作れます。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.RulesFile, "rules", "", "世代・キャラクタープール・画風のルール YAML なのだ（省略時は埋め込み）。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "画像の保存先ディレクトリなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.Model, "model", "", "使用するテキスト用 Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "使用する画像用 Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ResultID, "id", "", "対象にする保存済み結果の ID（省略時は最新）なのだ。")
}

// preRunAppE は、コマンド実行前にログレベルと必須の環境変数をチェックするのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if _, ok := cmd.Annotations[annotationRequiresAI]; !ok {
		return nil
	}
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if config.LoadConfig().GeminiAPIKey == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	return nil
}

// loadConfig は環境変数の設定に CLI フラグを重ねたものを返すのだ。
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.Options = opts
	return cfg
}

func requiresAI() map[string]string {
	return map[string]string{annotationRequiresAI: "true"}
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// Ctrl+C で実行中の生成リクエストもキャンセルされます。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		assessCmd,
		adviceCmd,
		charactersCmd,
		portraitCmd,
		exportCmd,
		historyCmd,
		showCmd,
		questionsCmd,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
