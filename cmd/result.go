package cmd

import (
	"github.com/shouni/go-cact-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// adviceCmd は、保存済みの結果に対するトピック別アドバイスを表示するのだ。
var adviceCmd = &cobra.Command{
	Use:         "advice",
	Short:       "保存済みの結果にアドバイスを生成しますなのだ。",
	Annotations: requiresAI(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecuteAdvice(cmd.Context(), loadConfig())
	},
}

var charactersCmd = &cobra.Command{
	Use:         "characters",
	Short:       "結果に似ている架空のキャラクターを3人探しますなのだ。",
	Annotations: requiresAI(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecuteCharacters(cmd.Context(), loadConfig())
	},
}

// portraitCmd は、キャラクター肖像画を生成してプロフィールを焼き込んだ画像を保存するのだ。
var portraitCmd = &cobra.Command{
	Use:         "portrait",
	Short:       "キャラクター風の肖像画を生成しますなのだ。",
	Annotations: requiresAI(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecutePortrait(cmd.Context(), loadConfig())
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "結果カード画像を保存または共有しますなのだ。",
	// カード描画は AI を使わないけど、セッション構築にクライアントが要るのだ
	Annotations: requiresAI(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecuteExport(cmd.Context(), loadConfig())
	},
}

func init() {
	adviceCmd.Flags().StringVarP(&opts.Topic, "topic", "t", "Career Development", "アドバイスのトピック ID なのだ（例: \"Business Ideas\"）。")
	portraitCmd.Flags().StringVarP(&opts.Character, "character", "c", "", "肖像画を作るキャラクター名（省略時は全員）なのだ。")
	portraitCmd.Flags().StringVar(&opts.SelfieFile, "selfie", "", "参考にする自撮り画像のパスなのだ。")
	portraitCmd.Flags().BoolVar(&opts.Share, "share", false, "保存の代わりに共有コマンドで共有するのだ。")
	exportCmd.Flags().BoolVar(&opts.Share, "share", false, "保存の代わりに共有コマンドで共有するのだ。")
}
