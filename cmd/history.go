package cmd

import (
	"github.com/shouni/go-cact-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// historyCmd は保存済みの結果一覧を表示するのだ。API キーは不要です。
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "保存済みの診断結果を一覧表示しますなのだ。",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecuteHistory(cmd.Context(), loadConfig())
	},
}

// showCmd は保存済みの結果を再表示します。
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "保存済みの診断結果を表示しますなのだ（--id 省略時は最新）。",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecuteShow(cmd.Context(), loadConfig())
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "クイズの設問を一覧表示しますなのだ。",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecuteQuestions(cmd.Context(), loadConfig())
	},
}
