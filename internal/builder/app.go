package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-cact-kit/internal/config"
	"github.com/shouni/go-cact-kit/internal/runner"
	"github.com/shouni/go-cact-kit/internal/store"
	"github.com/shouni/go-cact-kit/pkg/workflow"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各 Build 関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config   *config.Config    // Config は、環境変数から読み込まれたグローバルな設定です（APIキー、保存先など）。
	Options  config.RunOptions // Options は、コマンドラインから渡された実行時の設定です。
	Manager  *workflow.Manager // Manager は、セッションやエクスポータを組み立てるワークフローです。
	Store    *store.Store      // Store は、診断結果の保存先です。
	Prompter runner.Prompter   // Prompter は、対話入力に使う端末プロンプトです。
}

// NewAppContext は設定から Manager と Store を初期化して AppContext を返すのだ。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	manager, err := workflow.New(ctx, workflow.ManagerArgs{Config: cfg.KitConfig()})
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗したのだ: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("結果ストアの初期化に失敗しました: %w", err)
	}
	slog.Debug("アプリケーションコンテキストを初期化しました", "db", cfg.DBPath, "model", cfg.GeminiModel)

	return &AppContext{
		Config:   cfg,
		Options:  cfg.Options,
		Manager:  manager,
		Store:    st,
		Prompter: &runner.TerminalPrompter{Stdin: os.Stdin, Stdout: os.Stdout},
	}, nil
}

// NewStoreOnlyContext は AI を使わないコマンド（履歴表示など）向けに Store だけを開きます。
func NewStoreOnlyContext(cfg *config.Config) (*AppContext, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("結果ストアの初期化に失敗しました: %w", err)
	}
	return &AppContext{Config: cfg, Options: cfg.Options, Store: st}, nil
}

// Close は保持しているリソースを解放するのだ。
func (a *AppContext) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// BuildQuizRunner はクイズを実行する Runner を構築します。
func (a *AppContext) BuildQuizRunner(s workflow.Session) *runner.QuizRunner {
	return runner.NewQuizRunner(a.Prompter, s, a.Manager.Questions(), os.Stdout)
}

// BuildExportRunner はカードや肖像画を書き出す Runner を構築するのだ。
func (a *AppContext) BuildExportRunner() *runner.ExportRunner {
	return runner.NewExportRunner(a.Manager.BuildCardRenderer(), a.Manager.BuildExporter(), os.Stdout)
}
