package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shouni/go-cact-kit/internal/builder"
	"github.com/shouni/go-cact-kit/internal/config"
	"github.com/shouni/go-cact-kit/internal/runner"
	"github.com/shouni/go-cact-kit/internal/store"
	"github.com/shouni/go-cact-kit/pkg/prompts"
	"github.com/shouni/go-cact-kit/pkg/workflow"
)

// historyLimit は history コマンドで表示する件数なのだ。
const historyLimit = 20

// ExecuteAssess は、プロフィール入力からクイズ・合成・保存までを一気に実行し、
// 結果画面のメニューに入るのだ。
func ExecuteAssess(ctx context.Context, cfg *config.Config) error {
	return withAppContext(ctx, cfg, func(appCtx *builder.AppContext) error {
		return RunAssess(ctx, appCtx)
	})
}

// ExecuteAdvice は保存済みの結果に対して1トピック分のアドバイスを表示します。
func ExecuteAdvice(ctx context.Context, cfg *config.Config) error {
	return withAppContext(ctx, cfg, func(appCtx *builder.AppContext) error {
		s, err := restoreSession(ctx, appCtx)
		if err != nil {
			return err
		}
		return showAdvice(ctx, s, appCtx.Options.Topic)
	})
}

// ExecuteCharacters は保存済みの結果に似ているキャラクターを表示するのだ。
func ExecuteCharacters(ctx context.Context, cfg *config.Config) error {
	return withAppContext(ctx, cfg, func(appCtx *builder.AppContext) error {
		s, err := restoreSession(ctx, appCtx)
		if err != nil {
			return err
		}
		return showCharacters(ctx, s)
	})
}

// ExecutePortrait はキャラクターの肖像画を生成して保存します。
// --character が無ければ、マッチした全キャラクターを並列で生成するのだ。
func ExecutePortrait(ctx context.Context, cfg *config.Config) error {
	return withAppContext(ctx, cfg, func(appCtx *builder.AppContext) error {
		s, err := restoreSession(ctx, appCtx)
		if err != nil {
			return err
		}
		if err := showCharacters(ctx, s); err != nil {
			return err
		}
		return generatePortraits(ctx, appCtx, s, appCtx.Options.Character)
	})
}

// ExecuteExport は保存済みの結果カードを書き出すのだ。
func ExecuteExport(ctx context.Context, cfg *config.Config) error {
	return withAppContext(ctx, cfg, func(appCtx *builder.AppContext) error {
		s, err := restoreSession(ctx, appCtx)
		if err != nil {
			return err
		}
		snap := s.Snapshot()
		_, err = appCtx.BuildExportRunner().ExportCard(ctx, snap.Profile, *snap.Result, appCtx.Options.Share)
		return err
	})
}

// ExecuteHistory は保存済みの結果一覧を表示します。AI クライアントは使わないのだ。
func ExecuteHistory(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewStoreOnlyContext(cfg)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	items, err := appCtx.Store.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	fmt.Print(runner.RenderHistory(items))
	return nil
}

// ExecuteShow は保存済みの結果を再表示するのだ。--id が無ければ最新を表示します。
func ExecuteShow(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.NewStoreOnlyContext(cfg)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	rec, err := loadRecord(ctx, appCtx)
	if err != nil {
		return err
	}
	slog.Debug("保存済みの結果を表示します", "id", rec.ID, "created_at", rec.CreatedAt)
	fmt.Print(runner.RenderResult(rec.Profile, rec.Result))
	return nil
}

// ExecuteQuestions は設問の一覧を表示するのだ。
func ExecuteQuestions(_ context.Context, _ *config.Config) error {
	qs, err := prompts.DefaultQuestions()
	if err != nil {
		return err
	}
	for _, q := range qs {
		fmt.Printf("%2d. [%s] %s\n", q.ID, q.Category, q.Text)
		for _, o := range q.Options {
			fmt.Printf("      - %s\n", o)
		}
	}
	return nil
}

// RunAssess は構築済みの AppContext で診断フローを実行します。
func RunAssess(ctx context.Context, appCtx *builder.AppContext) error {
	s, err := appCtx.Manager.BuildSession()
	if err != nil {
		return err
	}

	profile, err := runner.NewIntakeRunner(appCtx.Prompter).Run()
	if err != nil {
		return err
	}
	if err := s.Start(profile); err != nil {
		return err
	}

	start := time.Now()
	result, err := appCtx.BuildQuizRunner(s).Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("プロフィール合成が完了しました", "mbti", result.MBTI, "duration", time.Since(start).Round(time.Millisecond))

	rec, err := appCtx.Store.Save(ctx, s.Snapshot().ResultID, profile, result)
	if err != nil {
		// 保存できなくても結果の表示は続けるのだ
		slog.Warn("結果を保存できませんでした", "error", err)
	} else {
		slog.Info("結果を保存しました", "id", rec.ID)
	}

	fmt.Print(runner.RenderResult(profile, result))

	if appCtx.Options.Prefetch {
		if err := s.Prefetch(ctx); err != nil {
			slog.Warn("事前取得に一部失敗しました", "error", err)
		}
	}
	return resultMenu(ctx, appCtx, s)
}

// restoreSession は --id または最新の保存結果からセッションを復元するのだ。
func restoreSession(ctx context.Context, appCtx *builder.AppContext) (workflow.Session, error) {
	rec, err := loadRecord(ctx, appCtx)
	if err != nil {
		return nil, err
	}

	s, err := appCtx.Manager.BuildSession()
	if err != nil {
		return nil, err
	}
	if err := s.Restore(rec.Profile, rec.Result); err != nil {
		return nil, fmt.Errorf("保存済みの結果 %s を復元できませんでした: %w", rec.ID, err)
	}
	return s, nil
}

func loadRecord(ctx context.Context, appCtx *builder.AppContext) (store.Record, error) {
	var (
		rec store.Record
		err error
	)
	if id := appCtx.Options.ResultID; id != "" {
		rec, err = appCtx.Store.Get(ctx, id)
	} else {
		rec, err = appCtx.Store.Latest(ctx)
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.Record{}, fmt.Errorf("%w: 先に assess コマンドで診断してください", err)
	}
	return rec, err
}

func showAdvice(ctx context.Context, s workflow.Session, topicID string) error {
	text, err := s.RequestAdvice(ctx, topicID)
	if err != nil {
		return err
	}
	rendered, err := runner.RenderAdvice(text)
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}

func showCharacters(ctx context.Context, s workflow.Session) error {
	list, err := s.RequestCharacters(ctx)
	if err != nil {
		return err
	}
	fmt.Print(runner.RenderCharacters(list, s.Snapshot().Characters.State.Message))
	return nil
}

// generatePortraits は1人または全員分の肖像画を生成して保存するのだ。
func generatePortraits(ctx context.Context, appCtx *builder.AppContext, s workflow.Session, name string) error {
	selfie, err := runner.LoadSelfie(appCtx.Options.SelfieFile)
	if err != nil {
		return err
	}

	snap := s.Snapshot()
	names := snap.Characters.List.Names()
	if name != "" {
		names = []string{name}
	}

	batch := workflow.GeneratePortraits(ctx, s, names, selfie, len(names))
	exportRunner := appCtx.BuildExportRunner()
	for _, n := range names {
		p, ok := batch.Portraits[n]
		if !ok {
			continue
		}
		if _, err := exportRunner.ExportPortrait(ctx, snap.Profile, *snap.Result, p, appCtx.Options.Share); err != nil {
			return err
		}
	}
	for n, err := range batch.Errors {
		fmt.Fprintf(os.Stderr, "Gagal membuat potret %s: %v\n", n, err)
	}
	return batch.Err()
}
