package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-cact-kit/internal/builder"
	"github.com/shouni/go-cact-kit/internal/config"
	"github.com/shouni/go-cact-kit/internal/runner"
	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/orchestrator"
	"github.com/shouni/go-cact-kit/pkg/workflow"
)

type menuAction int

const (
	actionAdvice menuAction = iota
	actionCharacters
	actionPortrait
	actionDownload
	actionShare
	actionRestart
	actionQuit
)

var menuItems = []string{
	"Saran personal",
	"Karakter yang mirip",
	"Potret karakter",
	"Simpan kartu hasil",
	"Bagikan kartu hasil",
	"Ulangi tes",
	"Keluar",
}

// resultMenu は結果画面の操作ループなのだ。
// 二次生成の失敗はその項目だけのエラーとして表示し、ループは続けます。
func resultMenu(ctx context.Context, appCtx *builder.AppContext, s workflow.Session) error {
	p := appCtx.Prompter
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx, err := p.Select("Mau lanjut ke mana?", menuItems)
		if err != nil {
			if errors.Is(err, runner.ErrAborted) {
				return nil
			}
			return err
		}

		switch menuAction(idx) {
		case actionQuit:
			return nil
		case actionRestart:
			s.Reset()
			return RunAssess(ctx, appCtx)
		default:
			err = runMenuAction(ctx, appCtx, s, menuAction(idx))
		}
		if err != nil && !errors.Is(err, orchestrator.ErrSuperseded) {
			reportItemError(err)
		}
	}
}

func runMenuAction(ctx context.Context, appCtx *builder.AppContext, s workflow.Session, action menuAction) error {
	snap := s.Snapshot()
	switch action {
	case actionAdvice:
		topics := appCtx.Manager.Topics()
		labels := make([]string, len(topics))
		for i, t := range topics {
			labels[i] = t.Label
		}
		idx, err := appCtx.Prompter.Select("Pilih topik", labels)
		if err != nil {
			return err
		}
		return showAdvice(ctx, s, topics[idx].ID)

	case actionCharacters:
		return showCharacters(ctx, s)

	case actionPortrait:
		if snap.Characters.State.Status != domain.StatusResolved {
			if err := showCharacters(ctx, s); err != nil {
				return err
			}
			snap = s.Snapshot()
		}
		names := snap.Characters.List.Names()
		if len(names) == 0 {
			return &domain.Failure{Action: domain.RecoveryRetryItem, Err: errors.New("キャラクターがまだありません")}
		}
		idx, err := appCtx.Prompter.Select("Pilih karakter", names)
		if err != nil {
			return err
		}
		return generatePortraits(ctx, appCtx, s, names[idx])

	case actionDownload, actionShare:
		_, err := appCtx.BuildExportRunner().ExportCard(ctx, snap.Profile, *snap.Result, action == actionShare)
		return err
	}
	return nil
}

// reportItemError は失敗した項目だけにエラーを表示するのだ。
func reportItemError(err error) {
	slog.Warn("操作に失敗しました", "error", err, "recovery", domain.RecoveryFor(err))
	switch domain.RecoveryFor(err) {
	case domain.RecoveryRetryItem:
		fmt.Println("Gagal memuat. Silakan coba lagi.")
	case domain.RecoveryRetryExport:
		fmt.Println("Gagal menyimpan gambar. Silakan coba lagi.")
	case domain.RecoveryFixInput:
		fmt.Println("Input tidak valid: " + err.Error())
	default:
		fmt.Println("Terjadi kesalahan: " + err.Error())
	}
}

// withAppContext は AppContext を構築し、処理後に必ず解放するのだ。
func withAppContext(ctx context.Context, cfg *config.Config, fn func(*builder.AppContext) error) error {
	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := appCtx.Close(); cerr != nil {
			slog.Warn("リソースの解放に失敗しました", "error", cerr)
		}
	}()
	return fn(appCtx)
}
