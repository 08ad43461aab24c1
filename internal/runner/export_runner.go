package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/shouni/go-cact-kit/pkg/domain"
	"github.com/shouni/go-cact-kit/pkg/export"
	"github.com/shouni/go-cact-kit/pkg/workflow"
)

// ExportRunner は結果カードや肖像画を保存・共有する工程を担当するのだ。
type ExportRunner struct {
	card     workflow.CardRenderer
	exporter workflow.Exporter
	out      io.Writer
}

// NewExportRunner は ExportRunner を生成します。
func NewExportRunner(card workflow.CardRenderer, exporter workflow.Exporter, out io.Writer) *ExportRunner {
	if out == nil {
		out = io.Discard
	}
	return &ExportRunner{card: card, exporter: exporter, out: out}
}

// ExportCard は結果カードを描画して保存、または共有するのだ。
func (r *ExportRunner) ExportCard(ctx context.Context, profile domain.UserProfile, result domain.AnalysisResult, share bool) (export.ShareOutcome, error) {
	data, err := r.card.Render(profile, result)
	if err != nil {
		return export.ShareOutcome{}, err
	}
	return r.deliver(ctx, data, export.ResultFileName(profile.Nickname), result.ShareCaption(), share)
}

// ExportPortrait は合成済みの肖像画を保存、または共有します。
func (r *ExportRunner) ExportPortrait(ctx context.Context, profile domain.UserProfile, result domain.AnalysisResult, p *domain.Portrait, share bool) (export.ShareOutcome, error) {
	if p == nil || len(p.Composite) == 0 {
		return export.ShareOutcome{}, &domain.RenderError{Op: "portrait", Err: fmt.Errorf("肖像画がまだ生成されていません")}
	}
	return r.deliver(ctx, p.Composite, export.PortraitFileName(profile.Nickname, p.Character.Name), result.ShareCaption(), share)
}

func (r *ExportRunner) deliver(ctx context.Context, data []byte, filename, caption string, share bool) (export.ShareOutcome, error) {
	if !share {
		path, err := r.exporter.Download(ctx, data, filename)
		if err != nil {
			return export.ShareOutcome{}, err
		}
		fmt.Fprintln(r.out, progressStyle.Render("Tersimpan: "+path))
		return export.ShareOutcome{Path: path}, nil
	}

	outcome, err := r.exporter.Share(ctx, data, filename, export.ShareTitle, caption)
	if err != nil {
		return outcome, err
	}
	switch {
	case outcome.Shared:
		fmt.Fprintln(r.out, progressStyle.Render("Berhasil dibagikan."))
	case outcome.Cancelled:
		fmt.Fprintln(r.out, progressStyle.Render("Berbagi dibatalkan."))
	default:
		fmt.Fprintln(r.out, progressStyle.Render("Tersimpan: "+outcome.Path))
	}
	return outcome, nil
}
