package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shouni/go-cact-kit/pkg/domain"
)

const (
	// ShareTitle は共有シートに表示するタイトルなのだ。
	ShareTitle = "CACT Gue Banget Result"

	jpegMimeType = "image/jpeg"
	shareTempDir = "cact-share-*"
)

// ShareOutcome は Share の結果です。
type ShareOutcome struct {
	Shared    bool   // ネイティブ共有が完了した
	Cancelled bool   // ユーザーがキャンセルした（何もしない）
	Path      string // フォールバックでダウンロードした場合の保存先
}

// Exporter は画像のダウンロードと共有を担当します。
type Exporter struct {
	outputDir string
	sharer    Sharer
}

// NewExporter は Exporter を作成するのだ。sharer は nil でもよく、その場合は常にダウンロードします。
func NewExporter(outputDir string, sharer Sharer) *Exporter {
	if outputDir == "" {
		outputDir = "."
	}
	return &Exporter{outputDir: outputDir, sharer: sharer}
}

// Download は data を出力ディレクトリへ書き込み、保存先のパスを返します。
// 一時ファイルに書いてからリネームするので、途中までのファイルが見えることはないのだ。
func (e *Exporter) Download(ctx context.Context, data []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", &domain.RenderError{Op: "download", Err: errors.New("書き込むデータが空です")}
	}

	path, err := resolveLocalPath(e.outputDir, filename)
	if err != nil {
		return "", &domain.RenderError{Op: "download", Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", &domain.RenderError{Op: "download", Err: err}
	}

	slog.Info("画像を保存しました", "path", path, "bytes", len(data))
	return path, nil
}

// Share はネイティブ共有を試み、共有できない場合はダウンロードにフォールバックします。
// キャンセルはエラーではなく、何もせずに戻るのだ。
func (e *Exporter) Share(ctx context.Context, data []byte, filename, title, text string) (ShareOutcome, error) {
	if title == "" {
		title = ShareTitle
	}
	if e.sharer == nil || !e.sharer.CanShare() {
		slog.Debug("共有に対応していないためダウンロードします", "file", filename)
		return e.fallback(ctx, data, filename)
	}

	start := time.Now()
	dir, err := os.MkdirTemp("", shareTempDir)
	if err != nil {
		slog.Warn("共有用の一時ファイルを作成できませんでした。ダウンロードします", "error", err)
		return e.fallback(ctx, data, filename)
	}
	defer os.RemoveAll(dir)

	blob := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(blob, data, 0o644); err != nil {
		slog.Warn("共有用の一時ファイルを書き込めませんでした。ダウンロードします", "error", err)
		return e.fallback(ctx, data, filename)
	}

	err = e.sharer.Share(ctx, ShareRequest{Path: blob, MimeType: jpegMimeType, Title: title, Text: text})
	switch {
	case err == nil:
		slog.Info("共有しました", "file", filename, "duration", time.Since(start).Round(time.Millisecond))
		return ShareOutcome{Shared: true}, nil
	case errors.Is(err, ErrShareCancelled):
		slog.Debug("共有がキャンセルされました", "file", filename)
		return ShareOutcome{Cancelled: true}, nil
	default:
		slog.Warn("共有に失敗しました。ダウンロードします", "error", err)
		return e.fallback(ctx, data, filename)
	}
}

func (e *Exporter) fallback(ctx context.Context, data []byte, filename string) (ShareOutcome, error) {
	path, err := e.Download(ctx, data, filename)
	if err != nil {
		return ShareOutcome{}, err
	}
	return ShareOutcome{Path: path}, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("一時ファイルへの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("パーミッションの設定に失敗しました: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("ファイルのリネームに失敗しました: %w", err)
	}
	return nil
}
