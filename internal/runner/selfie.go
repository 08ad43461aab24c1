package runner

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shouni/go-cact-kit/pkg/domain"
)

// maxSelfieBytes は自撮り画像として受け付ける最大サイズなのだ。
const maxSelfieBytes = 10 << 20

// LoadSelfie は自撮り画像を読み込み、MIME タイプを判定します。
// path が空の場合は nil を返すのだ。
func LoadSelfie(path string) (*domain.Selfie, error) {
	if path == "" {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &domain.ValidationError{Field: "selfie", Reason: fmt.Sprintf("ファイルを開けません: %v", err)}
	}
	if info.Size() > maxSelfieBytes {
		return nil, &domain.ValidationError{Field: "selfie", Reason: fmt.Sprintf("ファイルが大きすぎます (%d bytes)", info.Size())}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("自撮り画像の読み込みに失敗しました: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, &domain.ValidationError{Field: "selfie", Reason: fmt.Sprintf("画像ファイルではありません: %s", mime)}
	}
	return &domain.Selfie{Data: data, MimeType: mime}, nil
}
