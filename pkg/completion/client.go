package completion

import (
	"context"

	"github.com/shouni/go-cact-kit/pkg/domain"

	"github.com/shouni/gemini-image-kit/ports"
)

// Request は補完プロバイダへの1回分のリクエストです。
type Request struct {
	Model   string
	Payload domain.Payload
	// Seed は画像生成の再現性を上げるための任意シード
	Seed *int32
}

// Result はマルチモーダル補完の結果なのだ。画像は最初に見つかった1枚だけを保持します。
type Result struct {
	Text  string
	Image *ports.ImageResponse
}

// Client は外部の生成AIプロバイダに対する境界の契約です。
// 失敗はすべて *domain.ProviderError として返されます。
type Client interface {
	CompleteText(ctx context.Context, req Request) (string, error)
	CompleteMultimodal(ctx context.Context, req Request) (*Result, error)
}
