package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/shouni/go-cact-kit/pkg/domain"

	_ "golang.org/x/image/webp"
)

const (
	// DefaultJPEGQuality は出力 JPEG の品質なのだ。
	DefaultJPEGQuality = 90

	// TraitSeparator は特性を連結する区切り文字です。
	TraitSeparator = " • "

	gradientFraction = 0.40
	gradientMaxAlpha = 230 // 約 90% の不透明度

	mbtiFontRatio   = 0.10
	mbtiBaseline    = 0.85
	traitFontRatio  = 0.04
	traitBaseline   = 0.92
	shadowAlpha     = 153 // 60%
	shadowDivisor   = 300
	minShadowOffset = 2
)

// Compositor は生成された肖像画にプロフィール情報を焼き込む決定論的なパイプラインです。
type Compositor struct {
	quality int
}

// New は Compositor を初期化します。quality が 0 以下なら既定値を使うのだ。
func New(quality int) *Compositor {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Compositor{quality: quality}
}

// Compose は画像をネイティブ解像度のままデコードし、下部グラデーションと
// MBTI・特性テキストを描画して JPEG に再エンコードします。
// 同じ入力からは常に同じバイト列が得られるのだ。
func (c *Compositor) Compose(raw []byte, overlay domain.Overlay) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &domain.RenderError{Op: "decode", Err: err}
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, &domain.RenderError{Op: "decode", Err: fmt.Errorf("画像サイズが 0 です")}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)

	ApplyBottomGradient(canvas, gradientFraction, gradientMaxAlpha)

	shadow := &Shadow{
		Offset: max(minShadowOffset, w/shadowDivisor),
		Color:  color.NRGBA{A: shadowAlpha},
	}

	if mbti := strings.TrimSpace(overlay.MBTI); mbti != "" {
		face, err := NewFace(Bold, float64(w)*mbtiFontRatio)
		if err != nil {
			return nil, &domain.RenderError{Op: "font", Err: err}
		}
		DrawCentered(canvas, face, mbti, int(float64(h)*mbtiBaseline), color.White, shadow)
		_ = face.Close()
	}

	// 特性行は常に幅の 4% で描き、長すぎる場合は縮めずに両端をはみ出させるのだ
	if traits := joinTraits(overlay.Traits); traits != "" {
		face, err := NewFace(Regular, float64(w)*traitFontRatio)
		if err != nil {
			return nil, &domain.RenderError{Op: "font", Err: err}
		}
		DrawCentered(canvas, face, traits, int(float64(h)*traitBaseline), color.White, shadow)
		_ = face.Close()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, &domain.RenderError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

// joinTraits は空要素を除いた最大4つの特性を区切り文字で連結するのだ。
func joinTraits(traits []string) string {
	clean := make([]string, 0, domain.KeyTraitCount)
	for _, t := range traits {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
		if len(clean) == domain.KeyTraitCount {
			break
		}
	}
	return strings.Join(clean, TraitSeparator)
}
