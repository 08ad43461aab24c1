package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"

	"github.com/shouni/go-cact-kit/pkg/compositor"
	"github.com/shouni/go-cact-kit/pkg/domain"

	"golang.org/x/image/font"
)

// 結果カードの論理サイズ (px)。Scale 倍して描画するのだ。
const (
	cardWidth      = 600
	cardHeight     = 900
	cardBorder     = 8
	cardPadding    = 32
	DefaultScale   = 2
	cardTitle      = "CACT Gue Banget"
	cardFooter     = "Analyzed by CACT AI"
	cardTraitsHead = "4 KEY TRAITS"
)

var (
	pastelBlue   = color.RGBA{R: 0xBF, G: 0xDB, B: 0xFE, A: 0xFF}
	pastelPink   = color.RGBA{R: 0xFB, G: 0xCF, B: 0xE8, A: 0xFF}
	white        = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	purple600    = color.RGBA{R: 0x93, G: 0x33, B: 0xEA, A: 0xFF}
	purple400    = color.RGBA{R: 0xC0, G: 0x84, B: 0xFC, A: 0xFF}
	purple100    = color.RGBA{R: 0xF3, G: 0xE8, B: 0xFF, A: 0xFF}
	gray800      = color.RGBA{R: 0x1F, G: 0x29, B: 0x37, A: 0xFF}
	gray500      = color.RGBA{R: 0x6B, G: 0x72, B: 0x80, A: 0xFF}
	gray400      = color.RGBA{R: 0x9C, G: 0xA3, B: 0xAF, A: 0xFF}
	boxFill      = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xCC}
	chipShadow   = color.NRGBA{A: 0x40}
	cardSepColor = color.RGBA{R: 0xE5, G: 0xE7, B: 0xEB, A: 0xFF}
)

// CardRenderer は結果カードを JPEG に描画します。
// ブラウザの DOM キャプチャの代わりに、同じレイアウトを直接ラスタ化するのだ。
type CardRenderer struct {
	Scale   int
	Quality int
}

// NewCardRenderer は既定の倍率・品質で CardRenderer を返します。
func NewCardRenderer() *CardRenderer {
	return &CardRenderer{Scale: DefaultScale, Quality: compositor.DefaultJPEGQuality}
}

// cardCanvas は倍率を意識した描画ヘルパーです。
type cardCanvas struct {
	img   *image.RGBA
	scale int
	faces []font.Face
}

func (c *cardCanvas) px(v int) int { return v * c.scale }

func (c *cardCanvas) face(w compositor.Weight, size float64) (font.Face, error) {
	f, err := compositor.NewFace(w, size*float64(c.scale))
	if err != nil {
		return nil, err
	}
	c.faces = append(c.faces, f)
	return f, nil
}

func (c *cardCanvas) close() {
	for _, f := range c.faces {
		_ = f.Close()
	}
}

func (c *cardCanvas) fill(r image.Rectangle, col color.Color) {
	r = image.Rect(c.px(r.Min.X), c.px(r.Min.Y), c.px(r.Max.X), c.px(r.Max.Y))
	compositor.FillRect(c.img, r, col)
}

func (c *cardCanvas) text(face font.Face, s string, centerX, baseline int, col color.Color) {
	compositor.DrawCenteredAt(c.img, face, s, c.px(centerX), c.px(baseline), col, nil)
}

// Render はプロフィールと分析結果からカード画像を生成します。
func (r *CardRenderer) Render(profile domain.UserProfile, result domain.AnalysisResult) ([]byte, error) {
	scale := r.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	quality := r.Quality
	if quality <= 0 || quality > 100 {
		quality = compositor.DefaultJPEGQuality
	}

	c := &cardCanvas{img: image.NewRGBA(image.Rect(0, 0, cardWidth*scale, cardHeight*scale)), scale: scale}
	defer c.close()

	if err := r.draw(c, profile, result); err != nil {
		return nil, &domain.RenderError{Op: "card", Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &domain.RenderError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

func (r *CardRenderer) draw(c *cardCanvas, profile domain.UserProfile, result domain.AnalysisResult) error {
	full := image.Rect(0, 0, cardWidth, cardHeight)
	inner := full.Inset(cardBorder)
	mid := cardWidth / 2

	// 背景: 白枠 + パステルグラデーション
	c.fill(full, white)
	upper := image.Rect(c.px(inner.Min.X), c.px(inner.Min.Y), c.px(inner.Max.X), c.px(cardHeight/2))
	lower := image.Rect(c.px(inner.Min.X), c.px(cardHeight/2), c.px(inner.Max.X), c.px(inner.Max.Y))
	compositor.FillVerticalGradient(c.img, upper, pastelBlue, white)
	compositor.FillVerticalGradient(c.img, lower, white, pastelPink)

	titleFace, err := c.face(compositor.Bold, 30)
	if err != nil {
		return err
	}
	labelFace, err := c.face(compositor.Bold, 14)
	if err != nil {
		return err
	}
	smallLabel, err := c.face(compositor.Bold, 12)
	if err != nil {
		return err
	}
	nickFace, err := c.face(compositor.Bold, 48)
	if err != nil {
		return err
	}
	mbtiFace, err := c.face(compositor.Bold, 36)
	if err != nil {
		return err
	}
	tempFace, err := c.face(compositor.Bold, 24)
	if err != nil {
		return err
	}
	chipFace, err := c.face(compositor.Bold, 20)
	if err != nil {
		return err
	}
	summaryFace, err := c.face(compositor.Regular, 14)
	if err != nil {
		return err
	}
	footerFace, err := c.face(compositor.Regular, 12)
	if err != nil {
		return err
	}

	// ヘッダー
	top := cardBorder + cardPadding
	c.text(titleFace, cardTitle, mid, top+30, purple600)
	c.fill(image.Rect(mid-48, top+44, mid+48, top+48), purple400)

	// ニックネーム
	c.text(labelFace, "NICKNAME", mid, 220, gray500)
	c.text(nickFace, profile.Nickname, mid, 278, gray800)

	// MBTI / Temperament ボックス
	boxLeft := image.Rect(cardBorder+cardPadding+32, 320, mid-8, 440)
	boxRight := image.Rect(mid+8, 320, cardWidth-cardBorder-cardPadding-32, 440)
	for _, b := range []image.Rectangle{boxLeft, boxRight} {
		c.fill(b, purple100)
		c.fill(b.Inset(1), boxFill)
	}
	c.text(smallLabel, "MBTI", centerX(boxLeft), 358, purple600)
	c.text(mbtiFace, result.MBTI, centerX(boxLeft), 408, gray800)
	c.text(smallLabel, "TEMPERAMENT", centerX(boxRight), 358, purple600)
	c.text(tempFace, string(result.Temperament), centerX(boxRight), 404, gray800)

	// 4 Key Traits (2x2)
	c.text(smallLabel, cardTraitsHead, mid, 490, gray500)
	traits := result.FinalProfile.KeyTraits
	if len(traits) > domain.KeyTraitCount {
		traits = traits[:domain.KeyTraitCount]
	}
	chipW, chipH, gap := (cardWidth-2*(cardBorder+cardPadding+32)-12)/2, 52, 12
	for i, trait := range traits {
		col, row := i%2, i/2
		x0 := cardBorder + cardPadding + 32 + col*(chipW+gap)
		y0 := 510 + row*(chipH+gap)
		chip := image.Rect(x0, y0, x0+chipW, y0+chipH)
		c.fill(chip.Add(image.Pt(0, 2)), chipShadow)
		c.fill(chip, purple600)
		c.text(chipFace, strings.TrimSpace(trait), centerX(chip), y0+34, white)
	}

	// フッター: 区切り線・サマリー・クレジット
	sepY := 740
	c.fill(image.Rect(cardBorder+cardPadding, sepY, cardWidth-cardBorder-cardPadding, sepY+1), cardSepColor)
	lines := compositor.WrapText(summaryFace, fmt.Sprintf("\"%s\"", result.Narrative.Summary), c.px(cardWidth-2*(cardBorder+cardPadding)))
	if len(lines) > 3 {
		lines = append(lines[:2], lines[2]+"…")
	}
	y := sepY + 40
	for _, line := range lines {
		c.text(summaryFace, line, mid, y, gray500)
		y += 20
	}
	c.text(footerFace, cardFooter, mid, cardHeight-cardBorder-cardPadding+4, gray400)
	return nil
}

func centerX(r image.Rectangle) int { return r.Min.X + r.Dx()/2 }
