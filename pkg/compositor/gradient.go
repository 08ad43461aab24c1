package compositor

import (
	"image"
	"image/color"
	"image/draw"
)

// ApplyBottomGradient は画像下部 fraction の範囲に、透明から maxAlpha の黒へ向かう
// 縦グラデーションを合成します。整数演算のみで計算するので結果は決定論的なのだ。
func ApplyBottomGradient(img *image.RGBA, fraction float64, maxAlpha uint8) {
	b := img.Bounds()
	h := b.Dy()
	span := int(float64(h) * fraction)
	if span <= 0 {
		return
	}
	startY := b.Max.Y - span

	for y := startY; y < b.Max.Y; y++ {
		// 最終行で maxAlpha に到達する線形補間
		a := uint32(maxAlpha) * uint32(y-startY+1) / uint32(span)
		keep := 255 - a
		row := img.Pix[img.PixOffset(b.Min.X, y) : img.PixOffset(b.Max.X-1, y)+4]
		for i := 0; i < len(row); i += 4 {
			row[i] = uint8(uint32(row[i]) * keep / 255)
			row[i+1] = uint8(uint32(row[i+1]) * keep / 255)
			row[i+2] = uint8(uint32(row[i+2]) * keep / 255)
			// 不透明な黒を重ねるので、アルファは src-over で増えるのだ
			row[i+3] = uint8(uint32(row[i+3]) + (255-uint32(row[i+3]))*a/255)
		}
	}
}

// FillVerticalGradient は top から bottom へ線形に変化する背景で矩形を塗ります。
func FillVerticalGradient(img *image.RGBA, r image.Rectangle, top, bottom color.RGBA) {
	r = r.Intersect(img.Bounds())
	h := r.Dy()
	if h <= 0 {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		t := uint32(y - r.Min.Y)
		den := uint32(h)
		c := color.RGBA{
			R: lerp(top.R, bottom.R, t, den),
			G: lerp(top.G, bottom.G, t, den),
			B: lerp(top.B, bottom.B, t, den),
			A: lerp(top.A, bottom.A, t, den),
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func lerp(a, b uint8, t, den uint32) uint8 {
	return uint8((uint32(a)*(den-t) + uint32(b)*t) / den)
}

// FillRect は矩形を col で src-over 合成するのだ。半透明色なら下地が透けます。
func FillRect(img draw.Image, r image.Rectangle, col color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}
