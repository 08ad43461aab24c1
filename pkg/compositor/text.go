package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Shadow はテキストの影の設定なのだ。
type Shadow struct {
	Offset int
	Color  color.Color
}

// DrawCentered は baselineY を基線として、水平中央にテキストを描画します。
// shadow が nil でなければ先に影を描くのだ。
func DrawCentered(dst draw.Image, face font.Face, s string, baselineY int, c color.Color, shadow *Shadow) {
	b := dst.Bounds()
	DrawCenteredAt(dst, face, s, b.Min.X+b.Dx()/2, baselineY, c, shadow)
}

// DrawCenteredAt は centerX を中心にテキストを描画します。
func DrawCenteredAt(dst draw.Image, face font.Face, s string, centerX, baselineY int, c color.Color, shadow *Shadow) {
	if s == "" {
		return
	}
	d := &font.Drawer{Dst: dst, Face: face}
	x := fixed.I(centerX) - d.MeasureString(s)/2

	if shadow != nil && shadow.Offset > 0 {
		d.Src = image.NewUniform(shadow.Color)
		d.Dot = fixed.Point26_6{X: x + fixed.I(shadow.Offset), Y: fixed.I(baselineY + shadow.Offset)}
		d.DrawString(s)
	}

	d.Src = image.NewUniform(c)
	d.Dot = fixed.Point26_6{X: x, Y: fixed.I(baselineY)}
	d.DrawString(s)
}

// MeasureWidth はテキストの描画幅をピクセルで返すのだ。
func MeasureWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// WrapText は maxWidth に収まるよう単語単位で折り返すのだ。
func WrapText(face font.Face, s string, maxWidth int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if MeasureWidth(face, candidate) <= maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}
