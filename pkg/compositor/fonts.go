package compositor

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Weight は描画に使う書体の太さです。
type Weight int

const (
	Regular Weight = iota
	Bold
)

var (
	fontsOnce sync.Once
	fonts     map[Weight]*opentype.Font
	fontsErr  error
)

// loadFonts は埋め込みの Go フォントを一度だけ解析するのだ。
// 実行環境のフォントに依存しないので、出力は環境間で一致します。
func loadFonts() (map[Weight]*opentype.Font, error) {
	fontsOnce.Do(func() {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("regular フォントの解析に失敗しました: %w", err)
			return
		}
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("bold フォントの解析に失敗しました: %w", err)
			return
		}
		fonts = map[Weight]*opentype.Font{Regular: regular, Bold: bold}
	})
	return fonts, fontsErr
}

// NewFace は指定ピクセルサイズのフォントフェイスを作ります。呼び出し側で Close するのだ。
func NewFace(w Weight, sizePx float64) (font.Face, error) {
	fs, err := loadFonts()
	if err != nil {
		return nil, err
	}
	if sizePx < 1 {
		sizePx = 1
	}
	return opentype.NewFace(fs[w], &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
