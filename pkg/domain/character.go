package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shouni/gemini-image-kit/ports"
)

const (
	// CharacterMatchCount は1回のリクエストで求めるキャラクター数です。
	CharacterMatchCount = 3
	// MaxJustificationRunes は理由文の最大文字数なのだ。
	MaxJustificationRunes = 300
)

// CharacterMatch はユーザーに似ている架空のキャラクターなのだ。
// 画像の紐付けは Name をキーにして行います。
type CharacterMatch struct {
	Name          string `json:"name"`
	Origin        string `json:"origin"`
	Justification string `json:"justification"`
}

// Normalize は前後の空白を除き、理由文を上限文字数に切り詰めます。
func (c CharacterMatch) Normalize() CharacterMatch {
	c.Name = strings.TrimSpace(c.Name)
	c.Origin = strings.TrimSpace(c.Origin)
	c.Justification = truncateRunes(strings.TrimSpace(c.Justification), MaxJustificationRunes)
	return c
}

// String はキャラクターの情報を文字列で返すのだ。
func (c CharacterMatch) String() string {
	if c.Origin == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, c.Origin)
}

// CharacterList は1回のレスポンスで得られたキャラクター群です。
type CharacterList []CharacterMatch

// Dedupe は名前重複を後勝ちで解消しつつ、初出の順序を保ったリストを返すのだ。
// 名前が空のエントリは捨てます。
func (cl CharacterList) Dedupe() CharacterList {
	index := make(map[string]int, len(cl))
	out := make(CharacterList, 0, len(cl))
	for _, c := range cl {
		c = c.Normalize()
		if c.Name == "" {
			continue
		}
		if i, ok := index[c.Name]; ok {
			out[i] = c
			continue
		}
		index[c.Name] = len(out)
		out = append(out, c)
	}
	return out
}

// ByName は名前で検索します。
func (cl CharacterList) ByName(name string) (CharacterMatch, bool) {
	for _, c := range cl {
		if c.Name == name {
			return c, true
		}
	}
	return CharacterMatch{}, false
}

// Names は名前の一覧を返すのだ。
func (cl CharacterList) Names() []string {
	names := make([]string, len(cl))
	for i, c := range cl {
		names[i] = c.Name
	}
	return names
}

// Selfie はユーザーがアップロードした自撮り画像です。
type Selfie struct {
	Data     []byte
	MimeType string
}

// Overlay は合成時に画像へ焼き込むプロフィール情報なのだ。
type Overlay struct {
	MBTI   string
	Traits []string
}

// Portrait はキャラクター単位で遅延生成される肖像画です。
// Raw と Composite は必ず同じ生成サイクル (Cycle) から作られます。
type Portrait struct {
	Character CharacterMatch
	Cycle     uint64
	Raw       *ports.ImageResponse
	Composite []byte
	Overlay   Overlay
}

// GetSeedFromName は名前から決定論的なシード値を生成します。
func GetSeedFromName(name string) int32 {
	hash := sha256.Sum256([]byte(name))
	seed := int32(binary.BigEndian.Uint32(hash[:4]))
	// Gemini のシード値は正の数が望ましいため、最上位ビットを落とすのだ
	return seed & 0x7FFFFFFF
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
