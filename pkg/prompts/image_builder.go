package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-cact-kit/pkg/domain"
)

// ImagePromptBuilder は肖像画生成のプロンプトを構築します。
type ImagePromptBuilder struct {
	templates templateSet
	rules     Rules
}

// NewImagePromptBuilder は ImagePromptBuilder を初期化するのだ。
func NewImagePromptBuilder(rules Rules) (*ImagePromptBuilder, error) {
	ts, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &ImagePromptBuilder{templates: ts, rules: rules}, nil
}

// Portrait はキャラクターの出自から画風を選び、自撮りがあれば衣装変換の指示と画像パートを加えます。
// 服装の制約は Rules.Modesty が対象とする性別で、かつ自撮りがある場合にだけ注入されるのだ。
func (b *ImagePromptBuilder) Portrait(match domain.CharacterMatch, profile domain.UserProfile, result domain.AnalysisResult, selfie *domain.Selfie) (domain.Payload, error) {
	if strings.TrimSpace(match.Name) == "" {
		return domain.Payload{}, &domain.ValidationError{Field: "character", Reason: "キャラクター名が空です"}
	}

	hasSelfie := selfie != nil && len(selfie.Data) > 0
	if hasSelfie && selfie.MimeType == "" {
		return domain.Payload{}, &domain.ValidationError{Field: "selfie", Reason: "自撮り画像の MIME タイプが不明です"}
	}

	data := portraitData{
		Character:   match,
		MBTI:        result.MBTI,
		Temperament: result.Temperament,
		Style:       b.rules.SelectStyle(match.Origin),
		HasSelfie:   hasSelfie,
	}
	if hasSelfie && b.rules.Modesty.AppliesTo(profile.Gender) {
		data.Modesty = strings.TrimSpace(b.rules.Modesty.Text)
	}

	text, err := b.templates.execute(ModePortrait, data)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("肖像画プロンプトの生成に失敗しました: %w", err)
	}

	payload := domain.Payload{Parts: []domain.Part{{Text: text}}}
	if hasSelfie {
		payload.Parts = append(payload.Parts, domain.Part{Data: selfie.Data, MIMEType: selfie.MimeType})
	}
	return payload, nil
}

// StyleFor は origin に対して選ばれる画風ルール名を返すのだ。
func (b *ImagePromptBuilder) StyleFor(origin string) string {
	return b.rules.SelectStyle(origin).Name
}
