package prompts

import "github.com/shouni/go-cact-kit/pkg/domain"

// TextPrompt は、テキスト補完向けのプロンプトを構築する契約です。
type TextPrompt interface {
	// Synthesis は全設問の回答からプロフィール合成用の Payload を構築します。
	Synthesis(profile domain.UserProfile, answers domain.AnswerSet) (domain.Payload, error)
	// Advice は指定トピックのアドバイス用 Payload を構築します。
	Advice(result domain.AnalysisResult, profile domain.UserProfile, topic domain.Topic) (domain.Payload, error)
	// Characters はキャラクターマッチング用 Payload を構築します。
	Characters(result domain.AnalysisResult, profile domain.UserProfile) (domain.Payload, error)
}

// ImagePrompt は、肖像画生成向けのプロンプトを構築する契約です。
type ImagePrompt interface {
	// Portrait は自撮り画像（任意）を含むマルチモーダル Payload を構築します。
	Portrait(match domain.CharacterMatch, profile domain.UserProfile, result domain.AnalysisResult, selfie *domain.Selfie) (domain.Payload, error)
}
