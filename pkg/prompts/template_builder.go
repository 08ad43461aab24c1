package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/shouni/go-cact-kit/pkg/domain"
)

// templateSet はモードごとに解析済みのテンプレートを保持します。
type templateSet map[string]*template.Template

func parseTemplates() (templateSet, error) {
	parsed := make(templateSet)
	for mode, content := range allTemplates {
		if content == "" {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: 内容が空です", mode)
		}

		tmpl, err := template.New(mode).Option("missingkey=error").Parse(content)
		if err != nil {
			return nil, fmt.Errorf("プロンプト '%s' の解析に失敗: %w", mode, err)
		}
		parsed[mode] = tmpl
	}
	return parsed, nil
}

func (ts templateSet) execute(mode string, data any) (string, error) {
	tmpl, ok := ts[mode]
	if !ok {
		return "", fmt.Errorf("不明なモードです: '%s'", mode)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// TextPromptBuilder は合成・アドバイス・キャラクターのプロンプトを構築します。
// 副作用を持たない純粋な組み立てのみを行うのだ。
type TextPromptBuilder struct {
	templates templateSet
	rules     Rules
	questions domain.Questions
}

// NewTextPromptBuilder は TextPromptBuilder を初期化します。
func NewTextPromptBuilder(rules Rules, questions domain.Questions) (*TextPromptBuilder, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("設問リストが空です")
	}
	ts, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &TextPromptBuilder{
		templates: ts,
		rules:     rules,
		questions: questions,
	}, nil
}

// Questions は組み込まれた設問リストを返すのだ。
func (b *TextPromptBuilder) Questions() domain.Questions {
	return b.questions
}

// Synthesis は全問回答済みの AnswerSet から合成プロンプトを作ります。
func (b *TextPromptBuilder) Synthesis(profile domain.UserProfile, answers domain.AnswerSet) (domain.Payload, error) {
	if missing := answers.Missing(b.questions); len(missing) > 0 {
		return domain.Payload{}, &domain.ValidationError{
			Field:  "answers",
			Reason: fmt.Sprintf("未回答の設問があります: %v", missing),
		}
	}

	items := make([]QnA, 0, len(b.questions))
	for _, q := range b.questions {
		items = append(items, QnA{Question: q, Answer: strings.TrimSpace(answers[q.ID])})
	}

	text, err := b.templates.execute(ModeSynthesis, synthesisData{
		Profile:        profile,
		Items:          items,
		Generations:    b.rules.Generations,
		TraitCount:     domain.KeyTraitCount,
		CompetencyKeys: domain.CompetencyKeys(),
	})
	if err != nil {
		return domain.Payload{}, err
	}
	return domain.TextPayload(text, true), nil
}

// Advice はトピック別アドバイスのプロンプトを作るのだ。応答は HTML 断片を期待します。
func (b *TextPromptBuilder) Advice(result domain.AnalysisResult, profile domain.UserProfile, topic domain.Topic) (domain.Payload, error) {
	if strings.TrimSpace(topic.Label) == "" {
		topic.Label = topic.ID
	}
	if topic.Label == "" {
		return domain.Payload{}, &domain.ValidationError{Field: "topic", Reason: "トピックが空です"}
	}

	text, err := b.templates.execute(ModeAdvice, adviceData{
		Profile:  profile,
		Result:   result,
		Topic:    topic,
		MaxChars: MaxAdviceChars,
	})
	if err != nil {
		return domain.Payload{}, err
	}
	return domain.TextPayload(text, false), nil
}

// Characters は世代×性別の候補プールを埋め込んだマッチングプロンプトを作ります。
func (b *TextPromptBuilder) Characters(result domain.AnalysisResult, profile domain.UserProfile) (domain.Payload, error) {
	pool, ok := b.rules.pool(profile.Generation, profile.Gender)
	if !ok {
		return domain.Payload{}, &domain.ValidationError{
			Field:  "profile",
			Reason: fmt.Sprintf("世代 %q × 性別 %q の候補プールがありません", profile.Generation, profile.Gender),
		}
	}

	text, err := b.templates.execute(ModeCharacters, charactersData{
		Profile:          profile,
		Result:           result,
		Pool:             pool.Pool,
		Count:            domain.CharacterMatchCount,
		MaxJustification: domain.MaxJustificationRunes,
	})
	if err != nil {
		return domain.Payload{}, err
	}
	return domain.TextPayload(text, true), nil
}
