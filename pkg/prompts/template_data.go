package prompts

import (
	_ "embed"

	"github.com/shouni/go-cact-kit/pkg/domain"
)

const (
	ModeSynthesis  = "synthesis"
	ModeAdvice     = "advice"
	ModeCharacters = "characters"
	ModePortrait   = "portrait"

	// MaxAdviceChars はアドバイス本文の上限文字数なのだ
	MaxAdviceChars = 300
)

var (
	//go:embed templates/synthesis.md
	SynthesisPrompt string
	//go:embed templates/advice.md
	AdvicePrompt string
	//go:embed templates/characters.md
	CharactersPrompt string
	//go:embed templates/portrait.md
	PortraitPrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[string]string{
	ModeSynthesis:  SynthesisPrompt,
	ModeAdvice:     AdvicePrompt,
	ModeCharacters: CharactersPrompt,
	ModePortrait:   PortraitPrompt,
}

// QnA は設問と回答の組です。
type QnA struct {
	Question domain.Question
	Answer   string
}

type synthesisData struct {
	Profile        domain.UserProfile
	Items          []QnA
	Generations    []GenerationRule
	TraitCount     int
	CompetencyKeys []string
}

type adviceData struct {
	Profile  domain.UserProfile
	Result   domain.AnalysisResult
	Topic    domain.Topic
	MaxChars int
}

type charactersData struct {
	Profile          domain.UserProfile
	Result           domain.AnalysisResult
	Pool             string
	Count            int
	MaxJustification int
}

type portraitData struct {
	Character   domain.CharacterMatch
	MBTI        string
	Temperament domain.Temperament
	Style       StyleRule
	HasSelfie   bool
	Modesty     string
}
