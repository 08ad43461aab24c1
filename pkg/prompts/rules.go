package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shouni/go-cact-kit/pkg/domain"

	"gopkg.in/yaml.v3"
)

var (
	//go:embed rules/default.yaml
	defaultRulesYAML []byte
	//go:embed rules/questions.yaml
	questionsYAML []byte
)

// GenerationRule は世代ごとのトーンとユーモアの指示なのだ。
type GenerationRule struct {
	Generation domain.Generation `yaml:"generation"`
	Tone       string            `yaml:"tone"`
	Humor      string            `yaml:"humor"`
}

// PoolRule は世代×性別ごとのキャラクター候補プールです。
type PoolRule struct {
	Generation domain.Generation `yaml:"generation"`
	Gender     domain.Gender     `yaml:"gender"`
	Pool       string            `yaml:"pool"`
}

// StyleRule は作品の出自から画風を決めるルールなのだ。
type StyleRule struct {
	Name       string   `yaml:"name"`
	Keywords   []string `yaml:"keywords"`
	Descriptor string   `yaml:"descriptor"`
}

// Matches は origin に対して大文字小文字を無視した部分一致を行います。
func (r StyleRule) Matches(origin string) bool {
	o := strings.ToLower(origin)
	for _, kw := range r.Keywords {
		kw = strings.ToLower(kw)
		if kw != "" && strings.Contains(o, kw) {
			return true
		}
	}
	return false
}

// ModestyPolicy は自撮り写真を使った衣装変換で服装の露出を抑える制約です。
// 製品判断として設定で切り替えられるようにしています。
type ModestyPolicy struct {
	Enabled bool            `yaml:"enabled"`
	Genders []domain.Gender `yaml:"genders"`
	Text    string          `yaml:"text"`
}

// AppliesTo は指定の性別に制約を注入するかを返すのだ。
func (m ModestyPolicy) AppliesTo(g domain.Gender) bool {
	if !m.Enabled || strings.TrimSpace(m.Text) == "" {
		return false
	}
	for _, target := range m.Genders {
		if target == g {
			return true
		}
	}
	return false
}

// Rules はプロンプト構築に使うすべての可変ルールを保持します。
type Rules struct {
	Generations   []GenerationRule `yaml:"generations"`
	Pools         []PoolRule       `yaml:"pools"`
	Styles        []StyleRule      `yaml:"styles"`
	FallbackStyle StyleRule        `yaml:"fallback_style"`
	Modesty       ModestyPolicy    `yaml:"modesty"`
	Topics        []domain.Topic   `yaml:"topics"`
}

// DefaultRules は埋め込みの既定ルールを返すのだ。
func DefaultRules() (Rules, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules はファイルからルールを読み込みます。path が空なら既定ルールを返します。
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("ルールファイルの読み込みに失敗したのだ: %w", err)
	}
	return ParseRules(data)
}

// ParseRules は YAML をデコードして検証するのだ。
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("ルールのデコードに失敗したのだ: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate は世代・性別の組み合わせがすべて揃っているかを確認します。
func (r Rules) Validate() error {
	for _, g := range []domain.Generation{domain.GenX, domain.GenY, domain.GenZ} {
		if _, ok := r.generationRule(g); !ok {
			return fmt.Errorf("世代 %q のトーンルールがありません", g)
		}
		for _, gender := range []domain.Gender{domain.GenderMale, domain.GenderFemale} {
			if _, ok := r.pool(g, gender); !ok {
				return fmt.Errorf("世代 %q × 性別 %q の候補プールがありません", g, gender)
			}
		}
	}
	if strings.TrimSpace(r.FallbackStyle.Descriptor) == "" {
		return fmt.Errorf("fallback_style の descriptor が空です")
	}
	if len(r.Topics) == 0 {
		return fmt.Errorf("アドバイスのトピックが1つもありません")
	}
	return nil
}

// SelectStyle は origin に最初に一致した画風ルールを返します。どれにも一致しなければフォールバックなのだ。
func (r Rules) SelectStyle(origin string) StyleRule {
	for _, s := range r.Styles {
		if s.Matches(origin) {
			return s
		}
	}
	return r.FallbackStyle
}

// TopicByID は ID またはラベルでトピックを検索するのだ。
func (r Rules) TopicByID(id string) (domain.Topic, bool) {
	for _, t := range r.Topics {
		if strings.EqualFold(t.ID, id) || strings.EqualFold(t.Label, id) {
			return t, true
		}
	}
	return domain.Topic{}, false
}

func (r Rules) generationRule(g domain.Generation) (GenerationRule, bool) {
	for _, gr := range r.Generations {
		if gr.Generation == g {
			return gr, true
		}
	}
	return GenerationRule{}, false
}

func (r Rules) pool(g domain.Generation, gender domain.Gender) (PoolRule, bool) {
	for _, p := range r.Pools {
		if p.Generation == g && p.Gender == gender {
			return p, true
		}
	}
	return PoolRule{}, false
}

// DefaultQuestions は埋め込みの設問リストを返すのだ。
func DefaultQuestions() (domain.Questions, error) {
	var doc struct {
		Questions domain.Questions `yaml:"questions"`
	}
	if err := yaml.Unmarshal(questionsYAML, &doc); err != nil {
		return nil, fmt.Errorf("設問データのデコードに失敗したのだ: %w", err)
	}
	if err := doc.Questions.Validate(); err != nil {
		return nil, err
	}
	return doc.Questions, nil
}
