package domain

import (
	"fmt"
	"strings"
)

// KeyTraitCount は FinalProfile が持つ特性形容詞の数です。
const KeyTraitCount = 4

// MBTI コードの 16 値
var mbtiCodes = map[string]struct{}{
	"INTJ": {}, "INTP": {}, "ENTJ": {}, "ENTP": {},
	"INFJ": {}, "INFP": {}, "ENFJ": {}, "ENFP": {},
	"ISTJ": {}, "ISFJ": {}, "ESTJ": {}, "ESFJ": {},
	"ISTP": {}, "ISFP": {}, "ESTP": {}, "ESFP": {},
}

// IsMBTICode は 16 種類の MBTI コードかを判定します。
func IsMBTICode(s string) bool {
	_, ok := mbtiCodes[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// Temperament は古典的な四気質なのだ。
type Temperament string

const (
	Sanguine    Temperament = "Sanguine"
	Choleric    Temperament = "Choleric"
	Melancholic Temperament = "Melancholic"
	Phlegmatic  Temperament = "Phlegmatic"
)

// ParseTemperament は表記ゆれを吸収して Temperament に正規化します。
func ParseTemperament(s string) (Temperament, bool) {
	for _, t := range []Temperament{Sanguine, Choleric, Melancholic, Phlegmatic} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, true
		}
	}
	return "", false
}

// Competencies は5つの業務コンピテンシー評価です。値は "Score (Reason)" 形式。
type Competencies struct {
	Communication     string `json:"communication"`
	ManagingChange    string `json:"managingChange"`
	ResultOrientation string `json:"resultOrientation"`
	PublicService     string `json:"publicService"`
	DecisionMaking    string `json:"decisionMaking"`
}

// CompetencyKeys はプロバイダ契約上のキー名を固定順で返すのだ。
func CompetencyKeys() []string {
	return []string{"communication", "managingChange", "resultOrientation", "publicService", "decisionMaking"}
}

// Entries はキーと値のペアを固定順で返します。
func (c Competencies) Entries() [][2]string {
	return [][2]string{
		{"communication", c.Communication},
		{"managingChange", c.ManagingChange},
		{"resultOrientation", c.ResultOrientation},
		{"publicService", c.PublicService},
		{"decisionMaking", c.DecisionMaking},
	}
}

// FinalProfile は4つの体系を統合したプロフィールです。
type FinalProfile struct {
	HexacoSummary string       `json:"hexacoSummary"`
	HSPLevel      string       `json:"hspLevel"`
	Synthesis     string       `json:"synthesis"`
	KeyTraits     []string     `json:"keyTraits"`
	Competencies  Competencies `json:"competencies"`
}

// Narrative は世代別トーンで書かれた語り部分なのだ。
type Narrative struct {
	Tone            string `json:"tone"`
	HumorousContent string `json:"humorousContent"`
	Summary         string `json:"summary"`
}

// AnalysisResult はプロフィール合成の結果です。
// 一度生成されたら不変で、新しいクイズ実行で丸ごと置き換えられます。
type AnalysisResult struct {
	MBTI         string       `json:"mbti"`
	Temperament  Temperament  `json:"temperament"`
	FinalProfile FinalProfile `json:"finalProfile"`
	Narrative    Narrative    `json:"narrative"`
}

// Validate は形状チェックを行い、違反があれば理由を返すのだ。
func (r AnalysisResult) Validate() error {
	if !IsMBTICode(r.MBTI) {
		return fmt.Errorf("MBTIコードが不正です: %q", r.MBTI)
	}
	if _, ok := ParseTemperament(string(r.Temperament)); !ok {
		return fmt.Errorf("気質が不正です: %q", r.Temperament)
	}
	if n := len(r.FinalProfile.KeyTraits); n != KeyTraitCount {
		return fmt.Errorf("keyTraits は %d 個である必要がありますが %d 個でした", KeyTraitCount, n)
	}
	for i, t := range r.FinalProfile.KeyTraits {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("keyTraits[%d] が空です", i)
		}
	}
	for _, e := range r.FinalProfile.Competencies.Entries() {
		if strings.TrimSpace(e[1]) == "" {
			return fmt.Errorf("competencies.%s が空です", e[0])
		}
	}
	return nil
}

// Clone はスライスを含めたディープコピーを返します。
func (r AnalysisResult) Clone() AnalysisResult {
	c := r
	if r.FinalProfile.KeyTraits != nil {
		c.FinalProfile.KeyTraits = append([]string(nil), r.FinalProfile.KeyTraits...)
	}
	return c
}

// ShareCaption はシェア時のキャプションを組み立てるのだ。
func (r AnalysisResult) ShareCaption() string {
	return fmt.Sprintf("Cek profil psikologi gue: %s + %s di CACT Gue Banget!", r.MBTI, r.Temperament)
}
