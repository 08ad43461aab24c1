package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shouni/go-cact-kit/pkg/domain"
)

// requiredAnalysisKeys は合成応答の必須トップレベルキーなのだ。
var requiredAnalysisKeys = []string{"mbti", "temperament", "finalProfile", "narrative"}

// ParseAnalysis はプロフィール合成の応答を検証し、AnalysisResult にデコードします。
// 必須キーの欠落、特性が4つでない、コンピテンシーキーの不足はすべて MalformedResponseError になるのだ。
func ParseAnalysis(raw string) (domain.AnalysisResult, error) {
	rawJSON := extractJSON(raw, '{', '}')

	var top map[string]json.RawMessage
	if err := decodeTolerant(rawJSON, &top); err != nil {
		return domain.AnalysisResult{}, malformed("JSON オブジェクトとして解析できません", raw, err)
	}

	if missing := missingKeys(top, requiredAnalysisKeys); len(missing) > 0 {
		return domain.AnalysisResult{}, malformed(fmt.Sprintf("必須キーがありません: %s", strings.Join(missing, ", ")), raw, nil)
	}

	var fp map[string]json.RawMessage
	if err := json.Unmarshal(top["finalProfile"], &fp); err != nil {
		return domain.AnalysisResult{}, malformed("finalProfile がオブジェクトではありません", raw, err)
	}
	if missing := missingKeys(fp, []string{"keyTraits", "competencies"}); len(missing) > 0 {
		return domain.AnalysisResult{}, malformed(fmt.Sprintf("finalProfile に必須キーがありません: %s", strings.Join(missing, ", ")), raw, nil)
	}

	var comp map[string]json.RawMessage
	if err := json.Unmarshal(fp["competencies"], &comp); err != nil {
		return domain.AnalysisResult{}, malformed("competencies がオブジェクトではありません", raw, err)
	}
	if missing := missingKeys(comp, domain.CompetencyKeys()); len(missing) > 0 {
		return domain.AnalysisResult{}, malformed(fmt.Sprintf("competencies に必須キーがありません: %s", strings.Join(missing, ", ")), raw, nil)
	}

	var result domain.AnalysisResult
	// 修復済みの内容を使うため、正規化した top から再エンコードしてデコードするのだ
	normalized, err := json.Marshal(top)
	if err != nil {
		return domain.AnalysisResult{}, malformed("再エンコードに失敗しました", raw, err)
	}
	if err := json.Unmarshal(normalized, &result); err != nil {
		return domain.AnalysisResult{}, malformed("AnalysisResult の形状と一致しません", raw, err)
	}

	result = normalizeAnalysis(result)
	if err := result.Validate(); err != nil {
		return domain.AnalysisResult{}, malformed(err.Error(), raw, nil)
	}
	return result, nil
}

func normalizeAnalysis(r domain.AnalysisResult) domain.AnalysisResult {
	r.MBTI = strings.ToUpper(strings.TrimSpace(r.MBTI))
	if t, ok := domain.ParseTemperament(string(r.Temperament)); ok {
		r.Temperament = t
	}
	traits := make([]string, 0, len(r.FinalProfile.KeyTraits))
	for _, t := range r.FinalProfile.KeyTraits {
		traits = append(traits, strings.TrimSpace(t))
	}
	r.FinalProfile.KeyTraits = traits
	return r
}

// ParseCharacters はキャラクターマッチの応答をデコードします。
// 解析不能な入力でも panic せず、空のリストとエラーを組で返すのだ。
// 有効なエントリが3件に満たない場合は、有効なものと MalformedResponseError を返します。
// 不正なエントリが混ざっていても3件そろえば成功なのだ。
func ParseCharacters(raw string) (domain.CharacterList, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.CharacterList{}, malformed("応答が空です", raw, nil)
	}

	entries, err := decodeCharacterEntries(raw)
	if err != nil {
		return domain.CharacterList{}, malformed("キャラクター配列として解析できません", raw, err)
	}

	list := make(domain.CharacterList, 0, len(entries))
	for _, e := range entries {
		var c domain.CharacterMatch
		if err := json.Unmarshal(e, &c); err != nil || strings.TrimSpace(c.Name) == "" {
			continue
		}
		list = append(list, c)
	}

	list = list.Dedupe()
	if len(list) > domain.CharacterMatchCount {
		list = list[:domain.CharacterMatchCount]
	}

	switch {
	case len(list) == 0:
		return domain.CharacterList{}, malformed("有効なキャラクターが1件もありません", raw, nil)
	case len(list) < domain.CharacterMatchCount:
		return list, malformed(fmt.Sprintf("%d 件中 %d 件のみ有効でした", domain.CharacterMatchCount, len(list)), "", nil)
	}
	return list, nil
}

// decodeCharacterEntries は配列、または配列を1つ持つオブジェクトのどちらも受け付けるのだ。
func decodeCharacterEntries(raw string) ([]json.RawMessage, error) {
	var arr []json.RawMessage
	arrErr := decodeTolerant(extractJSON(raw, '[', ']'), &arr)
	if arrErr == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := decodeTolerant(extractJSON(raw, '{', '}'), &obj); err != nil {
		return nil, arrErr
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := json.Unmarshal(obj[k], &arr); err == nil {
			return arr, nil
		}
	}
	return nil, arrErr
}

// ParseAdvice はアドバイス応答を不透明なリッチテキスト（HTML断片）として扱います。
// 空でないことだけを検証し、サニタイズは描画側の責務なのだ。
func ParseAdvice(raw string) (string, error) {
	text := strings.TrimSpace(fenceRegex.ReplaceAllString(raw, ""))
	if text == "" {
		return "", malformed("アドバイスが空です", raw, nil)
	}
	return text, nil
}

func missingKeys(m map[string]json.RawMessage, keys []string) []string {
	var missing []string
	for _, k := range keys {
		v, ok := m[k]
		if !ok || len(v) == 0 || string(v) == "null" {
			missing = append(missing, k)
		}
	}
	return missing
}

func malformed(reason, raw string, err error) *domain.MalformedResponseError {
	return &domain.MalformedResponseError{
		Reason:  reason,
		Excerpt: truncateString(strings.TrimSpace(raw), excerptLen),
		Err:     err,
	}
}
